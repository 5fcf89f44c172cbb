package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sponge-spot/internal/filter"
	"github.com/sells-group/sponge-spot/internal/geospatial"
	"github.com/sells-group/sponge-spot/internal/model"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Query the site catalog",
	Long:  "Commands for filtering, inspecting and searching candidate sponge sites.",
}

// -- sites list --

var sitesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sites matching the filter criteria",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := loadDataset(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		c, err := criteriaFromFlags(cmd, cfg.Filter.Criteria())
		if err != nil {
			return err
		}
		locs := filter.Apply(data.All(), c)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSONOut(os.Stdout, locs)
		}
		if len(locs) == 0 {
			fmt.Fprintln(os.Stderr, "No sites match the criteria.")
			return nil
		}
		formatSitesTable(os.Stdout, locs)
		return nil
	},
}

// -- sites show --

var sitesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the detail card of a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return eris.Errorf("site id must be an integer, got %q", args[0])
		}

		data, err := loadDataset(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		loc, ok := data.ByID(id)
		if !ok {
			return eris.Errorf("site %d not found", id)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSONOut(os.Stdout, model.NewCard(loc))
		}
		formatCard(os.Stdout, model.NewCard(loc))
		return nil
	},
}

// -- sites near --

var sitesNearCmd = &cobra.Command{
	Use:   "near",
	Short: "List the sites nearest to a point",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := loadDataset(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		lat, lon := cfg.Map.CenterLat, cfg.Map.CenterLon
		if cmd.Flags().Changed("lat") {
			lat, _ = cmd.Flags().GetFloat64("lat")
		}
		if cmd.Flags().Changed("lon") {
			lon, _ = cmd.Flags().GetFloat64("lon")
		}
		if !(model.Coordinates{Lat: lat, Lon: lon}).Valid() {
			return eris.Errorf("invalid point %f,%f", lat, lon)
		}
		k, _ := cmd.Flags().GetInt("count")

		neighbors := geospatial.NewIndex(data.All()).Nearest(lat, lon, k)
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tDISTANCE")
		for _, n := range neighbors {
			loc, _ := data.ByID(n.ID)
			fmt.Fprintf(tw, "%d\t%s\t%.2f km\n", n.ID, loc.Name, n.DistanceKm)
		}
		return tw.Flush()
	},
}

// criteriaFromFlags overlays the filter flags that were set on defaults.
func criteriaFromFlags(cmd *cobra.Command, defaults model.Criteria) (model.Criteria, error) {
	c := defaults.Clone()
	flags := cmd.Flags()

	if flags.Changed("ownership") {
		raw, _ := flags.GetStringSlice("ownership")
		c.Ownership = c.Ownership[:0]
		for _, s := range raw {
			o, err := model.ParseOwnership(s)
			if err != nil {
				return model.Criteria{}, err
			}
			c.Ownership = append(c.Ownership, o)
		}
	}
	if flags.Changed("zoning") {
		raw, _ := flags.GetStringSlice("zoning")
		c.Zoning = c.Zoning[:0]
		for _, s := range raw {
			z, err := model.ParseZoning(s)
			if err != nil {
				return model.Criteria{}, err
			}
			c.Zoning = append(c.Zoning, z)
		}
	}
	if flags.Changed("min-population") {
		n, _ := flags.GetInt("min-population")
		c.SetMinPopulation(n)
	}
	if flags.Changed("max-budget") {
		n, _ := flags.GetInt64("max-budget")
		c.SetMaxBudget(n)
	}
	return c, nil
}

func formatSitesTable(w io.Writer, locs []model.Location) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOWNERSHIP\tZONING\tPOPULATION\tBUDGET\tSCORE")
	for _, loc := range locs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			loc.ID, loc.Name, loc.Ownership.Label(), loc.Zoning.Label(),
			model.FormatCount(loc.Population), model.FormatBudget(loc.Budget), model.FormatScore(loc.Score))
	}
	_ = tw.Flush()
}

func formatCard(w io.Writer, card model.Card) {
	fmt.Fprintf(w, "%s (#%d)\n", card.Name, card.ID)
	fmt.Fprintln(w, strings.Repeat("-", len(card.Name)+len(strconv.Itoa(card.ID))+4))
	fmt.Fprintln(w, card.Score)
	fmt.Fprintln(w, card.Land)
	fmt.Fprintln(w, card.Residents)
	fmt.Fprintln(w, card.Budget)
	if card.Description != "" {
		fmt.Fprintf(w, "\n%s\n", card.Description)
	}
	if len(card.Benefits) > 0 {
		fmt.Fprintln(w, "\nBenefits:")
		for _, b := range card.Benefits {
			kinds := make([]string, 0, len(b.Kinds))
			for _, k := range b.Kinds {
				kinds = append(kinds, string(k))
			}
			fmt.Fprintf(w, "  [%s] %s\n", strings.Join(kinds, ","), b.Text)
		}
	}
}

func writeJSONOut(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode json")
	}
	return nil
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("ownership", nil, "ownership categories to include (government, private)")
	cmd.Flags().StringSlice("zoning", nil, "zoning categories to include (green-space, commercial, industrial, residential)")
	cmd.Flags().Int("min-population", 0, "minimum nearby population (default from config)")
	cmd.Flags().Int64("max-budget", 0, "maximum budget in dollars (default from config)")
}

func init() {
	addFilterFlags(sitesListCmd)
	sitesListCmd.Flags().Bool("json", false, "print JSON instead of a table")
	sitesShowCmd.Flags().Bool("json", false, "print the card as JSON")
	sitesNearCmd.Flags().Float64("lat", 0, "latitude (default map center)")
	sitesNearCmd.Flags().Float64("lon", 0, "longitude (default map center)")
	sitesNearCmd.Flags().IntP("count", "k", 5, "number of sites to return")

	sitesCmd.AddCommand(sitesListCmd, sitesShowCmd, sitesNearCmd)
	rootCmd.AddCommand(sitesCmd)
}
