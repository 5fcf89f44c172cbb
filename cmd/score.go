package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sponge-spot/internal/filter"
	"github.com/sells-group/sponge-spot/internal/scorer"
)

var sitesRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank sites by sponge-park suitability",
	Long: `Rank candidate sites by a weighted suitability score (0-100).

Each site's flood risk, nearby population, green space density, heat
island intensity, soil permeability, land availability and community
support are normalized to 0-1 and combined with the weights in the
scorer config section. The filter flags narrow the catalog first.

Examples:
  # Top five sites overall
  sites recommend

  # Top three government sites scoring at least 55
  sites recommend --ownership government --min-score 55 --limit 3

  # Export every site as CSV
  sites recommend --limit 0 --format csv > scores.csv`,
	RunE: runRecommend,
}

func init() {
	addFilterFlags(sitesRecommendCmd)
	f := sitesRecommendCmd.Flags()
	f.Int("limit", 0, "maximum number of sites (default from config, 0 returns every match)")
	f.Float64("min-score", 0, "minimum suitability score (overrides config)")
	f.String("format", "table", "output format: table, csv or json")

	sitesCmd.AddCommand(sitesRecommendCmd)
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "csv" && format != "json" {
		return eris.Errorf("recommend: --format must be table, csv or json (got %q)", format)
	}

	opts, err := rankOptionsFromFlags(cmd)
	if err != nil {
		return err
	}

	data, err := loadDataset(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	c, err := criteriaFromFlags(cmd, cfg.Filter.Criteria())
	if err != nil {
		return err
	}

	results := scorer.New(cfg.Scorer).Rank(filter.Apply(data.All(), c), &opts)
	zap.L().Debug("recommend: ranked sites", zap.Int("results", len(results)))

	switch format {
	case "json":
		return writeJSONOut(os.Stdout, results)
	case "csv":
		return writeScoresCSV(os.Stdout, results)
	}
	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "No sites meet the criteria.")
		return nil
	}
	formatScoresTable(os.Stdout, results)
	return nil
}

// rankOptionsFromFlags maps --limit and --min-score onto scorer options.
// An explicit --limit 0 returns every match.
func rankOptionsFromFlags(cmd *cobra.Command) (scorer.RankOptions, error) {
	var opts scorer.RankOptions
	flags := cmd.Flags()

	if flags.Changed("limit") {
		n, _ := flags.GetInt("limit")
		if n < 0 {
			return opts, eris.Errorf("recommend: --limit must be >= 0 (got %d)", n)
		}
		opts.Limit = n
		if n == 0 {
			opts.Limit = -1
		}
	}
	if flags.Changed("min-score") {
		v, _ := flags.GetFloat64("min-score")
		if v < 0 || v > 100 {
			return opts, eris.Errorf("recommend: --min-score must be between 0 and 100 (got %.1f)", v)
		}
		opts.MinScore = v
	}
	return opts, nil
}

func formatScoresTable(w io.Writer, results []scorer.SiteScore) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tNAME\tSUITABILITY\tLAT\tLON")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%.2f\t%.4f\t%.4f\n",
			i+1, r.ID, r.Name, r.Score, r.Coordinates.Lat, r.Coordinates.Lon)
	}
	_ = tw.Flush()
}

var scoreCSVComponents = []string{
	scorer.ComponentFloodRisk,
	scorer.ComponentPopulation,
	scorer.ComponentGreenSpace,
	scorer.ComponentHeatIsland,
	scorer.ComponentSoilPermeability,
	scorer.ComponentLandAvailability,
	scorer.ComponentCommunitySupport,
}

func writeScoresCSV(w io.Writer, results []scorer.SiteScore) error {
	cw := csv.NewWriter(w)
	header := append([]string{"rank", "id", "name", "latitude", "longitude", "suitability_score"}, scoreCSVComponents...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "recommend: write csv header")
	}
	for i, r := range results {
		row := []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(r.ID),
			r.Name,
			strconv.FormatFloat(r.Coordinates.Lat, 'f', 4, 64),
			strconv.FormatFloat(r.Coordinates.Lon, 'f', 4, 64),
			strconv.FormatFloat(r.Score, 'f', 2, 64),
		}
		for _, name := range scoreCSVComponents {
			row = append(row, strconv.FormatFloat(r.ComponentScores[name], 'f', 3, 64))
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "recommend: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "recommend: flush csv")
	}
	return nil
}
