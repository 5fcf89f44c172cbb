package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sponge-spot/internal/model"
	"github.com/sells-group/sponge-spot/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run one UI session locally",
	Long:  "Starts a session with the simulated startup delay, waits for it to finish loading and prints the selected site. Ctrl-C tears the session down before the timer fires.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := loadDataset(ctx, cfg)
		if err != nil {
			return err
		}

		c, err := criteriaFromFlags(cmd, cfg.Filter.Criteria())
		if err != nil {
			return err
		}

		sess := session.New(uuid.NewString(), data, sessionOptions(cfg))
		sess.SetCriteria(c)
		delay := sess.Start()
		fmt.Fprintf(os.Stderr, "Loading sites (%s)...\n", delay.Round(time.Millisecond))

		select {
		case <-sess.Ready():
		case <-ctx.Done():
			cancelled := sess.Close()
			zap.L().Info("session cancelled", zap.String("session", sess.ID()), zap.Bool("timer_stopped", cancelled))
			fmt.Fprintln(os.Stderr, "Cancelled.")
			return nil
		}
		defer sess.Close()

		visible := sess.Visible()
		fmt.Fprintf(os.Stdout, "%d of %d sites match the criteria.\n\n", len(visible), data.Len())
		formatCard(os.Stdout, model.NewCard(sess.Selected()))
		return nil
	},
}

func init() {
	addFilterFlags(sessionCmd)
	rootCmd.AddCommand(sessionCmd)
}
