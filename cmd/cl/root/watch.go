package root

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"caseline/internal/ui"
)

func newWatchCmd() *cobra.Command {
	var leaderCadence bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the backend and keep the indicator file fresh",
		Long:  "Runs in the foreground, refreshing team data on the poll interval and updating the status file external badge integrations read. Ctrl-C to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if leaderCadence {
				a.StartLeaderPoll(ctx)
			} else {
				a.StartRankingPoll(ctx)
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconCase, "Watching — Ctrl-C to stop"))
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("Polling "+a.Poller.ActiveName()+"…"))

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&leaderCadence, "leader", false, "Use the slower leader poll interval")
	return cmd
}
