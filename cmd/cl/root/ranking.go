package root

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"caseline/internal/ranking"
	"caseline/internal/ui"
)

func newRankingCmd() *cobra.Command {
	var insights bool

	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Fetch and show the team ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.RefreshTeam(ctx); err != nil {
				return err
			}

			s := a.Store.State()
			out := cmd.OutOrStdout()
			now := time.Now()

			fmt.Fprintln(out, ui.Heading(ui.IconTrophy, "Team ranking"))
			if len(s.RemoteRanking) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("(empty ranking)"))
				return nil
			}

			selfID := ""
			if s.User != nil {
				selfID = s.User.ID
			}
			for i, e := range s.RemoteRanking {
				marker := "  "
				if i == 0 {
					marker = ui.IconCrown
				}
				row := fmt.Sprintf("%s %2d. %-14s %3d  %s", marker, i+1, e.ID, e.Score,
					ranking.LastActivityLabel(e.LastActivity, now))
				switch {
				case e.ID == selfID:
					row = ui.Gold.Render(row)
				case ranking.CloseCompetitor(e, s.Counts.Total):
					row = ui.Warn.Render(row)
				case !ranking.IsActive(e, now):
					row = ui.Muted.Render(row)
				}
				fmt.Fprintln(out, row)
			}

			if insights {
				kpis := ranking.KPIs{TeamTotal: s.HourlyMetrics.TeamTotalToday}
				list := ranking.Insights(s.RemoteRanking, kpis, now)
				if len(list) > 0 {
					fmt.Fprintln(out, "")
					fmt.Fprintln(out, ui.H2.Render("Insights"))
					for _, in := range list {
						fmt.Fprintf(out, "- %s %s\n", in.Icon, in.Text)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&insights, "insights", false, "Include leader insights derived from the ranking")
	return cmd
}
