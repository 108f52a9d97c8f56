package root

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"caseline/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var showHistory bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show today's counts, streak and goal progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			s := a.Store.State()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, ui.Heading(ui.IconCase, "Caseline — "+s.TodayKey))
			if u := s.User; u != nil {
				who := u.ID
				if u.Name != "" {
					who = u.Name + " (" + u.ID + ")"
				}
				fmt.Fprintln(out, ui.LabelValue("Signed in", fmt.Sprintf("%s as %s", who, u.Role)))
			} else {
				fmt.Fprintln(out, ui.Muted.Render("Signed out — cases are tracked locally."))
			}
			fmt.Fprintln(out, "")

			fmt.Fprintln(out, ui.H2.Render("📊 Today"))
			fmt.Fprintf(out, "- %s ON:  %d\n", ui.IconOn, s.Counts.On)
			fmt.Fprintf(out, "- %s OFF: %d\n", ui.IconOff, s.Counts.Off)
			fmt.Fprintf(out, "- %s Level-ups: %d\n", ui.IconBolt, s.Counts.Level)
			fmt.Fprintf(out, "- %s Goal: %s %s\n", ui.IconGoal, ui.GoalText(s.Counts.Total, s.DailyGoal), ui.ProgressBar(s.Counts.Total, s.DailyGoal, 20))
			if s.LevelUpModifier.Armed() {
				fmt.Fprintln(out, "- "+ui.Warn.Render(ui.IconBolt+" Modifier armed"))
			}
			fmt.Fprintln(out, "")

			fmt.Fprintln(out, ui.H2.Render(ui.IconStreak+" Streak"))
			fmt.Fprintf(out, "- Current: %d day(s), best %d\n", s.Streaks.Current, s.Streaks.Best)
			if s.Streaks.LastGoalMetDate != "" {
				fmt.Fprintln(out, "- "+ui.Muted.Render("Goal last met "+s.Streaks.LastGoalMetDate))
			}

			if s.HourlyMetrics.TeamTotalToday > 0 {
				fmt.Fprintln(out, "")
				fmt.Fprintln(out, ui.H2.Render(ui.IconTeam+" Team"))
				fmt.Fprintf(out, "- Total today: %d (your share %d%%)\n", s.HourlyMetrics.TeamTotalToday, s.HourlyMetrics.MyParticipationPercent)
			}

			if showHistory && len(s.History) > 0 {
				fmt.Fprintln(out, "")
				fmt.Fprintln(out, ui.H2.Render(ui.IconHistory+" History"))
				for i := len(s.History) - 1; i >= 0; i-- {
					e := s.History[i]
					id := e.CaseID
					if id == "" {
						id = "-"
					}
					row := fmt.Sprintf("- %s %s %s", e.Timestamp.Local().Format("15:04"), strings.ToUpper(string(e.Type)), id)
					if e.LevelUp {
						row += " " + ui.BadgeLevelUp
					}
					fmt.Fprintln(out, row)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showHistory, "history", false, "Include today's case-by-case history")
	return cmd
}
