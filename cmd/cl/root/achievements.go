package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"caseline/internal/game"
	"caseline/internal/ui"
)

func newAchievementsCmd() *cobra.Command {
	var ack bool

	cmd := &cobra.Command{
		Use:   "achievements",
		Short: "List achievements and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			s := a.Store.State()

			fmt.Fprintln(out, ui.Heading(ui.IconTrophy, "Achievements"))
			for _, def := range game.Catalog() {
				name := def.Name
				if def.Legendary {
					name += " ★"
				}
				if s.Achievements.IsUnlocked(def.ID) {
					fmt.Fprintf(out, "- %s %s — %s\n", def.Icon, ui.Gold.Render(name), ui.Good.Render("unlocked"))
					continue
				}
				p := s.Achievements.Progress[def.ID]
				fmt.Fprintf(out, "- %s %s — %d/%d %s\n", def.Icon, name, p.Current, p.Target, ui.ProgressBar(p.Current, p.Target, 12))
			}

			if len(s.Achievements.NewlyUnlocked) > 0 {
				fmt.Fprintln(out, "")
				if ack {
					acked := a.Store.AcknowledgeAchievements()
					fmt.Fprintln(out, ui.Good.Render(fmt.Sprintf("Acknowledged %d new achievement(s).", len(acked))))
				} else {
					fmt.Fprintln(out, ui.Warn.Render(fmt.Sprintf("%d new — rerun with --ack to acknowledge.", len(s.Achievements.NewlyUnlocked))))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ack, "ack", false, "Acknowledge newly unlocked achievements")
	return cmd
}
