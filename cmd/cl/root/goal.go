package root

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"caseline/internal/ui"
)

func newGoalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "goal [n]",
		Short: "Show or change the daily goal",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return errors.New("at most one argument")
			}
			if len(args) == 1 {
				if _, err := strconv.Atoi(args[0]); err != nil {
					return errors.New("goal must be an integer")
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 0 {
				s := a.Store.State()
				fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Daily goal", fmt.Sprintf("%d (today: %d)", s.DailyGoal, s.Counts.Total)))
				return nil
			}

			goal, _ := strconv.Atoi(args[0])
			fired, err := a.Store.SetDailyGoal(goal)
			if err != nil {
				return err
			}

			s := a.Store.State()
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Daily goal", s.DailyGoal))
			if fired {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render(ui.IconGoal+" Already reached with today's cases!"))
			}
			return nil
		},
	}
}

func newModifierCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modifier <arm|disarm>",
		Short: "Arm or disarm the one-shot level-up modifier",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 || (args[0] != "arm" && args[0] != "disarm") {
				return errors.New("expected arm or disarm")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			switch args[0] {
			case "arm":
				if a.Store.ArmModifier() {
					fmt.Fprintln(out, ui.Warn.Render(ui.IconBolt+" Armed: the next case counts as a level-up."))
				} else {
					fmt.Fprintln(out, ui.Muted.Render("Already armed."))
				}
			case "disarm":
				if a.Store.DisarmModifier() {
					fmt.Fprintln(out, "Disarmed.")
				} else {
					fmt.Fprintln(out, ui.Muted.Render("Nothing armed."))
				}
			}
			return nil
		},
	}
	return cmd
}
