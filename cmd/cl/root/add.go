package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"caseline/internal/state"
	"caseline/internal/ui"
)

func newAddCmd() *cobra.Command {
	var caseID string

	cmd := &cobra.Command{
		Use:   "add <on|off>",
		Short: "Register a handled case",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("case type is required (on|off)")
			}
			if _, err := state.ParseCaseType(args[0]); err != nil {
				return err
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

			typ, err := state.ParseCaseType(args[0])
			if err != nil {
				return err
			}
			res, err := a.Store.RegisterCase(ctx, typ, caseID)
			if err != nil {
				return err
			}

			s := a.Store.State()
			line := fmt.Sprintf("%s %s case registered. Today: %s", ui.CaseIcon(args[0]), args[0], ui.GoalText(res.Counts.Total, s.DailyGoal))
			if res.LevelUp {
				line += " " + ui.BadgeLevelUp
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)

			if res.GoalMet {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render(ui.IconGoal+" Daily goal reached!")+
					" "+ui.Dim.Render(fmt.Sprintf("Streak: %d", s.Streaks.Current)))
			}
			for _, def := range res.NewlyUnlocked {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s — %s\n", ui.IconTrophy, def.Icon, ui.Gold.Render(def.Name), def.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&caseID, "case", "c", "", "Case id to record with the entry")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Reverse the most recent case of the day",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := a.Store.Undo(ctx)
			if err != nil {
				return err
			}
			if !res.Undone {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("Nothing to undo today."))
				return nil
			}

			id := res.Entry.CaseID
			if id == "" {
				id = "(no case id)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Undid %s case %s. Today: %d\n", ui.IconUndo, res.Entry.Type, id, res.Counts.Total)
			return nil
		},
	}
}
