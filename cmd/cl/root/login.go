package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"caseline/internal/directory"
	"caseline/internal/ui"
)

func newLoginCmd() *cobra.Command {
	var leaderID string
	var asLeader bool

	cmd := &cobra.Command{
		Use:   "login <id>",
		Short: "Sign in as an agent (or a leader with --leader-role)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("id is required")
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

			if asLeader {
				sess, err := a.LoginLeader(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconTeam, "Signed in as leader "+sess.ID))
				if !sess.HasTeam {
					fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("No agents report to this leader yet."))
				}
				return nil
			}

			if leaderID == "" {
				return errors.New("agent sign-in needs --leader <id>")
			}
			sess, err := a.LoginAgent(ctx, args[0], leaderID)
			if err != nil {
				var mismatch directory.LeaderMismatchError
				if errors.As(err, &mismatch) {
					return fmt.Errorf("leader mismatch: you report to %q", mismatch.Assigned)
				}
				return err
			}

			name := sess.Name
			if name == "" {
				name = sess.ID
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconCase, "Welcome, "+name+"!"))
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Agent", sess.ID))
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Leader", sess.LeaderID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&leaderID, "leader", "l", "", "Leader id the agent reports to")
	cmd.Flags().BoolVar(&asLeader, "leader-role", false, "Sign in as a team leader")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out (local counts are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			a.Store.ClearUser()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
