package root

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"caseline/internal/indicator"
	"caseline/internal/ui"
)

func newThemeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "theme [name]",
		Short: "Show or set the color theme",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return errors.New("at most one argument")
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
			if len(args) == 0 {
				current := a.Store.State().Theme
				for _, name := range indicator.ThemeNames() {
					marker := "  "
					if name == current {
						marker = "* "
					}
					fmt.Fprintln(out, marker+ui.Accent(name).Render(name))
				}
				return nil
			}

			name := strings.ToLower(strings.TrimSpace(args[0]))
			if err := a.Store.SetTheme(name); err != nil {
				return fmt.Errorf("%w (known: %s)", err, strings.Join(indicator.ThemeNames(), ", "))
			}
			fmt.Fprintln(out, ui.Accent(name).Render("Theme set to "+name+"."))
			return nil
		},
	}
}
