package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"caseline/internal/ui"
)

const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "cl",
	Short:         "Caseline — gamified case tracking for support teams",
	Long:          "Caseline tracks handled cases against a daily goal, with streaks, achievements and a live team ranking.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newAddCmd(),
		newUndoCmd(),
		newGoalCmd(),
		newModifierCmd(),
		newStatusCmd(),
		newAchievementsCmd(),
		newRankingCmd(),
		newThemeCmd(),
		newBoardCmd(),
		newWatchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
