package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"caseline/internal/indicator"
)

// Caseline theme (CLI + TUI).
// Kept intentionally small: reusable styles and a few emojis.

const (
	IconCase    = "📋"
	IconOn      = "📞"
	IconOff     = "📧"
	IconGoal    = "🎯"
	IconTrophy  = "🏆"
	IconStreak  = "🔥"
	IconBolt    = "⚡"
	IconTeam    = "👥"
	IconInfo    = "ℹ️"
	IconWarn    = "⚠️"
	IconError   = "🧨"
	IconUndo    = "↩️"
	IconCrown   = "👑"
	IconHistory = "📜"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)
	Dim   = lipgloss.NewStyle().Foreground(cMuted)

	Panel       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
	PanelTitle  = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	SelectedRow = lipgloss.NewStyle().Bold(true).Foreground(cGold).Background(cPrimary)

	BadgeLevelUp = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
)

// Accent returns a style in the user's chosen theme color.
func Accent(theme string) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(indicator.ThemeColor(theme)))
}

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// CaseIcon picks the icon for a case type string.
func CaseIcon(caseType string) string {
	if strings.EqualFold(strings.TrimSpace(caseType), "on") {
		return IconOn
	}
	return IconOff
}

// ProgressBar renders a simple filled/empty bar of the given width.
func ProgressBar(current, target, width int) string {
	if target <= 0 || width <= 0 {
		return ""
	}
	filled := current * width / target
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if current >= target {
		return Good.Render(bar)
	}
	return H2.Render(bar)
}

// GoalText colors the count/goal pair by completion.
func GoalText(total, goal int) string {
	text := fmt.Sprintf("%d/%d", total, goal)
	if total >= goal {
		return Good.Render(text)
	}
	return Warn.Render(text)
}
