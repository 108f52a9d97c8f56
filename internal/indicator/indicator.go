// Package indicator is the presentation sink for the badge/tray triple
// (count, goalReached, color). The core pushes updates after every persisted
// mutation; consumers live outside the process.
package indicator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// GoalReachedColor overrides the theme color once the daily goal is met.
const GoalReachedColor = "#22c55e"

// themeColors maps theme names to the accent hex pushed to sinks.
var themeColors = map[string]string{
	"mint":   "#1DBA8E",
	"purple": "#8A2BE2",
	"sunset": "#FF7A18",
	"ocean":  "#1E88E5",
	"pink":   "#EC4899",
}

// ThemeColor returns the accent color for a theme name, falling back to the
// default theme for unknown names.
func ThemeColor(theme string) string {
	if c, ok := themeColors[theme]; ok {
		return c
	}
	return themeColors["mint"]
}

// ValidTheme reports whether the name is a known theme.
func ValidTheme(theme string) bool {
	_, ok := themeColors[theme]
	return ok
}

// ThemeNames returns the known theme names in a stable order.
func ThemeNames() []string {
	return []string{"mint", "purple", "sunset", "ocean", "pink"}
}

type Sink interface {
	Update(count int, goalReached bool, color string)
}

// Status is the blob external tray/badge integrations read.
type Status struct {
	Count       int       `json:"count"`
	GoalReached bool      `json:"goalReached"`
	Color       string    `json:"color"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FileSink writes the status blob to a well-known path. Writes go through a
// temp file and rename so readers never observe a partial blob.
type FileSink struct {
	path string
	log  *zap.Logger
}

var _ Sink = (*FileSink)(nil)

func NewFileSink(path string, log *zap.Logger) *FileSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileSink{path: path, log: log}
}

// DefaultStatusPath returns the default indicator file location.
func DefaultStatusPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".caseline-status.json"), nil
}

func (s *FileSink) Update(count int, goalReached bool, color string) {
	if goalReached {
		color = GoalReachedColor
	}
	blob, err := json.Marshal(Status{
		Count:       count,
		GoalReached: goalReached,
		Color:       color,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("encode indicator status", zap.Error(err))
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		s.log.Warn("write indicator status", zap.Error(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Warn("publish indicator status", zap.Error(err))
	}
}

// Nop discards updates. Used when no indicator is configured and in tests.
type Nop struct{}

func (Nop) Update(int, bool, string) {}
