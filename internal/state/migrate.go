package state

import (
	"encoding/json"
	"fmt"
	"time"

	"caseline/internal/game"
)

// CurrentVersion is the schema version written by this build. Snapshots at
// older versions are upgraded in Load through the chain below; snapshots at
// newer versions are rejected so a downgrade cannot silently corrupt them.
const CurrentVersion = 2

// stateMigration upgrades a decoded snapshot from exactly one version to the
// next. Chained in order until CurrentVersion is reached.
type stateMigration struct {
	from    int
	upgrade func(*AppState)
}

var stateMigrations = []stateMigration{
	// v1 predates streaks and the acknowledgement queue. Counts carry over
	// untouched; streak history starts empty rather than guessing.
	{from: 1, upgrade: func(s *AppState) {
		s.Streaks.Current = 0
		s.Streaks.LastGoalMetDate = ""
		if s.Streaks.Best < 0 {
			s.Streaks.Best = 0
		}
		s.Achievements.NewlyUnlocked = nil
	}},
}

// decodeSnapshot unmarshals a persisted blob over a fully-populated default
// state, so fields absent from older snapshots keep their defaults, then runs
// the migration chain and normalizes containers the rest of the package
// assumes non-nil.
func decodeSnapshot(blob []byte, now time.Time) (*AppState, error) {
	s := defaultState(now)
	if err := json.Unmarshal(blob, s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version > CurrentVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported %d", s.Version, CurrentVersion)
	}
	if s.Version <= 0 {
		s.Version = 1
	}
	for _, m := range stateMigrations {
		if s.Version == m.from {
			m.upgrade(s)
			s.Version++
		}
	}
	normalize(s, now)
	return s, nil
}

func normalize(s *AppState, now time.Time) {
	if s.DailyGoal < 1 {
		s.DailyGoal = DefaultDailyGoal
	}
	if s.TodayKey == "" {
		s.TodayKey = game.DateKey(now)
	}
	if s.History == nil {
		s.History = []HistoryEntry{}
	}
	if s.Achievements.Unlocked == nil {
		s.Achievements.Unlocked = []string{}
	}
	if s.Achievements.Progress == nil {
		s.Achievements.Progress = map[string]game.Progress{}
	}
	if s.HourlyMetrics.CurrentHourCases == nil {
		s.HourlyMetrics.CurrentHourCases = []HourCase{}
	}
	if s.Theme == "" {
		s.Theme = "mint"
	}
	// Repair rather than reject: the invariants must hold even if the blob
	// was edited by hand.
	if s.Counts.On < 0 {
		s.Counts.On = 0
	}
	if s.Counts.Off < 0 {
		s.Counts.Off = 0
	}
	s.Counts.Total = s.Counts.On + s.Counts.Off
	if s.Counts.Level < 0 {
		s.Counts.Level = 0
	}
	if s.Counts.Level > s.Counts.Total {
		s.Counts.Level = s.Counts.Total
	}
}
