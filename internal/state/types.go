// Package state owns the persistent application state. Every mutation goes
// through the Store, which guards the counting invariants, queues
// persistence, and notifies subscribers.
package state

import (
	"fmt"
	"strings"
	"time"

	"caseline/internal/game"
	"caseline/internal/ranking"
)

type CaseType string

const (
	CaseOn  CaseType = "on"
	CaseOff CaseType = "off"
)

func (c CaseType) IsValid() bool {
	return c == CaseOn || c == CaseOff
}

func ParseCaseType(input string) (CaseType, error) {
	c := CaseType(strings.TrimSpace(strings.ToLower(input)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid case type: %q (want on|off)", input)
	}
	return c, nil
}

type Role string

const (
	RoleAgent  Role = "agent"
	RoleLeader Role = "leader"
)

// User is the signed-in session. Nil on AppState means signed out.
type User struct {
	Role     Role   `json:"role"`
	ID       string `json:"id"`
	LeaderID string `json:"leaderId"`
	Name     string `json:"name,omitempty"`
}

// Counts are today's aggregates. Invariants: Total == On+Off and
// Level <= Total, preserved by every Store operation.
type Counts struct {
	On    int `json:"on"`
	Off   int `json:"off"`
	Level int `json:"level"`
	Total int `json:"total"`
}

type HistoryEntry struct {
	Type      CaseType  `json:"type"`
	CaseID    string    `json:"caseId"`
	Timestamp time.Time `json:"timestamp"`
	LevelUp   bool      `json:"levelUp"`
}

type HourCase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      CaseType  `json:"type"`
	LevelUp   bool      `json:"levelUp"`
}

type HourlyMetrics struct {
	CurrentHour            int        `json:"currentHour"`
	CurrentHourCases       []HourCase `json:"currentHourCases"`
	TeamTotalToday         int        `json:"teamTotalToday"`
	MyParticipationPercent int        `json:"myParticipationPercent"`
}

// Achievements holds the permanent unlock set, progress for locked entries,
// and the transient acknowledgement queue. Unlocked never shrinks;
// NewlyUnlocked is cleared only by AcknowledgeAchievements.
type Achievements struct {
	Unlocked      []string                 `json:"unlocked"`
	Progress      map[string]game.Progress `json:"progress"`
	NewlyUnlocked []string                 `json:"newlyUnlocked"`
}

func (a Achievements) IsUnlocked(id string) bool {
	for _, u := range a.Unlocked {
		if u == id {
			return true
		}
	}
	return false
}

// AppState is the single mutable root, owned exclusively by the Store and
// persisted as one JSON blob.
type AppState struct {
	Version int `json:"version"`

	User     *User  `json:"user"`
	TodayKey string `json:"todayKey"`

	Counts  Counts         `json:"counts"`
	History []HistoryEntry `json:"history"`

	DailyGoal       int           `json:"dailyGoal"`
	LevelUpModifier ModifierState `json:"levelUpModifier"`
	Celebrated      bool          `json:"celebrated"`
	LastCaseID      string        `json:"lastCaseId,omitempty"`

	Streaks      game.Streaks `json:"streaks"`
	Achievements Achievements `json:"achievements"`

	WeeklyData    [7]int        `json:"weeklyData"`
	HourlyMetrics HourlyMetrics `json:"hourlyMetrics"`

	RemoteRanking []ranking.Entry `json:"remoteRanking,omitempty"`

	Theme string `json:"theme"`
}

// GoalReached reports whether today's counts meet the daily goal.
func (s *AppState) GoalReached() bool {
	return s.Counts.Total >= s.DailyGoal
}

// DefaultDailyGoal matches the long-standing default for new installs.
const DefaultDailyGoal = 50

func defaultState(now time.Time) *AppState {
	return &AppState{
		Version:         CurrentVersion,
		TodayKey:        game.DateKey(now),
		DailyGoal:       DefaultDailyGoal,
		LevelUpModifier: ModifierInactive,
		History:         []HistoryEntry{},
		Achievements: Achievements{
			Unlocked: []string{},
			Progress: map[string]game.Progress{},
		},
		HourlyMetrics: HourlyMetrics{
			CurrentHour:      now.Hour(),
			CurrentHourCases: []HourCase{},
		},
		Theme: "mint",
	}
}
