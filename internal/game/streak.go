package game

import "time"

// Streaks tracks consecutive days the daily goal was met. LastGoalMetDate is
// a day key (YYYY-MM-DD) or empty when the goal was never met.
type Streaks struct {
	Current         int    `json:"current"`
	Best            int    `json:"best"`
	LastGoalMetDate string `json:"lastGoalMetDate"`
}

// DateKey returns the UTC day key used across the app: YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// metYesterday is the single continuation rule: a streak continues iff the
// goal was last met exactly yesterday relative to today. Both the rollover
// path and the goal-met path go through this predicate.
func metYesterday(s Streaks, today time.Time) bool {
	yesterday := DateKey(today.AddDate(0, 0, -1))
	return s.LastGoalMetDate == yesterday
}

// RolloverStreak applies the day-boundary rule: if the goal was met yesterday
// the streak already counts that day and is left untouched; otherwise the
// running streak resets to 0. Best is never reduced.
func RolloverStreak(s Streaks, today time.Time) Streaks {
	if !metYesterday(s, today) {
		s.Current = 0
	}
	return s
}

// AdvanceStreak records today's goal as met. If the streak continues from
// yesterday the count grows by one, otherwise today starts a fresh streak of
// one (which also covers Current == 0).
func AdvanceStreak(s Streaks, today time.Time) Streaks {
	if metYesterday(s, today) {
		s.Current++
	} else {
		s.Current = 1
	}
	if s.Current > s.Best {
		s.Best = s.Current
	}
	s.LastGoalMetDate = DateKey(today)
	return s
}
