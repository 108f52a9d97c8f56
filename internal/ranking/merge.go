package ranking

import (
	"fmt"
	"sort"
	"time"
)

// ActiveWindow is how recently an entry must have registered a case to count
// as active despite a zero score.
const ActiveWindow = 60 * time.Minute

// Entry is one row of the team ranking. LastActivity is zero when the
// backend has no recorded activity for the member.
type Entry struct {
	ID           string    `json:"id"`
	Score        int       `json:"score"`
	Goal         int       `json:"goal"`
	LastLabel    string    `json:"lastLabel,omitempty"`
	LastActivity time.Time `json:"lastActivity,omitempty"`
}

// Self is the locally authoritative entry for the signed-in agent.
type Self struct {
	ID    string
	Score int
	Goal  int
}

// Merge folds the local self entry into a remotely fetched ranking. Local
// counts always win over the remote row for the same id (the remote copy may
// lag behind cases registered seconds ago); a missing self row is inserted.
// Order: score descending, then most recent activity first.
func Merge(remote []Entry, self Self, now time.Time) []Entry {
	merged := make([]Entry, len(remote))
	copy(merged, remote)

	if self.ID != "" {
		me := Entry{
			ID:           self.ID,
			Score:        self.Score,
			Goal:         self.Goal,
			LastLabel:    "today",
			LastActivity: now,
		}
		replaced := false
		for i := range merged {
			if merged[i].ID == self.ID {
				merged[i] = me
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, me)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].LastActivity.After(merged[j].LastActivity)
	})
	return merged
}

// IsActive reports whether the entry scored today or registered a case
// within the activity window.
func IsActive(e Entry, now time.Time) bool {
	if e.Score > 0 {
		return true
	}
	if e.LastActivity.IsZero() {
		return false
	}
	return now.Sub(e.LastActivity) <= ActiveWindow
}

// CloseCompetitor reports whether the entry is within striking distance of
// the given score.
func CloseCompetitor(e Entry, selfScore int) bool {
	diff := e.Score - selfScore
	if diff < 0 {
		diff = -diff
	}
	return diff <= 2
}

// LastActivityLabel renders a short human label for an activity timestamp.
func LastActivityLabel(ts time.Time, now time.Time) string {
	if ts.IsZero() {
		return "no activity"
	}
	diff := now.Sub(ts)
	switch {
	case diff < 5*time.Minute:
		return "now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh", int(diff.Hours()))
	default:
		return "over a day"
	}
}
