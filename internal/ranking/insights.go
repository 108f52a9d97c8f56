package ranking

import (
	"fmt"
	"math"
	"time"
)

// KPIs are the team-level aggregates the backend reports alongside a
// ranking.
type KPIs struct {
	TeamTotal      int    `json:"teamTotal"`
	TeamEfficiency int    `json:"teamEfficiency"`
	WeeklyData     [7]int `json:"weeklyData"`
}

type InsightKind string

const (
	InsightInfo     InsightKind = "info"
	InsightPositive InsightKind = "positive"
	InsightWarning  InsightKind = "warning"
)

type Insight struct {
	Kind InsightKind
	Icon string
	Text string
}

// Insights derives the leader-dashboard observations from a ranking and its
// KPIs. Output order is stable; an empty ranking yields no insights.
func Insights(entries []Entry, k KPIs, now time.Time) []Insight {
	var out []Insight
	if len(entries) == 0 {
		return out
	}

	if k.TeamTotal > 0 {
		avg := int(math.Round(float64(k.TeamTotal) / float64(len(entries))))
		out = append(out, Insight{
			Kind: InsightInfo,
			Icon: "📊",
			Text: fmt.Sprintf("The team has processed %d cases, averaging %d per person.", k.TeamTotal, avg),
		})
	}

	active := 0
	for _, e := range entries {
		if IsActive(e, now) {
			active++
		}
	}
	if active > 0 {
		pct := int(math.Round(100 * float64(active) / float64(len(entries))))
		kind := InsightWarning
		icon := "⚠️"
		if pct >= 80 {
			kind = InsightPositive
			icon = "🔥"
		}
		out = append(out, Insight{
			Kind: kind,
			Icon: icon,
			Text: fmt.Sprintf("%d of %d members (%d%%) are active today.", active, len(entries), pct),
		})
	}

	if len(entries) >= 3 && k.TeamTotal > 0 {
		topThree := entries[0].Score + entries[1].Score + entries[2].Score
		pct := int(math.Round(100 * float64(topThree) / float64(k.TeamTotal)))
		out = append(out, Insight{
			Kind: InsightInfo,
			Icon: "⭐",
			Text: fmt.Sprintf("The top 3 performers account for %d%% of the team's cases.", pct),
		})
	}

	behind := 0
	for _, e := range entries {
		if e.Goal > 0 && e.Score < e.Goal/2 {
			behind++
		}
	}
	if behind > 0 {
		out = append(out, Insight{
			Kind: InsightWarning,
			Icon: "💡",
			Text: fmt.Sprintf("%d members need support to reach their daily goals.", behind),
		})
	}

	return out
}
