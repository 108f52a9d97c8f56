package ranking

import (
	"testing"
	"time"
)

var now = time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

func TestMergeReplacesStaleSelfEntry(t *testing.T) {
	remote := []Entry{
		{ID: "b", Score: 10, LastActivity: now.Add(-10 * time.Minute)},
		{ID: "a", Score: 10, LastActivity: now.Add(-30 * time.Minute)},
	}

	merged := Merge(remote, Self{ID: "a", Score: 12, Goal: 50}, now)

	if len(merged) != 2 {
		t.Fatalf("merged len=%d, want 2", len(merged))
	}
	if merged[0].ID != "a" || merged[0].Score != 12 {
		t.Fatalf("first entry=%+v, want a with local score 12", merged[0])
	}
	if merged[0].Goal != 50 {
		t.Fatalf("self goal=%d, want 50", merged[0].Goal)
	}
	if merged[1].ID != "b" {
		t.Fatalf("second entry=%+v, want b", merged[1])
	}
}

func TestMergeInsertsMissingSelf(t *testing.T) {
	remote := []Entry{{ID: "b", Score: 3}}

	merged := Merge(remote, Self{ID: "a", Score: 1}, now)

	if len(merged) != 2 {
		t.Fatalf("merged len=%d, want 2", len(merged))
	}
	if merged[0].ID != "b" || merged[1].ID != "a" {
		t.Fatalf("order=%s,%s want b,a", merged[0].ID, merged[1].ID)
	}
}

func TestMergeTieBreaksOnRecentActivity(t *testing.T) {
	remote := []Entry{
		{ID: "old", Score: 5, LastActivity: now.Add(-2 * time.Hour)},
		{ID: "fresh", Score: 5, LastActivity: now.Add(-2 * time.Minute)},
	}

	merged := Merge(remote, Self{}, now)

	if merged[0].ID != "fresh" {
		t.Fatalf("tie-break winner=%s, want fresh", merged[0].ID)
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	remote := []Entry{{ID: "a", Score: 1}}
	_ = Merge(remote, Self{ID: "a", Score: 99}, now)
	if remote[0].Score != 1 {
		t.Fatalf("input slice mutated: %+v", remote[0])
	}
}

func TestIsActive(t *testing.T) {
	cases := []struct {
		name string
		e    Entry
		want bool
	}{
		{"scored today", Entry{Score: 1}, true},
		{"recent activity", Entry{LastActivity: now.Add(-59 * time.Minute)}, true},
		{"stale activity", Entry{LastActivity: now.Add(-61 * time.Minute)}, false},
		{"no signal", Entry{}, false},
	}
	for _, tc := range cases {
		if got := IsActive(tc.e, now); got != tc.want {
			t.Fatalf("%s: IsActive=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestLastActivityLabel(t *testing.T) {
	cases := []struct {
		ts   time.Time
		want string
	}{
		{time.Time{}, "no activity"},
		{now.Add(-2 * time.Minute), "now"},
		{now.Add(-12 * time.Minute), "12m"},
		{now.Add(-3 * time.Hour), "3h"},
		{now.Add(-48 * time.Hour), "over a day"},
	}
	for _, tc := range cases {
		if got := LastActivityLabel(tc.ts, now); got != tc.want {
			t.Fatalf("label(%v)=%q, want %q", tc.ts, got, tc.want)
		}
	}
}

func TestInsightsCoverTeamShape(t *testing.T) {
	entries := []Entry{
		{ID: "a", Score: 30, Goal: 50},
		{ID: "b", Score: 20, Goal: 50},
		{ID: "c", Score: 10, Goal: 50},
		{ID: "d", Score: 0, Goal: 50},
	}
	k := KPIs{TeamTotal: 60}

	insights := Insights(entries, k, now)

	if len(insights) != 4 {
		t.Fatalf("insights=%d, want 4", len(insights))
	}
	// 3 of 4 active → 75% is a warning, not positive.
	if insights[1].Kind != InsightWarning {
		t.Fatalf("active-share kind=%s, want warning", insights[1].Kind)
	}
	// d (0) and c (10 < 25) are below half goal.
	if insights[3].Kind != InsightWarning {
		t.Fatalf("support kind=%s, want warning", insights[3].Kind)
	}

	if got := Insights(nil, k, now); len(got) != 0 {
		t.Fatalf("empty ranking produced %d insights", len(got))
	}
}
