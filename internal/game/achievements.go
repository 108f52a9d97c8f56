package game

import "math"

type Category string

const (
	CategoryOn     Category = "on"
	CategoryOff    Category = "off"
	CategoryLevel  Category = "level"
	CategoryStreak Category = "streak"
)

// Definition describes one achievement in the fixed catalog.
type Definition struct {
	ID          string
	Category    Category
	Name        string
	Description string
	Icon        string
	Target      int
	Legendary   bool
}

// Catalog returns the fixed 12-entry achievement table.
func Catalog() []Definition {
	return []Definition{
		{ID: "on_50", Category: CategoryOn, Name: "Communicator", Description: "50 ON cases", Icon: "📞", Target: 50},
		{ID: "on_100", Category: CategoryOn, Name: "Conversationalist", Description: "100 ON cases", Icon: "💬", Target: 100},
		{ID: "on_200", Category: CategoryOn, Name: "ON Master", Description: "200 ON cases", Icon: "📻", Target: 200},
		{ID: "on_250", Category: CategoryOn, Name: "ON Legend", Description: "250 ON cases", Icon: "🎯", Target: 250, Legendary: true},

		{ID: "off_50", Category: CategoryOff, Name: "Investigator", Description: "50 OFF cases", Icon: "📧", Target: 50},
		{ID: "off_100", Category: CategoryOff, Name: "Analyst", Description: "100 OFF cases", Icon: "🔍", Target: 100},
		{ID: "off_200", Category: CategoryOff, Name: "Detective", Description: "200 OFF cases", Icon: "🕵️", Target: 200},
		{ID: "off_250", Category: CategoryOff, Name: "OFF Legend", Description: "250 OFF cases", Icon: "🎖️", Target: 250, Legendary: true},

		{ID: "level_10", Category: CategoryLevel, Name: "Climber", Description: "10 level-up cases", Icon: "✨", Target: 10},
		{ID: "level_25", Category: CategoryLevel, Name: "Specialist", Description: "25 level-up cases", Icon: "⭐", Target: 25},

		{ID: "streak_3", Category: CategoryStreak, Name: "Consistent", Description: "3 days in a row", Icon: "🔥", Target: 3},
		{ID: "streak_7", Category: CategoryStreak, Name: "Disciplined", Description: "7 days in a row", Icon: "💪", Target: 7},
	}
}

// Counters are the inputs achievements are judged against.
type Counters struct {
	On    int
	Off   int
	Level int
	Total int
}

type Progress struct {
	Current    int `json:"current"`
	Target     int `json:"target"`
	Percentage int `json:"percentage"`
}

// Result of one evaluation pass. NewlyUnlocked holds only definitions that
// crossed their target on this pass; Progress covers every still-locked
// definition.
type Result struct {
	NewlyUnlocked []Definition
	Progress      map[string]Progress
}

// Evaluate is a pure function of the current counters, the running streak and
// the already-unlocked set. Evaluating twice with unchanged inputs yields no
// new unlocks, so callers may invoke it after every mutation.
func Evaluate(c Counters, currentStreak int, unlocked map[string]bool) Result {
	res := Result{Progress: map[string]Progress{}}

	for _, def := range Catalog() {
		if unlocked[def.ID] {
			continue
		}
		current := counterFor(def.Category, c, currentStreak)
		if current >= def.Target {
			res.NewlyUnlocked = append(res.NewlyUnlocked, def)
			continue
		}
		res.Progress[def.ID] = Progress{
			Current:    current,
			Target:     def.Target,
			Percentage: int(math.Round(100 * float64(current) / float64(def.Target))),
		}
	}
	return res
}

func counterFor(cat Category, c Counters, currentStreak int) int {
	switch cat {
	case CategoryOn:
		return c.On
	case CategoryOff:
		return c.Off
	case CategoryLevel:
		return c.Level
	case CategoryStreak:
		return currentStreak
	default:
		return 0
	}
}
