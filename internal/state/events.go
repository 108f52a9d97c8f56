package state

// EventKind tags every notification the Store emits. Subscribers switch on
// the kind; the payload is always a snapshot of the state after the
// mutation.
type EventKind string

const (
	EventStateLoaded          EventKind = "state-loaded"
	EventUserChanged          EventKind = "user-changed"
	EventCountsUpdated        EventKind = "counts-updated"
	EventCaseUndone           EventKind = "case-undone"
	EventGoalUpdated          EventKind = "goal-updated"
	EventGoalMet              EventKind = "goal-met"
	EventModifierChanged      EventKind = "modifier-changed"
	EventAchievementsUnlocked EventKind = "achievements-unlocked"
	EventTeamDataUpdated      EventKind = "team-data-updated"
	EventRankingUpdated       EventKind = "ranking-updated"
	EventThemeChanged         EventKind = "theme-changed"
)

type Event struct {
	Kind  EventKind
	State AppState
}

type Listener func(Event)

// bus is the single dispatch point. The Store notifies synchronously while
// still holding the mutation turn; dispatch order across listeners is
// unspecified, and listeners must not call back into the Store.
type bus struct {
	nextID    int
	listeners map[int]Listener
}

func (b *bus) subscribe(l Listener) (unsubscribe func()) {
	if b.listeners == nil {
		b.listeners = map[int]Listener{}
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	return func() { delete(b.listeners, id) }
}

func (b *bus) notify(kind EventKind, snapshot AppState) {
	for _, l := range b.listeners {
		l(Event{Kind: kind, State: snapshot})
	}
}
