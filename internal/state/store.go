package state

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"caseline/internal/backend"
	"caseline/internal/game"
	"caseline/internal/indicator"
	"caseline/internal/ranking"
	"caseline/internal/storage"
)

// hourWindow bounds how far back current-hour cases are kept.
const hourWindow = 60 * time.Minute

// submitTimeout caps each fire-and-forget backend submission.
const submitTimeout = 30 * time.Second

// snapshotStore is the slice of the storage layer the Store reads snapshots
// from. Satisfied by *storage.SnapshotRepo.
type snapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, blob []byte) error
}

// caseLogger is the audit-trail slice of the storage layer. Satisfied by
// *storage.CaseLogRepo.
type caseLogger interface {
	Insert(ctx context.Context, e storage.CaseLogEntry) (int64, error)
	DeleteLast(ctx context.Context) error
}

type Deps struct {
	Snapshots snapshotStore
	CaseLog   caseLogger
	Client    backend.Client // nil when offline
	Sink      indicator.Sink
	Log       *zap.Logger
	Clock     func() time.Time
}

// Store owns the AppState. All access goes through its methods; a single
// mutex serializes mutations, persistence is queued through the persister,
// and subscribers are notified synchronously with a snapshot copy.
type Store struct {
	mu   sync.Mutex
	s    *AppState
	deps Deps
	bus  bus

	persist *persister
	submits sync.WaitGroup
}

func New(deps Deps) *Store {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Sink == nil {
		deps.Sink = indicator.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Store{
		deps:    deps,
		persist: newPersister(deps.Snapshots, storage.KeyAppState, deps.Log),
	}
}

// Load reads the persisted snapshot (or initializes a fresh state), applies
// pending day rollovers, and emits EventStateLoaded. Must be called once
// before any other operation.
func (st *Store) Load(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.deps.Clock()
	blob, err := st.deps.Snapshots.Get(ctx, storage.KeyAppState)
	if err != nil {
		return err
	}
	if blob == nil {
		st.s = defaultState(now)
	} else {
		s, err := decodeSnapshot(blob, now)
		if err != nil {
			return err
		}
		st.s = s
	}

	st.rolloverIfNeeded(now)
	st.refreshHour(now)
	st.refreshProgress()

	st.save()
	st.notify(EventStateLoaded)
	return nil
}

// RegisterResult reports what a single registration changed.
type RegisterResult struct {
	LevelUp       bool
	GoalMet       bool
	NewlyUnlocked []game.Definition
	Counts        Counts
}

// RegisterCase records one handled case. The armed modifier, if any, is
// consumed by exactly this registration. The backend submission is
// fire-and-forget: it never blocks or fails the local mutation.
func (st *Store) RegisterCase(ctx context.Context, typ CaseType, caseID string) (RegisterResult, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.s == nil {
		return RegisterResult{}, ValidationError{Field: "state", Reason: "not loaded"}
	}
	if !typ.IsValid() {
		return RegisterResult{}, ValidationError{Field: "type", Reason: "want on or off"}
	}
	caseID = strings.TrimSpace(caseID)
	if caseID == "" {
		return RegisterResult{}, ValidationError{Field: "caseId", Reason: "must not be blank"}
	}
	if st.s.User == nil || st.s.User.Role != RoleAgent {
		return RegisterResult{}, ValidationError{Field: "session", Reason: "sign in as an agent first"}
	}

	now := st.deps.Clock()
	st.rolloverIfNeeded(now)
	st.refreshHour(now)

	levelUp := false
	if next, changed := st.s.LevelUpModifier.apply(transitionConsume); changed {
		st.s.LevelUpModifier = next
		levelUp = true
	}

	switch typ {
	case CaseOn:
		st.s.Counts.On++
	case CaseOff:
		st.s.Counts.Off++
	}
	if levelUp {
		st.s.Counts.Level++
	}
	st.s.Counts.Total = st.s.Counts.On + st.s.Counts.Off
	st.s.LastCaseID = caseID

	st.s.History = append(st.s.History, HistoryEntry{
		Type:      typ,
		CaseID:    caseID,
		Timestamp: now,
		LevelUp:   levelUp,
	})
	st.s.HourlyMetrics.CurrentHourCases = append(st.s.HourlyMetrics.CurrentHourCases, HourCase{
		Timestamp: now,
		Type:      typ,
		LevelUp:   levelUp,
	})
	st.recomputeParticipation()

	if st.deps.CaseLog != nil {
		if _, err := st.deps.CaseLog.Insert(ctx, storage.CaseLogEntry{
			CaseID:       caseID,
			CaseType:     string(typ),
			LevelUp:      levelUp,
			RegisteredAt: now,
		}); err != nil {
			st.deps.Log.Warn("case log insert", zap.Error(err))
		}
	}

	unlocked := st.evaluateAchievements()
	goalMet := st.checkGoalMet(now)

	st.save()
	if levelUp {
		st.notify(EventModifierChanged)
	}
	st.notify(EventCountsUpdated)
	if len(unlocked) > 0 {
		st.notify(EventAchievementsUnlocked)
	}
	if goalMet {
		st.notify(EventGoalMet)
	}

	st.submitCase(typ, caseID, levelUp)

	return RegisterResult{
		LevelUp:       levelUp,
		GoalMet:       goalMet,
		NewlyUnlocked: unlocked,
		Counts:        st.s.Counts,
	}, nil
}

// UndoResult reports whether an entry was reversed and which one.
type UndoResult struct {
	Undone bool
	Entry  HistoryEntry
	Counts Counts
}

// Undo reverses the most recent registration of the day. Counters floor at
// zero, the modifier is not re-armed, and unlocked achievements stay
// unlocked.
func (st *Store) Undo(ctx context.Context) (UndoResult, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.s == nil {
		return UndoResult{}, ValidationError{Field: "state", Reason: "not loaded"}
	}
	now := st.deps.Clock()
	st.rolloverIfNeeded(now)

	n := len(st.s.History)
	if n == 0 {
		return UndoResult{Undone: false}, nil
	}
	last := st.s.History[n-1]
	st.s.History = st.s.History[:n-1]

	switch last.Type {
	case CaseOn:
		if st.s.Counts.On > 0 {
			st.s.Counts.On--
		}
	case CaseOff:
		if st.s.Counts.Off > 0 {
			st.s.Counts.Off--
		}
	}
	if last.LevelUp && st.s.Counts.Level > 0 {
		st.s.Counts.Level--
	}
	st.s.Counts.Total = st.s.Counts.On + st.s.Counts.Off

	if m := len(st.s.HourlyMetrics.CurrentHourCases); m > 0 {
		st.s.HourlyMetrics.CurrentHourCases = st.s.HourlyMetrics.CurrentHourCases[:m-1]
	}
	st.recomputeParticipation()

	st.s.LastCaseID = ""
	if rest := st.s.History; len(rest) > 0 {
		st.s.LastCaseID = rest[len(rest)-1].CaseID
	}

	if st.deps.CaseLog != nil {
		if err := st.deps.CaseLog.DeleteLast(ctx); err != nil {
			st.deps.Log.Warn("case log delete", zap.Error(err))
		}
	}

	st.refreshProgress()
	st.save()
	st.notify(EventCaseUndone)

	return UndoResult{Undone: true, Entry: last, Counts: st.s.Counts}, nil
}

// SetDailyGoal changes the goal, clamped to at least 1. If the change makes
// today's total meet a goal that was not celebrated yet, the goal fires as
// usual; raising the goal above the total just clears the celebrated flag.
func (st *Store) SetDailyGoal(goal int) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.s == nil {
		return false, ValidationError{Field: "state", Reason: "not loaded"}
	}
	if goal < 1 {
		goal = 1
	}
	now := st.deps.Clock()
	st.rolloverIfNeeded(now)

	st.s.DailyGoal = goal
	if !st.s.GoalReached() {
		st.s.Celebrated = false
	}
	goalMet := st.checkGoalMet(now)

	st.save()
	st.notify(EventGoalUpdated)
	if goalMet {
		st.notify(EventGoalMet)
	}
	return goalMet, nil
}

// ArmModifier arms the one-shot level-up modifier. Reports whether the state
// changed.
func (st *Store) ArmModifier() bool {
	return st.applyModifier(transitionArm)
}

// DisarmModifier cancels an armed modifier without consuming it.
func (st *Store) DisarmModifier() bool {
	return st.applyModifier(transitionDisarm)
}

func (st *Store) applyModifier(t modifierTransition) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.s == nil {
		return false
	}
	next, changed := st.s.LevelUpModifier.apply(t)
	if !changed {
		return false
	}
	st.s.LevelUpModifier = next
	st.save()
	st.notify(EventModifierChanged)
	return true
}

// AcknowledgeAchievements drains the newly-unlocked queue and returns what
// was pending.
func (st *Store) AcknowledgeAchievements() []string {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.s == nil || len(st.s.Achievements.NewlyUnlocked) == 0 {
		return nil
	}
	pending := st.s.Achievements.NewlyUnlocked
	st.s.Achievements.NewlyUnlocked = nil
	st.save()
	return pending
}

// ApplyTeamData folds fetched team KPIs into the state: team total,
// participation share and the remote weekly series.
func (st *Store) ApplyTeamData(td *backend.TeamData) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.s == nil || td == nil {
		return
	}
	st.s.HourlyMetrics.TeamTotalToday = td.KPIs.TeamTotal
	st.s.WeeklyData = td.KPIs.WeeklyData
	st.recomputeParticipation()
	st.save()
	st.notify(EventTeamDataUpdated)
}

// SetRemoteRanking merges a fetched ranking with the locally authoritative
// self entry and stores the result for rendering.
func (st *Store) SetRemoteRanking(remote []ranking.Entry) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.s == nil {
		return
	}
	self := ranking.Self{}
	if u := st.s.User; u != nil && u.Role == RoleAgent {
		self = ranking.Self{ID: u.ID, Score: st.s.Counts.Total, Goal: st.s.DailyGoal}
	}
	st.s.RemoteRanking = ranking.Merge(remote, self, st.deps.Clock())
	st.save()
	st.notify(EventRankingUpdated)
}

// SetUser signs a user in. Ranking fetched for the previous user is dropped.
func (st *Store) SetUser(u User) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.s == nil {
		return ValidationError{Field: "state", Reason: "not loaded"}
	}
	if u.ID == "" {
		return ValidationError{Field: "user", Reason: "empty id"}
	}
	if u.Role != RoleAgent && u.Role != RoleLeader {
		return ValidationError{Field: "user", Reason: "unknown role"}
	}
	st.s.User = &u
	st.s.RemoteRanking = nil
	st.save()
	st.notify(EventUserChanged)
	return nil
}

// ClearUser signs out. Counts and history survive sign-out.
func (st *Store) ClearUser() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.s == nil || st.s.User == nil {
		return
	}
	st.s.User = nil
	st.s.RemoteRanking = nil
	st.save()
	st.notify(EventUserChanged)
}

func (st *Store) SetTheme(theme string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.s == nil {
		return ValidationError{Field: "state", Reason: "not loaded"}
	}
	if !indicator.ValidTheme(theme) {
		return ValidationError{Field: "theme", Reason: "unknown theme"}
	}
	if st.s.Theme == theme {
		return nil
	}
	st.s.Theme = theme
	st.save()
	st.notify(EventThemeChanged)
	return nil
}

// State returns a deep copy of the current state.
func (st *Store) State() AppState {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s == nil {
		return AppState{}
	}
	return cloneState(st.s)
}

// Subscribe registers a listener for every emitted event and returns its
// unsubscribe function. Listeners run synchronously and must not call back
// into the Store. Unsubscribing is safe while mutations run on other
// goroutines.
func (st *Store) Subscribe(l Listener) (unsubscribe func()) {
	st.mu.Lock()
	defer st.mu.Unlock()
	remove := st.bus.subscribe(l)
	return func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		remove()
	}
}

// Close waits for in-flight backend submissions and flushes the pending
// snapshot.
func (st *Store) Close() {
	st.submits.Wait()
	st.persist.close()
}

// rolloverIfNeeded archives the previous day when the stored day key is
// stale. Multiple skipped days collapse into one rollover: the streak rule
// only cares whether the goal was met exactly yesterday.
func (st *Store) rolloverIfNeeded(now time.Time) {
	today := game.DateKey(now)
	if st.s.TodayKey == today {
		return
	}

	st.s.Streaks = game.RolloverStreak(st.s.Streaks, now)

	st.s.Counts = Counts{}
	st.s.History = []HistoryEntry{}
	st.s.Celebrated = false
	st.s.LastCaseID = ""
	if next, changed := st.s.LevelUpModifier.apply(transitionClear); changed {
		st.s.LevelUpModifier = next
	}
	st.s.HourlyMetrics = HourlyMetrics{
		CurrentHour:      now.Hour(),
		CurrentHourCases: []HourCase{},
	}
	st.s.TodayKey = today

	st.refreshProgress()
}

// refreshHour rotates the current-hour bucket and prunes stale entries.
func (st *Store) refreshHour(now time.Time) {
	if st.s.HourlyMetrics.CurrentHour != now.Hour() {
		st.s.HourlyMetrics.CurrentHour = now.Hour()
		st.s.HourlyMetrics.CurrentHourCases = []HourCase{}
		return
	}
	cutoff := now.Add(-hourWindow)
	kept := st.s.HourlyMetrics.CurrentHourCases[:0]
	for _, c := range st.s.HourlyMetrics.CurrentHourCases {
		if c.Timestamp.After(cutoff) {
			kept = append(kept, c)
		}
	}
	st.s.HourlyMetrics.CurrentHourCases = kept
}

func (st *Store) recomputeParticipation() {
	team := st.s.HourlyMetrics.TeamTotalToday
	if team <= 0 {
		st.s.HourlyMetrics.MyParticipationPercent = 0
		return
	}
	st.s.HourlyMetrics.MyParticipationPercent = int(math.Round(100 * float64(st.s.Counts.Total) / float64(team)))
}

// evaluateAchievements runs one pass of the rules and folds new unlocks into
// the permanent set and the acknowledgement queue.
func (st *Store) evaluateAchievements() []game.Definition {
	res := game.Evaluate(st.counters(), st.s.Streaks.Current, st.unlockedSet())
	st.s.Achievements.Progress = res.Progress
	for _, def := range res.NewlyUnlocked {
		st.s.Achievements.Unlocked = append(st.s.Achievements.Unlocked, def.ID)
		st.s.Achievements.NewlyUnlocked = append(st.s.Achievements.NewlyUnlocked, def.ID)
	}
	return res.NewlyUnlocked
}

// refreshProgress recomputes progress bars without touching unlocks.
func (st *Store) refreshProgress() {
	res := game.Evaluate(st.counters(), st.s.Streaks.Current, st.unlockedSet())
	st.s.Achievements.Progress = res.Progress
}

// checkGoalMet fires the goal celebration at most once per day. Meeting the
// goal advances the streak and may unlock streak achievements.
func (st *Store) checkGoalMet(now time.Time) bool {
	if st.s.Celebrated || !st.s.GoalReached() {
		return false
	}
	st.s.Celebrated = true
	st.s.Streaks = game.AdvanceStreak(st.s.Streaks, now)
	if unlocked := st.evaluateAchievements(); len(unlocked) > 0 {
		st.notify(EventAchievementsUnlocked)
	}
	return true
}

func (st *Store) counters() game.Counters {
	return game.Counters{
		On:    st.s.Counts.On,
		Off:   st.s.Counts.Off,
		Level: st.s.Counts.Level,
		Total: st.s.Counts.Total,
	}
}

func (st *Store) unlockedSet() map[string]bool {
	set := make(map[string]bool, len(st.s.Achievements.Unlocked))
	for _, id := range st.s.Achievements.Unlocked {
		set[id] = true
	}
	return set
}

// save queues persistence and pushes the indicator triple. Memory is
// authoritative: a failed write is logged by the persister and the state
// stays as mutated.
func (st *Store) save() {
	st.persist.queue(st.s)
	st.deps.Sink.Update(st.s.Counts.Total, st.s.GoalReached(), indicator.ThemeColor(st.s.Theme))
}

func (st *Store) notify(kind EventKind) {
	st.bus.notify(kind, cloneState(st.s))
}

// submitCase reports a registration to the backend without blocking the
// caller. Failures are logged; the backend retries internally.
func (st *Store) submitCase(typ CaseType, caseID string, levelUp bool) {
	if st.deps.Client == nil || st.s.User == nil || st.s.User.Role != RoleAgent {
		return
	}
	req := backend.RegisterCaseRequest{
		AgentID:  st.s.User.ID,
		LeaderID: st.s.User.LeaderID,
		Type:     string(typ),
		CaseID:   caseID,
		LevelUp:  levelUp,
	}
	st.submits.Add(1)
	go func() {
		defer st.submits.Done()
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		if err := st.deps.Client.RegisterCase(ctx, req); err != nil {
			st.deps.Log.Warn("backend register", zap.String("caseId", req.CaseID), zap.Error(err))
		}
	}()
}

func cloneState(s *AppState) AppState {
	c := *s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	c.History = append([]HistoryEntry(nil), s.History...)
	c.Achievements.Unlocked = append([]string(nil), s.Achievements.Unlocked...)
	c.Achievements.NewlyUnlocked = append([]string(nil), s.Achievements.NewlyUnlocked...)
	c.Achievements.Progress = make(map[string]game.Progress, len(s.Achievements.Progress))
	for k, v := range s.Achievements.Progress {
		c.Achievements.Progress[k] = v
	}
	c.HourlyMetrics.CurrentHourCases = append([]HourCase(nil), s.HourlyMetrics.CurrentHourCases...)
	c.RemoteRanking = append([]ranking.Entry(nil), s.RemoteRanking...)
	return c
}
