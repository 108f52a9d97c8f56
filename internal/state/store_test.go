package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"caseline/internal/backend"
	"caseline/internal/game"
	"caseline/internal/ranking"
	"caseline/internal/storage"
)

type fakeSnapshots struct {
	mu    sync.Mutex
	blobs map[string][]byte
	fail  bool
	puts  int
}

func (f *fakeSnapshots) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blobs[key], nil
}

func (f *fakeSnapshots) Put(_ context.Context, key string, blob []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.fail {
		return errors.New("disk full")
	}
	if f.blobs == nil {
		f.blobs = map[string][]byte{}
	}
	f.blobs[key] = blob
	return nil
}

type fakeCaseLog struct {
	mu      sync.Mutex
	inserts []storage.CaseLogEntry
	deletes int
}

func (f *fakeCaseLog) Insert(_ context.Context, e storage.CaseLogEntry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, e)
	return int64(len(f.inserts)), nil
}

func (f *fakeCaseLog) DeleteLast(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}

type fakeClient struct {
	mu   sync.Mutex
	reqs []backend.RegisterCaseRequest
}

func (f *fakeClient) RegisterCase(_ context.Context, req backend.RegisterCaseRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return nil
}

func (f *fakeClient) FetchTeamData(context.Context, string, string) (*backend.TeamData, error) {
	return nil, backend.ErrNotConfigured
}

func (f *fakeClient) FetchUsers(context.Context) ([]backend.UserRecord, error) {
	return nil, backend.ErrNotConfigured
}

func (f *fakeClient) LookupUser(context.Context, string) (*backend.UserRecord, error) {
	return nil, backend.ErrNotConfigured
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*Store, *fakeSnapshots, *testClock) {
	t.Helper()
	snaps := &fakeSnapshots{}
	clock := &testClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	st := New(Deps{
		Snapshots: snaps,
		CaseLog:   &fakeCaseLog{},
		Clock:     clock.Now,
	})
	t.Cleanup(st.Close)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := st.SetUser(User{Role: RoleAgent, ID: "a7", LeaderID: "l1"}); err != nil {
		t.Fatalf("set user: %v", err)
	}
	return st, snaps, clock
}

func register(t *testing.T, st *Store, typ CaseType, id string) RegisterResult {
	t.Helper()
	res, err := st.RegisterCase(context.Background(), typ, id)
	if err != nil {
		t.Fatalf("register %s %s: %v", typ, id, err)
	}
	return res
}

func TestRegisterKeepsCountInvariants(t *testing.T) {
	st, _, _ := newTestStore(t)

	register(t, st, CaseOn, "C-1")
	register(t, st, CaseOff, "C-2")
	st.ArmModifier()
	register(t, st, CaseOn, "C-3")

	s := st.State()
	if got := s.Counts; got.On != 2 || got.Off != 1 || got.Level != 1 {
		t.Fatalf("counts = %+v, want on=2 off=1 level=1", got)
	}
	if s.Counts.Total != s.Counts.On+s.Counts.Off {
		t.Fatalf("total %d != on+off %d", s.Counts.Total, s.Counts.On+s.Counts.Off)
	}
	if s.Counts.Level > s.Counts.Total {
		t.Fatalf("level %d exceeds total %d", s.Counts.Level, s.Counts.Total)
	}
	if s.LastCaseID != "C-3" {
		t.Fatalf("lastCaseId = %q, want C-3", s.LastCaseID)
	}
	if len(s.History) != 3 {
		t.Fatalf("history len = %d, want 3", len(s.History))
	}
}

func TestRegisterValidation(t *testing.T) {
	st, _, _ := newTestStore(t)

	before := st.State()
	if _, err := st.RegisterCase(context.Background(), CaseType("sideways"), "C-1"); !IsValidation(err) {
		t.Fatalf("unknown type err = %v, want validation error", err)
	}
	if _, err := st.RegisterCase(context.Background(), CaseOn, "   "); !IsValidation(err) {
		t.Fatalf("blank case id err = %v, want validation error", err)
	}
	if diff := cmp.Diff(before.Counts, st.State().Counts); diff != "" {
		t.Fatalf("counts changed on rejected register:\n%s", diff)
	}
}

func TestRegisterRequiresAgentSession(t *testing.T) {
	snaps := &fakeSnapshots{}
	st := New(Deps{Snapshots: snaps})
	t.Cleanup(st.Close)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := st.RegisterCase(context.Background(), CaseOn, "C-1"); !IsValidation(err) {
		t.Fatalf("signed-out err = %v, want validation error", err)
	}

	if err := st.SetUser(User{Role: RoleLeader, ID: "l1", LeaderID: "l1"}); err != nil {
		t.Fatalf("set user: %v", err)
	}
	if _, err := st.RegisterCase(context.Background(), CaseOn, "C-1"); !IsValidation(err) {
		t.Fatalf("leader-session err = %v, want validation error", err)
	}
	if got := st.State().Counts.Total; got != 0 {
		t.Fatalf("total = %d, want 0 after rejected registers", got)
	}
}

func TestModifierIsConsumedByExactlyOneRegistration(t *testing.T) {
	st, _, _ := newTestStore(t)

	if !st.ArmModifier() {
		t.Fatal("arm: no state change")
	}
	if st.ArmModifier() {
		t.Fatal("second arm should be a no-op")
	}

	res := register(t, st, CaseOn, "C-1")
	if !res.LevelUp {
		t.Fatal("armed modifier not consumed")
	}
	res = register(t, st, CaseOn, "C-2")
	if res.LevelUp {
		t.Fatal("modifier fired twice")
	}

	s := st.State()
	if s.Counts.Level != 1 {
		t.Fatalf("level = %d, want 1", s.Counts.Level)
	}
	if s.LevelUpModifier.Armed() {
		t.Fatal("modifier still armed after consumption")
	}
}

func TestDisarmPreventsConsumption(t *testing.T) {
	st, _, _ := newTestStore(t)

	st.ArmModifier()
	if !st.DisarmModifier() {
		t.Fatal("disarm: no state change")
	}
	if res := register(t, st, CaseOff, "C-1"); res.LevelUp {
		t.Fatal("disarmed modifier still consumed")
	}
}

func TestUndoFloorsAndDoesNotRearmModifier(t *testing.T) {
	st, _, _ := newTestStore(t)

	st.ArmModifier()
	register(t, st, CaseOn, "C-1")

	res, err := st.Undo(context.Background())
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !res.Undone || res.Entry.CaseID != "C-1" || !res.Entry.LevelUp {
		t.Fatalf("undo result = %+v", res)
	}

	s := st.State()
	if s.Counts != (Counts{}) {
		t.Fatalf("counts after undo = %+v, want zeros", s.Counts)
	}
	if s.LevelUpModifier.Armed() {
		t.Fatal("undo must not re-arm the modifier")
	}

	// Nothing left to undo.
	res, err = st.Undo(context.Background())
	if err != nil {
		t.Fatalf("undo on empty: %v", err)
	}
	if res.Undone {
		t.Fatal("undo reported success on empty history")
	}
}

func TestGoalFiresOnceAndAdvancesStreak(t *testing.T) {
	st, _, _ := newTestStore(t)

	var events []EventKind
	st.Subscribe(func(e Event) { events = append(events, e.Kind) })

	if _, err := st.SetDailyGoal(2); err != nil {
		t.Fatalf("set goal: %v", err)
	}
	register(t, st, CaseOn, "C-1")
	res := register(t, st, CaseOff, "C-2")
	if !res.GoalMet {
		t.Fatal("goal not reported met")
	}
	if res := register(t, st, CaseOn, "C-3"); res.GoalMet {
		t.Fatal("goal fired twice in one day")
	}

	s := st.State()
	if !s.Celebrated {
		t.Fatal("celebrated flag not set")
	}
	if s.Streaks.Current != 1 || s.Streaks.Best != 1 {
		t.Fatalf("streaks = %+v, want current=1 best=1", s.Streaks)
	}

	met := 0
	for _, k := range events {
		if k == EventGoalMet {
			met++
		}
	}
	if met != 1 {
		t.Fatalf("goal-met events = %d, want 1", met)
	}
}

func TestLoweringGoalBelowTotalFiresGoal(t *testing.T) {
	st, _, _ := newTestStore(t)

	register(t, st, CaseOn, "C-1")
	register(t, st, CaseOn, "C-2")
	register(t, st, CaseOn, "C-3")

	fired, err := st.SetDailyGoal(3)
	if err != nil {
		t.Fatalf("set goal: %v", err)
	}
	if !fired {
		t.Fatal("lowering the goal below the total should fire the goal")
	}
	if fired, _ := st.SetDailyGoal(2); fired {
		t.Fatal("goal fired twice for the same day")
	}
}

func TestGoalClampsToOne(t *testing.T) {
	st, _, _ := newTestStore(t)

	if _, err := st.SetDailyGoal(-5); err != nil {
		t.Fatalf("set goal: %v", err)
	}
	if got := st.State().DailyGoal; got != 1 {
		t.Fatalf("goal = %d, want 1", got)
	}
}

func TestDayRolloverResetsDailyState(t *testing.T) {
	st, _, clock := newTestStore(t)

	register(t, st, CaseOn, "C-1")
	register(t, st, CaseOff, "C-2")
	st.ArmModifier()

	clock.Advance(24 * time.Hour)
	register(t, st, CaseOn, "C-3")

	s := st.State()
	if s.Counts.Total != 1 || s.Counts.On != 1 {
		t.Fatalf("counts after rollover = %+v, want fresh day with one case", s.Counts)
	}
	if len(s.History) != 1 {
		t.Fatalf("history len = %d, want 1", len(s.History))
	}
	if got := s.TodayKey; got != game.DateKey(clock.Now()) {
		t.Fatalf("todayKey = %q, want %q", got, game.DateKey(clock.Now()))
	}
}

func TestRolloverClearsArmedModifier(t *testing.T) {
	st, _, clock := newTestStore(t)

	st.ArmModifier()
	clock.Advance(24 * time.Hour)

	if res := register(t, st, CaseOn, "C-1"); res.LevelUp {
		t.Fatal("modifier survived the day boundary")
	}
}

func TestStreakContinuesAcrossConsecutiveDays(t *testing.T) {
	st, _, clock := newTestStore(t)

	st.SetDailyGoal(1)
	register(t, st, CaseOn, "C-1")

	clock.Advance(24 * time.Hour)
	register(t, st, CaseOn, "C-2")

	if s := st.State(); s.Streaks.Current != 2 || s.Streaks.Best != 2 {
		t.Fatalf("streaks = %+v, want current=2 best=2", s.Streaks)
	}
}

func TestMultiDayGapCollapsesToSingleRollover(t *testing.T) {
	st, _, clock := newTestStore(t)

	st.SetDailyGoal(1)
	register(t, st, CaseOn, "C-1")

	clock.Advance(3 * 24 * time.Hour)
	register(t, st, CaseOn, "C-2")

	s := st.State()
	if s.Streaks.Current != 1 {
		t.Fatalf("streak after gap = %d, want fresh streak of 1", s.Streaks.Current)
	}
	if s.Streaks.Best != 1 {
		t.Fatalf("best = %d, want 1", s.Streaks.Best)
	}
}

func TestAchievementUnlockAndAcknowledge(t *testing.T) {
	st, _, _ := newTestStore(t)

	for i := 0; i < 50; i++ {
		register(t, st, CaseOn, fmt.Sprintf("C-%d", i))
	}

	s := st.State()
	if !s.Achievements.IsUnlocked("on_50") {
		t.Fatal("on_50 not unlocked at 50 ON cases")
	}
	found := false
	for _, id := range s.Achievements.NewlyUnlocked {
		if id == "on_50" {
			found = true
		}
	}
	if !found {
		t.Fatal("on_50 missing from acknowledgement queue")
	}

	pending := st.AcknowledgeAchievements()
	if len(pending) == 0 {
		t.Fatal("acknowledge returned nothing")
	}
	if got := st.State().Achievements.NewlyUnlocked; len(got) != 0 {
		t.Fatalf("queue not drained: %v", got)
	}
	if st.AcknowledgeAchievements() != nil {
		t.Fatal("second acknowledge should return nil")
	}
	if !st.State().Achievements.IsUnlocked("on_50") {
		t.Fatal("acknowledge must not relock achievements")
	}
}

func TestUndoDoesNotRelockAchievements(t *testing.T) {
	st, _, _ := newTestStore(t)

	for i := 0; i < 50; i++ {
		register(t, st, CaseOn, fmt.Sprintf("C-%d", i))
	}
	if _, err := st.Undo(context.Background()); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !st.State().Achievements.IsUnlocked("on_50") {
		t.Fatal("undo relocked an achievement")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	snaps := &fakeSnapshots{}
	clock := &testClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	first := New(Deps{Snapshots: snaps, Clock: clock.Now})
	if err := first.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := first.SetUser(User{Role: RoleAgent, ID: "a7", LeaderID: "l1", Name: "Avery"}); err != nil {
		t.Fatalf("set user: %v", err)
	}
	register(t, first, CaseOn, "C-1")
	register(t, first, CaseOff, "C-2")
	first.ArmModifier()
	first.Close()

	second := New(Deps{Snapshots: snaps, Clock: clock.Now})
	t.Cleanup(second.Close)
	if err := second.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	want := first.State()
	got := second.State()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("state changed across restart:\n%s", diff)
	}
	if !got.LevelUpModifier.Armed() {
		t.Fatal("armed modifier lost across restart")
	}
}

func TestLoadMigratesLegacySnapshot(t *testing.T) {
	legacy := []byte(`{"version":1,"todayKey":"2025-03-10","counts":{"on":3,"off":2,"level":1,"total":5},"dailyGoal":20}`)
	snaps := &fakeSnapshots{blobs: map[string][]byte{storage.KeyAppState: legacy}}
	clock := &testClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	st := New(Deps{Snapshots: snaps, Clock: clock.Now})
	t.Cleanup(st.Close)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	s := st.State()
	if s.Version != CurrentVersion {
		t.Fatalf("version = %d, want %d", s.Version, CurrentVersion)
	}
	if s.Counts.Total != 5 || s.Counts.On != 3 {
		t.Fatalf("counts lost in migration: %+v", s.Counts)
	}
	if s.Streaks.Current != 0 || s.Streaks.LastGoalMetDate != "" {
		t.Fatalf("migrated streaks = %+v, want empty", s.Streaks)
	}
	if s.Theme != "mint" {
		t.Fatalf("theme = %q, want default mint", s.Theme)
	}
}

func TestLoadRollsOverStaleSnapshot(t *testing.T) {
	// Snapshot from yesterday, goal last met two days ago: the load must
	// zero the day and reset the running streak, keeping best.
	blob := []byte(`{
		"version": 2,
		"todayKey": "2025-03-09",
		"counts": {"on": 4, "off": 3, "level": 1, "total": 7},
		"history": [{"type": "on", "caseId": "C-1", "timestamp": "2025-03-09T10:00:00Z", "levelUp": false}],
		"levelUpModifier": true,
		"celebrated": true,
		"streaks": {"current": 4, "best": 6, "lastGoalMetDate": "2025-03-08"}
	}`)
	snaps := &fakeSnapshots{blobs: map[string][]byte{storage.KeyAppState: blob}}
	clock := &testClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	st := New(Deps{Snapshots: snaps, Clock: clock.Now})
	t.Cleanup(st.Close)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	s := st.State()
	if s.Counts != (Counts{}) {
		t.Fatalf("counts = %+v, want zeros after rollover", s.Counts)
	}
	if len(s.History) != 0 {
		t.Fatalf("history len = %d, want 0", len(s.History))
	}
	if s.LevelUpModifier.Armed() {
		t.Fatal("modifier survived rollover")
	}
	if s.Celebrated {
		t.Fatal("celebrated flag survived rollover")
	}
	if s.Streaks.Current != 0 || s.Streaks.Best != 6 {
		t.Fatalf("streaks = %+v, want current=0 best=6", s.Streaks)
	}
	if s.TodayKey != "2025-03-10" {
		t.Fatalf("todayKey = %q, want 2025-03-10", s.TodayKey)
	}
}

func TestLoadRejectsNewerSnapshot(t *testing.T) {
	blob := []byte(`{"version":99}`)
	snaps := &fakeSnapshots{blobs: map[string][]byte{storage.KeyAppState: blob}}

	st := New(Deps{Snapshots: snaps})
	t.Cleanup(st.Close)
	if err := st.Load(context.Background()); err == nil {
		t.Fatal("load accepted a snapshot from a newer build")
	}
}

func TestRegisterSubmitsToBackendForAgents(t *testing.T) {
	snaps := &fakeSnapshots{}
	client := &fakeClient{}
	clock := &testClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	st := New(Deps{Snapshots: snaps, Client: client, Clock: clock.Now})
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := st.SetUser(User{Role: RoleAgent, ID: "a7", LeaderID: "l1"}); err != nil {
		t.Fatalf("set user: %v", err)
	}
	st.ArmModifier()
	register(t, st, CaseOn, "C-9")
	st.Close()

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.reqs) != 1 {
		t.Fatalf("backend submissions = %d, want 1", len(client.reqs))
	}
	want := backend.RegisterCaseRequest{AgentID: "a7", LeaderID: "l1", Type: "on", CaseID: "C-9", LevelUp: true}
	if diff := cmp.Diff(want, client.reqs[0]); diff != "" {
		t.Fatalf("submission mismatch:\n%s", diff)
	}
}

func TestSetRemoteRankingMergesSelf(t *testing.T) {
	st, _, _ := newTestStore(t)

	if err := st.SetUser(User{Role: RoleAgent, ID: "a", LeaderID: "l1"}); err != nil {
		t.Fatalf("set user: %v", err)
	}
	register(t, st, CaseOn, "C-1")
	register(t, st, CaseOn, "C-2")

	st.SetRemoteRanking([]ranking.Entry{
		{ID: "b", Score: 10},
		{ID: "a", Score: 1},
	})

	got := st.State().RemoteRanking
	if len(got) != 2 {
		t.Fatalf("ranking len = %d, want 2", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" || got[1].Score != 2 {
		t.Fatalf("merged ranking = %+v, want local score 2 for a", got)
	}
}

func TestApplyTeamDataComputesParticipation(t *testing.T) {
	st, _, _ := newTestStore(t)

	register(t, st, CaseOn, "C-1")
	register(t, st, CaseOn, "C-2")
	weekly := [7]int{3, 5, 8, 2, 0, 6, 2}
	st.ApplyTeamData(&backend.TeamData{KPIs: ranking.KPIs{TeamTotal: 8, WeeklyData: weekly}})

	s := st.State()
	if got := s.HourlyMetrics.MyParticipationPercent; got != 25 {
		t.Fatalf("participation = %d%%, want 25%%", got)
	}
	if s.WeeklyData != weekly {
		t.Fatalf("weeklyData = %v, want remote series %v", s.WeeklyData, weekly)
	}
}

func TestSetThemeValidates(t *testing.T) {
	st, _, _ := newTestStore(t)

	if err := st.SetTheme("ocean"); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if err := st.SetTheme("plaid"); !IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if got := st.State().Theme; got != "ocean" {
		t.Fatalf("theme = %q, want ocean", got)
	}
}

func TestStateReturnsIndependentCopy(t *testing.T) {
	st, _, _ := newTestStore(t)

	register(t, st, CaseOn, "C-1")
	s := st.State()
	s.History[0].CaseID = "mutated"
	s.Counts.On = 99

	fresh := st.State()
	if fresh.History[0].CaseID != "C-1" || fresh.Counts.On != 1 {
		t.Fatal("State() leaked internal references")
	}
}

func TestUnsubscribeIsSafeDuringMutations(t *testing.T) {
	st, _, _ := newTestStore(t)

	var unsubs []func()
	for i := 0; i < 8; i++ {
		unsubs = append(unsubs, st.Subscribe(func(Event) {}))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if _, err := st.RegisterCase(context.Background(), CaseOn, fmt.Sprintf("C-%d", i)); err != nil {
				t.Errorf("register: %v", err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for _, unsub := range unsubs {
			unsub()
		}
	}()
	wg.Wait()

	if got := st.State().Counts.Total; got != 20 {
		t.Fatalf("total = %d, want 20", got)
	}
}

func TestStoredProgressMatchesRuleEvaluation(t *testing.T) {
	st, _, _ := newTestStore(t)

	for i := 0; i < 30; i++ {
		register(t, st, CaseOn, fmt.Sprintf("C-%d", i))
	}
	s := st.State()
	want := game.Evaluate(game.Counters{On: 30, Total: 30}, 0, map[string]bool{})
	if diff := cmp.Diff(want.Progress["on_50"], s.Achievements.Progress["on_50"]); diff != "" {
		t.Fatalf("progress mismatch:\n%s", diff)
	}
}
