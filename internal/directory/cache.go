// Package directory validates sign-ins against the team roster. The roster
// is fetched in bulk, cached with a TTL, and persisted so restarts within
// the TTL never hit the backend.
package directory

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"caseline/internal/backend"
	"caseline/internal/storage"
)

// DefaultTTL is how long a fetched roster stays fresh.
const DefaultTTL = 24 * time.Hour

// Record is one roster entry, keyed by normalized id.
type Record struct {
	ID       string `json:"id"`
	LeaderID string `json:"leaderId"`
	Name     string `json:"name,omitempty"`
}

// Session is a validated sign-in. HasTeam is only meaningful for leaders.
type Session struct {
	Role     string
	ID       string
	LeaderID string
	Name     string
	HasTeam  bool
}

const (
	RoleAgent  = "agent"
	RoleLeader = "leader"
)

type snapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, blob []byte) error
}

// cacheBlob is the persisted shape.
type cacheBlob struct {
	Users     map[string]Record `json:"users"`
	FetchedAt time.Time         `json:"fetchedAt"`
}

// Directory caches the roster. Not safe for concurrent use; callers
// serialize through the app layer.
type Directory struct {
	client backend.Client
	snaps  snapshotStore
	ttl    time.Duration
	clock  func() time.Time
	log    *zap.Logger

	loaded    bool
	users     map[string]Record
	fetchedAt time.Time
}

type Options struct {
	TTL   time.Duration
	Clock func() time.Time
	Log   *zap.Logger
}

func New(client backend.Client, snaps snapshotStore, opts Options) *Directory {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Directory{
		client: client,
		snaps:  snaps,
		ttl:    opts.TTL,
		clock:  opts.Clock,
		log:    opts.Log,
		users:  map[string]Record{},
	}
}

// Normalize is the canonical id form: trimmed and lowercased. Applied to
// every id entered by a user and every id stored in the cache.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// ValidateAgent checks an agent sign-in. A fresh cache answers directly; a
// miss in a fresh cache falls back to a single-record lookup before giving
// up. The entered leader id must match the roster assignment.
func (d *Directory) ValidateAgent(ctx context.Context, agentID, leaderID string) (Session, error) {
	id := Normalize(agentID)
	leader := Normalize(leaderID)
	if id == "" {
		return Session{}, NotFoundError{AgentID: agentID}
	}

	if err := d.ensureFresh(ctx); err != nil {
		return Session{}, err
	}

	rec, ok := d.users[id]
	if !ok {
		found, err := d.lookupSingle(ctx, id)
		if err != nil {
			return Session{}, err
		}
		if found == nil {
			return Session{}, NotFoundError{AgentID: agentID}
		}
		rec = *found
	}

	if Normalize(rec.LeaderID) != leader {
		return Session{}, LeaderMismatchError{AgentID: agentID, Entered: leaderID, Assigned: rec.LeaderID}
	}
	return Session{Role: RoleAgent, ID: id, LeaderID: Normalize(rec.LeaderID), Name: rec.Name}, nil
}

// ValidateLeader signs a leader in. The roster cannot reject a leader; it
// only reports whether anyone in the cached roster reports to them.
func (d *Directory) ValidateLeader(ctx context.Context, leaderID string) (Session, error) {
	id := Normalize(leaderID)
	if id == "" {
		return Session{}, NotFoundError{AgentID: leaderID}
	}

	// Best effort: a leader can sign in even when the roster is unreachable.
	if err := d.ensureFresh(ctx); err != nil {
		d.log.Warn("roster refresh for leader sign-in", zap.Error(err))
	}

	hasTeam := false
	for _, rec := range d.users {
		if Normalize(rec.LeaderID) == id {
			hasTeam = true
			break
		}
	}
	return Session{Role: RoleLeader, ID: id, HasTeam: hasTeam}, nil
}

// Refresh forces a bulk roster fetch regardless of freshness.
func (d *Directory) Refresh(ctx context.Context) error {
	if err := d.ensureLoaded(ctx); err != nil {
		return err
	}
	return d.fetchAll(ctx)
}

// ensureFresh loads the persisted cache on first use and refreshes it when
// the TTL has lapsed. A failed refresh over a non-empty stale cache degrades
// to serving stale data.
func (d *Directory) ensureFresh(ctx context.Context) error {
	if err := d.ensureLoaded(ctx); err != nil {
		return err
	}
	if d.fresh() {
		return nil
	}
	if err := d.fetchAll(ctx); err != nil {
		if len(d.users) > 0 {
			d.log.Warn("roster refresh failed, serving stale cache", zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}

func (d *Directory) fresh() bool {
	if d.fetchedAt.IsZero() {
		return false
	}
	return d.clock().Sub(d.fetchedAt) < d.ttl
}

func (d *Directory) ensureLoaded(ctx context.Context) error {
	if d.loaded {
		return nil
	}
	d.loaded = true
	if d.snaps == nil {
		return nil
	}
	blob, err := d.snaps.Get(ctx, storage.KeyDirectoryCache)
	if err != nil {
		return err
	}
	if blob == nil {
		return nil
	}
	var c cacheBlob
	if err := json.Unmarshal(blob, &c); err != nil {
		d.log.Warn("decode roster cache, starting empty", zap.Error(err))
		return nil
	}
	d.users = map[string]Record{}
	for id, rec := range c.Users {
		d.users[Normalize(id)] = rec
	}
	d.fetchedAt = c.FetchedAt
	return nil
}

// fetchAll replaces the whole cache with the backend roster and resets the
// freshness clock.
func (d *Directory) fetchAll(ctx context.Context) error {
	if d.client == nil {
		return backend.ErrNotConfigured
	}
	records, err := d.client.FetchUsers(ctx)
	if err != nil {
		return err
	}
	users := make(map[string]Record, len(records))
	for _, r := range records {
		users[Normalize(r.ID)] = Record{ID: Normalize(r.ID), LeaderID: r.LeaderID, Name: r.Name}
	}
	d.users = users
	d.fetchedAt = d.clock()
	d.persist(ctx)
	return nil
}

// lookupSingle resolves one id the bulk roster missed, typically someone
// added after the last refresh. A hit is folded into the cache and counts as
// a freshness signal for the whole cache, so one new teammate does not force
// a bulk refetch on every sign-in.
func (d *Directory) lookupSingle(ctx context.Context, id string) (*Record, error) {
	if d.client == nil {
		return nil, backend.ErrNotConfigured
	}
	u, err := d.client.LookupUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	rec := Record{ID: Normalize(u.ID), LeaderID: u.LeaderID, Name: u.Name}
	d.users[rec.ID] = rec
	d.fetchedAt = d.clock()
	d.persist(ctx)
	return &rec, nil
}

func (d *Directory) persist(ctx context.Context) {
	if d.snaps == nil {
		return
	}
	blob, err := json.Marshal(cacheBlob{Users: d.users, FetchedAt: d.fetchedAt})
	if err != nil {
		d.log.Error("encode roster cache", zap.Error(err))
		return
	}
	if err := d.snaps.Put(ctx, storage.KeyDirectoryCache, blob); err != nil {
		d.log.Warn("persist roster cache", zap.Error(err))
	}
}
