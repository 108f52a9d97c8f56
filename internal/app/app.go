// Package app wires the pieces together: storage, state store, backend
// client, directory and poller share one container so commands and the TUI
// get fully-connected dependencies from a single constructor.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"caseline/internal/backend"
	"caseline/internal/config"
	"caseline/internal/directory"
	"caseline/internal/game"
	"caseline/internal/indicator"
	"caseline/internal/poll"
	"caseline/internal/state"
	"caseline/internal/storage"
)

type App struct {
	Config    *config.Config
	Log       *zap.Logger
	DB        *sql.DB
	Store     *state.Store
	Directory *directory.Directory
	Client    backend.Client
	Poller    *poll.Poller
}

// New opens storage, loads the persisted state and returns a ready
// container. A missing backend URL leaves Client nil: everything local keeps
// working, remote operations report backend.ErrNotConfigured.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	snapshots := storage.NewSnapshotRepo(db)
	caseLog := storage.NewCaseLogRepo(db)

	var client backend.Client
	if cfg.BackendURL != "" {
		client = backend.NewHTTPClient(cfg.BackendURL, log)
	}

	store := state.New(state.Deps{
		Snapshots: snapshots,
		CaseLog:   caseLog,
		Client:    client,
		Sink:      indicator.NewFileSink(cfg.StatusPath, log),
		Log:       log,
	})
	if err := store.Load(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}
	if cfg.Theme != "" {
		if err := store.SetTheme(cfg.Theme); err != nil {
			store.Close()
			db.Close()
			return nil, fmt.Errorf("apply theme: %w", err)
		}
	}

	dir := directory.New(client, snapshots, directory.Options{
		TTL: cfg.DirectoryTTL,
		Log: log,
	})

	return &App{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Store:     store,
		Directory: dir,
		Client:    client,
		Poller:    poll.New(log),
	}, nil
}

// LoginAgent validates the pair against the roster and signs the agent in.
func (a *App) LoginAgent(ctx context.Context, agentID, leaderID string) (directory.Session, error) {
	if a.Client == nil {
		return directory.Session{}, backend.ErrNotConfigured
	}
	sess, err := a.Directory.ValidateAgent(ctx, agentID, leaderID)
	if err != nil {
		return directory.Session{}, err
	}
	if err := a.Store.SetUser(sessionUser(sess)); err != nil {
		return directory.Session{}, err
	}
	return sess, nil
}

// LoginLeader signs a leader in. Works offline; the roster check is best
// effort inside the directory.
func (a *App) LoginLeader(ctx context.Context, leaderID string) (directory.Session, error) {
	sess, err := a.Directory.ValidateLeader(ctx, leaderID)
	if err != nil {
		return directory.Session{}, err
	}
	if err := a.Store.SetUser(sessionUser(sess)); err != nil {
		return directory.Session{}, err
	}
	return sess, nil
}

func sessionUser(sess directory.Session) state.User {
	role := state.RoleAgent
	leaderID := sess.LeaderID
	if sess.Role == directory.RoleLeader {
		role = state.RoleLeader
		leaderID = sess.ID
	}
	return state.User{Role: role, ID: sess.ID, LeaderID: leaderID, Name: sess.Name}
}

// RefreshTeam fetches the ranking and KPIs for the signed-in user's team and
// folds them into the state. A fetch that returns after the user changed is
// discarded.
func (a *App) RefreshTeam(ctx context.Context) error {
	if a.Client == nil {
		return backend.ErrNotConfigured
	}
	before := a.Store.State()
	if before.User == nil {
		return fmt.Errorf("not signed in")
	}
	leaderID := before.User.LeaderID

	td, err := a.Client.FetchTeamData(ctx, leaderID, game.DateKey(time.Now()))
	if err != nil {
		return err
	}

	after := a.Store.State()
	if after.User == nil || after.User.LeaderID != leaderID {
		a.Log.Debug("discarding team data fetched for a previous user",
			zap.String("leaderId", leaderID))
		return nil
	}

	a.Store.ApplyTeamData(td)
	a.Store.SetRemoteRanking(td.Ranking)
	return nil
}

// StartRankingPoll keeps the team view fresh in the background. At most one
// poll task runs; starting the leader poll stops the ranking poll and vice
// versa.
func (a *App) StartRankingPoll(ctx context.Context) {
	a.Poller.Start(ctx, "ranking", a.Config.RankingPollInterval, func(ctx context.Context) {
		if err := a.RefreshTeam(ctx); err != nil {
			a.Log.Debug("ranking poll", zap.Error(err))
		}
	})
}

// StartLeaderPoll refreshes the leader dashboard at its slower cadence.
func (a *App) StartLeaderPoll(ctx context.Context) {
	a.Poller.Start(ctx, "leader", a.Config.LeaderPollInterval, func(ctx context.Context) {
		if err := a.RefreshTeam(ctx); err != nil {
			a.Log.Debug("leader poll", zap.Error(err))
		}
	})
}

// Close stops polling, flushes state and releases storage.
func (a *App) Close() error {
	a.Poller.Stop()
	a.Store.Close()
	return a.DB.Close()
}
