// Package backend defines the remote collaborator the state engine talks
// to: case submission, team ranking/KPIs, and the user directory roster.
package backend

import (
	"context"
	"errors"

	"caseline/internal/ranking"
)

// ErrNotConfigured is returned by operations when no backend URL is set.
var ErrNotConfigured = errors.New("backend not configured")

type RegisterCaseRequest struct {
	AgentID  string `json:"agentId"`
	LeaderID string `json:"leaderId"`
	Type     string `json:"type"`
	CaseID   string `json:"caseId"`
	LevelUp  bool   `json:"levelUp"`
}

type UserRecord struct {
	ID       string `json:"id"`
	LeaderID string `json:"leaderId"`
	Name     string `json:"name"`
}

type TeamData struct {
	Ranking []ranking.Entry `json:"ranking"`
	KPIs    ranking.KPIs    `json:"kpis"`
}

// Client is the abstract backend consumed by the core. Implementations own
// transport concerns (retries, timeouts); callers treat every method as a
// suspension point.
type Client interface {
	RegisterCase(ctx context.Context, req RegisterCaseRequest) error
	FetchTeamData(ctx context.Context, leaderID, date string) (*TeamData, error)
	FetchUsers(ctx context.Context) ([]UserRecord, error)
	LookupUser(ctx context.Context, id string) (*UserRecord, error)
}
