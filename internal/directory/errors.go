package directory

import "fmt"

// NotFoundError: the agent id exists in neither the cached roster nor the
// backend.
type NotFoundError struct {
	AgentID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("agent %q not found in directory", e.AgentID)
}

// LeaderMismatchError: the agent exists but reports to a different leader
// than the one entered at sign-in.
type LeaderMismatchError struct {
	AgentID  string
	Entered  string
	Assigned string
}

func (e LeaderMismatchError) Error() string {
	return fmt.Sprintf("agent %q reports to %q, not %q", e.AgentID, e.Assigned, e.Entered)
}
