package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestTimeout = 10 * time.Second
	maxRetries     = 3
)

// HTTPClient talks JSON to the team backend. Transient failures (network
// errors, 5xx) are retried with exponential backoff up to maxRetries; 4xx
// responses are terminal.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, log *zap.Logger) *HTTPClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

type envelope struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Ranking json.RawMessage `json:"ranking,omitempty"`
	KPIs    json.RawMessage `json:"kpis,omitempty"`
	Users   json.RawMessage `json:"users,omitempty"`
	User    json.RawMessage `json:"user,omitempty"`
}

func (c *HTTPClient) RegisterCase(ctx context.Context, req RegisterCaseRequest) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	body := struct {
		Action string `json:"action"`
		RegisterCaseRequest
	}{Action: "register_case", RegisterCaseRequest: req}

	_, err := c.do(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return fmt.Errorf("register case %q: %w", req.CaseID, err)
	}
	return nil
}

func (c *HTTPClient) FetchTeamData(ctx context.Context, leaderID, date string) (*TeamData, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	env, err := c.do(ctx, http.MethodGet, c.queryURL(url.Values{"team": {leaderID}, "date": {date}}), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch team data: %w", err)
	}

	var data TeamData
	if len(env.Ranking) > 0 {
		if err := json.Unmarshal(env.Ranking, &data.Ranking); err != nil {
			return nil, fmt.Errorf("decode ranking: %w", err)
		}
	}
	if len(env.KPIs) > 0 {
		if err := json.Unmarshal(env.KPIs, &data.KPIs); err != nil {
			return nil, fmt.Errorf("decode kpis: %w", err)
		}
	}
	return &data, nil
}

func (c *HTTPClient) FetchUsers(ctx context.Context) ([]UserRecord, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	env, err := c.do(ctx, http.MethodGet, c.queryURL(url.Values{"users": {"1"}}), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}

	var users []UserRecord
	if len(env.Users) > 0 {
		if err := json.Unmarshal(env.Users, &users); err != nil {
			return nil, fmt.Errorf("decode users: %w", err)
		}
	}
	return users, nil
}

func (c *HTTPClient) LookupUser(ctx context.Context, id string) (*UserRecord, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	env, err := c.do(ctx, http.MethodGet, c.queryURL(url.Values{"lookup": {id}}), nil)
	if err != nil {
		return nil, fmt.Errorf("lookup user %q: %w", id, err)
	}

	// An ok response with no user record means the id does not exist.
	if len(env.User) == 0 || string(env.User) == "null" {
		return nil, nil
	}
	var user UserRecord
	if err := json.Unmarshal(env.User, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

func (c *HTTPClient) queryURL(q url.Values) string {
	return c.baseURL + "?" + q.Encode()
}

// do performs one request with retries and decodes the response envelope.
// A response with ok=false is terminal: the backend understood the request
// and rejected it.
func (c *HTTPClient) do(ctx context.Context, method, rawURL string, body any) (*envelope, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}
	requestID := uuid.NewString()

	op := func() (*envelope, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", requestID)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("server error: %s", resp.Status)
		}
		if resp.StatusCode >= 400 {
			return nil, backoff.Permanent(fmt.Errorf("request rejected: %s", resp.Status))
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		if !env.OK {
			reason := env.Error
			if reason == "" {
				reason = "backend reported failure"
			}
			return nil, backoff.Permanent(fmt.Errorf("%s", reason))
		}
		return &env, nil
	}

	env, err := backoff.RetryWithData(op, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
	if err != nil {
		c.log.Warn("backend request failed",
			zap.String("method", method),
			zap.String("requestId", requestID),
			zap.Error(err))
		return nil, err
	}
	return env, nil
}
