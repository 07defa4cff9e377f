package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/kala/internal/adapters/http/api"
	"github.com/okian/kala/internal/adapters/http/auth"
	"github.com/okian/kala/internal/domain/types"
)

const maxErrorBody = 512

// Client calls the leaderboard API as generated players.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  *auth.JWTResolver
}

// NewClient creates a client. A non-empty jwtSecret signs a bearer token per request;
// otherwise identities travel in the X-User-* headers.
func NewClient(baseURL string, timeout time.Duration, jwtSecret string) *Client {
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
	if jwtSecret != "" {
		c.tokens = auth.NewJWTResolver(jwtSecret)
	}
	return c
}

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// do sends one request. A non-nil id authenticates it and a non-empty key
// sets the idempotency header. out, when non-nil, receives the decoded 2xx body.
func (c *Client) do(ctx context.Context, method, path string, id *auth.Identity, key string, body, out any) error {
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(api.IdempotencyHeader, key)
	}
	if id != nil {
		if err := c.authenticate(req, *id); err != nil {
			return err
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) authenticate(req *http.Request, id auth.Identity) error {
	if c.tokens == nil {
		req.Header.Set("X-User-ID", id.UserID)
		req.Header.Set("X-User-Name", id.DisplayName)
		req.Header.Set("X-User-Role", string(id.Role))
		return nil
	}
	token, err := c.tokens.Issue(id)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Health checks that the service answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, "", nil, nil)
}

// SubmitScore posts one game result under a fresh idempotency key.
func (c *Client) SubmitScore(ctx context.Context, s Submission) (types.Standing, error) {
	var out types.Standing
	body := types.SubmitScoreRequest{GameID: s.GameID, Score: s.Score, TimeSpent: s.TimeSpent}
	err := c.do(ctx, http.MethodPost, "/leaderboard/submit-score", &s.Player.Identity, uuid.NewString(), body, &out)
	return out, err
}

// Rank fetches one player's standing.
func (c *Client) Rank(ctx context.Context, playerID string) (types.Standing, error) {
	var out types.Standing
	err := c.do(ctx, http.MethodGet, "/leaderboard/rank/"+url.PathEscape(playerID), nil, "", nil, &out)
	return out, err
}

// Leaderboard fetches one page of the ranking.
func (c *Client) Leaderboard(ctx context.Context, limit, offset int) (types.LeaderboardResponse, error) {
	var out types.LeaderboardResponse
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	err := c.do(ctx, http.MethodGet, "/leaderboard?"+q.Encode(), nil, "", nil, &out)
	return out, err
}

// FullLeaderboard pages through the whole ranking with pageSize entries per request.
func (c *Client) FullLeaderboard(ctx context.Context, pageSize int) ([]types.Standing, error) {
	var all []types.Standing
	for offset := 0; ; {
		page, err := c.Leaderboard(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Entries...)
		offset += len(page.Entries)
		if len(page.Entries) == 0 || offset >= page.Total {
			return all, nil
		}
	}
}
