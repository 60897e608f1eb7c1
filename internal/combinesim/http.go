package combinesim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/combine/pkg/logger"
)

// ErrThrottled is returned when the service keeps answering 429.
var ErrThrottled = errors.New("request throttled")

// identity is a caller as the fronting identity layer would present it.
type identity struct {
	ID   string
	Role string
	Name string
}

func (i identity) apply(req *http.Request) {
	req.Header.Set(headerUserID, i.ID)
	req.Header.Set(headerUserRole, i.Role)
	req.Header.Set(headerUserName, i.Name)
	req.Header.Set(headerEmailVerified, "true")
}

// statusError carries a non-2xx response.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// client wraps http.Client with the service's routes.
type client struct {
	http    *http.Client
	baseURL string
	// throttled counts 429 answers seen across all calls.
	throttled func()
}

func newClient(baseURL string, timeout time.Duration, onThrottle func()) *client {
	if onThrottle == nil {
		onThrottle = func() {}
	}
	return &client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		throttled: onThrottle,
	}
}

// do sends one request and decodes a 2xx JSON body into out. 429 and 504
// are retried after the advertised Retry-After.
func (c *client) do(ctx context.Context, who identity, method, path string, body []byte, contentType string, out any) error {
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if who.ID != "" {
			who.apply(req)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode %s %s: %w", method, path, err)
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusGatewayTimeout:
			if resp.StatusCode == http.StatusTooManyRequests {
				c.throttled()
			}
			if attempt >= maxAttempts {
				if resp.StatusCode == http.StatusTooManyRequests {
					return fmt.Errorf("%s %s: %w", method, path, ErrThrottled)
				}
				return &statusError{Status: resp.StatusCode, Body: string(data)}
			}
			wait := retryAfter(resp.Header.Get("Retry-After"))
			logger.Get().Debug(ctx, "retrying request",
				logger.String("path", path),
				logger.Int("status", resp.StatusCode),
				logger.Duration("wait", wait))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		default:
			return &statusError{Status: resp.StatusCode, Body: string(data)}
		}
	}
}

func retryAfter(v string) time.Duration {
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultRetryAfter
}

func (c *client) postJSON(ctx context.Context, who identity, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.do(ctx, who, http.MethodPost, path, body, "application/json", out)
}

func (c *client) get(ctx context.Context, who identity, path string, out any) error {
	return c.do(ctx, who, http.MethodGet, path, nil, "", out)
}

func (c *client) health(ctx context.Context) error {
	return c.get(ctx, identity{}, "/healthz", nil)
}

func (c *client) createLeague(ctx context.Context, who identity, name string) (*league, error) {
	var l league
	if err := c.postJSON(ctx, who, "/leagues", map[string]string{"name": name}, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *client) joinLeague(ctx context.Context, who identity, leagueID string) error {
	return c.do(ctx, who, http.MethodPost, "/leagues/"+url.PathEscape(leagueID)+"/join", nil, "", nil)
}

func (c *client) createEvent(ctx context.Context, who identity, leagueID, name, date string) (*event, error) {
	var e event
	in := map[string]any{"league_id": leagueID, "name": name, "date": date}
	if err := c.postJSON(ctx, who, "/events", in, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *client) schema(ctx context.Context, eventID string) (*schema, error) {
	var s schema
	if err := c.get(ctx, identity{}, "/schema?event_id="+url.QueryEscape(eventID), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// upload sends the roster as a multipart CSV file.
func (c *client) upload(ctx context.Context, who identity, eventID string, roster []byte) (*uploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "roster.csv")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(roster); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	var res uploadResult
	path := "/events/" + url.PathEscape(eventID) + "/players/upload"
	if err := c.do(ctx, who, http.MethodPost, path, buf.Bytes(), mw.FormDataContentType(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *client) submit(ctx context.Context, who identity, eventID string, s Score) error {
	in := map[string]any{"player_id": s.PlayerID, "drill_type": s.Drill, "value": s.Value}
	return c.postJSON(ctx, who, "/events/"+url.PathEscape(eventID)+"/evaluations", in, nil)
}

func (c *client) player(ctx context.Context, who identity, eventID, playerID string) (*player, error) {
	var p player
	path := "/events/" + url.PathEscape(eventID) + "/players/" + url.PathEscape(playerID)
	if err := c.get(ctx, who, path, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *client) summaries(ctx context.Context, who identity, eventID, playerID string) ([]summary, error) {
	var out struct {
		Summaries []summary `json:"summaries"`
	}
	path := "/events/" + url.PathEscape(eventID) + "/players/" + url.PathEscape(playerID) + "/summaries"
	if err := c.get(ctx, who, path, &out); err != nil {
		return nil, err
	}
	return out.Summaries, nil
}

func (c *client) reconcile(ctx context.Context, who identity, eventID string) (int, error) {
	var out struct {
		Scheduled int `json:"scheduled"`
	}
	if err := c.do(ctx, who, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/reconcile", nil, "", &out); err != nil {
		return 0, err
	}
	return out.Scheduled, nil
}
