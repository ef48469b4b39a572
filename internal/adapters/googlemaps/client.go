// internal/adapters/googlemaps/client.go
package googlemaps

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/outrigger999/rental-recon/internal/adapters/observability"
	"github.com/outrigger999/rental-recon/internal/domain"
)

// Client wraps the Distance Matrix API. A single request carries one
// origin, one destination and a future departure timestamp and yields a
// single traffic-aware duration.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: 10 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type durationValue struct {
	Value int64 `json:"value"` // seconds
}

type matrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status            string         `json:"status"`
			Duration          *durationValue `json:"duration"`
			DurationInTraffic *durationValue `json:"duration_in_traffic"`
		} `json:"elements"`
	} `json:"rows"`
}

// DurationInTraffic implements domain.RouteProvider. Prefers the
// traffic-aware duration; the plain route duration is only used when the
// API omits traffic data (it does for some regions).
func (c *Client) DurationInTraffic(ctx context.Context, origin, destination string, departure time.Time) (time.Duration, error) {
	q := url.Values{}
	q.Set("origins", origin)
	q.Set("destinations", destination)
	q.Set("departure_time", strconv.FormatInt(departure.Unix(), 10))
	q.Set("traffic_model", "best_guess")
	q.Set("mode", "driving")
	q.Set("key", c.key)
	u := c.base + "/distancematrix/json?" + q.Encode()

	start := time.Now()
	var out matrixResponse
	status, err := c.get(ctx, u, &out)
	observability.ObserveExternal("googlemaps", "distancematrix", status, time.Since(start))
	if err != nil {
		return 0, err
	}
	return extractDuration(out)
}

func extractDuration(out matrixResponse) (time.Duration, error) {
	if err := mapStatus(out.Status); err != nil {
		return 0, err
	}
	if len(out.Rows) == 0 || len(out.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("distancematrix: %w: empty matrix", domain.ErrAddressUnresolvable)
	}
	el := out.Rows[0].Elements[0]
	if err := mapStatus(el.Status); err != nil {
		return 0, err
	}
	d := el.DurationInTraffic
	if d == nil {
		d = el.Duration
	}
	if d == nil || d.Value <= 0 {
		return 0, fmt.Errorf("distancematrix: no duration in response")
	}
	return time.Duration(d.Value) * time.Second, nil
}

// mapStatus translates API status strings (used at both the response and
// element level) into the domain taxonomy.
func mapStatus(s string) error {
	switch s {
	case "OK":
		return nil
	case "REQUEST_DENIED":
		return domain.ErrProviderAuth
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return domain.ErrProviderQuota
	case "NOT_FOUND", "ZERO_RESULTS":
		return domain.ErrAddressUnresolvable
	default:
		return fmt.Errorf("distancematrix: status %s", s)
	}
}

// get performs a GET with client-side rate limiting, retries, and JSON
// decode into out. Retries transient 5xx honoring Retry-After when
// provided; auth and quota responses fail immediately. Returns the last
// HTTP status for metrics.
func (c *Client) get(ctx context.Context, url string, out any) (int, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return 0, err
	}

	var lastErr error
	lastStatus := 0
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "rental-recon/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, lastErr
		}

		lastStatus = resp.StatusCode
		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return lastStatus, err

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return lastStatus, domain.ErrProviderAuth

		case http.StatusTooManyRequests:
			// Quota errors are terminal for this call; the caller decides
			// whether to re-trigger later.
			resp.Body.Close()
			return lastStatus, domain.ErrProviderQuota

		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return lastStatus, ctx.Err()
			}
			return lastStatus, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return lastStatus, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastStatus, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
