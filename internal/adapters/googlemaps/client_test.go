package googlemaps_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/outrigger999/rental-recon/internal/adapters/googlemaps"
	"github.com/outrigger999/rental-recon/internal/domain"
)

func matrixBody(trafficSecs int) string {
	return fmt.Sprintf(`{
		"status": "OK",
		"rows": [{"elements": [{
			"status": "OK",
			"duration": {"value": %d},
			"duration_in_traffic": {"value": %d}
		}]}]
	}`, trafficSecs-120, trafficSecs)
}

func TestClient_DurationInTraffic(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("origins") != "A" || q.Get("destinations") != "B" {
			t.Errorf("unexpected query: %v", q)
		}
		if q.Get("traffic_model") != "best_guess" || q.Get("mode") != "driving" {
			t.Errorf("missing traffic params: %v", q)
		}
		if q.Get("departure_time") == "" || q.Get("key") != "test-key" {
			t.Errorf("missing departure_time or key: %v", q)
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte(matrixBody(1200)))
	}))
	defer ts.Close()

	cl, err := googlemaps.New(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := cl.DurationInTraffic(ctx, "A", "B", time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d != 20*time.Minute {
		t.Fatalf("duration = %v, want 20m (duration_in_traffic preferred)", d)
	}
}

func TestClient_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_, _ = w.Write([]byte(matrixBody(600)))
		}
	}))
	defer ts.Close()

	cl, _ := googlemaps.New(ts.URL, "test-key", 100)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d, err := cl.DurationInTraffic(ctx, "A", "B", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d != 10*time.Minute {
		t.Fatalf("duration = %v, want 10m", d)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_StatusTaxonomy(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name:    "request denied maps to auth",
			body:    `{"status": "REQUEST_DENIED"}`,
			wantErr: domain.ErrProviderAuth,
		},
		{
			name:    "over query limit maps to quota",
			body:    `{"status": "OVER_QUERY_LIMIT"}`,
			wantErr: domain.ErrProviderQuota,
		},
		{
			name:    "element not found maps to unresolvable",
			body:    `{"status": "OK", "rows": [{"elements": [{"status": "NOT_FOUND"}]}]}`,
			wantErr: domain.ErrAddressUnresolvable,
		},
		{
			name:    "zero results maps to unresolvable",
			body:    `{"status": "OK", "rows": [{"elements": [{"status": "ZERO_RESULTS"}]}]}`,
			wantErr: domain.ErrAddressUnresolvable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(200)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer ts.Close()

			cl, _ := googlemaps.New(ts.URL, "test-key", 100)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			_, err := cl.DurationInTraffic(ctx, "A", "B", time.Now().Add(time.Hour))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestClient_HTTP429FailsWithoutRetry(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(429)
	}))
	defer ts.Close()

	cl, _ := googlemaps.New(ts.URL, "test-key", 100)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := cl.DurationInTraffic(ctx, "A", "B", time.Now().Add(time.Hour))
	if !errors.Is(err, domain.ErrProviderQuota) {
		t.Fatalf("err = %v, want ErrProviderQuota", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("quota response retried: %d calls", n)
	}
}

func TestClient_HTTPForbiddenMapsToAuth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(403)
	}))
	defer ts.Close()

	cl, _ := googlemaps.New(ts.URL, "test-key", 100)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := cl.DurationInTraffic(ctx, "A", "B", time.Now().Add(time.Hour))
	if !errors.Is(err, domain.ErrProviderAuth) {
		t.Fatalf("err = %v, want ErrProviderAuth", err)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := googlemaps.New("http://example.com", "", 5); err == nil {
		t.Fatal("expected error for empty key")
	}
}
