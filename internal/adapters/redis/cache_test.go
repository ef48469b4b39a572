package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "github.com/outrigger999/rental-recon/internal/adapters/redis"
	"github.com/outrigger999/rental-recon/internal/domain"
)

func TestCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	var missed domain.PropertyView
	ok, err := c.Get(ctx, "property:1", &missed)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ok {
		t.Fatal("expected miss on empty cache")
	}

	pv := domain.PropertyView{
		Property: domain.Property{ID: 1, Address: "123 Main St", PropertyType: "home"},
		TravelTimes: map[string]domain.TravelEstimate{
			"830am": {Minutes: 20, Display: "13-20 min"},
		},
	}
	if err := c.Set(ctx, "property:1", pv, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got domain.PropertyView
	ok, err = c.Get(ctx, "property:1", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Address != "123 Main St" || got.TravelTimes["830am"].Display != "13-20 min" {
		t.Fatalf("unexpected value: %+v", got)
	}

	if err := c.Del(ctx, "property:1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	ok, _ = c.Get(ctx, "property:1", &got)
	if ok {
		t.Fatal("expected miss after delete")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Second)

	var got string
	ok, _ := c.Get(ctx, "k", &got)
	if ok {
		t.Fatal("expected entry to expire")
	}
}
