package domain

import (
	"context"
	"time"
)

type PropertyRepository interface {
	// Write paths
	CreateProperty(ctx context.Context, p Property) (int64, error)
	UpdateProperty(ctx context.Context, p Property) error
	DeleteProperty(ctx context.Context, id int64) error
	AddNote(ctx context.Context, n PropertyNote) (int64, error)
	DeleteNote(ctx context.Context, propertyID, noteID int64) error
	// ReplaceTravelTimes swaps all slot rows for a property in one
	// transaction. Minutes and display land together or not at all.
	ReplaceTravelTimes(ctx context.Context, propertyID int64, ts map[string]TravelEstimate) error
	UpdateSettings(ctx context.Context, s Settings) error

	// Read paths
	GetProperty(ctx context.Context, id int64) (PropertyView, error)
	ListProperties(ctx context.Context, q PropertiesQuery) ([]PropertyView, error)
	GetSettings(ctx context.Context) (Settings, error)
}

// RouteProvider returns a traffic-aware driving duration for a departure
// at a specific future time.
type RouteProvider interface {
	DurationInTraffic(ctx context.Context, origin, destination string, departure time.Time) (time.Duration, error)
}

// Geocoder resolves a postal address to coordinates. Implementations are
// expected to work without a credential (fallback path).
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinates, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
