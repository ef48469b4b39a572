package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/outrigger999/rental-recon/internal/domain"
)

// TravelTimeService computes commute estimates for every departure slot.
// Stateless aside from configuration; safe to call concurrently across
// properties. It never persists anything: the caller writes minutes and
// display together, or nothing.
type TravelTimeService struct {
	routes   domain.RouteProvider // nil when no API key is configured
	geo      domain.Geocoder
	discount int
	speedKmh float64
	now      func() time.Time
}

func NewTravelTimeService(routes domain.RouteProvider, geo domain.Geocoder, discountPct int, speedKmh float64) *TravelTimeService {
	if discountPct <= 0 || discountPct >= 100 {
		discountPct = 35
	}
	if speedKmh <= 0 {
		speedKmh = 40
	}
	return &TravelTimeService{
		routes:   routes,
		geo:      geo,
		discount: discountPct,
		speedKmh: speedKmh,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Tests pin "now" to exercise the
// canonical-departure rules.
func (s *TravelTimeService) WithClock(now func() time.Time) *TravelTimeService {
	s.now = now
	return s
}

// EstimateAll produces one estimate per slot for a trip from origin to
// destination. Slots the primary provider cannot answer are filled from a
// single distance-based fallback computation; if the fallback is needed
// and fails too, the whole operation fails with ErrTravelTimeUnavailable
// and no partial result is returned.
func (s *TravelTimeService) EstimateAll(ctx context.Context, origin, destination string) (map[string]domain.TravelEstimate, error) {
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("estimate: origin and destination must be provided")
	}

	now := s.now()
	out := make(map[string]domain.TravelEstimate, len(domain.Slots))
	var failed []domain.Slot

	if s.routes == nil {
		failed = domain.Slots
	} else {
	slots:
		for i, slot := range domain.Slots {
			dep := slot.NextDeparture(now)
			d, err := s.routes.DurationInTraffic(ctx, origin, destination, dep)
			if err != nil {
				log.Warn().Err(err).Str("slot", slot.Name).Msg("primary provider failed")
				switch {
				case errors.Is(err, domain.ErrProviderAuth), errors.Is(err, domain.ErrProviderQuota):
					// Not worth hammering the provider: the remaining
					// slots will fail the same way.
					failed = append(failed, domain.Slots[i:]...)
					break slots
				default:
					failed = append(failed, slot)
					continue
				}
			}
			out[slot.Name] = domain.NewTravelEstimate(wholeMinutes(d), s.discount)
		}
	}

	if len(failed) > 0 {
		base, err := s.fallbackBase(ctx, origin, destination)
		if err != nil {
			log.Error().Err(err).Msg("fallback estimate failed")
			return nil, fmt.Errorf("estimate %q: %w", origin, domain.ErrTravelTimeUnavailable)
		}
		for _, slot := range failed {
			upper := int(math.Round(base * slot.TrafficFactor))
			if upper < 1 {
				upper = 1
			}
			out[slot.Name] = domain.NewTravelEstimate(upper, s.discount)
		}
	}

	return out, nil
}

// fallbackBase estimates a midday driving time in minutes from
// straight-line distance at a fixed average city speed. Geocoding is
// key-less, so this path works even when the primary credential is bad.
func (s *TravelTimeService) fallbackBase(ctx context.Context, origin, destination string) (float64, error) {
	from, err := s.geo.Geocode(ctx, origin)
	if err != nil {
		return 0, fmt.Errorf("geocode origin: %w", err)
	}
	to, err := s.geo.Geocode(ctx, destination)
	if err != nil {
		return 0, fmt.Errorf("geocode destination: %w", err)
	}
	km := from.DistanceKm(to)
	return km / s.speedKmh * 60, nil
}

func wholeMinutes(d time.Duration) int {
	m := int(math.Round(d.Minutes()))
	if m < 1 {
		m = 1
	}
	return m
}
