package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/outrigger999/rental-recon/internal/domain"
)

var validTypes = map[string]bool{"home": true, "townhome": true, "apartment": true}

// CommandService owns the write paths: property CRUD, notes, settings,
// and travel-time recomputation. Every successful write evicts the
// affected cache entries so reads never serve a stale snapshot.
type CommandService struct {
	repo   domain.PropertyRepository
	travel *TravelTimeService
	cache  domain.Cache
}

func NewCommandService(r domain.PropertyRepository, t *TravelTimeService, c domain.Cache) *CommandService {
	return &CommandService{repo: r, travel: t, cache: c}
}

func validateProperty(p domain.Property) error {
	if strings.TrimSpace(p.Address) == "" {
		return fmt.Errorf("address is required")
	}
	if !validTypes[strings.ToLower(p.PropertyType)] {
		return fmt.Errorf("property_type must be one of home, townhome, apartment")
	}
	if p.PricePerMonth < 0 || p.SquareFootage < 0 {
		return fmt.Errorf("price and square footage must be non-negative")
	}
	return nil
}

func (s *CommandService) CreateProperty(ctx context.Context, p domain.Property) (int64, error) {
	if err := validateProperty(p); err != nil {
		return 0, err
	}
	p.PropertyType = strings.ToLower(p.PropertyType)
	id, err := s.repo.CreateProperty(ctx, p)
	if err != nil {
		return 0, err
	}
	s.invalidateLists(ctx)
	return id, nil
}

func (s *CommandService) UpdateProperty(ctx context.Context, p domain.Property) error {
	if err := validateProperty(p); err != nil {
		return err
	}
	p.PropertyType = strings.ToLower(p.PropertyType)
	if err := s.repo.UpdateProperty(ctx, p); err != nil {
		return err
	}
	s.invalidateProperty(ctx, p.ID)
	return nil
}

func (s *CommandService) DeleteProperty(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProperty(ctx, id); err != nil {
		return err
	}
	s.invalidateProperty(ctx, id)
	return nil
}

func (s *CommandService) AddNote(ctx context.Context, n domain.PropertyNote) (int64, error) {
	if strings.TrimSpace(n.Content) == "" {
		return 0, fmt.Errorf("note content is required")
	}
	id, err := s.repo.AddNote(ctx, n)
	if err != nil {
		return 0, err
	}
	s.invalidateProperty(ctx, n.PropertyID)
	return id, nil
}

func (s *CommandService) DeleteNote(ctx context.Context, propertyID, noteID int64) error {
	if err := s.repo.DeleteNote(ctx, propertyID, noteID); err != nil {
		return err
	}
	s.invalidateProperty(ctx, propertyID)
	return nil
}

func (s *CommandService) UpdateSettings(ctx context.Context, st domain.Settings) error {
	if strings.TrimSpace(st.OriginAddress) == "" {
		return fmt.Errorf("origin_address is required")
	}
	return s.repo.UpdateSettings(ctx, st)
}

// RecomputeTravelTimes runs the estimator for one property and persists
// all slot estimates in a single transaction. On estimator failure nothing
// is written: whatever the property held before stays untouched, and the
// caller gets the typed error to surface an explicit "unavailable" state.
func (s *CommandService) RecomputeTravelTimes(ctx context.Context, propertyID int64) (domain.PropertyView, error) {
	pv, err := s.repo.GetProperty(ctx, propertyID)
	if err != nil {
		return domain.PropertyView{}, err
	}
	st, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.PropertyView{}, err
	}
	if strings.TrimSpace(st.OriginAddress) == "" {
		return domain.PropertyView{}, fmt.Errorf("origin address is not configured")
	}

	ts, err := s.travel.EstimateAll(ctx, st.OriginAddress, pv.Address)
	if err != nil {
		return domain.PropertyView{}, err
	}
	if err := s.repo.ReplaceTravelTimes(ctx, propertyID, ts); err != nil {
		return domain.PropertyView{}, err
	}
	s.invalidateProperty(ctx, propertyID)

	pv.TravelTimes = ts
	log.Info().Int64("property", propertyID).Int("slots", len(ts)).Msg("travel times recomputed")
	return pv, nil
}

func (s *CommandService) invalidateProperty(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, fmt.Sprintf("property:%d", id))
	s.invalidateLists(ctx)
}

func (s *CommandService) invalidateLists(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, "properties:default")
}
