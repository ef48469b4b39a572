package app

import (
	"context"
	"fmt"
	"time"

	"github.com/outrigger999/rental-recon/internal/domain"
)

type QueryService struct {
	repo     domain.PropertyRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.PropertyRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetProperty(ctx context.Context, id int64) (domain.PropertyView, error) {
	key := fmt.Sprintf("property:%d", id)
	var pv domain.PropertyView
	if ok, _ := s.cache.Get(ctx, key, &pv); ok {
		return pv, nil
	}
	pv, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return domain.PropertyView{}, err
	}
	_ = s.cache.Set(ctx, key, pv, int(s.cacheTTL.Seconds()))
	return pv, nil
}

// ListProperties serves the unfiltered default listing from cache;
// filtered queries go straight to the repository (too many variants to
// invalidate reliably).
func (s *QueryService) ListProperties(ctx context.Context, q domain.PropertiesQuery) ([]domain.PropertyView, error) {
	cacheable := q.Type == nil && q.MaxPrice == nil && q.CatFriendly == nil && q.Sort == "" && q.Limit == 0
	if cacheable {
		var out []domain.PropertyView
		if ok, _ := s.cache.Get(ctx, "properties:default", &out); ok {
			return out, nil
		}
	}
	items, err := s.repo.ListProperties(ctx, q)
	if err != nil {
		return nil, err
	}
	if cacheable {
		// copy before caching so callers mutating the result can't
		// poison the cached value
		_ = s.cache.Set(ctx, "properties:default", deepCopyViews(items), int(s.cacheTTL.Seconds()))
	}
	return items, nil
}

func (s *QueryService) GetSettings(ctx context.Context) (domain.Settings, error) {
	return s.repo.GetSettings(ctx)
}

func deepCopyViews(in []domain.PropertyView) []domain.PropertyView {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.PropertyView, len(in))
	copy(out, in)
	for i := range out {
		if n := len(in[i].Notes); n > 0 {
			out[i].Notes = make([]domain.PropertyNote, n)
			copy(out[i].Notes, in[i].Notes)
		}
		if len(in[i].TravelTimes) > 0 {
			tt := make(map[string]domain.TravelEstimate, len(in[i].TravelTimes))
			for k, v := range in[i].TravelTimes {
				tt[k] = v
			}
			out[i].TravelTimes = tt
		}
	}
	return out
}
