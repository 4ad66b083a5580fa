package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lioncity-tours/gateway/internal/backend"
	"github.com/lioncity-tours/gateway/internal/booking"
)

const toursCacheKey = "catalog:tours"

// Tour is a bookable product as reported by the backend.
type Tour struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	PricePP json.Number `json:"price_pp"`
}

// Service reads the tour catalog from the backend with a short Redis cache in
// front. The gateway never writes catalog data.
type Service struct {
	Backend  *backend.Client
	Cache    *Cache
	Fallback bool
	Logger   zerolog.Logger
}

// fallbackTours is served in development when the backend is unreachable and
// the fallback flag is enabled.
var fallbackTours = []Tour{
	{ID: 1, Name: "City Essentials (Half-Day)", PricePP: "89"},
	{ID: 2, Name: "Foodie Night Walk", PricePP: "99"},
	{ID: 3, Name: "Sentosa Family Day", PricePP: "149"},
}

// Tours lists the catalog, preferring the cache.
func (s *Service) Tours(ctx context.Context) ([]Tour, error) {
	var tours []Tour
	if hit, err := s.Cache.GetJSON(ctx, toursCacheKey, &tours); err != nil {
		s.Logger.Warn().Err(err).Msg("tours cache read failed")
	} else if hit {
		return tours, nil
	}

	if err := s.Backend.GetJSON(ctx, "/tours", &tours); err != nil {
		if s.Fallback {
			s.Logger.Warn().Err(err).Msg("serving fallback tours")
			return fallbackTours, nil
		}
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, toursCacheKey, tours); err != nil {
		s.Logger.Warn().Err(err).Msg("tours cache write failed")
	}
	return tours, nil
}

// TourPrice resolves a tour's name and per-person price in cents. The second
// return is false when the tour is unknown or its price cannot be parsed —
// callers must treat that as "price pending", not zero cost.
func (s *Service) TourPrice(ctx context.Context, tourID int64) (string, int64, bool, error) {
	tours, err := s.Tours(ctx)
	if err != nil {
		return "", 0, false, err
	}
	for _, tour := range tours {
		if tour.ID != tourID {
			continue
		}
		cents, err := booking.ParsePrice(tour.PricePP)
		if err != nil {
			s.Logger.Warn().Err(err).Int64("tour_id", tourID).Msg("unparseable tour price")
			return tour.Name, 0, false, nil
		}
		return tour.Name, cents, true, nil
	}
	return "", 0, false, fmt.Errorf("tour %d not found", tourID)
}
