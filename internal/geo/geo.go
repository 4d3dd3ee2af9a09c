// Package geo resolves text and regions to coordinates.
//
// Failures here never block post creation; callers treat every error as
// "no coordinates".
package geo

import (
	"context"
	"errors"
	"strings"

	"huellas/internal/cache"
	"huellas/internal/catalog"
	"huellas/internal/middleware"
	"huellas/internal/models"
)

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is on the globe.
func (p LatLng) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Center returns the middle of a bounding box.
func Center(b catalog.BBox) LatLng {
	return LatLng{Lat: (b[1] + b[3]) / 2, Lng: (b[0] + b[2]) / 2}
}

// Place is a reverse geocoding result.
type Place struct {
	Name   string `json:"name"`
	Center LatLng `json:"center"`
}

// Service combines the region catalog, a Provider and the Redis cache.
type Service struct {
	provider Provider
	catalog  *catalog.Catalog
	cache    *cache.Store
}

// NewService builds a Service. provider may be nil, in which case every
// provider lookup reports Unavailable.
func NewService(provider Provider, cat *catalog.Catalog, store *cache.Store) *Service {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Service{provider: provider, catalog: cat, cache: store}
}

func errNoLocation() error {
	return &models.AppError{Code: models.CodeNotFound, Message: "No location found"}
}

func unavailable(err error) error {
	return models.NewUnavailableError("Geocoding service unavailable", err)
}

// translate maps provider errors onto application codes. Context errors pass
// through so sequencing can tell a cancelled lookup apart.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoResults):
		return errNoLocation()
	case errors.Is(err, context.Canceled):
		return err
	default:
		return unavailable(err)
	}
}

// SearchLocation geocodes text, optionally restricted to bbox.
func (s *Service) SearchLocation(ctx context.Context, text string, bbox *catalog.BBox) (LatLng, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return LatLng{}, models.NewValidationError("location text is required")
	}
	if s.provider == nil {
		return LatLng{}, unavailable(errors.New("no geocoding provider"))
	}
	f, err := s.provider.Forward(ctx, ForwardQuery{Text: text, BBox: bbox})
	if err != nil {
		if !errors.Is(err, ErrNoResults) {
			middleware.Logger.WarnContext(ctx, "Forward geocoding failed", "error", err)
		}
		return LatLng{}, translate(err)
	}
	return f.Center, nil
}

// Reverse names the place at a coordinate.
func (s *Service) Reverse(ctx context.Context, at LatLng) (Place, error) {
	if !at.Valid() {
		return Place{}, models.NewValidationError("coordinates out of range")
	}
	if s.provider == nil {
		return Place{}, unavailable(errors.New("no geocoding provider"))
	}
	f, err := s.provider.Reverse(ctx, at)
	if err != nil {
		if !errors.Is(err, ErrNoResults) {
			middleware.Logger.WarnContext(ctx, "Reverse geocoding failed", "error", err)
		}
		return Place{}, translate(err)
	}
	return Place{Name: f.PlaceName, Center: f.Center}, nil
}

// RegionBounds returns the bounding box of a country or province. Catalog
// entries win; anything else is asked of the provider and cached.
func (s *Service) RegionBounds(ctx context.Context, country, province string) (catalog.BBox, error) {
	country, province = strings.TrimSpace(country), strings.TrimSpace(province)
	if country == "" {
		return catalog.BBox{}, models.NewValidationError("country is required")
	}
	if box, ok := s.catalog.Bounds(country, province); ok {
		return box, nil
	}
	if s.provider == nil {
		return catalog.BBox{}, unavailable(errors.New("no geocoding provider"))
	}

	var box catalog.BBox
	key := cache.RegionBoundsKey(strings.ToLower(country), strings.ToLower(province))
	_, err := s.cache.Aside(ctx, key, &box, cache.RegionBoundsTTL, func() error {
		q := ForwardQuery{Text: country, Types: []string{"country"}}
		if province != "" {
			q = ForwardQuery{Text: province + ", " + country, Types: []string{"region"}}
		}
		f, err := s.provider.Forward(ctx, q)
		if err != nil {
			return err
		}
		if f.BBox == nil {
			return ErrNoResults
		}
		box = *f.BBox
		return nil
	})
	if err != nil {
		return catalog.BBox{}, translate(err)
	}
	return box, nil
}
