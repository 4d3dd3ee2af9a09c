package service

import (
	"context"
	"math"
	"strconv"
	"time"

	"huellas/internal/catalog"
	"huellas/internal/featureflags"
	"huellas/internal/geo"
	"huellas/internal/middleware"
	"huellas/internal/models"
	"huellas/internal/repository"
)

const metersPerDegree = 111_320

// LocationService scopes geocoding to the caller and derives server-side
// positions from the stored profile region.
type LocationService struct {
	geo      *geo.Service
	profiles repository.ProfileRepository
	flags    *featureflags.Manager
	locator  *geo.Locator
	seq      *geo.Sequencer
	now      func() time.Time
}

func NewLocationService(g *geo.Service, profiles repository.ProfileRepository, flags *featureflags.Manager) *LocationService {
	return &LocationService{
		geo:      g,
		profiles: profiles,
		flags:    flags,
		locator:  geo.NewLocator(),
		seq:      geo.NewSequencer(),
		now:      time.Now,
	}
}

// Search geocodes text. client identifies the caller's lookup stream; a newer
// lookup on the same stream makes this one return StaleRequest.
func (s *LocationService) Search(ctx context.Context, client string, userID uint, text string) (geo.LatLng, error) {
	bbox := s.scope(ctx, userID)
	return geo.Sequence(ctx, s.seq, client, func(ctx context.Context) (geo.LatLng, error) {
		return s.geo.SearchLocation(ctx, text, bbox)
	})
}

// scope returns the bounding box of the caller's region when region scoping
// is on for them, nil otherwise.
func (s *LocationService) scope(ctx context.Context, userID uint) *catalog.BBox {
	if userID == 0 || !s.flags.On(featureflags.GeocodeRegionScope, userID) {
		return nil
	}
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil || profile.Country == "" {
		return nil
	}
	box, err := s.geo.RegionBounds(ctx, profile.Country, profile.Province)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "Region bounds unavailable, searching unscoped",
			"country", profile.Country, "province", profile.Province, "error", err)
		return nil
	}
	return &box
}

func (s *LocationService) Reverse(ctx context.Context, client string, at geo.LatLng) (geo.Place, error) {
	return geo.Sequence(ctx, s.seq, client, func(ctx context.Context) (geo.Place, error) {
		return s.geo.Reverse(ctx, at)
	})
}

func (s *LocationService) RegionBounds(ctx context.Context, country, province string) (catalog.BBox, error) {
	return s.geo.RegionBounds(ctx, country, province)
}

// Current returns the caller's approximate position.
func (s *LocationService) Current(ctx context.Context, userID uint) (geo.Position, error) {
	client := ""
	if userID != 0 {
		client = "user:" + strconv.FormatUint(uint64(userID), 10)
	}
	return s.locator.CurrentPosition(ctx, client, s.RegionSource(userID))
}

// Forget drops the cached position of userID, e.g. after a region change.
func (s *LocationService) Forget(userID uint) {
	s.locator.Forget("user:" + strconv.FormatUint(uint64(userID), 10))
}

// RegionSource locates userID at the center of their stored region.
func (s *LocationService) RegionSource(userID uint) geo.PositionSource {
	return geo.PositionFunc(func(ctx context.Context, _ geo.PositionOptions) (geo.Position, error) {
		if userID == 0 {
			return geo.Position{}, models.NewPermissionDeniedError("Sign in to share your location")
		}
		profile, err := s.profiles.Get(ctx, userID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return geo.Position{}, models.NewUnavailableError("No region on your profile", err)
			}
			return geo.Position{}, err
		}
		if profile.Country == "" {
			return geo.Position{}, models.NewUnavailableError("No region on your profile", nil)
		}
		box, err := s.geo.RegionBounds(ctx, profile.Country, profile.Province)
		if err != nil {
			return geo.Position{}, models.NewUnavailableError("Region could not be located", err)
		}
		center := geo.Center(box)
		return geo.Position{LatLng: center, Accuracy: boxRadius(box, center), At: s.now()}, nil
	})
}

// boxRadius approximates half the diagonal of box in meters.
func boxRadius(box catalog.BBox, center geo.LatLng) float64 {
	dLat := (box[3] - box[1]) * metersPerDegree
	dLng := (box[2] - box[0]) * metersPerDegree * math.Cos(center.Lat*math.Pi/180)
	return math.Round(math.Hypot(dLat, dLng) / 2)
}
