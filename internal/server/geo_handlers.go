package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"huellas/internal/geo"
)

// SearchLocation handles GET /api/geocode?q=...
// @Summary Geocode free text
// @Description Signed-in callers with region scoping enabled search inside their profile region. A newer lookup from the same client answers 409 to the older one.
// @Tags geocode
// @Produce json
// @Param q query string true "Place text"
// @Param X-Client-ID header string false "Lookup stream identifier"
// @Success 200 {object} geo.LatLng
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /geocode [get]
func (s *Server) SearchLocation(c *fiber.Ctx) error {
	at, err := s.locationService.Search(c.UserContext(), clientKey(c), viewerID(c), c.Query("q"))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(at)
}

// ReverseGeocode handles GET /api/geocode/reverse?lat=..&lng=..
// @Summary Name the place at a coordinate
// @Tags geocode
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Success 200 {object} geo.Place
// @Failure 400 {object} models.ErrorResponse
// @Router /geocode/reverse [get]
func (s *Server) ReverseGeocode(c *fiber.Ctx) error {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		return badRequest(c, "lat and lng must be numbers")
	}
	place, err := s.locationService.Reverse(c.UserContext(), clientKey(c), geo.LatLng{Lat: lat, Lng: lng})
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(place)
}

// CurrentLocation handles GET /api/geocode/current
// @Summary Approximate position of the caller
// @Description Derived from the profile region. Anonymous callers get 403, callers without a region 503.
// @Tags geocode
// @Produce json
// @Success 200 {object} geo.Position
// @Failure 403 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /geocode/current [get]
func (s *Server) CurrentLocation(c *fiber.Ctx) error {
	pos, err := s.locationService.Current(c.UserContext(), viewerID(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(pos)
}

// RegionBounds handles GET /api/geocode/region?country=..&province=..
// @Summary Bounding box of a country or province
// @Tags geocode
// @Produce json
// @Param country query string true "Country"
// @Param province query string false "Province"
// @Success 200 {object} object{bbox=[]number}
// @Failure 400 {object} models.ErrorResponse
// @Router /geocode/region [get]
func (s *Server) RegionBounds(c *fiber.Ctx) error {
	box, err := s.locationService.RegionBounds(c.UserContext(), c.Query("country"), c.Query("province"))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"bbox": box})
}
