package server

import (
	"github.com/gofiber/fiber/v2"

	"huellas/internal/models"
	"huellas/internal/search"
)

// GetCatalog handles GET /api/catalog
// @Summary All reference data
// @Tags catalog
// @Produce json
// @Success 200 {object} catalog.Catalog
// @Router /catalog [get]
func (s *Server) GetCatalog(c *fiber.Ctx) error {
	return c.JSON(s.catalog)
}

// GetBreeds handles GET /api/catalog/breeds?species=..
// @Summary Breeds, optionally of one species
// @Tags catalog
// @Produce json
// @Param species query string false "Species"
// @Success 200 {object} object
// @Router /catalog/breeds [get]
func (s *Server) GetBreeds(c *fiber.Ctx) error {
	sp, err := models.ParseSpeciesFilter(c.Query("species"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	if sp == "" {
		return c.JSON(s.catalog.Breeds)
	}
	breeds := s.catalog.BreedsFor(sp)
	if breeds == nil {
		breeds = []string{}
	}
	return c.JSON(breeds)
}

// GetColors handles GET /api/catalog/colors
// @Summary Coat colors
// @Tags catalog
// @Produce json
// @Success 200 {array} string
// @Router /catalog/colors [get]
func (s *Server) GetColors(c *fiber.Ctx) error {
	return c.JSON(s.catalog.Colors)
}

// GetCategories handles GET /api/catalog/categories
// @Summary Classified categories
// @Tags catalog
// @Produce json
// @Success 200 {array} catalog.Option
// @Router /catalog/categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	return c.JSON(s.catalog.Categories)
}

// GetReportReasons handles GET /api/catalog/report-reasons
// @Summary Report reasons
// @Tags catalog
// @Produce json
// @Success 200 {array} catalog.Option
// @Router /catalog/report-reasons [get]
func (s *Server) GetReportReasons(c *fiber.Ctx) error {
	return c.JSON(s.catalog.ReportReasons)
}

// GetCountries handles GET /api/catalog/countries
// @Summary Countries with provinces
// @Tags catalog
// @Produce json
// @Success 200 {array} catalog.Country
// @Router /catalog/countries [get]
func (s *Server) GetCountries(c *fiber.Ctx) error {
	return c.JSON(s.catalog.Countries)
}

// GetMapToken handles GET /api/config/map-token
// @Summary Public map token
// @Tags config
// @Produce json
// @Success 200 {object} object{token=string}
// @Failure 503 {object} models.ErrorResponse
// @Router /config/map-token [get]
func (s *Server) GetMapToken(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	if s.config.MapboxPublicToken == "" {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewUnavailableError("Map token is not configured", nil))
	}
	return c.JSON(fiber.Map{"token": s.config.MapboxPublicToken})
}

// ListVeterinarians handles GET /api/veterinarians
// @Summary Veterinarian directory
// @Tags veterinarians
// @Produce json
// @Param q query string false "Name, description or address"
// @Param province query string false "Province"
// @Success 200 {array} models.Veterinarian
// @Router /veterinarians [get]
func (s *Server) ListVeterinarians(c *fiber.Ctx) error {
	vets, err := s.vets.ListActive(c.UserContext(), search.ComposeVets(c.Query("q"), c.Query("province")))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(vets)
}

// GetVeterinarian handles GET /api/veterinarians/:id
// @Summary Veterinarian details
// @Tags veterinarians
// @Produce json
// @Param id path string true "Veterinarian ID"
// @Success 200 {object} models.Veterinarian
// @Failure 404 {object} models.ErrorResponse
// @Router /veterinarians/{id} [get]
func (s *Server) GetVeterinarian(c *fiber.Ctx) error {
	vet, err := s.vets.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(vet)
}
