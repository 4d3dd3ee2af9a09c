package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags reports the FEATURE_FLAGS configuration and what it
// resolves to for the calling admin. Known flags missing from the
// configuration appear in effective with their default.
// @Summary Feature flags
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool,effective=map[string]bool}
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	viewer := viewerID(c)
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(viewer),
		"effective": s.featureFlags.Effective(viewer),
	})
}
