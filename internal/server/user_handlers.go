package server

import (
	"github.com/gofiber/fiber/v2"

	"huellas/internal/middleware"
	"huellas/internal/service"
)

// GetMyProfile handles GET /api/me/profile
// @Summary Get current user profile
// @Description The profile is created on first access.
// @Tags me
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} models.ErrorResponse
// @Router /me/profile [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.Get(c.UserContext(), viewerID(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/me/profile
// @Summary Update current user profile
// @Description Omitted fields are left unchanged. Changing the country clears the province.
// @Tags me
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{display_name=string,country=string,province=string} true "Profile fields"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Router /me/profile [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		DisplayName *string `json:"display_name"`
		Country     *string `json:"country"`
		Province    *string `json:"province"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	profile, err := s.profileService.Update(c.UserContext(), service.UpdateProfileInput{
		UserID:      viewerID(c),
		DisplayName: req.DisplayName,
		Country:     req.Country,
		Province:    req.Province,
	})
	if err != nil {
		return respondAppError(c, err)
	}
	s.locationService.Forget(viewerID(c))
	return c.JSON(profile)
}

// UploadMyAvatar handles POST /api/me/profile/avatar
// @Summary Upload an avatar
// @Tags me
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /me/profile/avatar [post]
func (s *Server) UploadMyAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return badRequest(c, "avatar file is required")
	}
	in, err := readUpload(fh)
	if err != nil {
		return respondAppError(c, err)
	}
	profile, err := s.profileService.UploadAvatar(c.UserContext(), viewerID(c), in)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(profile)
}

// DeleteMyAccount handles DELETE /api/me
// @Summary Delete the current account
// @Description Removes the user's posts, highlights, profile and user row, then revokes the token.
// @Tags me
// @Security BearerAuth
// @Produce json
// @Success 200 {object} repository.AccountDeletion
// @Failure 401 {object} models.ErrorResponse
// @Router /me [delete]
func (s *Server) DeleteMyAccount(c *fiber.Ctx) error {
	uid := viewerID(c)
	deleted, err := s.profileService.DeleteAccount(c.UserContext(), uid)
	if err != nil {
		return respondAppError(c, err)
	}
	s.locationService.Forget(uid)
	if claims, ok := middleware.ClaimsOf(c); ok {
		_ = s.authService.Logout(c.UserContext(), claims)
	}
	return c.JSON(deleted)
}

// GetMyHighlights handles GET /api/me/highlights
// @Summary Saved posts
// @Tags me
// @Security BearerAuth
// @Produce json
// @Success 200 {array} service.HighlightedPost
// @Router /me/highlights [get]
func (s *Server) GetMyHighlights(c *fiber.Ctx) error {
	items, err := s.postService.ListHighlights(c.UserContext(), viewerID(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(items)
}

// GetMyDashboard handles GET /api/me/dashboard
// @Summary Owner dashboard
// @Description The caller's posts of every type, one tab at a time, with counts and stats.
// @Tags me
// @Security BearerAuth
// @Produce json
// @Param tab query string false "all, resolved, or a post type"
// @Param q query string false "Title or ID search"
// @Success 200 {object} service.Dashboard
// @Failure 400 {object} models.ErrorResponse
// @Router /me/dashboard [get]
func (s *Server) GetMyDashboard(c *fiber.Ctx) error {
	tab, err := service.ParseDashboardTab(c.Query("tab"))
	if err != nil {
		return respondAppError(c, err)
	}
	dash, err := s.dashboardService.Dashboard(c.UserContext(), viewerID(c), tab, c.Query("q"))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(dash)
}
