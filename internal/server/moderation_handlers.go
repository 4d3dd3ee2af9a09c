package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"huellas/internal/models"
	"huellas/internal/repository"
)

const defaultAdminListLimit = 50

// GetAdminReports handles GET /api/admin/reports
// @Summary Moderation queue
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param status query string false "open, resolved or dismissed"
// @Param post_type query string false "Post type"
// @Param post_id query string false "Post ID"
// @Param limit query int false "Maximum reports"
// @Success 200 {array} models.Report
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/reports [get]
func (s *Server) GetAdminReports(c *fiber.Ctx) error {
	filter := repository.ReportFilter{
		PostID: strings.TrimSpace(c.Query("post_id")),
		Limit:  parseLimit(c, defaultAdminListLimit),
	}
	switch st := models.ReportStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))); st {
	case "", "all":
	case models.ReportOpen, models.ReportResolved, models.ReportDismissed:
		filter.Status = st
	default:
		return badRequest(c, "status must be open, resolved or dismissed")
	}
	if pt := strings.TrimSpace(c.Query("post_type")); pt != "" {
		kind, err := models.ParseKind(pt)
		if err != nil {
			return badRequest(c, err.Error())
		}
		filter.PostType = kind
	}

	reports, err := s.moderationService.ListReports(c.UserContext(), filter)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(reports)
}

// ResolveReport handles POST /api/admin/reports/:id/resolve
// @Summary Resolve or dismiss a report
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Report ID"
// @Param request body object{status=string,note=string} true "resolved or dismissed"
// @Success 200 {object} models.Report
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/reports/{id}/resolve [post]
func (s *Server) ResolveReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Status == "" {
		req.Status = string(models.ReportResolved)
	}

	report, err := s.moderationService.ResolveReport(c.UserContext(), id, req.Status, viewerID(c), req.Note)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(report)
}

// SuspendPost handles POST /api/admin/posts/:kind/:id/suspend
// @Summary Suspend a post
// @Description Forces the post inactive, records a snapshot and resolves its open reports.
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param kind path string true "Post type"
// @Param id path string true "Post ID"
// @Param request body object{reason=string,reason_code=string} true "Suspension reason"
// @Success 201 {object} models.SuspendedPostLog
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/posts/{kind}/{id}/suspend [post]
func (s *Server) SuspendPost(c *fiber.Ctx) error {
	kind, id, err := s.postParams(c)
	if err != nil {
		return nil
	}
	var req struct {
		Reason     string `json:"reason"`
		ReasonCode string `json:"reason_code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	entry, err := s.moderationService.SuspendPost(c.UserContext(), kind, id, req.Reason, req.ReasonCode, viewerID(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// GetSuspensions handles GET /api/admin/suspensions
// @Summary Suspension log
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Maximum entries"
// @Success 200 {array} models.SuspendedPostLog
// @Router /admin/suspensions [get]
func (s *Server) GetSuspensions(c *fiber.Ctx) error {
	entries, err := s.moderationService.ListSuspensions(c.UserContext(), parseLimit(c, defaultAdminListLimit))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(entries)
}
