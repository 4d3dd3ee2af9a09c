package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"huellas/internal/models"
	"huellas/internal/search"
	"huellas/internal/service"
)

// createPostRequest is accepted as JSON or as multipart form fields.
type createPostRequest struct {
	Title           string   `json:"title" form:"title"`
	Description     string   `json:"description" form:"description"`
	Species         string   `json:"species" form:"species"`
	Breed           string   `json:"breed" form:"breed"`
	Colors          []string `json:"colors" form:"colors"`
	LocationText    string   `json:"location_text" form:"location_text"`
	LocationLat     *float64 `json:"location_lat" form:"location_lat"`
	LocationLng     *float64 `json:"location_lng" form:"location_lng"`
	Images          []string `json:"images" form:"-"`
	ContactWhatsApp *string  `json:"contact_whatsapp" form:"contact_whatsapp"`
	ContactPhone    *string  `json:"contact_phone" form:"contact_phone"`
	ContactEmail    *string  `json:"contact_email" form:"contact_email"`

	LostAt       string   `json:"lost_at" form:"lost_at"`
	State        string   `json:"state" form:"state"`
	Age          string   `json:"age" form:"age"`
	Category     string   `json:"category" form:"category"`
	Condition    string   `json:"condition" form:"condition"`
	Price        *float64 `json:"price" form:"price"`
	StoreContact string   `json:"store_contact" form:"store_contact"`
}

// parseLostAt accepts RFC 3339 timestamps and plain dates.
func parseLostAt(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, models.NewValidationError("lost_at must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}

// ListPosts handles GET /api/posts/:kind
// @Summary List active posts
// @Description Active, unexpired posts of one type, newest first. Contact details are hidden from anonymous viewers.
// @Tags posts
// @Produce json
// @Param kind path string true "lost, reported, adoption or classified"
// @Param q query string false "Search term (title, description, breed)"
// @Param species query string false "Species or 'all'"
// @Param colors query string false "Comma-separated colors, all must match"
// @Param location query string false "Location substring"
// @Param category query string false "Classified category"
// @Param limit query int false "Maximum posts"
// @Success 200 {array} object
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/{kind} [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	kind, err := s.parseKind(c)
	if err != nil {
		return nil
	}

	species, err := models.ParseSpeciesFilter(c.Query("species"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	f := search.Filters{
		Kind:       kind,
		SearchTerm: c.Query("q"),
		Species:    species,
		Colors:     splitList(c.Query("colors")),
		Location:   c.Query("location"),
		Limit:      c.QueryInt("limit", 0),
	}
	if cat := strings.TrimSpace(c.Query("category")); cat != "" && !strings.EqualFold(cat, "all") {
		if f.Category, err = models.ParseCategory(cat); err != nil {
			return badRequest(c, err.Error())
		}
	}

	posts, err := s.postService.List(c.UserContext(), f, viewerID(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts/:kind
// @Summary Publish a post
// @Description Signed-in callers own the post through their session. Anonymous callers receive a one-time owner_secret.
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Param kind path string true "lost, reported, adoption or classified"
// @Param images formData file false "Up to 5 images (multipart only)"
// @Success 201 {object} service.CreatePostResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /posts/{kind} [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	kind, err := s.parseKind(c)
	if err != nil {
		return nil
	}

	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	lostAt, err := parseLostAt(req.LostAt)
	if err != nil {
		return respondAppError(c, err)
	}

	in := service.CreatePostInput{
		Kind:            kind,
		UserID:          viewerID(c),
		Title:           req.Title,
		Description:     req.Description,
		Species:         req.Species,
		Breed:           req.Breed,
		Colors:          splitList(req.Colors...),
		LocationText:    req.LocationText,
		LocationLat:     req.LocationLat,
		LocationLng:     req.LocationLng,
		Images:          req.Images,
		ContactWhatsApp: req.ContactWhatsApp,
		ContactPhone:    req.ContactPhone,
		ContactEmail:    req.ContactEmail,
		LostAt:          lostAt,
		State:           req.State,
		Age:             req.Age,
		Category:        req.Category,
		Condition:       req.Condition,
		Price:           req.Price,
		StoreContact:    req.StoreContact,
	}
	if isMultipart(c) {
		if in.Uploads, err = readUploads(c, "images"); err != nil {
			return respondAppError(c, err)
		}
	}

	res, err := s.postService.Create(c.UserContext(), in)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// GetPost handles GET /api/posts/:kind/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param kind path string true "Post type"
// @Param id path string true "Post ID"
// @Success 200 {object} object
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{kind}/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	kind, id, err := s.postParams(c)
	if err != nil {
		return nil
	}
	post, err := s.postService.Get(c.UserContext(), kind, id, viewerID(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(post)
}

// GetPostContact handles GET /api/posts/:kind/:id/contact
// @Summary Contact details of a post
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param kind path string true "Post type"
// @Param id path string true "Post ID"
// @Success 200 {object} models.Contact
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{kind}/{id}/contact [get]
func (s *Server) GetPostContact(c *fiber.Ctx) error {
	kind, id, err := s.postParams(c)
	if err != nil {
		return nil
	}
	contact, err := s.postService.ContactInfo(c.UserContext(), kind, id, viewerID(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(contact)
}

// ChangePostStatus handles POST /api/posts/:kind/:id/status
// @Summary Change the status of an owned post
// @Description Owners prove ownership with their session or with the post secret (body or X-Owner-Secret header).
// @Tags posts
// @Accept json
// @Produce json
// @Param kind path string true "Post type"
// @Param id path string true "Post ID"
// @Param request body object{status=string,secret=string} true "Target status"
// @Success 200 {object} object
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{kind}/{id}/status [post]
func (s *Server) ChangePostStatus(c *fiber.Ctx) error {
	kind, id, err := s.postParams(c)
	if err != nil {
		return nil
	}
	var req struct {
		Status string `json:"status"`
		Secret string `json:"secret"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	to, err := models.ParseStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if err != nil {
		return badRequest(c, err.Error())
	}
	proof, err := ownerProof(c, req.Secret)
	if err != nil {
		return respondAppError(c, err)
	}

	post, err := s.postService.ChangeStatus(c.UserContext(), kind, id, to, proof)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:kind/:id
// @Summary Delete an owned post
// @Tags posts
// @Accept json
// @Param kind path string true "Post type"
// @Param id path string true "Post ID"
// @Param X-Owner-Secret header string false "Post secret for anonymous owners"
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{kind}/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	kind, id, err := s.postParams(c)
	if err != nil {
		return nil
	}
	var req struct {
		Secret string `json:"secret"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	proof, err := ownerProof(c, req.Secret)
	if err != nil {
		return respondAppError(c, err)
	}
	if err := s.postService.Delete(c.UserContext(), kind, id, proof); err != nil {
		return respondAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReportPost handles POST /api/posts/:kind/:id/report
// @Summary Report a post to the moderators
// @Tags posts
// @Accept json
// @Produce json
// @Param kind path string true "Post type"
// @Param id path string true "Post ID"
// @Param request body object{reason=string,message=string} true "Report"
// @Success 201 {object} models.Report
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{kind}/{id}/report [post]
func (s *Server) ReportPost(c *fiber.Ctx) error {
	kind, id, err := s.postParams(c)
	if err != nil {
		return nil
	}
	var req struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	report, err := s.moderationService.FileReport(c.UserContext(), service.FileReportInput{
		PostID:     id,
		PostType:   kind,
		Reason:     req.Reason,
		Message:    req.Message,
		ReporterID: viewerID(c),
	})
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// ToggleHighlight handles POST /api/posts/:kind/:id/highlight
// @Summary Save or unsave a post
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param kind path string true "Post type"
// @Param id path string true "Post ID"
// @Success 200 {object} object{highlighted=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{kind}/{id}/highlight [post]
func (s *Server) ToggleHighlight(c *fiber.Ctx) error {
	kind, id, err := s.postParams(c)
	if err != nil {
		return nil
	}
	on, err := s.postService.ToggleHighlight(c.UserContext(), viewerID(c), kind, id)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"highlighted": on})
}
