package server

import (
	"github.com/gofiber/fiber/v2"

	"huellas/internal/service"
)

// UploadImages handles POST /api/uploads
// @Summary Upload post images
// @Description Stores images ahead of post creation and returns their public URLs.
// @Tags uploads
// @Accept mpfd
// @Produce json
// @Param images formData file true "Up to 5 images"
// @Success 201 {array} service.StoredImage
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /uploads [post]
func (s *Server) UploadImages(c *fiber.Ctx) error {
	if !isMultipart(c) {
		return badRequest(c, "multipart/form-data is required")
	}
	ins, err := readUploads(c, "images")
	if err != nil {
		return respondAppError(c, err)
	}
	if len(ins) == 0 {
		return badRequest(c, "images are required")
	}
	stored, err := s.uploads.UploadAll(c.UserContext(), service.BucketPosts, ins)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stored)
}
