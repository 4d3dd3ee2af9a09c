package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strconv"
	"strings"
	"unicode"

	"github.com/gofiber/fiber/v2"

	"huellas/internal/middleware"
	"huellas/internal/models"
	"huellas/internal/ownership"
	"huellas/internal/service"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	maxPaginationLimit = 100
	// maxUploadFiles caps the images of one multipart request.
	maxUploadFiles = 5
	// ownerSecretHeader carries the secret of an anonymous post.
	ownerSecretHeader = "X-Owner-Secret"
	clientIDHeader    = "X-Client-ID"
)

// respondAppError answers with the status mapped from the error code.
// Server-side failures are logged, client errors are not.
func respondAppError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "Request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(msg))
}

// parseLimit reads the limit query parameter, clamped to maxPaginationLimit.
func parseLimit(c *fiber.Ctx, defaultLimit int) int {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}
	return limit
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = badRequest(c, "Invalid "+humanizeParam(param))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseKind reads the :kind route parameter. Unknown kinds are 404 since the
// collection does not exist.
func (s *Server) parseKind(c *fiber.Ctx) (models.PostKind, error) {
	kind, err := models.ParseKind(c.Params("kind"))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Post type", c.Params("kind")))
		return "", errResponseWritten
	}
	return kind, nil
}

// postParams reads :kind and :id together.
func (s *Server) postParams(c *fiber.Ctx) (models.PostKind, string, error) {
	kind, err := s.parseKind(c)
	if err != nil {
		return "", "", err
	}
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		_ = badRequest(c, "Invalid post ID")
		return "", "", errResponseWritten
	}
	return kind, id, nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "reportId" -> "report ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// viewerID is the signed-in user, 0 for anonymous requests.
func viewerID(c *fiber.Ctx) uint {
	uid, _ := middleware.UserID(c)
	return uid
}

// ownerProof builds the ownership proof of a request. bodySecret wins over
// the header and either secret wins over the session.
func ownerProof(c *fiber.Ctx, bodySecret string) (ownership.Proof, error) {
	secret := strings.TrimSpace(bodySecret)
	if secret == "" {
		secret = strings.TrimSpace(c.Get(ownerSecretHeader))
	}
	return ownership.ProofFrom(viewerID(c), secret)
}

// clientKey identifies the browser tab or device for geocoding sequencing.
func clientKey(c *fiber.Ctx) string {
	if id := strings.TrimSpace(c.Get(clientIDHeader)); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.Query("client")); id != "" {
		return id
	}
	if uid := viewerID(c); uid != 0 {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// readUploads reads the files of a multipart field into memory.
func readUploads(c *fiber.Ctx, field string) ([]service.UploadInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError("Invalid multipart form")
	}
	files := form.File[field]
	if len(files) > maxUploadFiles {
		return nil, models.NewValidationError(fmt.Sprintf("At most %d images per request", maxUploadFiles))
	}
	out := make([]service.UploadInput, 0, len(files))
	for _, fh := range files {
		in, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func readUpload(fh *multipart.FileHeader) (service.UploadInput, error) {
	f, err := fh.Open()
	if err != nil {
		return service.UploadInput{}, models.NewValidationError("Unreadable image " + fh.Filename)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return service.UploadInput{}, models.NewValidationError("Unreadable image " + fh.Filename)
	}
	return service.UploadInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

// splitList accepts repeated and comma-separated query values.
func splitList(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
