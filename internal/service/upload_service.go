package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"huellas/internal/config"
	"huellas/internal/middleware"
	"huellas/internal/models"
	"huellas/internal/observability"
)

const (
	DefaultUploadDir       = "./uploads"
	DefaultUploadPublicURL = "/uploads"
	DefaultMaxUploadSizeMB = 10
	MaxImageDimension      = 2048
	JPEGQuality            = 82
	WebPQuality            = 70
)

// Bucket is the directory an upload is stored under.
type Bucket string

const (
	BucketPosts   Bucket = "posts"
	BucketAvatars Bucket = "avatars"
)

// UploadInput is one file received from a client.
type UploadInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage describes the files written for one upload.
type StoredImage struct {
	URL     string   `json:"url"`
	WebPURL string   `json:"webp_url"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Paths   []string `json:"-"`
}

// UploadService validates, re-encodes and stores images on local disk.
type UploadService struct {
	dir                string
	publicURL          string
	maxUploadSizeBytes int64
	now                func() time.Time
}

func NewUploadService(cfg *config.Config) *UploadService {
	dir := DefaultUploadDir
	publicURL := DefaultUploadPublicURL
	maxUploadSizeMB := DefaultMaxUploadSizeMB

	if cfg != nil {
		if cfg.UploadDir != "" {
			dir = cfg.UploadDir
		}
		if cfg.UploadPublicURL != "" {
			publicURL = strings.TrimRight(cfg.UploadPublicURL, "/")
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &UploadService{
		dir:                dir,
		publicURL:          publicURL,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		now:                time.Now,
	}
}

// Dir is the root directory served under the public URL.
func (s *UploadService) Dir() string { return s.dir }

// Validate checks size and content without decoding or writing anything.
func (s *UploadService) Validate(in UploadInput) error {
	if len(in.Content) == 0 {
		return models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return models.NewValidationError("Invalid image type")
	}
	return nil
}

// Upload stores one image under bucket as JPEG and WebP.
func (s *UploadService) Upload(ctx context.Context, bucket Bucket, in UploadInput) (*StoredImage, error) {
	if bucket != BucketPosts && bucket != BucketAvatars {
		return nil, models.NewInternalError(fmt.Errorf("unknown upload bucket %q", bucket))
	}
	if err := s.Validate(in); err != nil {
		return nil, err
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, decodedFormatToMime(format)) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	bounded := flatten(resizeToFit(decoded, MaxImageDimension, MaxImageDimension))

	encodedJPG, err := encodeJPEG(bounded, JPEGQuality)
	if err != nil {
		return nil, models.NewUploadError(err)
	}
	encodedWebP, err := encodeWebP(bounded, WebPQuality)
	if err != nil {
		return nil, models.NewUploadError(err)
	}

	base, err := s.objectName()
	if err != nil {
		return nil, models.NewUploadError(err)
	}
	jpgAbs := filepath.Join(s.dir, string(bucket), base+".jpg")
	webpAbs := filepath.Join(s.dir, string(bucket), base+".webp")

	if err := writeBytesToFile(jpgAbs, encodedJPG); err != nil {
		return nil, models.NewUploadError(err)
	}
	if err := writeBytesToFile(webpAbs, encodedWebP); err != nil {
		cleanupImageFiles([]string{jpgAbs})
		return nil, models.NewUploadError(err)
	}
	observability.UploadBytes.WithLabelValues(string(bucket)).Observe(float64(len(encodedJPG)))

	b := bounded.Bounds()
	middleware.Logger.DebugContext(ctx, "image stored",
		slog.String("bucket", string(bucket)),
		slog.String("name", base),
		slog.String("original_filename", in.Filename),
		slog.Int("bytes", len(encodedJPG)),
	)
	return &StoredImage{
		URL:     s.publicURL + "/" + string(bucket) + "/" + base + ".jpg",
		WebPURL: s.publicURL + "/" + string(bucket) + "/" + base + ".webp",
		Width:   b.Dx(),
		Height:  b.Dy(),
		Paths:   []string{jpgAbs, webpAbs},
	}, nil
}

// UploadAll stores every input or none: a failure removes the files already written.
func (s *UploadService) UploadAll(ctx context.Context, bucket Bucket, ins []UploadInput) ([]*StoredImage, error) {
	for _, in := range ins {
		if err := s.Validate(in); err != nil {
			return nil, err
		}
	}
	out := make([]*StoredImage, 0, len(ins))
	for _, in := range ins {
		img, err := s.Upload(ctx, bucket, in)
		if err != nil {
			s.Remove(ctx, out...)
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

// Remove deletes stored files, logging failures.
func (s *UploadService) Remove(ctx context.Context, imgs ...*StoredImage) {
	for _, img := range imgs {
		for _, p := range img.Paths {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				middleware.Logger.WarnContext(ctx, "failed to remove upload", slog.String("path", p), slog.String("error", err.Error()))
			}
		}
	}
}

// objectName returns <unixmillis>-<random>.
func (s *UploadService) objectName() (string, error) {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%s", s.now().UnixMilli(), hex.EncodeToString(b[:])), nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// flatten composites src over white so transparent areas do not turn black in JPEG.
func flatten(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func cleanupImageFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
