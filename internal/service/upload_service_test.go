package service

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huellas/internal/config"
	"huellas/internal/models"
	"huellas/internal/testutil"
)

func newTestUploads(t *testing.T, maxMB int) *UploadService {
	t.Helper()
	svc := NewUploadService(&config.Config{UploadDir: t.TempDir(), UploadPublicURL: "https://cdn.example.com/uploads/", ImageMaxUploadSizeMB: maxMB})
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return svc
}

func TestUploadService_StoresJPEGAndWebP(t *testing.T) {
	svc := newTestUploads(t, 1)

	img, err := svc.Upload(context.Background(), BucketPosts, UploadInput{
		Filename:    "perro.png",
		ContentType: "image/png",
		Content:     testutil.TinyPNG(t, 300, 200),
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^https://cdn\.example\.com/uploads/posts/1700000000123-[0-9a-f]{12}\.jpg$`), img.URL)
	assert.Equal(t, strings.TrimSuffix(img.URL, ".jpg")+".webp", img.WebPURL)
	assert.Equal(t, 300, img.Width)
	assert.Equal(t, 200, img.Height)

	require.Len(t, img.Paths, 2)
	for _, p := range img.Paths {
		assert.Equal(t, filepath.Join(svc.Dir(), "posts"), filepath.Dir(p))
		_, statErr := os.Stat(p)
		require.NoError(t, statErr)
	}

	raw, err := os.ReadFile(img.Paths[0])
	require.NoError(t, err)
	_, err = jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	raw, err = os.ReadFile(img.Paths[1])
	require.NoError(t, err)
	_, err = webp.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
}

func TestUploadService_BoundsLargeImages(t *testing.T) {
	svc := newTestUploads(t, 10)

	img, err := svc.Upload(context.Background(), BucketAvatars, UploadInput{Content: testutil.TinyPNG(t, 4096, 1024)})
	require.NoError(t, err)
	assert.Equal(t, MaxImageDimension, img.Width)
	assert.Equal(t, 512, img.Height)

	raw, err := os.ReadFile(img.Paths[0])
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, MaxImageDimension, cfg.Width)
	assert.Contains(t, img.URL, "/avatars/")
}

func TestUploadService_Rejections(t *testing.T) {
	svc := newTestUploads(t, 1)
	ctx := context.Background()

	tests := []struct {
		name string
		in   UploadInput
	}{
		{"empty", UploadInput{}},
		{"too large", UploadInput{Content: bytes.Repeat([]byte{0x89}, 1024*1024+1)}},
		{"not an image", UploadInput{Content: []byte("%PDF-1.4 not really")}},
		{"content type mismatch", UploadInput{ContentType: "image/jpeg", Content: testutil.TinyPNG(t, 4, 4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, BucketPosts, tt.in)
			assert.True(t, models.IsCode(err, models.CodeValidation), "got %v", err)
		})
	}

	_, err := svc.Upload(ctx, Bucket("../etc"), UploadInput{Content: testutil.TinyPNG(t, 4, 4)})
	assert.True(t, models.IsCode(err, models.CodeInternal))

	entries, err := os.ReadDir(svc.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads write nothing")
}

func TestUploadService_UploadAllIsAllOrNothing(t *testing.T) {
	svc := newTestUploads(t, 1)
	ctx := context.Background()

	_, err := svc.UploadAll(ctx, BucketPosts, []UploadInput{
		{Content: testutil.TinyPNG(t, 8, 8)},
		{Content: []byte("nope")},
	})
	assert.True(t, models.IsCode(err, models.CodeValidation))
	_, statErr := os.Stat(filepath.Join(svc.Dir(), "posts"))
	assert.True(t, os.IsNotExist(statErr), "validation runs before the first write")

	imgs, err := svc.UploadAll(ctx, BucketPosts, []UploadInput{
		{Content: testutil.TinyPNG(t, 8, 8)},
		{Content: testutil.TinyPNG(t, 16, 16)},
	})
	require.NoError(t, err)
	require.Len(t, imgs, 2)

	svc.Remove(ctx, imgs...)
	for _, img := range imgs {
		for _, p := range img.Paths {
			_, statErr := os.Stat(p)
			assert.True(t, os.IsNotExist(statErr))
		}
	}
}

func TestUploadService_WriteFailureIsUploadError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	svc := NewUploadService(&config.Config{UploadDir: blocker, ImageMaxUploadSizeMB: 1})
	_, err := svc.Upload(context.Background(), BucketPosts, UploadInput{Content: testutil.TinyPNG(t, 4, 4)})
	assert.True(t, models.IsCode(err, models.CodeUpload), "got %v", err)
}
