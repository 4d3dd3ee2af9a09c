package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huellas/internal/models"
	"huellas/internal/repository"
	"huellas/internal/service"
	"huellas/internal/testutil"
)

func TestMyProfile(t *testing.T) {
	env := newTestEnv(t)
	uid, token := env.signIn(t, "ana.perez@example.com", false)

	resp := env.do(t, http.MethodGet, "/api/me/profile", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/me/profile", nil, withToken(token))
	requireStatus(t, resp, fiber.StatusOK)
	profile := decodeBody[models.Profile](t, resp)
	assert.Equal(t, uid, profile.UserID)
	assert.Equal(t, "ana.perez", profile.DisplayName)

	resp = env.do(t, http.MethodPut, "/api/me/profile", map[string]string{
		"display_name": "Ana", "country": "argentina", "province": "Córdoba",
	}, withToken(token))
	requireStatus(t, resp, fiber.StatusOK)
	profile = decodeBody[models.Profile](t, resp)
	assert.Equal(t, "Ana", profile.DisplayName)
	assert.Equal(t, "Argentina", profile.Country)
	assert.Equal(t, "Córdoba", profile.Province)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty name", map[string]string{"display_name": "  "}},
		{"unknown country", map[string]string{"country": "Atlantis"}},
		{"foreign province", map[string]string{"province": "Jalisco"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPut, "/api/me/profile", tt.body, withToken(token))
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestUploadMyAvatar(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signIn(t, "ana@example.com", false)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(testutil.TinyPNG(t, 32, 32))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp := env.do(t, http.MethodPost, "/api/me/profile/avatar", &buf,
		withToken(token), withHeader(fiber.HeaderContentType, w.FormDataContentType()))
	requireStatus(t, resp, fiber.StatusOK)
	profile := decodeBody[models.Profile](t, resp)
	assert.Contains(t, profile.AvatarURL, "/uploads/avatars/")

	resp = env.do(t, http.MethodPost, "/api/me/profile/avatar", nil, withToken(token))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMyDashboard(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signIn(t, "ana@example.com", false)

	create := func(kind string, body map[string]any) string {
		resp := env.do(t, http.MethodPost, "/api/posts/"+kind, body, withToken(token))
		requireStatus(t, resp, fiber.StatusCreated)
		return decodeBody[map[string]any](t, resp)["post"].(map[string]any)["id"].(string)
	}
	lost := create("lost", lostPostBody())
	create("adoption", map[string]any{"title": "Gatitos en adopción", "species": "gato"})
	create("classified", map[string]any{"title": "Cucha grande", "category": "accessories"})

	resp := env.do(t, http.MethodPost, "/api/posts/lost/"+lost+"/status",
		map[string]string{"status": "resolved"}, withToken(token))
	requireStatus(t, resp, fiber.StatusOK)

	resp = env.do(t, http.MethodGet, "/api/me/dashboard", nil, withToken(token))
	requireStatus(t, resp, fiber.StatusOK)
	dash := decodeBody[service.Dashboard](t, resp)
	assert.Equal(t, service.TabAll, dash.Tab)
	assert.Len(t, dash.Posts, 2)
	assert.Equal(t, 2, dash.Counts[service.TabAll])
	assert.Equal(t, 1, dash.Counts[service.TabResolved])
	assert.Equal(t, 0, dash.Counts[service.DashboardTab(models.KindLost)])
	assert.Equal(t, service.DashboardStats{Total: 3, Active: 2, Resolved: 1, ThisMonth: 3}, dash.Stats)

	resp = env.do(t, http.MethodGet, "/api/me/dashboard?tab=resolved", nil, withToken(token))
	dash = decodeBody[service.Dashboard](t, resp)
	require.Len(t, dash.Posts, 1)
	assert.Equal(t, models.KindLost, dash.Posts[0].Kind)

	resp = env.do(t, http.MethodGet, "/api/me/dashboard?tab=all&q=cucha", nil, withToken(token))
	dash = decodeBody[service.Dashboard](t, resp)
	require.Len(t, dash.Posts, 1)
	assert.Equal(t, models.KindClassified, dash.Posts[0].Kind)
	assert.Equal(t, 2, dash.Counts[service.TabAll], "counts ignore the search term")

	resp = env.do(t, http.MethodGet, "/api/me/dashboard?tab=archived", nil, withToken(token))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDeleteMyAccount(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signIn(t, "ana@example.com", false)

	resp := env.do(t, http.MethodPost, "/api/posts/lost", lostPostBody(), withToken(token))
	requireStatus(t, resp, fiber.StatusCreated)
	id := decodeBody[map[string]any](t, resp)["post"].(map[string]any)["id"].(string)
	resp = env.do(t, http.MethodPost, "/api/posts/lost/"+id+"/highlight", nil, withToken(token))
	requireStatus(t, resp, fiber.StatusOK)

	resp = env.do(t, http.MethodDelete, "/api/me", nil, withToken(token))
	requireStatus(t, resp, fiber.StatusOK)
	deleted := decodeBody[repository.AccountDeletion](t, resp)
	assert.EqualValues(t, 1, deleted.Posts[models.KindLost])
	assert.EqualValues(t, 1, deleted.Highlights)

	resp = env.do(t, http.MethodGet, "/api/posts/lost/"+id, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/me/profile", nil, withToken(token))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
