package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"productdash/internal/handlers"
	"productdash/internal/models"
	"productdash/internal/repositories"
	"productdash/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupBackend sets up the catalog backend with in-memory SQLite.
func setupBackend(t *testing.T, tokens *services.TokenService) (*fiber.App, string) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}))

	mediaDir := t.TempDir()
	images, err := repositories.NewDiskImageStore(mediaDir)
	require.NoError(t, err)

	service := services.NewProductService(repositories.NewGORMProductRepository(db), images, nil, zap.NewNop())
	app := handlers.NewBackendApp(service, handlers.BackendOptions{MediaDir: mediaDir, Tokens: tokens}, zap.NewNop())
	return app, mediaDir
}

type formFile struct {
	name    string
	content []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, file *formFile) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("image", file.name)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestBackendProductLifecycle(t *testing.T) {
	app, _ := setupBackend(t, nil)

	// --- Test POST /products ---
	req := multipartRequest(t, http.MethodPost, "/products",
		map[string]string{"name": "Chair", "description": "Oak seat"},
		&formFile{name: "chair.png", content: []byte("png-bytes")})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Product](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.UUID)
	assert.True(t, strings.HasPrefix(created.Image, "images/"))
	assert.Equal(t, 0, created.Version)

	// --- Test image served under /media ---
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/media/"+created.Image, nil), -1)
	require.NoError(t, err)
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte("png-bytes"), content)

	// --- Test GET /products ---
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/products", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	products := decode[[]models.Product](t, resp)
	require.Len(t, products, 1)
	assert.Equal(t, created.UUID, products[0].UUID)

	// --- Test PATCH /products/:uuid without image keeps it ---
	req = multipartRequest(t, http.MethodPatch, "/products/"+created.UUID,
		map[string]string{"name": "Armchair", "description": "Oak seat"}, nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[models.Product](t, resp)
	assert.Equal(t, "Armchair", updated.Name)
	assert.Equal(t, created.Image, updated.Image)
	assert.Equal(t, 1, updated.Version)

	// --- Test GET /products/:uuid ---
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/products/"+created.UUID, nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decode[models.Product](t, resp)
	assert.Equal(t, "Armchair", fetched.Name)

	// --- Test DELETE /products/:uuid ---
	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/products/"+created.UUID, nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Verify deletion
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/products/"+created.UUID, nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/products/"+created.UUID, nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBackendCreateValidation(t *testing.T) {
	app, _ := setupBackend(t, nil)

	req := multipartRequest(t, http.MethodPost, "/products", map[string]string{"name": "", "description": "x"}, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["message"], "name")

	req = httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"Chair"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBackendRequiresTokenWhenConfigured(t *testing.T) {
	tokens := services.NewTokenService("test_secret", time.Minute)
	app, _ := setupBackend(t, tokens)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/products", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := tokens.Issue("productdash")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
