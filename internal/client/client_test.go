package client_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"productdash/internal/client"
	"productdash/internal/models"
	"productdash/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startServer serves app on a loopback port and returns its base URL.
func startServer(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.ShutdownWithTimeout(time.Second)
	})
	return "http://" + ln.Addr().String()
}

type recordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Fields        map[string]string
	ImageName     string
	ImageContent  []byte
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) record(c *fiber.Ctx) error {
	rec := recordedRequest{
		Method:        c.Method(),
		Path:          c.Path(),
		Authorization: c.Get(fiber.HeaderAuthorization),
		Fields:        map[string]string{},
	}
	if form, err := c.MultipartForm(); err == nil {
		for k, v := range form.Value {
			rec.Fields[k] = v[0]
		}
		if files := form.File["image"]; len(files) > 0 {
			f, err := files[0].Open()
			if err != nil {
				return err
			}
			defer f.Close()
			content, err := io.ReadAll(f)
			if err != nil {
				return err
			}
			rec.ImageName = files[0].Filename
			rec.ImageContent = content
		}
	}

	r.mu.Lock()
	r.requests = append(r.requests, rec)
	r.mu.Unlock()
	return nil
}

func (r *recorder) last(t *testing.T) recordedRequest {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.requests)
	return r.requests[len(r.requests)-1]
}

func newRecordingBackend(t *testing.T) (*recorder, string) {
	rec := &recorder{}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/products", func(c *fiber.Ctx) error {
		if err := rec.record(c); err != nil {
			return err
		}
		return c.JSON([]models.Product{{ID: "1", UUID: "u1", Name: "Chair", Description: "Oak seat"}})
	})
	app.Get("/products/:uuid", func(c *fiber.Ctx) error {
		if err := rec.record(c); err != nil {
			return err
		}
		return c.JSON(models.Product{ID: "1", UUID: c.Params("uuid"), Name: "Chair", Description: "Oak seat"})
	})
	app.Post("/products", func(c *fiber.Ctx) error {
		if err := rec.record(c); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(models.Product{UUID: "u2", Name: c.FormValue("name")})
	})
	app.Patch("/products/:uuid", func(c *fiber.Ctx) error {
		if err := rec.record(c); err != nil {
			return err
		}
		return c.JSON(models.Product{UUID: c.Params("uuid"), Name: c.FormValue("name"), Version: 1})
	})
	app.Delete("/products/:uuid", func(c *fiber.Ctx) error {
		if err := rec.record(c); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	return rec, startServer(t, app)
}

func TestClient_ListAndGet(t *testing.T) {
	rec, baseURL := newRecordingBackend(t)
	c := client.New(client.Config{BaseURL: baseURL + "/"}, zap.NewNop())

	products, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "u1", products[0].UUID)
	assert.Equal(t, "1", products[0].ID)
	assert.Equal(t, "/products", rec.last(t).Path)

	product, err := c.GetProduct(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", product.UUID)
	assert.Equal(t, "/products/u1", rec.last(t).Path)
}

func TestClient_CreateAttachesLocalFile(t *testing.T) {
	rec, baseURL := newRecordingBackend(t)
	c := client.New(client.Config{BaseURL: baseURL}, zap.NewNop())

	product, err := c.CreateProduct(context.Background(), models.ProductForm{
		Name:        "Chair",
		Description: "Oak seat",
		Image:       models.LocalFile("chair.png", []byte("png-bytes")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Chair", product.Name)

	got := rec.last(t)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "Chair", got.Fields["name"])
	assert.Equal(t, "Oak seat", got.Fields["description"])
	assert.Equal(t, "chair.png", got.ImageName)
	assert.Equal(t, []byte("png-bytes"), got.ImageContent)
}

func TestClient_CreateWithoutImage(t *testing.T) {
	rec, baseURL := newRecordingBackend(t)
	c := client.New(client.Config{BaseURL: baseURL}, zap.NewNop())

	_, err := c.CreateProduct(context.Background(), models.ProductForm{Name: "Chair", Description: "Oak seat"})
	require.NoError(t, err)

	got := rec.last(t)
	assert.Empty(t, got.ImageName)
	assert.NotContains(t, got.Fields, "image")
}

func TestClient_UpdateNeverUploadsRemoteReference(t *testing.T) {
	rec, baseURL := newRecordingBackend(t)
	c := client.New(client.Config{BaseURL: baseURL}, zap.NewNop())

	product, err := c.UpdateProduct(context.Background(), "u1", models.ProductForm{
		Name:        "Armchair",
		Description: "Oak seat",
		Image:       models.RemoteReference("images/chair.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, product.Version)

	got := rec.last(t)
	assert.Equal(t, http.MethodPatch, got.Method)
	assert.Equal(t, "/products/u1", got.Path)
	assert.Equal(t, "Armchair", got.Fields["name"])
	assert.Empty(t, got.ImageName)
	assert.Nil(t, got.ImageContent)
	assert.NotContains(t, got.Fields, "image")
}

func TestClient_Delete(t *testing.T) {
	rec, baseURL := newRecordingBackend(t)
	c := client.New(client.Config{BaseURL: baseURL}, zap.NewNop())

	require.NoError(t, c.DeleteProduct(context.Background(), "u1"))
	got := rec.last(t)
	assert.Equal(t, http.MethodDelete, got.Method)
	assert.Equal(t, "/products/u1", got.Path)
}

func TestClient_SendsBearerToken(t *testing.T) {
	rec, baseURL := newRecordingBackend(t)
	tokens := services.NewTokenService("test_secret", time.Minute)
	c := client.New(client.Config{BaseURL: baseURL, Tokens: tokens}, zap.NewNop())

	_, err := c.ListProducts(context.Background())
	require.NoError(t, err)

	header := rec.last(t).Authorization
	require.True(t, len(header) > len("Bearer "))
	claims, err := tokens.Validate(header[len("Bearer "):])
	require.NoError(t, err)
	assert.Equal(t, "productdash", claims["sub"])
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/products/missing", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
	})
	app.Post("/products", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "name is required"})
	})
	app.Patch("/products/:uuid", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusUnprocessableEntity).SendString("nope")
	})
	app.Get("/products", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).SendString("boom")
	})
	c := client.New(client.Config{BaseURL: startServer(t, app)}, zap.NewNop())
	ctx := context.Background()

	_, err := c.GetProduct(ctx, "missing")
	var notFound *client.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.UUID)

	_, err = c.CreateProduct(ctx, models.ProductForm{Name: "x", Description: "y"})
	var validationErr *client.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "name is required", validationErr.Message)
	assert.Equal(t, http.StatusBadRequest, validationErr.StatusCode)

	_, err = c.UpdateProduct(ctx, "u1", models.ProductForm{Name: "x", Description: "y"})
	var httpErr *client.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)

	_, err = c.ListProducts(ctx)
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Equal(t, "boom", httpErr.Body)
}

func TestClient_NetworkError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := client.New(client.Config{BaseURL: "http://" + addr, Timeout: time.Second}, zap.NewNop())

	_, err = c.ListProducts(context.Background())
	var netErr *client.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestClient_CancelledContext(t *testing.T) {
	_, baseURL := newRecordingBackend(t)
	c := client.New(client.Config{BaseURL: baseURL}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListProducts(ctx)
	var netErr *client.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, errors.Is(err, context.Canceled))
}
