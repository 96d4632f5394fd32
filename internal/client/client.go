package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"productdash/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TokenIssuer issues bearer tokens for backend requests.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// Config holds the API client settings.
type Config struct {
	BaseURL string
	// Timeout bounds a single request. Zero leaves the HTTP layer default.
	Timeout time.Duration
	// Tokens is optional; when set every request is authenticated.
	Tokens TokenIssuer
}

// Client talks to the catalog backend REST API.
type Client struct {
	baseURL string
	timeout time.Duration
	tokens  TokenIssuer
	logger  *zap.Logger
}

const tokenSubject = "productdash"

// New creates a new Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		tokens:  cfg.Tokens,
		logger:  logger,
	}
}

// ListProducts fetches the full product collection.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	const op = "list products"
	a, err := c.agent(fiber.MethodGet, "/products")
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	code, body, err := c.do(ctx, op, a)
	if err != nil {
		return nil, err
	}
	if !success(code) {
		return nil, classify(op, "", code, body)
	}
	products := []models.Product{}
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, &HTTPError{Op: op, StatusCode: code, Body: string(body)}
	}
	return products, nil
}

// GetProduct fetches one product by uuid.
func (c *Client) GetProduct(ctx context.Context, uuid string) (*models.Product, error) {
	const op = "get product"
	a, err := c.agent(fiber.MethodGet, productPath(uuid))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	code, body, err := c.do(ctx, op, a)
	if err != nil {
		return nil, err
	}
	if !success(code) {
		return nil, classify(op, uuid, code, body)
	}
	return decodeProduct(op, code, body)
}

// CreateProduct posts form as multipart data and returns the created product.
func (c *Client) CreateProduct(ctx context.Context, form models.ProductForm) (*models.Product, error) {
	const op = "create product"
	a, err := c.agent(fiber.MethodPost, "/products")
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	encodeForm(a, form)
	code, body, err := c.do(ctx, op, a)
	if err != nil {
		return nil, err
	}
	if !success(code) {
		return nil, classify(op, "", code, body)
	}
	return decodeProduct(op, code, body)
}

// UpdateProduct patches the product identified by uuid with form.
func (c *Client) UpdateProduct(ctx context.Context, uuid string, form models.ProductForm) (*models.Product, error) {
	const op = "update product"
	a, err := c.agent(fiber.MethodPatch, productPath(uuid))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	encodeForm(a, form)
	code, body, err := c.do(ctx, op, a)
	if err != nil {
		return nil, err
	}
	if !success(code) {
		return nil, classify(op, uuid, code, body)
	}
	return decodeProduct(op, code, body)
}

// DeleteProduct deletes the product identified by uuid.
func (c *Client) DeleteProduct(ctx context.Context, uuid string) error {
	const op = "delete product"
	a, err := c.agent(fiber.MethodDelete, productPath(uuid))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	code, body, err := c.do(ctx, op, a)
	if err != nil {
		return err
	}
	if !success(code) {
		return classify(op, uuid, code, body)
	}
	return nil
}

func (c *Client) agent(method, path string) (*fiber.Agent, error) {
	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return nil, fmt.Errorf("failed to parse request uri: %w", err)
	}
	if c.timeout > 0 {
		a.Timeout(c.timeout)
	}
	if c.tokens != nil {
		token, err := c.tokens.Issue(tokenSubject)
		if err != nil {
			fiber.ReleaseAgent(a)
			return nil, fmt.Errorf("failed to issue service token: %w", err)
		}
		a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return a, nil
}

type response struct {
	code int
	body []byte
	errs []error
}

// do sends the request. A cancelled ctx stops the wait, not the request.
func (c *Client) do(ctx context.Context, op string, a *fiber.Agent) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return 0, nil, &NetworkError{Op: op, Err: err}
	}

	start := time.Now()
	done := make(chan response, 1)
	go func() {
		code, body, errs := a.Bytes()
		done <- response{code: code, body: body, errs: errs}
	}()

	select {
	case <-ctx.Done():
		return 0, nil, &NetworkError{Op: op, Err: ctx.Err()}
	case resp := <-done:
		if len(resp.errs) > 0 {
			err := errors.Join(resp.errs...)
			c.logger.Warn("backend request failed", zap.String("op", op), zap.Error(err))
			return 0, nil, &NetworkError{Op: op, Err: err}
		}
		c.logger.Debug("backend request",
			zap.String("op", op),
			zap.Int("status", resp.code),
			zap.Duration("elapsed", time.Since(start)),
		)
		return resp.code, resp.body, nil
	}
}

// encodeForm writes form as multipart data. Binary image data is attached only
// for a newly selected local file.
func encodeForm(a *fiber.Agent, form models.ProductForm) {
	if fileName, content, ok := form.Image.File(); ok {
		a.FileData(&fiber.FormFile{
			Fieldname: "image",
			Name:      fileName,
			Content:   content,
		})
	}
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("name", form.Name)
	args.Set("description", form.Description)
	a.MultipartForm(args)
}

func decodeProduct(op string, code int, body []byte) (*models.Product, error) {
	var product models.Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, &HTTPError{Op: op, StatusCode: code, Body: string(body)}
	}
	return &product, nil
}

func productPath(uuid string) string {
	return "/products/" + url.PathEscape(uuid)
}

func success(code int) bool {
	return code >= 200 && code < 300
}
