package handlers

import (
	"context"
	"errors"
	"time"

	"productdash/internal/client"
	"productdash/internal/forms"
	"productdash/internal/models"
	"productdash/internal/notify"
	"productdash/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	emptyCatalogMessage = "Start by adding your first product."
	emptySearchMessage  = "No products match your search."
)

// ProductView is a product as shown by the dashboard. The internal database id is not exposed.
type ProductView struct {
	UUID        string    `json:"uuid"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListView is the product list as shown by the dashboard.
type ListView struct {
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	Search       string        `json:"search"`
	Total        int           `json:"total"`
	Busy         bool          `json:"busy"`
	EmptyMessage string        `json:"emptyMessage,omitempty"`
	Products     []ProductView `json:"products"`
}

// DashboardHandler exposes the product store to the dashboard frontend.
type DashboardHandler struct {
	store    *services.ProductStore
	feed     *notify.Feed
	mediaURL string
	logger   *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(store *services.ProductStore, feed *notify.Feed, mediaURL string, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		store:    store,
		feed:     feed,
		mediaURL: mediaURL,
		logger:   logger,
	}
}

// RegisterRoutes registers the dashboard routes with the Fiber app.
func (h *DashboardHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleList)
	productRoutes.Post("/refresh", h.HandleRefresh)
	productRoutes.Get("/:uuid", h.HandleDetails)
	productRoutes.Post("/", h.HandleAdd)
	productRoutes.Patch("/:uuid", h.HandleEdit)
	productRoutes.Delete("/:uuid", h.HandleRemove)

	router.Get("/notifications", h.HandleNotifications)
}

// HandleList returns the filtered product list. The first call loads the collection.
func (h *DashboardHandler) HandleList(c *fiber.Ctx) error {
	if h.store.Snapshot().Status == services.StatusIdle {
		h.refresh(c.UserContext())
	}
	return c.JSON(h.listView(c.Query("search")))
}

// HandleRefresh reloads the collection from the backend.
func (h *DashboardHandler) HandleRefresh(c *fiber.Ctx) error {
	status := fiber.StatusOK
	if err := h.refresh(c.UserContext()); err != nil {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(h.listView(c.Query("search")))
}

// HandleDetails returns one product fetched from the backend.
func (h *DashboardHandler) HandleDetails(c *fiber.Ctx) error {
	product, err := h.store.Details(c.UserContext(), c.Params("uuid"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(h.productView(*product))
}

// HandleAdd creates a product from the add dialog form.
func (h *DashboardHandler) HandleAdd(c *fiber.Ctx) error {
	buf := forms.NewAddBuffer()
	if err := fillBuffer(c, buf); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid multipart form",
			"error":   err.Error(),
		})
	}

	product, err := h.store.Add(c.UserContext(), buf)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.productView(*product))
}

// HandleEdit updates a product from the edit dialog form. Fields left out of
// the form keep the value currently stored by the backend, including the image.
func (h *DashboardHandler) HandleEdit(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	existing, err := h.store.Details(c.UserContext(), uuid)
	if err != nil {
		return h.errorResponse(c, err)
	}

	buf := forms.NewEditBuffer(*existing)
	if err := fillBuffer(c, buf); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid multipart form",
			"error":   err.Error(),
		})
	}

	product, err := h.store.Edit(c.UserContext(), uuid, buf)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(h.productView(*product))
}

// HandleRemove deletes a product.
func (h *DashboardHandler) HandleRemove(c *fiber.Ctx) error {
	if err := h.store.Remove(c.UserContext(), c.Params("uuid")); err != nil {
		return h.errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleNotifications returns the recent notifications.
func (h *DashboardHandler) HandleNotifications(c *fiber.Ctx) error {
	return c.JSON(h.feed.Recent())
}

func (h *DashboardHandler) refresh(ctx context.Context) error {
	err := h.store.Refresh(ctx)
	if errors.Is(err, services.ErrSuperseded) {
		return nil
	}
	return err
}

func (h *DashboardHandler) listView(search string) ListView {
	snapshot := h.store.Snapshot()
	filtered := services.FilterProducts(snapshot.Products, search)

	view := ListView{
		Status:   string(snapshot.Status),
		Error:    snapshot.Error,
		Search:   search,
		Total:    len(snapshot.Products),
		Busy:     snapshot.Busy,
		Products: make([]ProductView, 0, len(filtered)),
	}
	for _, p := range filtered {
		view.Products = append(view.Products, h.productView(p))
	}
	if len(filtered) == 0 {
		view.EmptyMessage = emptyCatalogMessage
		if search != "" {
			view.EmptyMessage = emptySearchMessage
		}
	}
	return view
}

func (h *DashboardHandler) productView(p models.Product) ProductView {
	return ProductView{
		UUID:        p.UUID,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		ImageURL:    p.ImageURL(h.mediaURL),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (h *DashboardHandler) errorResponse(c *fiber.Ctx, err error) error {
	var (
		validationErr *client.ValidationError
		notFoundErr   *client.NotFoundError
	)
	switch {
	case errors.Is(err, forms.ErrValidation), errors.Is(err, services.ErrMissingUUID):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, services.ErrMutationInFlight):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": validationErr.Message})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
	}
	h.logger.Warn("dashboard request failed", zap.Error(err))
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"message": "Catalog backend request failed",
		"error":   err.Error(),
	})
}

// fillBuffer copies the submitted multipart fields into buf. Absent fields are left untouched.
func fillBuffer(c *fiber.Ctx, buf *forms.Buffer) error {
	form, err := c.MultipartForm()
	if err != nil {
		return err
	}
	if values, ok := form.Value["name"]; ok {
		buf.SetName(firstValue(values))
	}
	if values, ok := form.Value["description"]; ok {
		buf.SetDescription(firstValue(values))
	}
	if files := form.File["image"]; len(files) > 0 {
		content, err := readFile(files[0])
		if err != nil {
			return err
		}
		buf.SelectFile(files[0].Filename, content)
	}
	return nil
}
