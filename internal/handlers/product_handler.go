package handlers

import (
	"errors"
	"io"
	"mime/multipart"

	"productdash/internal/repositories"
	"productdash/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler serves the catalog backend REST contract.
type ProductHandler struct {
	service *services.ProductService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:uuid", h.HandleGetProduct)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Patch("/:uuid", h.HandleUpdateProduct)
	productRoutes.Delete("/:uuid", h.HandleDeleteProduct)
}

// HandleGetProducts returns every product.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts()
	if err != nil {
		return h.handleServiceError(c, err, "retrieve products")
	}
	return c.JSON(products)
}

// HandleGetProduct returns one product by uuid.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(c.Params("uuid"))
	if err != nil {
		return h.handleServiceError(c, err, "retrieve product")
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a product from a multipart form.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	input, err := parseProductForm(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid multipart form",
			"error":   err.Error(),
		})
	}

	product, err := h.service.CreateProduct(input)
	if err != nil {
		return h.handleServiceError(c, err, "create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct patches a product from a multipart form.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	input, err := parseProductForm(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid multipart form",
			"error":   err.Error(),
		})
	}

	product, err := h.service.UpdateProduct(c.Params("uuid"), input)
	if err != nil {
		return h.handleServiceError(c, err, "update product")
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product by uuid.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.Params("uuid")); err != nil {
		return h.handleServiceError(c, err, "delete product")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleServiceError writes the HTTP error response matching err.
func (h *ProductHandler) handleServiceError(c *fiber.Ctx, err error, operation string) error {
	switch {
	case errors.Is(err, repositories.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Product not found",
		})
	case errors.Is(err, services.ErrInvalidProduct):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
	h.logger.Error("product request failed", zap.String("operation", operation), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Could not " + operation,
		"error":   err.Error(),
	})
}

// parseProductForm reads name, description and the optional image file.
func parseProductForm(c *fiber.Ctx) (services.ProductInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return services.ProductInput{}, err
	}

	input := services.ProductInput{
		Name:        firstValue(form.Value["name"]),
		Description: firstValue(form.Value["description"]),
	}
	if files := form.File["image"]; len(files) > 0 {
		content, err := readFile(files[0])
		if err != nil {
			return services.ProductInput{}, err
		}
		input.ImageFileName = files[0].Filename
		input.ImageContent = content
	}
	return input, nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
