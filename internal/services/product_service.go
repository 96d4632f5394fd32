package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"productdash/internal/models"
	"productdash/internal/repositories"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrInvalidProduct is returned when product fields fail validation.
var ErrInvalidProduct = errors.New("invalid product")

// EventPublisher publishes product change events.
type EventPublisher interface {
	PublishProductEvent(event models.ProductEvent) error
}

// ProductInput carries the fields of a create or update request. Empty fields
// of an update keep their stored value.
type ProductInput struct {
	Name          string
	Description   string
	ImageFileName string
	ImageContent  []byte
}

func (in ProductInput) hasImage() bool {
	return in.ImageFileName != "" && len(in.ImageContent) > 0
}

// ProductService handles the catalog backend business logic.
type ProductService struct {
	repo     repositories.ProductRepository
	images   repositories.ImageStore
	events   EventPublisher
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProductService creates a new ProductService. events may be nil.
func NewProductService(repo repositories.ProductRepository, images repositories.ImageStore, events EventPublisher, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		repo:     repo,
		images:   images,
		events:   events,
		validate: validator.New(),
		logger:   logger,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProduct retrieves a single product by uuid.
func (s *ProductService) GetProduct(uuid string) (*models.Product, error) {
	return s.repo.GetByUUID(uuid)
}

// CreateProduct validates input, stores the optional image and creates the product.
func (s *ProductService) CreateProduct(input ProductInput) (*models.Product, error) {
	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
	}
	if err := s.validateProduct(product); err != nil {
		return nil, err
	}

	if input.hasImage() {
		path, err := s.images.Save(input.ImageFileName, input.ImageContent)
		if err != nil {
			return nil, err
		}
		product.Image = path
	}

	if err := s.repo.Create(product); err != nil {
		s.discardImage(product.Image)
		return nil, err
	}

	s.publish(models.ProductCreated, product.UUID)
	return product, nil
}

// UpdateProduct applies input to the product identified by uuid and bumps its version.
func (s *ProductService) UpdateProduct(uuid string, input ProductInput) (*models.Product, error) {
	product, err := s.repo.GetByUUID(uuid)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		product.Name = input.Name
	}
	if input.Description != "" {
		product.Description = input.Description
	}
	if err := s.validateProduct(product); err != nil {
		return nil, err
	}

	previousImage := product.Image
	if input.hasImage() {
		path, err := s.images.Save(input.ImageFileName, input.ImageContent)
		if err != nil {
			return nil, err
		}
		product.Image = path
	}
	product.Version++
	product.UpdatedAt = time.Now()

	if err := s.repo.Update(product); err != nil {
		if product.Image != previousImage {
			s.discardImage(product.Image)
		}
		return nil, err
	}

	if previousImage != product.Image {
		if err := s.images.Delete(previousImage); err != nil {
			s.logger.Warn("failed to delete replaced image", zap.String("image", previousImage), zap.Error(err))
		}
	}

	s.publish(models.ProductUpdated, product.UUID)
	return product, nil
}

// DeleteProduct deletes the product identified by uuid together with its image.
func (s *ProductService) DeleteProduct(uuid string) error {
	product, err := s.repo.GetByUUID(uuid)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByUUID(uuid); err != nil {
		return err
	}
	if err := s.images.Delete(product.Image); err != nil {
		s.logger.Warn("failed to delete product image", zap.String("image", product.Image), zap.Error(err))
	}

	s.publish(models.ProductDeleted, uuid)
	return nil
}

func (s *ProductService) validateProduct(product *models.Product) error {
	err := s.validate.Struct(product)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("failed to validate product: %w", err)
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, fmt.Sprintf("Field '%s' failed on the '%s' tag", strings.ToLower(e.Field()), e.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidProduct, strings.Join(messages, "; "))
}

// discardImage removes an image saved for a write that did not persist.
func (s *ProductService) discardImage(path string) {
	if path == "" {
		return
	}
	if err := s.images.Delete(path); err != nil {
		s.logger.Warn("failed to discard unsaved image", zap.String("image", path), zap.Error(err))
	}
}

func (s *ProductService) publish(eventType, uuid string) {
	if s.events == nil {
		return
	}
	event := models.ProductEvent{Type: eventType, UUID: uuid, OccurredAt: time.Now()}
	if err := s.events.PublishProductEvent(event); err != nil {
		s.logger.Warn("failed to publish product event",
			zap.String("type", eventType),
			zap.String("uuid", uuid),
			zap.Error(err),
		)
	}
}
