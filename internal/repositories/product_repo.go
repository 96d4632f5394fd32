package repositories

import (
	"errors"

	"productdash/internal/models"
)

// ErrProductNotFound is returned when no product has the requested uuid.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByUUID(uuid string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	DeleteByUUID(uuid string) error
}
