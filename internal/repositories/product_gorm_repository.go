package repositories

import (
	"errors"
	"fmt"

	"productdash/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all products, oldest first.
func (r *GORMProductRepository) GetAll() ([]models.Product, error) {
	products := []models.Product{}
	if err := r.db.Order("created_at asc").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByUUID retrieves a single product by its public uuid.
func (r *GORMProductRepository) GetByUUID(id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "uuid = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with uuid %s: %w", id, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product by uuid %s: %w", id, err)
	}
	return &product, nil
}

// Create stores a new product, assigning its identifiers when missing.
func (r *GORMProductRepository) Create(product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.UUID == "" {
		product.UUID = uuid.New().String()
	}
	if err := r.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update saves name, description, image and version of an existing product.
func (r *GORMProductRepository) Update(product *models.Product) error {
	res := r.db.Model(&models.Product{}).
		Where("uuid = ?", product.UUID).
		Updates(map[string]interface{}{
			"name":        product.Name,
			"description": product.Description,
			"image":       product.Image,
			"version":     product.Version,
			"updated_at":  product.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with uuid %s: %w", product.UUID, ErrProductNotFound)
	}
	return nil
}

// DeleteByUUID deletes a product by its public uuid.
func (r *GORMProductRepository) DeleteByUUID(id string) error {
	res := r.db.Delete(&models.Product{}, "uuid = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with uuid %s: %w", id, ErrProductNotFound)
	}
	return nil
}
