package models

import (
	"strings"
	"time"
)

// PlaceholderImage is shown when a product has no image.
const PlaceholderImage = "/placeholder.svg"

// Product represents a product record owned by the catalog backend.
type Product struct {
	ID          string    `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	UUID        string    `json:"uuid" gorm:"uniqueIndex;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(255)" validate:"required,max=255"`
	Description string    `json:"description" gorm:"type:text" validate:"required,max=2000"`
	Image       string    `json:"image" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Version     int       `json:"__v" gorm:"column:version;not null;default:0"`
}

// ImageURL composes the display URL of a product image under mediaBaseURL,
// falling back to PlaceholderImage when the product has none.
func (p Product) ImageURL(mediaBaseURL string) string {
	if p.Image == "" {
		return PlaceholderImage
	}
	return mediaBaseURL + p.Image
}

// Matches reports whether name or description contains term, ignoring case.
// An empty term matches every product.
func (p Product) Matches(term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term)
}
