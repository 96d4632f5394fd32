package models

import "time"

// Product event types published by the catalog backend.
const (
	ProductCreated = "product.created"
	ProductUpdated = "product.updated"
	ProductDeleted = "product.deleted"
)

// ProductEvent notifies subscribers that a product changed.
type ProductEvent struct {
	Type       string    `json:"type"`
	UUID       string    `json:"uuid"`
	OccurredAt time.Time `json:"occurred_at"`
}
