package services_test

import (
	"context"

	"productdash/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockProductAPI is a mock implementation of services.ProductAPI
type MockProductAPI struct {
	mock.Mock
}

func (m *MockProductAPI) ListProducts(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductAPI) GetProduct(ctx context.Context, uuid string) (*models.Product, error) {
	args := m.Called(ctx, uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductAPI) CreateProduct(ctx context.Context, form models.ProductForm) (*models.Product, error) {
	args := m.Called(ctx, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductAPI) UpdateProduct(ctx context.Context, uuid string, form models.ProductForm) (*models.Product, error) {
	args := m.Called(ctx, uuid, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductAPI) DeleteProduct(ctx context.Context, uuid string) error {
	args := m.Called(ctx, uuid)
	return args.Error(0)
}
