package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"productdash/internal/client"
	"productdash/internal/forms"
	"productdash/internal/models"
	"productdash/internal/notify"

	"go.uber.org/zap"
)

var (
	// ErrSuperseded is returned by a refresh whose result was discarded because a newer refresh was issued.
	ErrSuperseded = errors.New("refresh superseded by a newer request")
	// ErrMutationInFlight is returned when the same mutation is submitted again before the first one finished.
	ErrMutationInFlight = errors.New("a request for this product is already in progress")
	// ErrMissingUUID is returned when a product operation is addressed without a uuid.
	ErrMissingUUID = errors.New("product uuid is required")
)

// User facing notification messages.
const (
	msgLoadFailed     = "Failed to load products"
	msgDetailsFailed  = "Failed to load product"
	msgRequiredFields = "Please fill in all required fields"
	msgAdded          = "Product added successfully"
	msgAddFailed      = "Failed to add product"
	msgUpdated        = "Product updated successfully"
	msgUpdateFailed   = "Failed to update product"
	msgDeleted        = "Product deleted successfully"
	msgDeleteFailed   = "Failed to delete product"
)

// ProductAPI is the backend the store synchronizes with.
type ProductAPI interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, uuid string) (*models.Product, error)
	CreateProduct(ctx context.Context, form models.ProductForm) (*models.Product, error)
	UpdateProduct(ctx context.Context, uuid string, form models.ProductForm) (*models.Product, error)
	DeleteProduct(ctx context.Context, uuid string) error
}

// Status is the state of the product collection.
type Status string

const (
	// StatusIdle means the collection has never been loaded.
	StatusIdle Status = "idle"
	// StatusLoading means a refresh is in flight.
	StatusLoading Status = "loading"
	// StatusReady means the last current refresh succeeded.
	StatusReady Status = "ready"
	// StatusErrored means the last current refresh failed. The previous collection is kept.
	StatusErrored Status = "errored"
)

// StoreSnapshot is a point-in-time copy of the store state.
type StoreSnapshot struct {
	Status   Status
	Error    string
	Products []models.Product
	Busy     bool
}

// ProductStore holds the client-side product collection and keeps it in sync
// with the backend. Every successful mutation is followed by a full refetch.
type ProductStore struct {
	api      ProductAPI
	notifier notify.Notifier
	logger   *zap.Logger

	mu         sync.RWMutex
	products   []models.Product
	status     Status
	errMsg     string
	generation uint64
	inflight   map[string]struct{}
}

// NewProductStore creates a new ProductStore.
func NewProductStore(api ProductAPI, notifier notify.Notifier, logger *zap.Logger) *ProductStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	return &ProductStore{
		api:      api,
		notifier: notifier,
		logger:   logger,
		status:   StatusIdle,
		inflight: make(map[string]struct{}),
	}
}

// Refresh reloads the whole collection. Only the latest issued refresh may
// apply its result; older ones return ErrSuperseded. On failure the previous
// collection stays visible and the store moves to StatusErrored.
func (s *ProductStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.status = StatusLoading
	s.mu.Unlock()

	products, err := s.api.ListProducts(ctx)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded refresh", zap.Uint64("generation", gen))
		return ErrSuperseded
	}
	if err != nil {
		s.status = StatusErrored
		s.errMsg = msgLoadFailed
		s.mu.Unlock()

		s.logger.Error("failed to refresh products", zap.Error(err))
		s.notifier.Notify(notify.New(notify.LevelError, msgLoadFailed))
		return fmt.Errorf("failed to refresh products: %w", err)
	}
	s.products = products
	s.status = StatusReady
	s.errMsg = ""
	s.mu.Unlock()

	s.logger.Debug("products refreshed", zap.Int("count", len(products)))
	return nil
}

// Add validates buf, creates the product, refreshes the collection and resets buf.
func (s *ProductStore) Add(ctx context.Context, buf *forms.Buffer) (*models.Product, error) {
	form := buf.Form()
	if err := forms.ValidateForm(form); err != nil {
		s.notifier.Notify(notify.New(notify.LevelError, msgRequiredFields))
		return nil, err
	}

	const key = "add"
	if !s.begin(key) {
		return nil, ErrMutationInFlight
	}
	defer s.end(key)

	product, err := s.api.CreateProduct(ctx, form)
	if err != nil {
		s.logger.Error("failed to add product", zap.Error(err))
		s.notifyFailure(err, msgAddFailed)
		return nil, fmt.Errorf("failed to add product: %w", err)
	}

	s.refreshAfterMutation(ctx)
	buf.Reset()
	s.notifier.Notify(notify.New(notify.LevelSuccess, msgAdded))
	return product, nil
}

// Edit validates buf, updates the product identified by uuid, refreshes the
// collection and resets buf.
func (s *ProductStore) Edit(ctx context.Context, uuid string, buf *forms.Buffer) (*models.Product, error) {
	if uuid == "" {
		return nil, ErrMissingUUID
	}
	form := buf.Form()
	if err := forms.ValidateForm(form); err != nil {
		s.notifier.Notify(notify.New(notify.LevelError, msgRequiredFields))
		return nil, err
	}

	key := "edit:" + uuid
	if !s.begin(key) {
		return nil, ErrMutationInFlight
	}
	defer s.end(key)

	product, err := s.api.UpdateProduct(ctx, uuid, form)
	if err != nil {
		s.logger.Error("failed to update product", zap.String("uuid", uuid), zap.Error(err))
		s.notifyFailure(err, msgUpdateFailed)
		return nil, fmt.Errorf("failed to update product %s: %w", uuid, err)
	}

	s.refreshAfterMutation(ctx)
	buf.Reset()
	s.notifier.Notify(notify.New(notify.LevelSuccess, msgUpdated))
	return product, nil
}

// Remove deletes the product identified by uuid and refreshes the collection
// whatever the delete outcome was. The delete error is returned.
func (s *ProductStore) Remove(ctx context.Context, uuid string) error {
	if uuid == "" {
		return ErrMissingUUID
	}

	key := "remove:" + uuid
	if !s.begin(key) {
		return ErrMutationInFlight
	}
	defer s.end(key)

	err := s.api.DeleteProduct(ctx, uuid)
	if err != nil {
		s.logger.Error("failed to delete product", zap.String("uuid", uuid), zap.Error(err))
		s.notifier.Notify(notify.New(notify.LevelError, msgDeleteFailed))
	} else {
		s.notifier.Notify(notify.New(notify.LevelSuccess, msgDeleted))
	}

	s.refreshAfterMutation(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", uuid, err)
	}
	return nil
}

// Details fetches a single product for the details view.
func (s *ProductStore) Details(ctx context.Context, uuid string) (*models.Product, error) {
	if uuid == "" {
		return nil, ErrMissingUUID
	}
	product, err := s.api.GetProduct(ctx, uuid)
	if err != nil {
		s.logger.Error("failed to load product", zap.String("uuid", uuid), zap.Error(err))
		s.notifier.Notify(notify.New(notify.LevelError, msgDetailsFailed))
		return nil, fmt.Errorf("failed to load product %s: %w", uuid, err)
	}
	return product, nil
}

// OnProductEvent refreshes the collection after a backend change event.
func (s *ProductStore) OnProductEvent(ctx context.Context, event models.ProductEvent) error {
	s.logger.Debug("product event received", zap.String("type", event.Type), zap.String("uuid", event.UUID))
	if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return err
	}
	return nil
}

// Filter returns the stored products matching term. The stored collection is not modified.
func (s *ProductStore) Filter(term string) []models.Product {
	return FilterProducts(s.Snapshot().Products, term)
}

// Snapshot returns a copy of the current state.
func (s *ProductStore) Snapshot() StoreSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var products []models.Product
	if s.products != nil {
		products = make([]models.Product, len(s.products))
		copy(products, s.products)
	}
	return StoreSnapshot{
		Status:   s.status,
		Error:    s.errMsg,
		Products: products,
		Busy:     len(s.inflight) > 0,
	}
}

// Busy reports whether a mutation is in flight.
func (s *ProductStore) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inflight) > 0
}

// FilterProducts returns the products whose name or description contains term,
// ignoring case, in their original order. An empty term returns products as is.
func FilterProducts(products []models.Product, term string) []models.Product {
	if term == "" {
		return products
	}
	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Matches(term) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func (s *ProductStore) refreshAfterMutation(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		s.logger.Warn("refresh after mutation failed", zap.Error(err))
	}
}

func (s *ProductStore) notifyFailure(err error, fallback string) {
	message := fallback
	var validationErr *client.ValidationError
	if errors.As(err, &validationErr) && validationErr.Message != "" {
		message = validationErr.Message
	}
	s.notifier.Notify(notify.New(notify.LevelError, message))
}

func (s *ProductStore) begin(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[key]; ok {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *ProductStore) end(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
}
