package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/google/uuid"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store using in-memory slices.
// Transactions are serialized and applied to a copy of the state,
// which replaces the current state only when fn succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

// NewMemoryStore creates a new, empty instance of Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{}}
}

// InTx runs fn against a snapshot of the store and commits it on success.
func (m *MemoryStore) InTx(_ context.Context, fn func(q Queries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(snapshot); err != nil {
		return err
	}
	m.state = snapshot
	return nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, username, apiKey string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateUser(ctx, username, apiKey)
}

func (m *MemoryStore) FindUserByAPIKey(ctx context.Context, apiKey string) (*db.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindUserByAPIKey(ctx, apiKey)
}

func (m *MemoryStore) CreateProduct(ctx context.Context, params *db.CreateProductParams) (*db.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateProduct(ctx, params)
}

func (m *MemoryStore) FindProductByID(ctx context.Context, id uuid.UUID) (*db.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindProductByID(ctx, id)
}

func (m *MemoryStore) FindProducts(ctx context.Context) ([]db.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindProducts(ctx)
}

func (m *MemoryStore) LockProducts(ctx context.Context, ids []uuid.UUID) ([]db.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.LockProducts(ctx, ids)
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, params *db.UpdateProductParams) (*db.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateProduct(ctx, params)
}

func (m *MemoryStore) DecrementStock(ctx context.Context, id uuid.UUID, quantity int32) (*db.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DecrementStock(ctx, id, quantity)
}

func (m *MemoryStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DeleteProduct(ctx, id)
}

func (m *MemoryStore) CreateCheckout(ctx context.Context, userID uuid.UUID) (*db.Checkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateCheckout(ctx, userID)
}

func (m *MemoryStore) FindActiveCheckout(ctx context.Context, userID uuid.UUID) (*db.Checkout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindActiveCheckout(ctx, userID)
}

func (m *MemoryStore) CompleteCheckout(ctx context.Context, id uuid.UUID) (*db.Checkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CompleteCheckout(ctx, id)
}

func (m *MemoryStore) FindCheckoutItems(ctx context.Context, checkoutID uuid.UUID) ([]db.CheckoutItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.FindCheckoutItems(ctx, checkoutID)
}

func (m *MemoryStore) CreateCheckoutItem(ctx context.Context, params *db.CreateCheckoutItemParams) (*db.CheckoutItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateCheckoutItem(ctx, params)
}

func (m *MemoryStore) UpdateCheckoutItem(ctx context.Context, params *db.UpdateCheckoutItemQuantityParams) (*db.CheckoutItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateCheckoutItem(ctx, params)
}

func (m *MemoryStore) DeleteCheckoutItem(ctx context.Context, checkoutID, productID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DeleteCheckoutItem(ctx, checkoutID, productID)
}

// memState holds the rows in insertion order. It is not safe for concurrent use.
type memState struct {
	users     []db.User
	products  []db.Product
	checkouts []db.Checkout
	items     []db.CheckoutItem
	itemSeq   int64
}

func (s *memState) clone() *memState {
	return &memState{
		users:     slices.Clone(s.users),
		products:  slices.Clone(s.products),
		checkouts: slices.Clone(s.checkouts),
		items:     slices.Clone(s.items),
		itemSeq:   s.itemSeq,
	}
}

func now() *time.Time {
	t := time.Now().UTC()
	return &t
}

func (s *memState) CreateUser(_ context.Context, username, apiKey string) (*db.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return nil, sferrors.ErrUsernameTaken
		}
	}
	user := db.User{ID: uuid.New(), Username: username, ApiKey: apiKey, CreatedAt: now()}
	s.users = append(s.users, user)
	return &user, nil
}

func (s *memState) FindUserByAPIKey(_ context.Context, apiKey string) (*db.User, error) {
	for _, u := range s.users {
		if u.ApiKey == apiKey {
			return &u, nil
		}
	}
	return nil, sferrors.ErrUserNotFound
}

func (s *memState) CreateProduct(_ context.Context, params *db.CreateProductParams) (*db.Product, error) {
	ts := now()
	product := db.Product{
		ID:        uuid.New(),
		UserID:    params.UserID,
		Name:      params.Name,
		Price:     params.Price,
		Quantity:  params.Quantity,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	s.products = append(s.products, product)
	return &product, nil
}

func (s *memState) productIndex(id uuid.UUID) int {
	return slices.IndexFunc(s.products, func(p db.Product) bool { return p.ID == id })
}

func (s *memState) FindProductByID(_ context.Context, id uuid.UUID) (*db.Product, error) {
	i := s.productIndex(id)
	if i < 0 {
		return nil, sferrors.ErrProductNotFound
	}
	product := s.products[i]
	return &product, nil
}

func (s *memState) FindProducts(_ context.Context) ([]db.Product, error) {
	return append([]db.Product{}, s.products...), nil
}

func (s *memState) LockProducts(_ context.Context, ids []uuid.UUID) ([]db.Product, error) {
	products := make([]db.Product, 0, len(ids))
	for _, p := range s.products {
		if slices.Contains(ids, p.ID) {
			products = append(products, p)
		}
	}
	slices.SortFunc(products, func(a, b db.Product) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return products, nil
}

func (s *memState) UpdateProduct(_ context.Context, params *db.UpdateProductParams) (*db.Product, error) {
	i := s.productIndex(params.ID)
	if i < 0 {
		return nil, sferrors.ErrProductNotFound
	}
	s.products[i].Name = params.Name
	s.products[i].Price = params.Price
	s.products[i].Quantity = params.Quantity
	s.products[i].UpdatedAt = now()
	product := s.products[i]
	return &product, nil
}

func (s *memState) DecrementStock(_ context.Context, id uuid.UUID, quantity int32) (*db.Product, error) {
	i := s.productIndex(id)
	if i < 0 || s.products[i].Quantity < quantity {
		return nil, sferrors.ErrInsufficientStock
	}
	s.products[i].Quantity -= quantity
	s.products[i].UpdatedAt = now()
	product := s.products[i]
	return &product, nil
}

func (s *memState) DeleteProduct(_ context.Context, id uuid.UUID) error {
	i := s.productIndex(id)
	if i < 0 {
		return sferrors.ErrProductNotFound
	}
	if slices.ContainsFunc(s.items, func(it db.CheckoutItem) bool { return it.ProductID == id }) {
		return sferrors.ErrProductInUse
	}
	s.products = slices.Delete(s.products, i, i+1)
	return nil
}

func (s *memState) CreateCheckout(_ context.Context, userID uuid.UUID) (*db.Checkout, error) {
	if slices.ContainsFunc(s.checkouts, func(c db.Checkout) bool { return c.UserID == userID && !c.Completed }) {
		return nil, sferrors.ErrActiveCheckoutExists
	}
	checkout := db.Checkout{ID: uuid.New(), UserID: userID, CreatedAt: now()}
	s.checkouts = append(s.checkouts, checkout)
	return &checkout, nil
}

func (s *memState) FindActiveCheckout(_ context.Context, userID uuid.UUID) (*db.Checkout, error) {
	for _, c := range s.checkouts {
		if c.UserID == userID && !c.Completed {
			return &c, nil
		}
	}
	return nil, sferrors.ErrCheckoutNotFound
}

func (s *memState) CompleteCheckout(_ context.Context, id uuid.UUID) (*db.Checkout, error) {
	i := slices.IndexFunc(s.checkouts, func(c db.Checkout) bool { return c.ID == id && !c.Completed })
	if i < 0 {
		return nil, sferrors.ErrCheckoutNotFound
	}
	s.checkouts[i].Completed = true
	s.checkouts[i].CompletedAt = now()
	checkout := s.checkouts[i]
	return &checkout, nil
}

func (s *memState) FindCheckoutItems(_ context.Context, checkoutID uuid.UUID) ([]db.CheckoutItem, error) {
	items := []db.CheckoutItem{}
	for _, it := range s.items {
		if it.CheckoutID == checkoutID {
			items = append(items, it)
		}
	}
	return items, nil
}

func (s *memState) itemIndex(checkoutID, productID uuid.UUID) int {
	return slices.IndexFunc(s.items, func(it db.CheckoutItem) bool {
		return it.CheckoutID == checkoutID && it.ProductID == productID
	})
}

func (s *memState) CreateCheckoutItem(_ context.Context, params *db.CreateCheckoutItemParams) (*db.CheckoutItem, error) {
	if s.itemIndex(params.CheckoutID, params.ProductID) >= 0 {
		return nil, sferrors.ErrCheckoutItemExists
	}
	if s.productIndex(params.ProductID) < 0 {
		return nil, sferrors.ErrProductNotFound
	}
	s.itemSeq++
	item := db.CheckoutItem{
		ID:         uuid.New(),
		Seq:        s.itemSeq,
		CheckoutID: params.CheckoutID,
		ProductID:  params.ProductID,
		Quantity:   params.Quantity,
		CreatedAt:  now(),
	}
	s.items = append(s.items, item)
	return &item, nil
}

func (s *memState) UpdateCheckoutItem(_ context.Context, params *db.UpdateCheckoutItemQuantityParams) (*db.CheckoutItem, error) {
	i := s.itemIndex(params.CheckoutID, params.ProductID)
	if i < 0 {
		return nil, sferrors.ErrCheckoutItemNotFound
	}
	s.items[i].Quantity = params.Quantity
	item := s.items[i]
	return &item, nil
}

func (s *memState) DeleteCheckoutItem(_ context.Context, checkoutID, productID uuid.UUID) error {
	i := s.itemIndex(checkoutID, productID)
	if i < 0 {
		return sferrors.ErrCheckoutItemNotFound
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}
