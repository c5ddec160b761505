// Package store provides interfaces for storefront storage operations.
package store

import (
	"context"

	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/google/uuid"
)

// UserStore is an interface for user storage operations.
type UserStore interface {
	// CreateUser registers a new user with the given API key.
	// Returns ErrUsernameTaken if the username is already registered.
	CreateUser(ctx context.Context, username, apiKey string) (*db.User, error)

	// FindUserByAPIKey resolves an API key to its owner.
	// Returns ErrUserNotFound if no user holds the key.
	FindUserByAPIKey(ctx context.Context, apiKey string) (*db.User, error)
}

// ProductStore is an interface for product storage operations.
type ProductStore interface {
	// CreateProduct adds a new product to the catalog.
	CreateProduct(ctx context.Context, params *db.CreateProductParams) (*db.Product, error)

	// FindProductByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindProductByID(ctx context.Context, id uuid.UUID) (*db.Product, error)

	// FindProducts returns all products ordered by creation time.
	// Returns an empty slice if no products exist.
	FindProducts(ctx context.Context) ([]db.Product, error)

	// LockProducts returns the products with the given IDs, locked for update
	// until the surrounding transaction ends. Missing IDs are silently skipped.
	LockProducts(ctx context.Context, ids []uuid.UUID) ([]db.Product, error)

	// UpdateProduct overwrites name, price and quantity of an existing product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	UpdateProduct(ctx context.Context, params *db.UpdateProductParams) (*db.Product, error)

	// DecrementStock subtracts quantity from the product's stock.
	// Returns ErrInsufficientStock if the stock would become negative.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int32) (*db.Product, error)

	// DeleteProduct removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID
	// and ErrProductInUse if a checkout line still references it.
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// CheckoutStore is an interface for checkout storage operations.
type CheckoutStore interface {
	// CreateCheckout opens a new active checkout for the user.
	// Returns ErrActiveCheckoutExists if the user already has one.
	CreateCheckout(ctx context.Context, userID uuid.UUID) (*db.Checkout, error)

	// FindActiveCheckout returns the user's incomplete checkout.
	// Returns ErrCheckoutNotFound if there is none.
	FindActiveCheckout(ctx context.Context, userID uuid.UUID) (*db.Checkout, error)

	// CompleteCheckout marks an active checkout as completed.
	// Returns ErrCheckoutNotFound if the checkout is missing or already completed.
	CompleteCheckout(ctx context.Context, id uuid.UUID) (*db.Checkout, error)

	// FindCheckoutItems returns the lines of a checkout in insertion order.
	FindCheckoutItems(ctx context.Context, checkoutID uuid.UUID) ([]db.CheckoutItem, error)

	// CreateCheckoutItem adds a line to a checkout.
	// Returns ErrCheckoutItemExists if the product is already in the checkout.
	CreateCheckoutItem(ctx context.Context, params *db.CreateCheckoutItemParams) (*db.CheckoutItem, error)

	// UpdateCheckoutItem replaces the quantity of an existing line.
	// Returns ErrCheckoutItemNotFound if the line does not exist.
	UpdateCheckoutItem(ctx context.Context, params *db.UpdateCheckoutItemQuantityParams) (*db.CheckoutItem, error)

	// DeleteCheckoutItem removes a line from a checkout.
	// Returns ErrCheckoutItemNotFound if the line does not exist.
	DeleteCheckoutItem(ctx context.Context, checkoutID, productID uuid.UUID) error
}

// Queries is the full set of storage operations. Implementations are either
// bound to a connection pool or to a single open transaction.
type Queries interface {
	UserStore
	ProductStore
	CheckoutStore
}

// Store exposes Queries outside of a transaction and InTx for units of work
// that must commit or roll back as a whole.
type Store interface {
	Queries

	// InTx runs fn inside a single transaction. The transaction is committed
	// if fn returns nil and rolled back otherwise; fn's error is returned as is.
	InTx(ctx context.Context, fn func(q Queries) error) error
}
