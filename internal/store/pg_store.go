package store

import (
	"context"
	"errors"
	"fmt"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	usernameConstraint = "users_username_key"
)

var _ Store = (*PgStore)(nil)

// PgStore implements Store using PostgreSQL as the data store.
type PgStore struct {
	pgQueries
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of Store using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{
		pgQueries: pgQueries{q: db.New(dbp)},
		db:        dbp,
	}
}

// InTx runs fn inside a single database transaction.
func (p *PgStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	return p.withTransaction(ctx, func(qtx *db.Queries) error {
		return fn(&pgQueries{q: qtx})
	})
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(qtx *db.Queries) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return sferrors.ErrTransactionBegin
	}
	qtx := p.q.WithTx(tx)

	err = fn(qtx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return sferrors.ErrTransactionRollback
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return sferrors.ErrTransactionCommit
	}

	return nil
}

// pgQueries implements Queries on top of the generated queries, either
// pool-bound or transaction-bound.
type pgQueries struct {
	q *db.Queries
}

func (p *pgQueries) CreateUser(ctx context.Context, username, apiKey string) (*db.User, error) {
	user, err := p.q.CreateUser(ctx, db.CreateUserParams{Username: username, ApiKey: apiKey})
	if err != nil {
		if pgErr, ok := asPgError(err); ok && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == usernameConstraint {
			return nil, sferrors.ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func (p *pgQueries) FindUserByAPIKey(ctx context.Context, apiKey string) (*db.User, error) {
	user, err := p.q.FindUserByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sferrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by api key: %w", err)
	}
	return &user, nil
}

func (p *pgQueries) CreateProduct(ctx context.Context, params *db.CreateProductParams) (*db.Product, error) {
	product, err := p.q.CreateProduct(ctx, *params)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

func (p *pgQueries) FindProductByID(ctx context.Context, id uuid.UUID) (*db.Product, error) {
	product, err := p.q.FindProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sferrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return &product, nil
}

func (p *pgQueries) FindProducts(ctx context.Context) ([]db.Product, error) {
	products, err := p.q.FindProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	if products == nil {
		products = []db.Product{}
	}
	return products, nil
}

func (p *pgQueries) LockProducts(ctx context.Context, ids []uuid.UUID) ([]db.Product, error) {
	products, err := p.q.LockProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	return products, nil
}

func (p *pgQueries) UpdateProduct(ctx context.Context, params *db.UpdateProductParams) (*db.Product, error) {
	product, err := p.q.UpdateProduct(ctx, *params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sferrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &product, nil
}

func (p *pgQueries) DecrementStock(ctx context.Context, id uuid.UUID, quantity int32) (*db.Product, error) {
	product, err := p.q.DecrementProductQuantity(ctx, db.DecrementProductQuantityParams{ID: id, Quantity: quantity})
	if err != nil {
		// the guarded update matches no row when stock is short or the product is gone
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sferrors.ErrInsufficientStock
		}
		return nil, fmt.Errorf("failed to decrement product stock: %w", err)
	}
	return &product, nil
}

func (p *pgQueries) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	count, err := p.q.DeleteProduct(ctx, id)
	if err != nil {
		if pgErr, ok := asPgError(err); ok && pgErr.Code == pgForeignKeyViolation {
			return sferrors.ErrProductInUse
		}
		return fmt.Errorf("failed to delete product by ID: %w", err)
	}
	if count == 0 {
		return sferrors.ErrProductNotFound
	}
	return nil
}

func (p *pgQueries) CreateCheckout(ctx context.Context, userID uuid.UUID) (*db.Checkout, error) {
	checkout, err := p.q.CreateCheckout(ctx, userID)
	if err != nil {
		if pgErr, ok := asPgError(err); ok && pgErr.Code == pgUniqueViolation {
			return nil, sferrors.ErrActiveCheckoutExists
		}
		return nil, fmt.Errorf("failed to create checkout: %w", err)
	}
	return &checkout, nil
}

func (p *pgQueries) FindActiveCheckout(ctx context.Context, userID uuid.UUID) (*db.Checkout, error) {
	checkout, err := p.q.FindActiveCheckoutByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sferrors.ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("failed to find active checkout: %w", err)
	}
	return &checkout, nil
}

func (p *pgQueries) CompleteCheckout(ctx context.Context, id uuid.UUID) (*db.Checkout, error) {
	checkout, err := p.q.MarkCheckoutCompleted(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sferrors.ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("failed to complete checkout: %w", err)
	}
	return &checkout, nil
}

func (p *pgQueries) FindCheckoutItems(ctx context.Context, checkoutID uuid.UUID) ([]db.CheckoutItem, error) {
	items, err := p.q.FindCheckoutItems(ctx, checkoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to find checkout items: %w", err)
	}
	if items == nil {
		items = []db.CheckoutItem{}
	}
	return items, nil
}

func (p *pgQueries) CreateCheckoutItem(ctx context.Context, params *db.CreateCheckoutItemParams) (*db.CheckoutItem, error) {
	item, err := p.q.CreateCheckoutItem(ctx, *params)
	if err != nil {
		if pgErr, ok := asPgError(err); ok {
			switch pgErr.Code {
			case pgUniqueViolation:
				return nil, sferrors.ErrCheckoutItemExists
			case pgForeignKeyViolation:
				return nil, sferrors.ErrProductNotFound
			}
		}
		return nil, fmt.Errorf("failed to create checkout item: %w", err)
	}
	return &item, nil
}

func (p *pgQueries) UpdateCheckoutItem(ctx context.Context, params *db.UpdateCheckoutItemQuantityParams) (*db.CheckoutItem, error) {
	item, err := p.q.UpdateCheckoutItemQuantity(ctx, *params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sferrors.ErrCheckoutItemNotFound
		}
		return nil, fmt.Errorf("failed to update checkout item: %w", err)
	}
	return &item, nil
}

func (p *pgQueries) DeleteCheckoutItem(ctx context.Context, checkoutID, productID uuid.UUID) error {
	count, err := p.q.DeleteCheckoutItem(ctx, db.DeleteCheckoutItemParams{CheckoutID: checkoutID, ProductID: productID})
	if err != nil {
		return fmt.Errorf("failed to delete checkout item: %w", err)
	}
	if count == 0 {
		return sferrors.ErrCheckoutItemNotFound
	}
	return nil
}

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
