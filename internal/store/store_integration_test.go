package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "STOREFRONT_SKIP_INTEGRATION_TESTS"

// PgStoreSuite is a test suite for the PgStore implementation.
type PgStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       *PgStore
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite starts a PostgreSQL container and applies the migrations.
func (s *PgStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("storefront_db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	wd, _ := os.Getwd()
	sourceURL := "file://" + filepath.Join(wd, "../../migrations")
	m, err := migrate.New(sourceURL, connStr)
	require.NoError(s.T(), err, "Failed to create migrate instance")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_, _ = m.Close()
		require.NoError(s.T(), err, "Failed to apply migrations")
	}

	s.store = NewPgStore(s.dbPool)
}

// TearDownSuite closes the pool and terminates the container.
func (s *PgStoreSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		}
	}
}

// SetupTest truncates all tables before each test.
func (s *PgStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE checkout_items, checkouts, products, users CASCADE")
	require.NoError(s.T(), err, "Failed to truncate tables")
}

func TestPgStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(PgStoreSuite))
}

func (s *PgStoreSuite) createUser(name string) *db.User {
	s.T().Helper()
	user, err := s.store.CreateUser(s.ctx, name, "key-"+name)
	require.NoError(s.T(), err)
	return user
}

func (s *PgStoreSuite) createProduct(owner uuid.UUID, quantity int32) *db.Product {
	s.T().Helper()
	product, err := s.store.CreateProduct(s.ctx, &db.CreateProductParams{
		UserID:   owner,
		Name:     "Monitor",
		Price:    decimal.RequireFromString("199.99"),
		Quantity: quantity,
	})
	require.NoError(s.T(), err)
	return product
}

func (s *PgStoreSuite) TestUsers() {
	user := s.createUser("alice")

	_, err := s.store.CreateUser(s.ctx, "alice", "another-key")
	s.ErrorIs(err, sferrors.ErrUsernameTaken)

	found, err := s.store.FindUserByAPIKey(s.ctx, "key-alice")
	s.Require().NoError(err)
	s.Equal(user.ID, found.ID)

	_, err = s.store.FindUserByAPIKey(s.ctx, "missing")
	s.ErrorIs(err, sferrors.ErrUserNotFound)
}

func (s *PgStoreSuite) TestProducts() {
	owner := s.createUser("owner")
	product := s.createProduct(owner.ID, 5)
	s.True(decimal.RequireFromString("199.99").Equal(product.Price))

	updated, err := s.store.UpdateProduct(s.ctx, &db.UpdateProductParams{
		ID:       product.ID,
		Name:     "Monitor 27",
		Price:    decimal.RequireFromString("249.50"),
		Quantity: 7,
	})
	s.Require().NoError(err)
	s.Equal("Monitor 27", updated.Name)
	s.Equal(int32(7), updated.Quantity)

	products, err := s.store.FindProducts(s.ctx)
	s.Require().NoError(err)
	s.Len(products, 1)

	_, err = s.store.UpdateProduct(s.ctx, &db.UpdateProductParams{ID: uuid.New(), Name: "x"})
	s.ErrorIs(err, sferrors.ErrProductNotFound)

	s.Require().NoError(s.store.DeleteProduct(s.ctx, product.ID))
	s.ErrorIs(s.store.DeleteProduct(s.ctx, product.ID), sferrors.ErrProductNotFound)
	_, err = s.store.FindProductByID(s.ctx, product.ID)
	s.ErrorIs(err, sferrors.ErrProductNotFound)
}

func (s *PgStoreSuite) TestDecrementStockGuard() {
	owner := s.createUser("owner")
	product := s.createProduct(owner.ID, 3)

	_, err := s.store.DecrementStock(s.ctx, product.ID, 4)
	s.ErrorIs(err, sferrors.ErrInsufficientStock)

	left, err := s.store.DecrementStock(s.ctx, product.ID, 3)
	s.Require().NoError(err)
	s.Equal(int32(0), left.Quantity)
}

func (s *PgStoreSuite) TestCheckoutLifecycle() {
	user := s.createUser("buyer")
	product := s.createProduct(s.createUser("seller").ID, 5)

	checkout, err := s.store.CreateCheckout(s.ctx, user.ID)
	s.Require().NoError(err)
	s.False(checkout.Completed)

	_, err = s.store.CreateCheckout(s.ctx, user.ID)
	s.ErrorIs(err, sferrors.ErrActiveCheckoutExists)

	_, err = s.store.CreateCheckoutItem(s.ctx, &db.CreateCheckoutItemParams{CheckoutID: checkout.ID, ProductID: product.ID, Quantity: 2})
	s.Require().NoError(err)
	_, err = s.store.CreateCheckoutItem(s.ctx, &db.CreateCheckoutItemParams{CheckoutID: checkout.ID, ProductID: product.ID, Quantity: 1})
	s.ErrorIs(err, sferrors.ErrCheckoutItemExists)

	s.ErrorIs(s.store.DeleteProduct(s.ctx, product.ID), sferrors.ErrProductInUse)

	_, err = s.store.UpdateCheckoutItem(s.ctx, &db.UpdateCheckoutItemQuantityParams{CheckoutID: checkout.ID, ProductID: uuid.New(), Quantity: 1})
	s.ErrorIs(err, sferrors.ErrCheckoutItemNotFound)

	completed, err := s.store.CompleteCheckout(s.ctx, checkout.ID)
	s.Require().NoError(err)
	s.True(completed.Completed)
	s.NotNil(completed.CompletedAt)

	_, err = s.store.FindActiveCheckout(s.ctx, user.ID)
	s.ErrorIs(err, sferrors.ErrCheckoutNotFound)
	_, err = s.store.CompleteCheckout(s.ctx, checkout.ID)
	s.ErrorIs(err, sferrors.ErrCheckoutNotFound)
}

// TestCheckoutItemsKeepInsertionOrder inserts lines in descending id order
// within one transaction, so ordering by id or created_at would reverse them.
func (s *PgStoreSuite) TestCheckoutItemsKeepInsertionOrder() {
	user := s.createUser("buyer")
	seller := s.createUser("seller")
	var products []uuid.UUID
	for range 6 {
		products = append(products, s.createProduct(seller.ID, 5).ID)
	}
	slices.SortFunc(products, func(a, b uuid.UUID) int { return -bytes.Compare(a[:], b[:]) })

	var checkoutID uuid.UUID
	err := s.store.InTx(s.ctx, func(q Queries) error {
		checkout, err := q.CreateCheckout(s.ctx, user.ID)
		if err != nil {
			return err
		}
		checkoutID = checkout.ID
		for i, id := range products {
			if _, err := q.CreateCheckoutItem(s.ctx, &db.CreateCheckoutItemParams{CheckoutID: checkout.ID, ProductID: id, Quantity: int32(i + 1)}); err != nil {
				return err
			}
		}
		return nil
	})
	s.Require().NoError(err)

	items, err := s.store.FindCheckoutItems(s.ctx, checkoutID)
	s.Require().NoError(err)
	s.Require().Len(items, len(products))
	for i, item := range items {
		s.Equal(products[i], item.ProductID)
		s.Equal(int32(i+1), item.Quantity)
	}
}

func (s *PgStoreSuite) TestInTxRollback() {
	owner := s.createUser("owner")
	product := s.createProduct(owner.ID, 5)
	errBoom := errors.New("boom")

	err := s.store.InTx(s.ctx, func(q Queries) error {
		if _, err := q.DecrementStock(s.ctx, product.ID, 5); err != nil {
			return err
		}
		return errBoom
	})
	s.ErrorIs(err, errBoom)

	found, err := s.store.FindProductByID(s.ctx, product.ID)
	s.Require().NoError(err)
	s.Equal(int32(5), found.Quantity)
}

// TestConcurrentLockedDecrement checks that transactions locking the same
// product serialize, so the stock is never oversold.
func (s *PgStoreSuite) TestConcurrentLockedDecrement() {
	owner := s.createUser("owner")
	product := s.createProduct(owner.ID, 1)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.store.InTx(s.ctx, func(q Queries) error {
				locked, err := q.LockProducts(s.ctx, []uuid.UUID{product.ID})
				if err != nil {
					return err
				}
				if len(locked) != 1 || locked[0].Quantity < 1 {
					return sferrors.ErrInsufficientStock
				}
				_, err = q.DecrementStock(s.ctx, product.ID, 1)
				return err
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, sferrors.ErrInsufficientStock)
		}
	}
	s.Equal(1, succeeded)

	found, err := s.store.FindProductByID(s.ctx, product.ID)
	s.Require().NoError(err)
	s.Equal(int32(0), found.Quantity)
}
