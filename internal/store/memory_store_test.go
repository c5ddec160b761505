package store

import (
	"context"
	"errors"
	"testing"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, s *MemoryStore, owner uuid.UUID, quantity int32) *db.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), &db.CreateProductParams{
		UserID:   owner,
		Name:     "Keyboard",
		Price:    decimal.RequireFromString("49.90"),
		Quantity: quantity,
	})
	require.NoError(t, err)
	return p
}

func TestMemoryStore_CreateUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	user, err := s.CreateUser(ctx, "alice", "key-1")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.NotNil(t, user.CreatedAt)

	_, err = s.CreateUser(ctx, "alice", "key-2")
	assert.ErrorIs(t, err, sferrors.ErrUsernameTaken)

	found, err := s.FindUserByAPIKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = s.FindUserByAPIKey(ctx, "unknown")
	assert.ErrorIs(t, err, sferrors.ErrUserNotFound)
}

func TestMemoryStore_InTx(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	errBoom := errors.New("boom")

	testCases := []struct {
		name             string
		fnErr            error
		expectedQuantity int32
	}{
		{name: "commit applies changes", fnErr: nil, expectedQuantity: 3},
		{name: "rollback discards changes", fnErr: errBoom, expectedQuantity: 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := NewMemoryStore()
			product := seedProduct(t, s, owner, 5)

			// when
			err := s.InTx(ctx, func(q Queries) error {
				if _, err := q.DecrementStock(ctx, product.ID, 2); err != nil {
					return err
				}
				if _, err := q.CreateCheckout(ctx, owner); err != nil {
					return err
				}
				return tc.fnErr
			})

			// then
			assert.ErrorIs(t, err, tc.fnErr)
			found, err := s.FindProductByID(ctx, product.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedQuantity, found.Quantity)
			_, err = s.FindActiveCheckout(ctx, owner)
			if tc.fnErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, sferrors.ErrCheckoutNotFound)
			}
		})
	}
}

func TestMemoryStore_DecrementStock(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name        string
		quantity    int32
		expectedErr error
		expectedQty int32
	}{
		{name: "partial", quantity: 2, expectedQty: 3},
		{name: "exact", quantity: 5, expectedQty: 0},
		{name: "too much", quantity: 6, expectedErr: sferrors.ErrInsufficientStock, expectedQty: 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := NewMemoryStore()
			product := seedProduct(t, s, uuid.New(), 5)

			// when
			_, err := s.DecrementStock(ctx, product.ID, tc.quantity)

			// then
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			found, err := s.FindProductByID(ctx, product.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedQty, found.Quantity)
		})
	}
}

func TestMemoryStore_Checkouts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	user := uuid.New()
	product := seedProduct(t, s, uuid.New(), 5)

	checkout, err := s.CreateCheckout(ctx, user)
	require.NoError(t, err)

	_, err = s.CreateCheckout(ctx, user)
	assert.ErrorIs(t, err, sferrors.ErrActiveCheckoutExists)

	_, err = s.CreateCheckoutItem(ctx, &db.CreateCheckoutItemParams{CheckoutID: checkout.ID, ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = s.CreateCheckoutItem(ctx, &db.CreateCheckoutItemParams{CheckoutID: checkout.ID, ProductID: product.ID, Quantity: 1})
	assert.ErrorIs(t, err, sferrors.ErrCheckoutItemExists)
	_, err = s.CreateCheckoutItem(ctx, &db.CreateCheckoutItemParams{CheckoutID: checkout.ID, ProductID: uuid.New(), Quantity: 1})
	assert.ErrorIs(t, err, sferrors.ErrProductNotFound)

	assert.ErrorIs(t, s.DeleteProduct(ctx, product.ID), sferrors.ErrProductInUse)

	updated, err := s.UpdateCheckoutItem(ctx, &db.UpdateCheckoutItemQuantityParams{CheckoutID: checkout.ID, ProductID: product.ID, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, int32(4), updated.Quantity)

	completed, err := s.CompleteCheckout(ctx, checkout.ID)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
	assert.NotNil(t, completed.CompletedAt)

	_, err = s.CompleteCheckout(ctx, checkout.ID)
	assert.ErrorIs(t, err, sferrors.ErrCheckoutNotFound)
	_, err = s.FindActiveCheckout(ctx, user)
	assert.ErrorIs(t, err, sferrors.ErrCheckoutNotFound)

	// a new checkout is allowed once the previous one is completed
	_, err = s.CreateCheckout(ctx, user)
	assert.NoError(t, err)
}

func TestMemoryStore_LockProductsOrdersByID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	owner := uuid.New()
	a := seedProduct(t, s, owner, 1)
	b := seedProduct(t, s, owner, 1)
	c := seedProduct(t, s, owner, 1)

	locked, err := s.LockProducts(ctx, []uuid.UUID{c.ID, a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, locked, 3)
	for i := 1; i < len(locked); i++ {
		assert.Less(t, locked[i-1].ID.String(), locked[i].ID.String())
	}
}
