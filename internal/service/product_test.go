package service

import (
	"context"
	"strings"
	"testing"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// seedProduct creates a product directly in the store, bypassing validation.
func seedProduct(t *testing.T, s store.Store, owner uuid.UUID, name, price string, qty int32) *db.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), &db.CreateProductParams{
		UserID:   owner,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	})
	require.NoError(t, err)
	return p
}

func Test_ProductService_Create(t *testing.T) {
	owner := uuid.New()
	testCases := []struct {
		name        string
		dto         ProductCreateDto
		expected    *ProductDto
		expectError error
	}{
		{
			name:     "Success - product created",
			dto:      ProductCreateDto{Name: "Keyboard", Price: decimal.RequireFromString("49.99"), Quantity: 5},
			expected: &ProductDto{OwnerID: owner, Name: "Keyboard", Price: decimal.RequireFromString("49.99"), Quantity: 5},
		},
		{
			name:     "Success - zero price and quantity",
			dto:      ProductCreateDto{Name: "Sticker", Price: decimal.Zero, Quantity: 0},
			expected: &ProductDto{OwnerID: owner, Name: "Sticker", Price: decimal.Zero, Quantity: 0},
		},
		{
			name:     "Success - price rounded to cents",
			dto:      ProductCreateDto{Name: "Cable", Price: decimal.RequireFromString("1.005"), Quantity: 1},
			expected: &ProductDto{OwnerID: owner, Name: "Cable", Price: decimal.RequireFromString("1.01"), Quantity: 1},
		},
		{
			name:     "Success - largest storable price",
			dto:      ProductCreateDto{Name: "Yacht", Price: decimal.RequireFromString("9999999999999999.99"), Quantity: 1},
			expected: &ProductDto{OwnerID: owner, Name: "Yacht", Price: decimal.RequireFromString("9999999999999999.99"), Quantity: 1},
		},
		{
			name:        "Error - price rounds past the storable maximum",
			dto:         ProductCreateDto{Name: "Yacht", Price: decimal.RequireFromString("9999999999999999.995"), Quantity: 1},
			expectError: sferrors.ErrInvalidInput,
		},
		{
			name:        "Error - price too large",
			dto:         ProductCreateDto{Name: "Yacht", Price: decimal.New(1, 16), Quantity: 1},
			expectError: sferrors.ErrInvalidInput,
		},
		{
			name:        "Error - empty name",
			dto:         ProductCreateDto{Name: "  ", Price: decimal.NewFromInt(1), Quantity: 1},
			expectError: sferrors.ErrInvalidInput,
		},
		{
			name:        "Error - negative price",
			dto:         ProductCreateDto{Name: "Mouse", Price: decimal.NewFromInt(-1), Quantity: 1},
			expectError: sferrors.ErrInvalidInput,
		},
		{
			name:        "Error - negative quantity",
			dto:         ProductCreateDto{Name: "Mouse", Price: decimal.NewFromInt(1), Quantity: -1},
			expectError: sferrors.ErrInvalidInput,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc := NewProductService(store.NewMemoryStore())
			// when
			created, err := svc.Create(context.Background(), owner, tc.dto)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, created)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, created.ID)
			assert.Equal(t, tc.expected.OwnerID, created.OwnerID)
			assert.Equal(t, tc.expected.Name, created.Name)
			assert.True(t, tc.expected.Price.Equal(created.Price), "price %s != %s", tc.expected.Price, created.Price)
			assert.Equal(t, tc.expected.Quantity, created.Quantity)
		})
	}
}

func Test_ProductService_PriceLimitDetails(t *testing.T) {
	// given
	s := store.NewMemoryStore()
	svc := NewProductService(s)
	p := seedProduct(t, s, uuid.New(), "A", "1.00", 1)
	tooLarge := decimal.RequireFromString("10000000000000000")
	// when
	_, createErr := svc.Create(context.Background(), uuid.New(), ProductCreateDto{Name: "A", Price: tooLarge})
	_, updateErr := svc.Update(context.Background(), p.UserID, p.ID, ProductPatchDto{Price: &tooLarge})
	// then
	for _, err := range []error{createErr, updateErr} {
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		require.Len(t, verrs, 1)
		assert.Equal(t, "Price", verrs[0].Field())
		assert.Equal(t, "max", verrs[0].Tag())
	}
}

func Test_ProductService_FindAll(t *testing.T) {
	// given
	s := store.NewMemoryStore()
	svc := NewProductService(s)
	empty, err := svc.FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	first := seedProduct(t, s, uuid.New(), "A", "1.00", 1)
	second := seedProduct(t, s, uuid.New(), "B", "2.00", 2)
	// when
	list, err := svc.FindAll(context.Background())
	// then
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func Test_ProductService_FindByID(t *testing.T) {
	s := store.NewMemoryStore()
	p := seedProduct(t, s, uuid.New(), "A", "1.00", 1)
	svc := NewProductService(s)

	found, err := svc.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, found.Name)

	_, err = svc.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, sferrors.ErrProductNotFound)
}

func Test_ProductService_Update(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()

	testCases := []struct {
		name        string
		userID      uuid.UUID
		missing     bool
		dto         ProductPatchDto
		expected    ProductDto
		expectError error
	}{
		{
			name:     "Success - name only",
			userID:   owner,
			dto:      ProductPatchDto{Name: ptr("Renamed")},
			expected: ProductDto{Name: "Renamed", Price: decimal.RequireFromString("10.00"), Quantity: 5},
		},
		{
			name:     "Success - price and quantity",
			userID:   owner,
			dto:      ProductPatchDto{Price: ptr(decimal.RequireFromString("12.50")), Quantity: ptr(int32(7))},
			expected: ProductDto{Name: "Original", Price: decimal.RequireFromString("12.50"), Quantity: 7},
		},
		{
			name:     "Success - empty name is ignored",
			userID:   owner,
			dto:      ProductPatchDto{Name: ptr(""), Quantity: ptr(int32(2))},
			expected: ProductDto{Name: "Original", Price: decimal.RequireFromString("10.00"), Quantity: 2},
		},
		{
			name:     "Success - blank name is ignored",
			userID:   owner,
			dto:      ProductPatchDto{Name: ptr("  ")},
			expected: ProductDto{Name: "Original", Price: decimal.RequireFromString("10.00"), Quantity: 5},
		},
		{
			name:     "Success - zero quantity is ignored",
			userID:   owner,
			dto:      ProductPatchDto{Quantity: ptr(int32(0))},
			expected: ProductDto{Name: "Original", Price: decimal.RequireFromString("10.00"), Quantity: 5},
		},
		{
			name:     "Success - zero price is ignored",
			userID:   owner,
			dto:      ProductPatchDto{Price: ptr(decimal.Zero), Name: ptr("Renamed")},
			expected: ProductDto{Name: "Renamed", Price: decimal.RequireFromString("10.00"), Quantity: 5},
		},
		{
			name:     "Success - price rounding to zero is ignored",
			userID:   owner,
			dto:      ProductPatchDto{Price: ptr(decimal.RequireFromString("0.004"))},
			expected: ProductDto{Name: "Original", Price: decimal.RequireFromString("10.00"), Quantity: 5},
		},
		{
			name:     "Success - empty patch",
			userID:   owner,
			dto:      ProductPatchDto{},
			expected: ProductDto{Name: "Original", Price: decimal.RequireFromString("10.00"), Quantity: 5},
		},
		{
			name:        "Error - product not found",
			userID:      owner,
			missing:     true,
			dto:         ProductPatchDto{Name: ptr("x")},
			expectError: sferrors.ErrProductNotFound,
		},
		{
			name:        "Error - not found before forbidden",
			userID:      stranger,
			missing:     true,
			dto:         ProductPatchDto{Name: ptr("x")},
			expectError: sferrors.ErrProductNotFound,
		},
		{
			name:        "Error - forbidden with valid body",
			userID:      stranger,
			dto:         ProductPatchDto{Name: ptr("Stolen")},
			expectError: sferrors.ErrAccessDenied,
		},
		{
			name:        "Error - forbidden with invalid body",
			userID:      stranger,
			dto:         ProductPatchDto{Quantity: ptr(int32(-10))},
			expectError: sferrors.ErrAccessDenied,
		},
		{
			name:        "Error - negative quantity",
			userID:      owner,
			dto:         ProductPatchDto{Quantity: ptr(int32(-1))},
			expectError: sferrors.ErrInvalidInput,
		},
		{
			name:        "Error - name too long",
			userID:      owner,
			dto:         ProductPatchDto{Name: ptr(strings.Repeat("n", 101))},
			expectError: sferrors.ErrInvalidInput,
		},
		{
			name:        "Error - price rounds past the storable maximum",
			userID:      owner,
			dto:         ProductPatchDto{Price: ptr(decimal.RequireFromString("9999999999999999.995"))},
			expectError: sferrors.ErrInvalidInput,
		},
		{
			name:        "Error - negative price",
			userID:      owner,
			dto:         ProductPatchDto{Price: ptr(decimal.NewFromInt(-3))},
			expectError: sferrors.ErrInvalidInput,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := store.NewMemoryStore()
			p := seedProduct(t, s, owner, "Original", "10.00", 5)
			id := p.ID
			if tc.missing {
				id = uuid.New()
			}
			svc := NewProductService(s)
			// when
			updated, err := svc.Update(context.Background(), tc.userID, id, tc.dto)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, updated)
				unchanged, findErr := s.FindProductByID(context.Background(), p.ID)
				require.NoError(t, findErr)
				assert.Equal(t, "Original", unchanged.Name)
				assert.Equal(t, int32(5), unchanged.Quantity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected.Name, updated.Name)
			assert.True(t, tc.expected.Price.Equal(updated.Price))
			assert.Equal(t, tc.expected.Quantity, updated.Quantity)
		})
	}
}

func Test_ProductService_Delete(t *testing.T) {
	owner := uuid.New()

	testCases := []struct {
		name        string
		userID      uuid.UUID
		missing     bool
		inCheckout  bool
		expectError error
	}{
		{name: "Success - owner deletes", userID: owner},
		{name: "Error - product not found", userID: owner, missing: true, expectError: sferrors.ErrProductNotFound},
		{name: "Error - not owner", userID: uuid.New(), expectError: sferrors.ErrAccessDenied},
		{name: "Error - referenced by checkout", userID: owner, inCheckout: true, expectError: sferrors.ErrProductInUse},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := store.NewMemoryStore()
			p := seedProduct(t, s, owner, "A", "1.00", 3)
			if tc.inCheckout {
				buyer := uuid.New()
				_, err := NewCheckoutService(s, nil).Start(context.Background(), buyer, StartCheckoutDto{
					Items: []CheckoutItemDto{{ProductID: p.ID, Quantity: 1}},
				})
				require.NoError(t, err)
			}
			id := p.ID
			if tc.missing {
				id = uuid.New()
			}
			svc := NewProductService(s)
			// when
			err := svc.Delete(context.Background(), tc.userID, id)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				_, findErr := s.FindProductByID(context.Background(), p.ID)
				assert.NoError(t, findErr)
				return
			}
			require.NoError(t, err)
			_, err = s.FindProductByID(context.Background(), p.ID)
			assert.ErrorIs(t, err, sferrors.ErrProductNotFound)
		})
	}
}

func Test_ProductService_EnsureOwner(t *testing.T) {
	owner := uuid.New()
	s := store.NewMemoryStore()
	p := seedProduct(t, s, owner, "A", "1.00", 1)
	svc := NewProductService(s)

	assert.NoError(t, svc.EnsureOwner(context.Background(), owner, p.ID))
	assert.ErrorIs(t, svc.EnsureOwner(context.Background(), uuid.New(), p.ID), sferrors.ErrAccessDenied)
	assert.ErrorIs(t, svc.EnsureOwner(context.Background(), owner, uuid.New()), sferrors.ErrProductNotFound)
}
