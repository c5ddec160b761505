package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// priceScale matches the NUMERIC(18,2) column.
const priceScale = 2

// ProductService defines the methods for managing the product catalog.
// Anyone authenticated can read the catalog; only the owner can change a product.
type ProductService interface {
	// Create adds a product owned by userID.
	// Returns ErrInvalidInput if name, price or quantity is invalid.
	Create(ctx context.Context, userID uuid.UUID, dto ProductCreateDto) (*ProductDto, error)

	// FindAll returns every product in creation order.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// EnsureOwner checks that the product exists and belongs to userID.
	// Returns ErrProductNotFound, then ErrAccessDenied.
	EnsureOwner(ctx context.Context, userID, id uuid.UUID) error

	// Update applies the provided non-empty name and positive price or quantity of dto.
	// Returns ErrProductNotFound, ErrAccessDenied or ErrInvalidInput, checked in that order.
	Update(ctx context.Context, userID, id uuid.UUID, dto ProductPatchDto) (*ProductDto, error)

	// Delete removes a product.
	// Returns ErrProductNotFound, ErrAccessDenied, or ErrProductInUse if a checkout references it.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// ProductSvc implements ProductService.
type ProductSvc struct {
	store store.Store
}

// NewProductService creates a new instance of ProductService with the provided store.
func NewProductService(s store.Store) *ProductSvc {
	return &ProductSvc{store: s}
}

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	Name     string          `json:"name"     validate:"required,max=100"`
	Price    decimal.Decimal `json:"price"    validate:"gte=0"`
	Quantity int32           `json:"quantity" validate:"gte=0"`
}

// ProductPatchDto carries a partial update. Absent or empty names and
// zero prices or quantities are left unchanged; negative values are rejected.
type ProductPatchDto struct {
	Name     *string          `json:"name"     validate:"omitempty,max=100"`
	Price    *decimal.Decimal `json:"price"    validate:"omitempty,gte=0"`
	Quantity *int32           `json:"quantity" validate:"omitempty,gte=0"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int32           `json:"quantity"`
	CreatedAt string          `json:"created_at,omitempty"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

func (s *ProductSvc) Create(ctx context.Context, userID uuid.UUID, dto ProductCreateDto) (*ProductDto, error) {
	dto.Name = strings.TrimSpace(dto.Name)
	if err := validateStruct(dto); err != nil {
		return nil, err
	}
	p, err := s.store.CreateProduct(ctx, &db.CreateProductParams{
		UserID:   userID,
		Name:     dto.Name,
		Price:    dto.Price.Round(priceScale),
		Quantity: dto.Quantity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return toProductDto(p), nil
}

func (s *ProductSvc) FindAll(ctx context.Context) ([]ProductDto, error) {
	products, err := s.store.FindProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toProductDto(&products[i])
	}
	return dtos, nil
}

func (s *ProductSvc) FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	p, err := s.store.FindProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	return toProductDto(p), nil
}

func (s *ProductSvc) EnsureOwner(ctx context.Context, userID, id uuid.UUID) error {
	p, err := s.store.FindProductByID(ctx, id)
	if err != nil {
		return fmt.Errorf("product %s: %w", id, err)
	}
	return checkOwner(p, userID)
}

func (s *ProductSvc) Update(ctx context.Context, userID, id uuid.UUID, dto ProductPatchDto) (*ProductDto, error) {
	var updated *db.Product
	err := s.store.InTx(ctx, func(q store.Queries) error {
		p, err := lockProduct(ctx, q, id)
		if err != nil {
			return err
		}
		if err := checkOwner(p, userID); err != nil {
			return err
		}
		if dto.Name != nil {
			trimmed := strings.TrimSpace(*dto.Name)
			dto.Name = &trimmed
		}
		if err := validateStruct(dto); err != nil {
			return err
		}

		params := db.UpdateProductParams{ID: p.ID, Name: p.Name, Price: p.Price, Quantity: p.Quantity}
		if dto.Name != nil && *dto.Name != "" {
			params.Name = *dto.Name
		}
		if dto.Price != nil && dto.Price.Round(priceScale).IsPositive() {
			params.Price = dto.Price.Round(priceScale)
		}
		if dto.Quantity != nil && *dto.Quantity > 0 {
			params.Quantity = *dto.Quantity
		}
		updated, err = q.UpdateProduct(ctx, &params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	return toProductDto(updated), nil
}

func (s *ProductSvc) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.InTx(ctx, func(q store.Queries) error {
		p, err := lockProduct(ctx, q, id)
		if err != nil {
			return err
		}
		if err := checkOwner(p, userID); err != nil {
			return err
		}
		return q.DeleteProduct(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("product %s: %w", id, err)
	}
	return nil
}

// lockProduct reads a product and holds its row lock until the transaction ends.
func lockProduct(ctx context.Context, q store.Queries, id uuid.UUID) (*db.Product, error) {
	locked, err := q.LockProducts(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(locked) == 0 {
		return nil, sferrors.ErrProductNotFound
	}
	return &locked[0], nil
}

func checkOwner(p *db.Product, userID uuid.UUID) error {
	if p.UserID != userID {
		return sferrors.ErrAccessDenied
	}
	return nil
}

// toProductDto converts a db.Product to a ProductDto.
func toProductDto(p *db.Product) *ProductDto {
	dto := &ProductDto{
		ID:       p.ID,
		OwnerID:  p.UserID,
		Name:     p.Name,
		Price:    p.Price,
		Quantity: p.Quantity,
	}
	if p.CreatedAt != nil {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	if p.UpdatedAt != nil {
		dto.UpdatedAt = p.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}
