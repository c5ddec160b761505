package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/internal/store/db"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/messaging/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/abgdnv/storefront/internal/service"

// CheckoutService runs the purchase flow. A user has at most one active checkout.
// Stock is checked whenever lines change and deducted only on completion.
type CheckoutService interface {
	// Start opens a checkout with the given lines.
	// Returns ErrActiveCheckoutExists, ErrInvalidInput, ErrProductNotFound or ErrInsufficientStock.
	Start(ctx context.Context, userID uuid.UUID, dto StartCheckoutDto) (*CheckoutDto, error)

	// GetActive returns the summary of the user's active checkout.
	// Returns ErrCheckoutNotFound if there is none.
	GetActive(ctx context.Context, userID uuid.UUID) (*CheckoutDto, error)

	// AddItem adds a new line to the active checkout.
	// Returns ErrCheckoutNotFound, ErrInvalidInput, ErrProductNotFound, ErrCheckoutItemExists or ErrInsufficientStock.
	AddItem(ctx context.Context, userID uuid.UUID, dto CheckoutItemDto) (*CheckoutDto, error)

	// UpdateItem replaces the quantity of an existing line.
	// Returns ErrCheckoutNotFound, ErrInvalidInput, ErrCheckoutItemNotFound or ErrInsufficientStock.
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, dto UpdateItemDto) (*CheckoutDto, error)

	// RemoveItem drops a line. The checkout may become empty.
	// Returns ErrCheckoutNotFound or ErrCheckoutItemNotFound.
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error

	// Complete re-validates every line against locked stock, deducts it and closes the checkout.
	// Returns ErrCheckoutNotFound or ErrInsufficientStock; nothing is deducted on error.
	Complete(ctx context.Context, userID uuid.UUID) (*CheckoutDto, error)
}

// CheckoutSvc implements CheckoutService.
type CheckoutSvc struct {
	store     store.Store
	publisher messaging.Publisher
	tracer    trace.Tracer

	startedCounter   metric.Int64Counter
	completedCounter metric.Int64Counter
	rejectedCounter  metric.Int64Counter
}

// NewCheckoutService creates a new instance of CheckoutService. Completed checkouts are announced through publisher.
func NewCheckoutService(s store.Store, publisher messaging.Publisher) *CheckoutSvc {
	meter := otel.Meter(instrumentationName)
	started, err := meter.Int64Counter("checkouts_started", metric.WithDescription("Total number of started checkouts"))
	if err != nil {
		panic(fmt.Sprintf("failed to create checkouts_started counter: %v", err))
	}
	completed, err := meter.Int64Counter("checkouts_completed", metric.WithDescription("Total number of completed checkouts"))
	if err != nil {
		panic(fmt.Sprintf("failed to create checkouts_completed counter: %v", err))
	}
	rejected, err := meter.Int64Counter("checkout_stock_rejections", metric.WithDescription("Checkout operations rejected for insufficient stock"))
	if err != nil {
		panic(fmt.Sprintf("failed to create checkout_stock_rejections counter: %v", err))
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &CheckoutSvc{
		store:            s,
		publisher:        publisher,
		tracer:           otel.Tracer(instrumentationName),
		startedCounter:   started,
		completedCounter: completed,
		rejectedCounter:  rejected,
	}
}

// CheckoutItemDto is a requested checkout line.
type CheckoutItemDto struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int32     `json:"quantity"   validate:"gte=1"`
}

// StartCheckoutDto opens a checkout. Product IDs must be distinct.
type StartCheckoutDto struct {
	Items []CheckoutItemDto `json:"items" validate:"unique=ProductID,dive"`
}

// UpdateItemDto sets the quantity of an existing line.
type UpdateItemDto struct {
	Quantity int32 `json:"quantity" validate:"gte=1"`
}

// CheckoutDto summarizes a checkout. Totals are computed from current product prices.
type CheckoutDto struct {
	ID          uuid.UUID         `json:"id"`
	Completed   bool              `json:"completed"`
	CreatedAt   string            `json:"created_at,omitempty"`
	CompletedAt string            `json:"completed_at,omitempty"`
	Items       []CheckoutLineDto `json:"items"`
	Total       decimal.Decimal   `json:"total"`
}

// CheckoutLineDto is one priced line of a checkout summary.
type CheckoutLineDto struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func (s *CheckoutSvc) Start(ctx context.Context, userID uuid.UUID, dto StartCheckoutDto) (result *CheckoutDto, err error) {
	ctx, span := s.tracer.Start(ctx, "CheckoutService.Start", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("checkout.items", len(dto.Items)),
	))
	defer func() { endSpan(span, err) }()

	err = s.store.InTx(ctx, func(q store.Queries) error {
		if _, err := q.FindActiveCheckout(ctx, userID); err == nil {
			return sferrors.ErrActiveCheckoutExists
		} else if !errors.Is(err, sferrors.ErrCheckoutNotFound) {
			return err
		}
		if err := validateStruct(dto); err != nil {
			return err
		}

		products := make(map[uuid.UUID]db.Product, len(dto.Items))
		for _, item := range dto.Items {
			p, err := s.availableProduct(ctx, q, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			products[p.ID] = *p
		}

		checkout, err := q.CreateCheckout(ctx, userID)
		if err != nil {
			return err
		}
		lines := make([]db.CheckoutItem, 0, len(dto.Items))
		for _, item := range dto.Items {
			line, err := q.CreateCheckoutItem(ctx, &db.CreateCheckoutItemParams{
				CheckoutID: checkout.ID,
				ProductID:  item.ProductID,
				Quantity:   item.Quantity,
			})
			if err != nil {
				return err
			}
			lines = append(lines, *line)
		}
		result, err = summarize(checkout, lines, products)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.startedCounter.Add(ctx, 1)
	slog.InfoContext(ctx, "Checkout started", "checkout_id", result.ID, "items", len(result.Items))
	return result, nil
}

func (s *CheckoutSvc) GetActive(ctx context.Context, userID uuid.UUID) (*CheckoutDto, error) {
	var result *CheckoutDto
	err := s.store.InTx(ctx, func(q store.Queries) error {
		checkout, err := q.FindActiveCheckout(ctx, userID)
		if err != nil {
			return err
		}
		result, err = s.loadSummary(ctx, q, checkout)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *CheckoutSvc) AddItem(ctx context.Context, userID uuid.UUID, dto CheckoutItemDto) (*CheckoutDto, error) {
	var result *CheckoutDto
	err := s.store.InTx(ctx, func(q store.Queries) error {
		checkout, err := q.FindActiveCheckout(ctx, userID)
		if err != nil {
			return err
		}
		if err := validateStruct(dto); err != nil {
			return err
		}
		if _, err := q.FindProductByID(ctx, dto.ProductID); err != nil {
			return productErr(dto.ProductID, err)
		}
		lines, err := q.FindCheckoutItems(ctx, checkout.ID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if line.ProductID == dto.ProductID {
				return fmt.Errorf("product %s: %w", dto.ProductID, sferrors.ErrCheckoutItemExists)
			}
		}
		if _, err := s.availableProduct(ctx, q, dto.ProductID, dto.Quantity); err != nil {
			return err
		}
		if _, err := q.CreateCheckoutItem(ctx, &db.CreateCheckoutItemParams{
			CheckoutID: checkout.ID,
			ProductID:  dto.ProductID,
			Quantity:   dto.Quantity,
		}); err != nil {
			return err
		}
		result, err = s.loadSummary(ctx, q, checkout)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *CheckoutSvc) UpdateItem(ctx context.Context, userID, productID uuid.UUID, dto UpdateItemDto) (*CheckoutDto, error) {
	var result *CheckoutDto
	err := s.store.InTx(ctx, func(q store.Queries) error {
		checkout, err := q.FindActiveCheckout(ctx, userID)
		if err != nil {
			return err
		}
		if err := validateStruct(dto); err != nil {
			return err
		}
		lines, err := q.FindCheckoutItems(ctx, checkout.ID)
		if err != nil {
			return err
		}
		found := false
		for _, line := range lines {
			if line.ProductID == productID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("product %s: %w", productID, sferrors.ErrCheckoutItemNotFound)
		}
		if _, err := s.availableProduct(ctx, q, productID, dto.Quantity); err != nil {
			return err
		}
		if _, err := q.UpdateCheckoutItem(ctx, &db.UpdateCheckoutItemQuantityParams{
			CheckoutID: checkout.ID,
			ProductID:  productID,
			Quantity:   dto.Quantity,
		}); err != nil {
			return err
		}
		result, err = s.loadSummary(ctx, q, checkout)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *CheckoutSvc) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return s.store.InTx(ctx, func(q store.Queries) error {
		checkout, err := q.FindActiveCheckout(ctx, userID)
		if err != nil {
			return err
		}
		if err := q.DeleteCheckoutItem(ctx, checkout.ID, productID); err != nil {
			return fmt.Errorf("product %s: %w", productID, err)
		}
		return nil
	})
}

func (s *CheckoutSvc) Complete(ctx context.Context, userID uuid.UUID) (result *CheckoutDto, err error) {
	ctx, span := s.tracer.Start(ctx, "CheckoutService.Complete", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer func() { endSpan(span, err) }()

	var completed *db.Checkout
	var lines []db.CheckoutItem
	err = s.store.InTx(ctx, func(q store.Queries) error {
		checkout, err := q.FindActiveCheckout(ctx, userID)
		if err != nil {
			return err
		}
		lines, err = q.FindCheckoutItems(ctx, checkout.ID)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(lines))
		for i, line := range lines {
			ids[i] = line.ProductID
		}
		products := make(map[uuid.UUID]db.Product, len(lines))
		if len(ids) > 0 {
			locked, err := q.LockProducts(ctx, ids)
			if err != nil {
				return err
			}
			for _, p := range locked {
				products[p.ID] = p
			}
		}

		// every line must pass before anything is deducted
		for _, line := range lines {
			p, ok := products[line.ProductID]
			if !ok {
				return fmt.Errorf("product %s: %w", line.ProductID, sferrors.ErrProductNotFound)
			}
			if line.Quantity > p.Quantity {
				s.rejectedCounter.Add(ctx, 1)
				return insufficientStock(&p, line.Quantity)
			}
		}
		for _, line := range lines {
			if _, err := q.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return fmt.Errorf("product %s: %w", line.ProductID, err)
			}
		}

		completed, err = q.CompleteCheckout(ctx, checkout.ID)
		if err != nil {
			return err
		}
		result, err = summarize(completed, lines, products)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.completedCounter.Add(ctx, 1)
	slog.InfoContext(ctx, "Checkout completed", "checkout_id", result.ID, "total", result.Total.StringFixed(priceScale))
	s.publishCompleted(ctx, userID, completed, result)
	return result, nil
}

// publishCompleted announces a committed checkout. Failures are logged only.
func (s *CheckoutSvc) publishCompleted(ctx context.Context, userID uuid.UUID, checkout *db.Checkout, summary *CheckoutDto) {
	items := make([]events.CheckoutCompletedItem, len(summary.Items))
	for i, line := range summary.Items {
		items[i] = events.CheckoutCompletedItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
	}
	completedAt := time.Now().UTC()
	if checkout.CompletedAt != nil {
		completedAt = *checkout.CompletedAt
	}
	event := events.CheckoutCompletedEvent{
		CheckoutID:  checkout.ID,
		UserID:      userID,
		Items:       items,
		Total:       summary.Total,
		CompletedAt: completedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish CheckoutCompletedEvent", "checkout_id", checkout.ID, "error", err)
	}
}

// availableProduct loads a product and checks that quantity does not exceed its stock.
func (s *CheckoutSvc) availableProduct(ctx context.Context, q store.Queries, id uuid.UUID, quantity int32) (*db.Product, error) {
	p, err := q.FindProductByID(ctx, id)
	if err != nil {
		return nil, productErr(id, err)
	}
	if quantity > p.Quantity {
		s.rejectedCounter.Add(ctx, 1)
		return nil, insufficientStock(p, quantity)
	}
	return p, nil
}

func (s *CheckoutSvc) loadSummary(ctx context.Context, q store.Queries, checkout *db.Checkout) (*CheckoutDto, error) {
	lines, err := q.FindCheckoutItems(ctx, checkout.ID)
	if err != nil {
		return nil, err
	}
	products := make(map[uuid.UUID]db.Product, len(lines))
	for _, line := range lines {
		p, err := q.FindProductByID(ctx, line.ProductID)
		if err != nil {
			return nil, productErr(line.ProductID, err)
		}
		products[p.ID] = *p
	}
	return summarize(checkout, lines, products)
}

// summarize prices the lines in their stored order.
func summarize(checkout *db.Checkout, lines []db.CheckoutItem, products map[uuid.UUID]db.Product) (*CheckoutDto, error) {
	dto := &CheckoutDto{
		ID:        checkout.ID,
		Completed: checkout.Completed,
		Items:     make([]CheckoutLineDto, 0, len(lines)),
		Total:     decimal.Zero,
	}
	if checkout.CreatedAt != nil {
		dto.CreatedAt = checkout.CreatedAt.Format(time.RFC3339)
	}
	if checkout.CompletedAt != nil {
		dto.CompletedAt = checkout.CompletedAt.Format(time.RFC3339)
	}
	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, sferrors.ErrProductNotFound)
		}
		lineTotal := p.Price.Mul(decimal.NewFromInt32(line.Quantity))
		dto.Items = append(dto.Items, CheckoutLineDto{
			ProductID: line.ProductID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
			LineTotal: lineTotal,
		})
		dto.Total = dto.Total.Add(lineTotal)
	}
	return dto, nil
}

func productErr(id uuid.UUID, err error) error {
	if errors.Is(err, sferrors.ErrProductNotFound) {
		return fmt.Errorf("product %s: %w", id, sferrors.ErrProductNotFound)
	}
	return err
}

func insufficientStock(p *db.Product, requested int32) error {
	return fmt.Errorf("product %s (%s): available %d, requested %d: %w",
		p.ID, p.Name, p.Quantity, requested, sferrors.ErrInsufficientStock)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
