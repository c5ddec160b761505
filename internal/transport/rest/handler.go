// Package rest provides the storefront HTTP API.
package rest

import (
	"errors"
	"log/slog"
	"net/http"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/service"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	users     service.UserService
	products  service.ProductService
	checkouts service.CheckoutService
	logger    *slog.Logger
}

// NewHandler creates a new instance of Handler with the provided services.
func NewHandler(users service.UserService, products service.ProductService, checkouts service.CheckoutService, logger *slog.Logger) *Handler {
	return &Handler{
		users:     users,
		products:  products,
		checkouts: checkouts,
		logger:    logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the storefront.
// Everything below /api/v1 except registration requires an API key.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/users", h.Register)

	r.Group(func(r chi.Router) {
		r.Use(h.APIKeyAuth)
		r.Route("/api/v1/products", func(r chi.Router) {
			r.Get("/", h.FindAllProducts)
			r.Post("/", h.CreateProduct)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.FindProductByID)
				r.Patch("/", h.UpdateProduct)
				r.Delete("/", h.DeleteProduct)
			})
		})
		r.Route("/api/v1/checkout", func(r chi.Router) {
			r.Get("/", h.GetActiveCheckout)
			r.Post("/", h.StartCheckout)
			r.Post("/complete", h.CompleteCheckout)

			r.Route("/items", func(r chi.Router) {
				r.Post("/", h.AddCheckoutItem)
				r.Put("/{productId}", h.UpdateCheckoutItem)
				r.Delete("/{productId}", h.RemoveCheckoutItem)
			})
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}

var errorStatuses = []struct {
	err     error
	status  int
	message string
}{
	{sferrors.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized: missing or invalid API key"},
	{sferrors.ErrAccessDenied, http.StatusForbidden, "Access denied"},
	{sferrors.ErrProductNotFound, http.StatusNotFound, ""},
	{sferrors.ErrCheckoutNotFound, http.StatusNotFound, "No active checkout"},
	{sferrors.ErrCheckoutItemNotFound, http.StatusNotFound, ""},
	{sferrors.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{sferrors.ErrActiveCheckoutExists, http.StatusConflict, "An active checkout already exists"},
	{sferrors.ErrCheckoutItemExists, http.StatusConflict, ""},
	{sferrors.ErrUsernameTaken, http.StatusConflict, "Username already taken"},
	{sferrors.ErrProductInUse, http.StatusConflict, "Product is referenced by a checkout"},
	{sferrors.ErrInsufficientStock, http.StatusUnprocessableEntity, ""},
}

// respondServiceError translates a service error into a response. An empty
// message in errorStatuses means the wrapped error text carries the detail.
// Anything unmapped is logged and answered with 500 and fallback.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	if errors.Is(err, sferrors.ErrInvalidInput) {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := web.ValidationErrorsMap(verrs)
			logger.WarnContext(r.Context(), "Validation errors occurred", "errors", fields)
			web.RespondJSON(w, logger, http.StatusBadRequest, web.ValidationErrorResponse{Errors: fields})
			return
		}
		logger.WarnContext(r.Context(), "Invalid input", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			message := e.message
			if message == "" {
				message = detail(err, e.err)
			}
			logger.WarnContext(r.Context(), "Request rejected", "status", e.status, "error", err)
			web.RespondError(w, logger, e.status, message)
			return
		}
	}
	logger.ErrorContext(r.Context(), fallback, "error", err)
	web.RespondError(w, logger, http.StatusInternalServerError, fallback)
}

// detail returns the message of the error that directly wraps sentinel,
// e.g. "product <id>: insufficient stock", dropping outer context.
func detail(err, sentinel error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil || next == sentinel {
			return err.Error()
		}
		err = next
	}
}

func respondBadBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
	web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
}
