package rest

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/service"
	"github.com/abgdnv/storefront/pkg/web"
)

// FindAllProducts lists the whole catalog.
func (h *Handler) FindAllProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	mLogger.DebugContext(r.Context(), "Received request to find all products")
	list, err := h.products.FindAll(r.Context())
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindProductByID retrieves a product by its ID.
func (h *Handler) FindProductByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseUUIDParam(w, r, mLogger, "id")
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.products.FindByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to retrieve product")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// CreateProduct adds a product owned by the caller.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.ProductCreateDto
	if err := web.DecodeJSON(r, &dto); err != nil {
		respondBadBody(w, r, mLogger, err)
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to create product", "product", dto)
	created, err := h.products.Create(r.Context(), userID, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to create product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", slog.String("ID", created.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// UpdateProduct applies a partial update. Ownership is checked before the
// body, so a stranger gets 403 even for a malformed request.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseUUIDParam(w, r, mLogger, "id")
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}

	var dto service.ProductPatchDto
	if decodeErr := web.DecodeJSON(r, &dto); decodeErr != nil {
		if err := h.products.EnsureOwner(r.Context(), userID, id); err != nil {
			respondServiceError(w, r, mLogger, err, "Failed to update product")
			return
		}
		respondBadBody(w, r, mLogger, decodeErr)
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to update product", "ID", id)
	updated, err := h.products.Update(r.Context(), userID, id, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to update product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", slog.String("ID", updated.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// DeleteProduct removes a product owned by the caller.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseUUIDParam(w, r, mLogger, "id")
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to delete product", "ID", id)
	if err := h.products.Delete(r.Context(), userID, id); err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to delete product")
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", slog.String("ID", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
