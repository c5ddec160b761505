package rest

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/service"
	"github.com/abgdnv/storefront/pkg/web"
)

// StartCheckout opens the caller's checkout. An empty body starts an empty checkout.
func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.StartCheckoutDto
	if err := web.DecodeJSON(r, &dto); err != nil && !errors.Is(err, io.EOF) {
		respondBadBody(w, r, mLogger, err)
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to start checkout", "items", len(dto.Items))
	summary, err := h.checkouts.Start(r.Context(), userID, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to start checkout")
		return
	}
	mLogger.InfoContext(r.Context(), "Checkout started successfully", slog.String("ID", summary.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusCreated, summary)
}

// GetActiveCheckout returns the summary of the caller's active checkout.
func (h *Handler) GetActiveCheckout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	summary, err := h.checkouts.GetActive(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to retrieve checkout")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, summary)
}

func (h *Handler) AddCheckoutItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.CheckoutItemDto
	if err := web.DecodeJSON(r, &dto); err != nil {
		respondBadBody(w, r, mLogger, err)
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to add checkout item", "product_id", dto.ProductID, "quantity", dto.Quantity)
	summary, err := h.checkouts.AddItem(r.Context(), userID, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to add checkout item")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, summary)
}

func (h *Handler) UpdateCheckoutItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseUUIDParam(w, r, mLogger, "productId")
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.UpdateItemDto
	if err := web.DecodeJSON(r, &dto); err != nil {
		respondBadBody(w, r, mLogger, err)
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to update checkout item", "product_id", productID, "quantity", dto.Quantity)
	summary, err := h.checkouts.UpdateItem(r.Context(), userID, productID, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to update checkout item")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, summary)
}

func (h *Handler) RemoveCheckoutItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.ParseUUIDParam(w, r, mLogger, "productId")
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to remove checkout item", "product_id", productID)
	if err := h.checkouts.RemoveItem(r.Context(), userID, productID); err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to remove checkout item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteCheckout deducts stock for every line and closes the checkout.
func (h *Handler) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to complete checkout")
	summary, err := h.checkouts.Complete(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to complete checkout")
		return
	}
	mLogger.InfoContext(r.Context(), "Checkout completed successfully",
		slog.String("ID", summary.ID.String()), slog.String("total", summary.Total.String()))
	web.RespondJSON(w, mLogger, http.StatusOK, summary)
}
