package rest

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/service"
	"github.com/abgdnv/storefront/pkg/web"
)

// Register creates a user and returns its API key.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.RegisterDto
	if err := web.DecodeJSON(r, &dto); err != nil {
		respondBadBody(w, r, mLogger, err)
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to register user", "username", dto.Username)
	user, err := h.users.Register(r.Context(), dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err, "Failed to register user")
		return
	}
	mLogger.InfoContext(r.Context(), "User registered successfully", slog.String("ID", user.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusCreated, user)
}
