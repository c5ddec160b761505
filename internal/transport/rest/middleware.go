package rest

import (
	"errors"
	"net/http"

	sferrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/web"
)

const (
	APIKeyHeader     = "X-Api-Key"
	APIKeyQueryParam = "apiKey"
)

// APIKeyAuth resolves the caller's API key to a user and stores the user ID
// in the request context. The header wins over the query parameter.
func (h *Handler) APIKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mLogger := h.loggerWithReqID(r)
		apiKey := r.Header.Get(APIKeyHeader)
		if apiKey == "" {
			apiKey = r.URL.Query().Get(APIKeyQueryParam)
		}

		user, err := h.users.Authenticate(r.Context(), apiKey)
		if err != nil {
			if errors.Is(err, sferrors.ErrUnauthorized) {
				mLogger.WarnContext(r.Context(), "Rejected request without a valid API key", "path", r.URL.Path)
				web.RespondError(w, mLogger, http.StatusUnauthorized, "Unauthorized: missing or invalid API key")
				return
			}
			mLogger.ErrorContext(r.Context(), "Error authenticating request", "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to authenticate request")
			return
		}

		next.ServeHTTP(w, r.WithContext(web.WithUserID(r.Context(), user.ID)))
	})
}
