package handlers

import (
	"context"
	"net/http"

	"github.com/alphamind/gateway/internal/api/ctxkeys"
	"github.com/alphamind/gateway/internal/domain/chat"
)

// UsageService is the accounting capability the handler needs.
type UsageService interface {
	TotalsForUser(ctx context.Context, userID string) (*chat.UsageTotals, error)
}

// UsageHandler serves the authenticated usage-totals endpoint.
type UsageHandler struct {
	usage UsageService
}

func NewUsageHandler(usage UsageService) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// Totals handles GET /api/v1/usage. A user with no recorded completions
// gets zero totals.
func (h *UsageHandler) Totals(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.Value(r.Context(), ctxkeys.UserID)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	totals, err := h.usage.TotalsForUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load usage")
		return
	}

	writeJSON(w, http.StatusOK, totals)
}
