package usage

import (
	"log/slog"
	"net/http"

	"github.com/edugen-platform/edugen/internal/api"
	"github.com/edugen-platform/edugen/internal/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Get returns the authenticated account's usage for the current period.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	report, err := h.svc.GetUsage(r.Context(), accountID)
	if err != nil {
		slog.Error("getting usage report", "error", err, "account_id", accountID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, report)
}
