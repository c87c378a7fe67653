package payments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/edugen-platform/edugen/internal/api"
	"github.com/edugen-platform/edugen/internal/auth"
)

var (
	errInvalidPlan   = api.NewBadRequestError("Invalid plan")
	errOrderMismatch = api.NewBadRequestError("Payment does not match order")
)

// maxBodyBytes bounds checkout requests, which carry a handful of ids.
const maxBodyBytes = 8 << 10

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		api.HandleError(w, api.ErrMissingPayment)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.ErrMissingPayment)
		return
	}

	resp, err := h.svc.Verify(r.Context(), accountID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotConfigured):
			api.HandleError(w, api.ErrGatewayNotConfigured)
		case errors.Is(err, ErrInvalidPlan):
			api.HandleError(w, errInvalidPlan)
		case errors.Is(err, ErrInvalidSignature):
			slog.Warn("invalid payment signature", "account_id", accountID, "order_id", req.OrderID)
			api.HandleError(w, api.ErrInvalidSignature)
		case errors.Is(err, ErrOrderMismatch):
			api.HandleError(w, errOrderMismatch)
		case errors.Is(err, ErrDuplicatePayment):
			api.HandleError(w, api.ErrPaymentAlreadyProcessed)
		default:
			slog.Error("verifying payment", "error", err, "account_id", accountID)
			api.HandleError(w, api.ErrInternalServer)
		}
		return
	}

	api.JSONBody(w, http.StatusOK, resp)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, errInvalidPlan)
		return
	}

	resp, err := h.svc.CreateOrder(r.Context(), accountID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotConfigured):
			api.HandleError(w, api.ErrGatewayNotConfigured)
		case errors.Is(err, ErrInvalidPlan):
			api.HandleError(w, errInvalidPlan)
		default:
			slog.Error("creating order", "error", err, "account_id", accountID)
			api.HandleError(w, api.NewInternalError("Failed to create order"))
		}
		return
	}

	api.JSONBody(w, http.StatusOK, resp)
}
