package content

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/edugen-platform/edugen/internal/api"
	"github.com/edugen-platform/edugen/internal/auth"
)

// maxCreateBytes bounds a saved artifact request.
const maxCreateBytes = 1 << 20

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: api.NewValidator(),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateContentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.HandleError(w, api.ErrRequestTooLarge)
			return
		}
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationErrorFrom(err))
		return
	}

	c, err := h.svc.Create(r.Context(), ownerID, &req)
	if err != nil {
		if errors.Is(err, ErrInvalidPayload) {
			api.HandleError(w, api.NewValidationError(err.Error()))
			return
		}
		slog.Error("saving content", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusCreated, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := DefaultListParams()
	if k := r.URL.Query().Get("kind"); k != "" {
		params.Kind = Kind(k)
		if !params.Kind.Valid() {
			api.HandleError(w, api.NewBadRequestError("invalid kind"))
			return
		}
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}

	items, totalCount, err := h.svc.ListByOwner(r.Context(), ownerID, params)
	if err != nil {
		slog.Error("listing content", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, items, totalCount, params.Page, params.PageSize)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c := GetContentFromContext(r.Context())
	if c == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	api.JSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	c := GetContentFromContext(r.Context())
	if c == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	if err := h.svc.Delete(r.Context(), c); err != nil {
		slog.Error("deleting content", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "content deleted successfully")
}

// OwnershipMiddleware loads the content named by the route and rejects
// callers that do not own it.
func (h *Handler) OwnershipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requester, ok := auth.AccountIDFromContext(r.Context())
		if !ok {
			api.HandleError(w, api.ErrUnauthorized)
			return
		}

		contentID, err := uuid.Parse(chi.URLParam(r, "contentID"))
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("invalid content ID"))
			return
		}

		c, err := h.svc.GetByID(r.Context(), contentID)
		if err != nil {
			slog.Error("fetching content for ownership check", "error", err)
			api.HandleError(w, api.ErrInternalServer)
			return
		}
		if c == nil {
			api.HandleError(w, api.NewNotFoundError("content not found"))
			return
		}

		if c.OwnerUserID != requester {
			slog.Warn("ownership violation attempt",
				"content_id", contentID,
				"content_owner", c.OwnerUserID,
				"requester", requester,
				"path", r.URL.Path,
				"method", r.Method,
			)
			api.HandleError(w, api.ErrOwnershipViolation)
			return
		}

		ctx := SetContentInContext(r.Context(), c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
