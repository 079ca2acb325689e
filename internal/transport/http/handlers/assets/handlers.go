package assetshandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/assets"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
	"hrms/internal/transport/http/shared"
)

type Handler struct {
	Service *assets.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *assets.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

type assetPayload struct {
	Tag          string   `json:"tag" validate:"max=40"`
	Name         string   `json:"name" validate:"required,max=200"`
	Category     string   `json:"category" validate:"required,max=60"`
	SerialNumber string   `json:"serialNumber" validate:"max=120"`
	PurchaseDate string   `json:"purchaseDate"`
	Cost         *float64 `json:"cost" validate:"omitempty,gte=0"`
	Notes        string   `json:"notes" validate:"max=2000"`
}

type statusPayload struct {
	Status string `json:"status" validate:"required,oneof=available maintenance retired"`
}

type allocatePayload struct {
	EmployeeID int64  `json:"employeeId" validate:"required,gt=0"`
	Notes      string `json:"notes" validate:"max=1000"`
}

type returnPayload struct {
	Condition string `json:"condition" validate:"omitempty,oneof=good damaged lost"`
	Notes     string `json:"notes" validate:"max=1000"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermAssetsRead, h.Perms)
	manage := middleware.RequirePermission(auth.PermAssetsManage, h.Perms)

	r.Route("/assets", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/me", h.handleMine)
		r.With(read).Get("/", h.handleList)
		r.With(manage).Post("/", h.handleCreate)
		r.With(read).Get("/{assetID}", h.handleGet)
		r.With(manage).Put("/{assetID}", h.handleUpdate)
		r.With(manage).Post("/{assetID}/status", h.handleStatus)
		r.With(manage).Post("/{assetID}/allocate", h.handleAllocate)
		r.With(manage).Post("/{assetID}/return", h.handleReturn)
		r.With(read).Get("/{assetID}/allocations", h.handleAllocations)
	})
}

func (h *Handler) record(r *http.Request, actorID int64, action string, id int64, before, after any) {
	if err := h.Audit.Record(r.Context(), actorID, action, "asset", strconv.FormatInt(id, 10), middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit asset failed", "action", action, "err", err)
	}
}

func assetID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := shared.PathID(r, "assetID")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid asset id", middleware.GetRequestID(r.Context()))
		return 0, false
	}
	return id, true
}

func decodeAsset(w http.ResponseWriter, r *http.Request) (assets.Asset, bool) {
	var payload assetPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return assets.Asset{}, false
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	var purchased *time.Time
	if payload.PurchaseDate != "" {
		if day, ok := validator.Date("purchaseDate", payload.PurchaseDate); ok {
			purchased = &day
		}
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return assets.Asset{}, false
	}
	return assets.Asset{
		Tag:          payload.Tag,
		Name:         payload.Name,
		Category:     payload.Category,
		SerialNumber: payload.SerialNumber,
		PurchaseDate: purchased,
		Cost:         payload.Cost,
		Notes:        payload.Notes,
	}, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := assets.Filter{Status: query.Get("status"), Category: query.Get("category"), Query: query.Get("q")}
	if filter.Status != "" && !assets.ValidStatus(filter.Status) {
		api.Fail(w, http.StatusBadRequest, "invalid_filter", "invalid status", middleware.GetRequestID(r.Context()))
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	items, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []assets.Asset{}
	}
	shared.SetTotal(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	items := []assets.Allocation{}
	if user.HasEmployee() {
		held, err := h.Service.HeldBy(r.Context(), user.EmployeeID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if held != nil {
			items = held
		}
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}
	asset, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	api.Success(w, asset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	in, ok := decodeAsset(w, r)
	if !ok {
		return
	}
	asset, err := h.Service.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "asset.create", asset.ID, nil, asset)
	api.Created(w, asset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := assetID(w, r)
	if !ok {
		return
	}
	in, ok := decodeAsset(w, r)
	if !ok {
		return
	}
	before, after, err := h.Service.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "asset.update", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := assetID(w, r)
	if !ok {
		return
	}
	var payload statusPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	before, after, err := h.Service.SetStatus(r.Context(), id, payload.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "asset.status", id, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := assetID(w, r)
	if !ok {
		return
	}
	var payload allocatePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	asset, err := h.Service.Allocate(r.Context(), id, payload.EmployeeID, user.UserID, payload.Notes)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "asset.allocate", id, nil, map[string]any{"employeeId": payload.EmployeeID, "asset": asset})
	api.Success(w, asset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id, ok := assetID(w, r)
	if !ok {
		return
	}
	var payload returnPayload
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	asset, err := h.Service.Return(r.Context(), id, payload.Condition, payload.Notes)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.record(r, user.UserID, "asset.return", id, nil, asset)
	api.Success(w, asset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAllocations(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}
	items, err := h.Service.Allocations(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []assets.Allocation{}
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, assets.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, assets.ErrDuplicateTag):
		api.Fail(w, http.StatusConflict, "duplicate_tag", err.Error(), reqID)
	case errors.Is(err, assets.ErrNotAvailable):
		api.Fail(w, http.StatusConflict, "asset_not_available", err.Error(), reqID)
	case errors.Is(err, assets.ErrNotAllocated):
		api.Fail(w, http.StatusConflict, "asset_not_allocated", err.Error(), reqID)
	case errors.Is(err, assets.ErrRetired):
		api.Fail(w, http.StatusConflict, "asset_retired", err.Error(), reqID)
	case errors.Is(err, assets.ErrReturnFirst), errors.Is(err, assets.ErrInvalidStatus):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), reqID)
	case errors.Is(err, assets.ErrInvalidEmployee), errors.Is(err, assets.ErrInvalidField):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_field", err.Error(), reqID)
	default:
		slog.Error("asset request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "asset_failed", "asset request failed", reqID)
	}
}
