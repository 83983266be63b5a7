package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"posd/pkg/s3"
	"posd/pkg/web"
	"posd/services/logs"
	"posd/services/staff"
)

// Handler serves the catalog and order management endpoints. Every mutation
// records a matching activity log after the entity write commits.
type Handler struct {
	orm     *gorm.DB
	engine  *logs.Engine
	objects *s3.Client
	bucket  string
	log     zerolog.Logger
}

// NewHandler wires the admin handler. The object-store client is optional;
// image uploads 503 without it.
func NewHandler(orm *gorm.DB, engine *logs.Engine, objects *s3.Client, bucket string, logger zerolog.Logger) (*Handler, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	if engine == nil {
		return nil, errors.New("log engine is required")
	}
	return &Handler{orm: orm, engine: engine, objects: objects, bucket: bucket, log: logger}, nil
}

// Routes mounts the catalog and order endpoints on r. Mutations require the
// manager role or better.
func (h *Handler) Routes(r chi.Router) {
	manage := staff.RequireRole(staff.RoleAdmin, staff.RoleManager)

	r.Route("/places", func(r chi.Router) {
		r.Get("/", h.handleListPlaces)
		r.With(manage).Post("/", h.handleCreatePlace)
		r.With(manage).Patch("/{id}", h.handleUpdatePlace)
		r.With(manage).Delete("/{id}", h.handleDeletePlace)
	})
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", h.handleListTables)
		r.With(manage).Post("/", h.handleCreateTable)
		r.With(manage).Patch("/{id}", h.handleUpdateTable)
		r.With(manage).Delete("/{id}", h.handleDeleteTable)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.handleListCategories)
		r.With(manage).Post("/", h.handleCreateCategory)
		r.With(manage).Patch("/{id}", h.handleUpdateCategory)
		r.With(manage).Delete("/{id}", h.handleDeleteCategory)
	})
	r.Route("/menus", func(r chi.Router) {
		r.Get("/", h.handleListMenus)
		r.With(manage).Post("/", h.handleCreateMenu)
		r.With(manage).Patch("/{id}", h.handleUpdateMenu)
		r.With(manage).Delete("/{id}", h.handleDeleteMenu)
		r.With(manage).Post("/{id}/image", h.handleMenuImage)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.handleListOrders)
		r.Get("/{id}", h.handleGetOrder)
		r.Post("/", h.handleCreateOrder)
		r.Patch("/{id}/status", h.handleOrderStatus)
	})
}

// record appends an activity log for an already-committed mutation. The
// mutation stands regardless of the logging outcome; failures are logged and
// swallowed.
func (h *Handler) record(ctx context.Context, p logs.RecordParams) {
	if _, err := h.engine.Record(ctx, p); err != nil {
		h.log.Error().Err(err).
			Str("action", string(p.Action)).
			Str("store_id", p.StoreID).
			Msg("record activity log")
	}
}

func recordParams(claims *staff.Claims, action logs.Action, subject *logs.Subject, before, after map[string]any, details string) logs.RecordParams {
	return logs.RecordParams{
		Action:      action,
		StoreID:     claims.StoreID,
		ActorID:     claims.UserID,
		ActorName:   claims.Name,
		Subject:     subject,
		BeforeState: before,
		AfterState:  after,
		Details:     details,
	}
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func respondBadID(w http.ResponseWriter) {
	web.RespondError(w, http.StatusBadRequest, "validation_error", "valid id is required")
}

func respondStorage(w http.ResponseWriter, what string) {
	web.RespondError(w, http.StatusInternalServerError, "storage_error", what)
}

func respondNotFound(w http.ResponseWriter, what string) {
	web.RespondError(w, http.StatusNotFound, "not_found", what)
}

// loadScoped fetches one row by id within the caller's store.
func loadScoped[T any](ctx context.Context, orm *gorm.DB, id uuid.UUID, storeID string, dst *T) error {
	return orm.WithContext(ctx).Where("id = ? AND store_id = ?", id, storeID).First(dst).Error
}

func nowUTC() time.Time { return time.Now().UTC() }
