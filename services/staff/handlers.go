package staff

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"posd/pkg/web"
)

// Handler serves authentication and staff management endpoints.
type Handler struct {
	orm    *gorm.DB
	issuer *TokenIssuer
	log    zerolog.Logger
}

// NewHandler wires the staff handler to its dependencies.
func NewHandler(orm *gorm.DB, issuer *TokenIssuer, logger zerolog.Logger) (*Handler, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	if issuer == nil {
		return nil, errors.New("token issuer is required")
	}
	return &Handler{orm: orm, issuer: issuer, log: logger}, nil
}

// PublicRoutes mounts the unauthenticated endpoints.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

// Routes mounts the JWT-protected staff management endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/staff", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Post("/", h.handleCreate)
			r.Patch("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
		})
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		web.RespondError(w, http.StatusBadRequest, "validation_error", "email and password are required")
		return
	}

	var model staffModel
	err := h.orm.WithContext(r.Context()).
		Where("email = ? AND active = ?", req.Email, true).
		First(&model).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		web.RespondError(w, http.StatusUnauthorized, "invalid_credentials", "email or password incorrect")
		return
	case err != nil:
		web.RespondError(w, http.StatusInternalServerError, "storage_error", "load staff account")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(model.PasswordHash), []byte(req.Password)) != nil {
		web.RespondError(w, http.StatusUnauthorized, "invalid_credentials", "email or password incorrect")
		return
	}

	member := model.toAPI()
	token, err := h.issuer.Issue(member)
	if err != nil {
		h.log.Error().Err(err).Str("email", req.Email).Msg("issue token")
		web.RespondError(w, http.StatusInternalServerError, "token_error", "could not issue token")
		return
	}

	web.Respond(w, http.StatusOK, map[string]any{
		"token": token,
		"staff": member,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	claims, _ := FromContext(r.Context())

	var models []staffModel
	err := h.orm.WithContext(r.Context()).
		Where("store_id = ?", claims.StoreID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		web.RespondError(w, http.StatusInternalServerError, "storage_error", "list staff")
		return
	}

	members := make([]Member, 0, len(models))
	for _, m := range models {
		members = append(members, m.toAPI())
	}
	web.Respond(w, http.StatusOK, map[string]any{"staff": members})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	claims, _ := FromContext(r.Context())

	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Role     string `json:"role"`
		Password string `json:"password"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || req.Password == "" {
		web.RespondError(w, http.StatusBadRequest, "validation_error", "email, name and password are required")
		return
	}
	if req.Role == "" {
		req.Role = RoleServer
	}
	if !ValidRole(req.Role) {
		web.RespondError(w, http.StatusBadRequest, "validation_error", "unknown role")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		web.RespondError(w, http.StatusInternalServerError, "hash_error", "could not hash password")
		return
	}

	now := time.Now().UTC()
	model := staffModel{
		ID:           uuid.New(),
		StoreID:      claims.StoreID,
		Email:        req.Email,
		Name:         req.Name,
		Role:         req.Role,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.orm.WithContext(r.Context()).Create(&model).Error; err != nil {
		web.RespondError(w, http.StatusInternalServerError, "storage_error", "create staff account")
		return
	}

	web.Respond(w, http.StatusCreated, map[string]any{"staff": model.toAPI()})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	claims, _ := FromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", "valid staff id is required")
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Role     *string `json:"role"`
		Active   *bool   `json:"active"`
		Password *string `json:"password"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		if !ValidRole(*req.Role) {
			web.RespondError(w, http.StatusBadRequest, "validation_error", "unknown role")
			return
		}
		updates["role"] = *req.Role
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			web.RespondError(w, http.StatusInternalServerError, "hash_error", "could not hash password")
			return
		}
		updates["password_hash"] = string(hash)
	}

	res := h.orm.WithContext(r.Context()).
		Model(&staffModel{}).
		Where("id = ? AND store_id = ?", id, claims.StoreID).
		Updates(updates)
	if res.Error != nil {
		web.RespondError(w, http.StatusInternalServerError, "storage_error", "update staff account")
		return
	}
	if res.RowsAffected == 0 {
		web.RespondError(w, http.StatusNotFound, "not_found", "staff account not found")
		return
	}

	var model staffModel
	if err := h.orm.WithContext(r.Context()).First(&model, "id = ?", id).Error; err != nil {
		web.RespondError(w, http.StatusInternalServerError, "storage_error", "reload staff account")
		return
	}
	web.Respond(w, http.StatusOK, map[string]any{"staff": model.toAPI()})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	claims, _ := FromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", "valid staff id is required")
		return
	}
	if id.String() == claims.UserID {
		web.RespondError(w, http.StatusConflict, "conflict", "cannot delete your own account")
		return
	}

	res := h.orm.WithContext(r.Context()).
		Where("id = ? AND store_id = ?", id, claims.StoreID).
		Delete(&staffModel{})
	if res.Error != nil {
		web.RespondError(w, http.StatusInternalServerError, "storage_error", "delete staff account")
		return
	}
	if res.RowsAffected == 0 {
		web.RespondError(w, http.StatusNotFound, "not_found", "staff account not found")
		return
	}

	web.Respond(w, http.StatusOK, map[string]any{"deleted": id})
}
