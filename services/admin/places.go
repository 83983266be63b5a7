package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"posd/pkg/web"
	"posd/services/logs"
	"posd/services/staff"
)

func (h *Handler) handleListPlaces(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	var models []placeModel
	err := h.orm.WithContext(r.Context()).
		Where("store_id = ?", claims.StoreID).
		Order("floor ASC, sort ASC, name ASC").
		Find(&models).Error
	if err != nil {
		respondStorage(w, "list places")
		return
	}

	places := make([]Place, 0, len(models))
	for _, m := range models {
		places = append(places, m.toAPI())
	}
	web.Respond(w, http.StatusOK, map[string]any{"places": places})
}

func (h *Handler) handleCreatePlace(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	var req struct {
		Name  string `json:"name"`
		Floor int    `json:"floor"`
		Sort  int    `json:"sort"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		web.RespondError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}

	now := nowUTC()
	model := placeModel{
		ID: uuid.New(), StoreID: claims.StoreID, Name: req.Name,
		Floor: req.Floor, Sort: req.Sort, CreatedAt: now, UpdatedAt: now,
	}
	if err := h.orm.WithContext(r.Context()).Create(&model).Error; err != nil {
		respondStorage(w, "create place")
		return
	}

	place := model.toAPI()
	h.record(r.Context(), recordParams(claims, logs.ActionPlaceCreated,
		&logs.Subject{Kind: logs.SubjectPlace, ID: model.ID.String()},
		nil, map[string]any{"name": place.Name, "floor": place.Floor},
		fmt.Sprintf("created place %q", place.Name)))

	web.Respond(w, http.StatusCreated, map[string]any{"place": place})
}

func (h *Handler) handleUpdatePlace(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	id, ok := pathID(r)
	if !ok {
		respondBadID(w)
		return
	}

	var req struct {
		Name  *string `json:"name"`
		Floor *int    `json:"floor"`
		Sort  *int    `json:"sort"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var model placeModel
	err := loadScoped(r.Context(), h.orm, id, claims.StoreID, &model)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(w, "place not found")
		return
	case err != nil:
		respondStorage(w, "load place")
		return
	}

	before := map[string]any{"name": model.Name, "floor": model.Floor, "sort": model.Sort}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		model.Name = strings.TrimSpace(*req.Name)
	}
	if req.Floor != nil {
		model.Floor = *req.Floor
	}
	if req.Sort != nil {
		model.Sort = *req.Sort
	}
	model.UpdatedAt = nowUTC()

	if err := h.orm.WithContext(r.Context()).Save(&model).Error; err != nil {
		respondStorage(w, "update place")
		return
	}

	h.record(r.Context(), recordParams(claims, logs.ActionPlaceUpdated,
		&logs.Subject{Kind: logs.SubjectPlace, ID: model.ID.String()},
		before, map[string]any{"name": model.Name, "floor": model.Floor, "sort": model.Sort},
		fmt.Sprintf("updated place %q", model.Name)))

	web.Respond(w, http.StatusOK, map[string]any{"place": model.toAPI()})
}

func (h *Handler) handleDeletePlace(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	id, ok := pathID(r)
	if !ok {
		respondBadID(w)
		return
	}

	var model placeModel
	err := loadScoped(r.Context(), h.orm, id, claims.StoreID, &model)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(w, "place not found")
		return
	case err != nil:
		respondStorage(w, "load place")
		return
	}

	// Tables keep existing with their place reference cleared.
	if err := h.orm.WithContext(r.Context()).Delete(&model).Error; err != nil {
		respondStorage(w, "delete place")
		return
	}

	h.record(r.Context(), recordParams(claims, logs.ActionPlaceDeleted,
		&logs.Subject{Kind: logs.SubjectPlace, ID: model.ID.String()},
		map[string]any{"name": model.Name, "floor": model.Floor}, nil,
		fmt.Sprintf("deleted place %q", model.Name)))

	web.Respond(w, http.StatusOK, map[string]any{"deleted": id})
}
