package admin

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"posd/pkg/web"
	"posd/services/logs"
	"posd/services/staff"
)

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	query := h.orm.WithContext(r.Context()).Where("store_id = ?", claims.StoreID)
	if status := r.URL.Query().Get("status"); status != "" {
		if !ValidOrderStatus(status) {
			web.RespondError(w, http.StatusBadRequest, "validation_error", "unknown order status")
			return
		}
		query = query.Where("status = ?", status)
	}

	var models []orderModel
	if err := query.Order("created_at DESC").Limit(200).Find(&models).Error; err != nil {
		respondStorage(w, "list orders")
		return
	}

	orders := make([]Order, 0, len(models))
	for _, m := range models {
		orders = append(orders, m.toAPI(nil))
	}
	web.Respond(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	id, ok := pathID(r)
	if !ok {
		respondBadID(w)
		return
	}

	var model orderModel
	err := loadScoped(r.Context(), h.orm, id, claims.StoreID, &model)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(w, "order not found")
		return
	case err != nil:
		respondStorage(w, "load order")
		return
	}

	var items []orderItemModel
	if err := h.orm.WithContext(r.Context()).Where("order_id = ?", model.ID).Find(&items).Error; err != nil {
		respondStorage(w, "load order items")
		return
	}

	web.Respond(w, http.StatusOK, map[string]any{"order": model.toAPI(items)})
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	var req struct {
		TableID *uuid.UUID `json:"table_id"`
		Items   []struct {
			MenuID   uuid.UUID `json:"menu_id"`
			Quantity int       `json:"quantity"`
		} `json:"items"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if len(req.Items) == 0 {
		web.RespondError(w, http.StatusBadRequest, "validation_error", "at least one item is required")
		return
	}

	if req.TableID != nil {
		var table tableModel
		err := loadScoped(r.Context(), h.orm, *req.TableID, claims.StoreID, &table)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondNotFound(w, "table not found")
			return
		case err != nil:
			respondStorage(w, "load table")
			return
		}
	}

	now := nowUTC()
	order := orderModel{
		ID: uuid.New(), StoreID: claims.StoreID, TableID: req.TableID,
		Status: OrderStatusPending, CreatedAt: now, UpdatedAt: now,
	}

	var items []orderItemModel
	err := h.orm.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		for _, line := range req.Items {
			if line.Quantity <= 0 {
				line.Quantity = 1
			}

			var menu menuModel
			err := tx.Where("id = ? AND store_id = ?", line.MenuID, claims.StoreID).First(&menu).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("menu item %s: %w", line.MenuID, gorm.ErrRecordNotFound)
			case err != nil:
				return err
			}
			if !menu.Available {
				return fmt.Errorf("menu item %q is unavailable", menu.Name)
			}

			items = append(items, orderItemModel{
				ID: uuid.New(), OrderID: order.ID, MenuID: &menu.ID,
				Name: menu.Name, Quantity: line.Quantity, Price: menu.Price,
			})
			order.Amount += menu.Price * float64(line.Quantity)
		}

		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return tx.Create(&items).Error
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(w, "menu item not found")
		return
	case err != nil:
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	amount := order.Amount
	h.record(r.Context(), logs.RecordParams{
		Action:     logs.ActionOrderCreated,
		StoreID:    claims.StoreID,
		ActorID:    claims.UserID,
		ActorName:  claims.Name,
		Subject:    &logs.Subject{Kind: logs.SubjectOrder, ID: order.ID.String()},
		AfterState: map[string]any{"status": order.Status, "amount": order.Amount},
		Details:    fmt.Sprintf("created order with %d items", len(items)),
		Amount:     &amount,
	})

	web.Respond(w, http.StatusCreated, map[string]any{"order": order.toAPI(items)})
}

// handleOrderStatus advances an order through its lifecycle. Reaching "paid"
// additionally records a payment.completed log carrying the amount.
func (h *Handler) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := staff.FromContext(r.Context())

	id, ok := pathID(r)
	if !ok {
		respondBadID(w)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := web.Decode(r, &req); err != nil {
		web.RespondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if !ValidOrderStatus(req.Status) {
		web.RespondError(w, http.StatusBadRequest, "validation_error", "unknown order status")
		return
	}

	var model orderModel
	err := loadScoped(r.Context(), h.orm, id, claims.StoreID, &model)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(w, "order not found")
		return
	case err != nil:
		respondStorage(w, "load order")
		return
	}

	if model.Status == OrderStatusPaid || model.Status == OrderStatusCancelled {
		web.RespondError(w, http.StatusConflict, "conflict",
			fmt.Sprintf("order in state %s cannot change status", model.Status))
		return
	}

	before := model.Status
	model.Status = req.Status
	model.UpdatedAt = nowUTC()

	if err := h.orm.WithContext(r.Context()).Save(&model).Error; err != nil {
		respondStorage(w, "update order status")
		return
	}

	subject := &logs.Subject{Kind: logs.SubjectOrder, ID: model.ID.String()}
	switch req.Status {
	case OrderStatusPaid:
		amount := model.Amount
		h.record(r.Context(), logs.RecordParams{
			Action:      logs.ActionPaymentCompleted,
			StoreID:     claims.StoreID,
			ActorID:     claims.UserID,
			ActorName:   claims.Name,
			Subject:     subject,
			BeforeState: map[string]any{"status": before},
			AfterState:  map[string]any{"status": model.Status},
			Details:     fmt.Sprintf("payment of %.2f completed", model.Amount),
			Amount:      &amount,
		})
	case OrderStatusCancelled:
		h.record(r.Context(), recordParams(claims, logs.ActionOrderCancelled, subject,
			map[string]any{"status": before}, map[string]any{"status": model.Status},
			"order cancelled"))
	}

	web.Respond(w, http.StatusOK, map[string]any{"order": model.toAPI(nil)})
}
