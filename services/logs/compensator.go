package logs

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Order states in which a created order can still be cancelled. Kept local to
// the compensators so the engine does not depend on the admin packages.
const (
	orderStatusPending   = "pending"
	orderStatusConfirmed = "confirmed"
	orderStatusCancelled = "cancelled"
)

type compensateFunc func(tx *gorm.DB, entry *activityLogModel, now time.Time) error

// compensator reverses the effect of one action kind. An entry with a
// non-empty unsupported message refuses reversal permanently, before the time
// window is even consulted.
type compensator struct {
	apply       compensateFunc
	message     string
	unsupported string
}

// compensators is the undo dispatch table. Adding an undoable action means
// adding exactly one entry here plus its default in actionDefaults.
var compensators = map[Action]compensator{
	ActionTableStatusChanged: {apply: undoTableStatus, message: "table status restored"},
	ActionOrderCreated:       {apply: undoOrderCreated, message: "order cancelled"},
	ActionPaymentCompleted:   {unsupported: "payment reversal requires payment-gateway coordination and is not implemented"},
}

// undoTableStatus replays the captured before-state onto the subject table.
func undoTableStatus(tx *gorm.DB, entry *activityLogModel, now time.Time) error {
	if SubjectKind(entry.SubjectType) != SubjectTable || entry.SubjectID == "" {
		return conflictError(CodeUndoUnsupported, "log has no table subject")
	}

	updates := map[string]any{"updated_at": now}
	if v, ok := entry.BeforeState["status"]; ok {
		if s, ok := v.(string); ok && s != "" {
			updates["status"] = s
		}
	}
	if v, ok := entry.BeforeState["occupancy"]; ok {
		updates["occupancy"] = stateInt(v)
	}
	if len(updates) == 1 {
		return conflictError(CodeUndoUnsupported, "log captured no restorable table state")
	}

	res := tx.Table("dining_tables").
		Where("id = ? AND store_id = ?", entry.SubjectID, entry.StoreID).
		Updates(updates)
	if res.Error != nil {
		return storageError("restore table status", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("table %s not found", entry.SubjectID)
	}
	return nil
}

// undoOrderCreated cancels the subject order if it has not progressed past a
// cancellable state.
func undoOrderCreated(tx *gorm.DB, entry *activityLogModel, now time.Time) error {
	if SubjectKind(entry.SubjectType) != SubjectOrder || entry.SubjectID == "" {
		return conflictError(CodeUndoUnsupported, "log has no order subject")
	}

	var row struct{ Status string }
	err := tx.Table("orders").
		Select("status").
		Where("id = ? AND store_id = ?", entry.SubjectID, entry.StoreID).
		Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFoundError("order %s not found", entry.SubjectID)
	case err != nil:
		return storageError("load order", err)
	}

	if row.Status != orderStatusPending && row.Status != orderStatusConfirmed {
		return conflictError(CodeOrderNotCancellable, "order in state %s cannot be cancelled", row.Status)
	}

	res := tx.Table("orders").
		Where("id = ? AND store_id = ?", entry.SubjectID, entry.StoreID).
		Updates(map[string]any{"status": orderStatusCancelled, "updated_at": now})
	if res.Error != nil {
		return storageError("cancel order", res.Error)
	}
	return nil
}

// stateInt coerces a snapshot value into an int. JSON round-trips numbers as
// float64.
func stateInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
