package logs

// Action identifies what happened. The set is closed: Record rejects any
// action not listed here, and the undo dispatch is keyed on it.
type Action string

const (
	ActionTableStatusChanged Action = "table.status_changed"
	ActionTableSeated        Action = "table.seated"
	ActionTableCleared       Action = "table.cleared"

	ActionOrderCreated     Action = "order.created"
	ActionOrderCancelled   Action = "order.cancelled"
	ActionPaymentCompleted Action = "payment.completed"

	ActionPlaceCreated Action = "place.created"
	ActionPlaceUpdated Action = "place.updated"
	ActionPlaceDeleted Action = "place.deleted"

	ActionTableCreated Action = "table.created"
	ActionTableUpdated Action = "table.updated"
	ActionTableDeleted Action = "table.deleted"

	ActionCategoryCreated Action = "category.created"
	ActionCategoryUpdated Action = "category.updated"
	ActionCategoryDeleted Action = "category.deleted"

	ActionMenuAdded   Action = "menu.added"
	ActionMenuUpdated Action = "menu.updated"
	ActionMenuRemoved Action = "menu.removed"

	// ActionLogUndone is the companion entry appended when a log is reversed.
	ActionLogUndone Action = "log.undone"
)

// actionDefaults lists every valid action and whether it is undoable when the
// caller does not say. Only actions with a registered compensator default to
// true; payment.completed is flagged undoable so an attempt reaches its
// permanently-unsupported handler rather than dying on the flag check.
var actionDefaults = map[Action]bool{
	ActionTableStatusChanged: true,
	ActionTableSeated:        false,
	ActionTableCleared:       false,
	ActionOrderCreated:       true,
	ActionOrderCancelled:     false,
	ActionPaymentCompleted:   true,
	ActionPlaceCreated:       false,
	ActionPlaceUpdated:       false,
	ActionPlaceDeleted:       false,
	ActionTableCreated:       false,
	ActionTableUpdated:       false,
	ActionTableDeleted:       false,
	ActionCategoryCreated:    false,
	ActionCategoryUpdated:    false,
	ActionCategoryDeleted:    false,
	ActionMenuAdded:          false,
	ActionMenuUpdated:        false,
	ActionMenuRemoved:        false,
	ActionLogUndone:          false,
}

// Valid reports whether a is a member of the closed action set.
func (a Action) Valid() bool {
	_, ok := actionDefaults[a]
	return ok
}

// DefaultUndoable reports the per-kind undoability applied when Record is not
// given an explicit flag.
func (a Action) DefaultUndoable() bool {
	return actionDefaults[a]
}

// SubjectKind names the kind of entity a log describes a change to.
type SubjectKind string

const (
	SubjectTable    SubjectKind = "table"
	SubjectOrder    SubjectKind = "order"
	SubjectPlace    SubjectKind = "place"
	SubjectCategory SubjectKind = "category"
	SubjectMenu     SubjectKind = "menu"
)

// Valid reports whether k is a member of the closed subject set.
func (k SubjectKind) Valid() bool {
	switch k {
	case SubjectTable, SubjectOrder, SubjectPlace, SubjectCategory, SubjectMenu:
		return true
	default:
		return false
	}
}

// Subject is a weak reference to the affected entity: lookup only, no
// ownership.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}
