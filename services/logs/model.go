package logs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type activityLogModel struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	StoreID     string            `gorm:"type:text;not null;index"`
	Action      string            `gorm:"type:text;not null;index"`
	ActorID     string            `gorm:"type:text;not null"`
	ActorName   string            `gorm:"type:text;not null"`
	SubjectType string            `gorm:"type:text"`
	SubjectID   string            `gorm:"type:text"`
	BeforeState datatypes.JSONMap `gorm:"type:jsonb"`
	AfterState  datatypes.JSONMap `gorm:"type:jsonb"`
	Details     string            `gorm:"type:text;not null"`
	Amount      *float64
	Undoable    bool       `gorm:"not null;default:false"`
	UndoneAt    *time.Time
	UndoneBy    string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime"`
}

func (activityLogModel) TableName() string { return "activity_logs" }

// Entry is the API view of a stored log. IsUndoable is computed at read time
// and can flip to false purely through elapsed wall-clock time.
type Entry struct {
	ID          uuid.UUID      `json:"id"`
	StoreID     string         `json:"store_id"`
	Action      Action         `json:"action"`
	ActorID     string         `json:"actor_id"`
	ActorName   string         `json:"actor_name"`
	Subject     *Subject       `json:"subject,omitempty"`
	BeforeState map[string]any `json:"before_state,omitempty"`
	AfterState  map[string]any `json:"after_state,omitempty"`
	Details     string         `json:"details"`
	Amount      *float64       `json:"amount,omitempty"`
	Undoable    bool           `json:"undoable"`
	IsUndoable  bool           `json:"is_undoable"`
	UndoneAt    *time.Time     `json:"undone_at,omitempty"`
	UndoneBy    string         `json:"undone_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (m activityLogModel) toEntry(now time.Time, window time.Duration) Entry {
	e := Entry{
		ID:          m.ID,
		StoreID:     m.StoreID,
		Action:      Action(m.Action),
		ActorID:     m.ActorID,
		ActorName:   m.ActorName,
		BeforeState: mapFromJSONMap(m.BeforeState),
		AfterState:  mapFromJSONMap(m.AfterState),
		Details:     m.Details,
		Amount:      m.Amount,
		Undoable:    m.Undoable,
		UndoneAt:    m.UndoneAt,
		UndoneBy:    m.UndoneBy,
		CreatedAt:   m.CreatedAt,
	}
	if m.SubjectType != "" {
		e.Subject = &Subject{Kind: SubjectKind(m.SubjectType), ID: m.SubjectID}
	}
	e.IsUndoable = m.Undoable && m.UndoneAt == nil && now.Sub(m.CreatedAt) <= window
	return e
}

func mapFromJSONMap(src datatypes.JSONMap) map[string]any {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func toJSONMap(src map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range src {
		out[k] = v
	}
	return out
}
