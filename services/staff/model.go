package staff

import (
	"time"

	"github.com/google/uuid"
)

// Roles a staff member can hold. Admins manage staff and catalog; managers
// manage catalog; servers operate tables and orders.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleServer  = "server"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleServer:
		return true
	default:
		return false
	}
}

type staffModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	StoreID      string    `gorm:"type:text;not null;index"`
	Email        string    `gorm:"type:text;uniqueIndex;not null"`
	Name         string    `gorm:"type:text;not null"`
	Role         string    `gorm:"type:text;not null;default:'server'"`
	PasswordHash string    `gorm:"type:text;not null"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime"`
}

func (staffModel) TableName() string { return "staff" }

// Member is the API view of a staff account. The password hash never leaves
// the package.
type Member struct {
	ID        uuid.UUID `json:"id"`
	StoreID   string    `json:"store_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m staffModel) toAPI() Member {
	return Member{
		ID:        m.ID,
		StoreID:   m.StoreID,
		Email:     m.Email,
		Name:      m.Name,
		Role:      m.Role,
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
