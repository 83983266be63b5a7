package admin

import (
	"time"

	"github.com/google/uuid"
)

// Table statuses. "empty" is the rest state a cleared table returns to.
const (
	TableStatusEmpty    = "empty"
	TableStatusSeated   = "seated"
	TableStatusReserved = "reserved"
	TableStatusCleaning = "cleaning"
)

// ValidTableStatus reports whether s is a known table status.
func ValidTableStatus(s string) bool {
	switch s {
	case TableStatusEmpty, TableStatusSeated, TableStatusReserved, TableStatusCleaning:
		return true
	default:
		return false
	}
}

// Order statuses, in rough lifecycle order.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusServed    = "served"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusServed, OrderStatusPaid, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

type placeModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	StoreID   string    `gorm:"type:text;not null;index"`
	Name      string    `gorm:"type:text;not null"`
	Floor     int       `gorm:"not null;default:0"`
	Sort      int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (placeModel) TableName() string { return "places" }

type tableModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	StoreID   string     `gorm:"type:text;not null;index"`
	PlaceID   *uuid.UUID `gorm:"type:uuid;index"`
	Name      string     `gorm:"type:text;not null"`
	Status    string     `gorm:"type:text;not null;default:'empty'"`
	Occupancy int        `gorm:"not null;default:0"`
	Capacity  int        `gorm:"not null;default:4"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

func (tableModel) TableName() string { return "dining_tables" }

type categoryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	StoreID   string    `gorm:"type:text;not null;index"`
	Name      string    `gorm:"type:text;not null"`
	Sort      int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (categoryModel) TableName() string { return "categories" }

type menuModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	StoreID    string     `gorm:"type:text;not null;index"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index"`
	Name       string     `gorm:"type:text;not null"`
	Price      float64    `gorm:"not null;default:0"`
	ImageURL   string     `gorm:"type:text"`
	Available  bool       `gorm:"not null;default:true"`
	CreatedAt  time.Time  `gorm:"not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
}

func (menuModel) TableName() string { return "menus" }

type orderModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	StoreID   string     `gorm:"type:text;not null;index"`
	TableID   *uuid.UUID `gorm:"type:uuid;index"`
	Status    string     `gorm:"type:text;not null;default:'pending'"`
	Amount    float64    `gorm:"not null;default:0"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

func (orderModel) TableName() string { return "orders" }

type orderItemModel struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrderID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	MenuID   *uuid.UUID `gorm:"type:uuid"`
	Name     string     `gorm:"type:text;not null"`
	Quantity int        `gorm:"not null;default:1"`
	Price    float64    `gorm:"not null;default:0"`
}

func (orderItemModel) TableName() string { return "order_items" }

// Place is the API view of a seating area.
type Place struct {
	ID        uuid.UUID `json:"id"`
	StoreID   string    `json:"store_id"`
	Name      string    `json:"name"`
	Floor     int       `json:"floor"`
	Sort      int       `json:"sort"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m placeModel) toAPI() Place {
	return Place{
		ID: m.ID, StoreID: m.StoreID, Name: m.Name, Floor: m.Floor, Sort: m.Sort,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

// Table is the API view of a dining table.
type Table struct {
	ID        uuid.UUID  `json:"id"`
	StoreID   string     `json:"store_id"`
	PlaceID   *uuid.UUID `json:"place_id,omitempty"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	Occupancy int        `json:"occupancy"`
	Capacity  int        `json:"capacity"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (m tableModel) toAPI() Table {
	return Table{
		ID: m.ID, StoreID: m.StoreID, PlaceID: m.PlaceID, Name: m.Name,
		Status: m.Status, Occupancy: m.Occupancy, Capacity: m.Capacity,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

// snapshot captures the undo-relevant slice of a table's state.
func (m tableModel) snapshot() map[string]any {
	return map[string]any{"status": m.Status, "occupancy": m.Occupancy}
}

// Category is the API view of a menu category.
type Category struct {
	ID        uuid.UUID `json:"id"`
	StoreID   string    `json:"store_id"`
	Name      string    `json:"name"`
	Sort      int       `json:"sort"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m categoryModel) toAPI() Category {
	return Category{
		ID: m.ID, StoreID: m.StoreID, Name: m.Name, Sort: m.Sort,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

// MenuItem is the API view of a sellable item.
type MenuItem struct {
	ID         uuid.UUID  `json:"id"`
	StoreID    string     `json:"store_id"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	Name       string     `json:"name"`
	Price      float64    `json:"price"`
	ImageURL   string     `json:"image_url,omitempty"`
	Available  bool       `json:"available"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (m menuModel) toAPI() MenuItem {
	return MenuItem{
		ID: m.ID, StoreID: m.StoreID, CategoryID: m.CategoryID, Name: m.Name,
		Price: m.Price, ImageURL: m.ImageURL, Available: m.Available,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID       uuid.UUID  `json:"id"`
	MenuID   *uuid.UUID `json:"menu_id,omitempty"`
	Name     string     `json:"name"`
	Quantity int        `json:"quantity"`
	Price    float64    `json:"price"`
}

func (m orderItemModel) toAPI() OrderItem {
	return OrderItem{ID: m.ID, MenuID: m.MenuID, Name: m.Name, Quantity: m.Quantity, Price: m.Price}
}

// Order is the API view of an order plus its lines.
type Order struct {
	ID        uuid.UUID   `json:"id"`
	StoreID   string      `json:"store_id"`
	TableID   *uuid.UUID  `json:"table_id,omitempty"`
	Status    string      `json:"status"`
	Amount    float64     `json:"amount"`
	Items     []OrderItem `json:"items,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (m orderModel) toAPI(items []orderItemModel) Order {
	o := Order{
		ID: m.ID, StoreID: m.StoreID, TableID: m.TableID, Status: m.Status,
		Amount: m.Amount, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
	for _, it := range items {
		o.Items = append(o.Items, it.toAPI())
	}
	return o
}
