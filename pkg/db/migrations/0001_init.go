package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type Place struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	StoreID   string    `gorm:"type:text;not null;index"`
	Name      string    `gorm:"type:text;not null"`
	Floor     int       `gorm:"not null;default:0"`
	Sort      int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type DiningTable struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	StoreID   string     `gorm:"type:text;not null;index"`
	PlaceID   *uuid.UUID `gorm:"type:uuid;index"`
	Name      string     `gorm:"type:text;not null"`
	Status    string     `gorm:"type:text;not null;default:'empty'"`
	Occupancy int        `gorm:"not null;default:0"`
	Capacity  int        `gorm:"not null;default:4"`
	CreatedAt time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt time.Time  `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	Place     Place      `gorm:"foreignKey:PlaceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (DiningTable) TableName() string { return "dining_tables" }

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	StoreID   string    `gorm:"type:text;not null;index"`
	Name      string    `gorm:"type:text;not null"`
	Sort      int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type Menu struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	StoreID    string     `gorm:"type:text;not null;index"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index"`
	Name       string     `gorm:"type:text;not null"`
	Price      float64    `gorm:"not null;default:0"`
	ImageURL   string     `gorm:"type:text"`
	Available  bool       `gorm:"not null;default:true"`
	CreatedAt  time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	Category   Category   `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

type Order struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey"`
	StoreID   string      `gorm:"type:text;not null;index"`
	TableID   *uuid.UUID  `gorm:"type:uuid;index"`
	Status    string      `gorm:"type:text;not null;default:'pending'"`
	Amount    float64     `gorm:"not null;default:0"`
	CreatedAt time.Time   `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt time.Time   `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	Table     DiningTable `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

type OrderItem struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrderID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	MenuID   *uuid.UUID `gorm:"type:uuid"`
	Name     string     `gorm:"type:text;not null"`
	Quantity int        `gorm:"not null;default:1"`
	Price    float64    `gorm:"not null;default:0"`
	Order    Order      `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type Staff struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	StoreID      string    `gorm:"type:text;not null;index"`
	Email        string    `gorm:"type:text;uniqueIndex;not null"`
	Name         string    `gorm:"type:text;not null"`
	Role         string    `gorm:"type:text;not null;default:'server'"`
	PasswordHash string    `gorm:"type:text;not null"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

func (Staff) TableName() string { return "staff" }

type ActivityLog struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	StoreID     string            `gorm:"type:text;not null;index:idx_activity_logs_store_created,priority:1"`
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
	UndoneAt    *time.Time `gorm:"type:timestamptz"`
	UndoneBy    string     `gorm:"type:text"`
	CreatedAt   time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime;index:idx_activity_logs_store_created,priority:2,sort:desc"`
}

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).AutoMigrate(
		&Place{},
		&DiningTable{},
		&Category{},
		&Menu{},
		&Order{},
		&OrderItem{},
		&Staff{},
		&ActivityLog{},
	); err != nil {
		return err
	}

	m := gormDB.WithContext(ctx).Migrator()
	if err := m.CreateConstraint(&DiningTable{}, "Place"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&Menu{}, "Category"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&Order{}, "Table"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&OrderItem{}, "Order"); err != nil {
		return err
	}

	return nil
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&ActivityLog{},
		&Staff{},
		&OrderItem{},
		&Order{},
		&Menu{},
		&Category{},
		&DiningTable{},
		&Place{},
	)
}
