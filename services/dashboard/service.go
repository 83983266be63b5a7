package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"posd/pkg/bus"
	"posd/pkg/cache"
	"posd/pkg/db"
	"posd/services/admin"
	"posd/services/logs"
)

const (
	overviewTTL = 30 * time.Second
	statsTTL    = 5 * time.Minute
	topItems    = 5
)

// Service composes entity reads into the aggregate dashboard views and owns
// the table-status transition.
type Service struct {
	pool   *pgxpool.Pool
	orm    *gorm.DB
	cache  *cache.Cache
	engine *logs.Engine
	bus    *bus.Bus
	log    zerolog.Logger

	now func() time.Time
}

// NewService wires the dashboard service. The bus is optional.
func NewService(pool *pgxpool.Pool, orm *gorm.DB, c *cache.Cache, engine *logs.Engine, b *bus.Bus, logger zerolog.Logger) (*Service, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	if c == nil {
		return nil, errors.New("cache is required")
	}
	if engine == nil {
		return nil, errors.New("log engine is required")
	}
	return &Service{pool: pool, orm: orm, cache: c, engine: engine, bus: b, log: logger, now: time.Now}, nil
}

// TableInfo is one table inside an overview.
type TableInfo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Occupancy int       `json:"occupancy"`
	Capacity  int       `json:"capacity"`
}

// PlaceOverview aggregates one seating area.
type PlaceOverview struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Floor        int         `json:"floor"`
	Tables       []TableInfo `json:"tables"`
	SeatedTables int         `json:"seated_tables"`
	Occupancy    int         `json:"occupancy"`
	Capacity     int         `json:"capacity"`
	ActiveAmount float64     `json:"active_amount"`
}

// Overview is the store-wide seating and revenue summary.
type Overview struct {
	Places       []PlaceOverview `json:"places"`
	Unassigned   []TableInfo     `json:"unassigned,omitempty"`
	TotalTables  int             `json:"total_tables"`
	SeatedTables int             `json:"seated_tables"`
	Occupancy    int             `json:"occupancy"`
	Capacity     int             `json:"capacity"`
	ActiveAmount float64         `json:"active_amount"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// Overview joins places and tables into the seating summary. Results are
// cached briefly; a stale view self-corrects within the TTL.
func (s *Service) Overview(ctx context.Context, storeID string) (Overview, error) {
	if storeID == "" {
		return Overview{}, errors.New("store_id is required")
	}

	key := fmt.Sprintf("dashboard:%s:overview", storeID)
	if cached, ok := s.cache.Get(key); ok {
		if overview, ok := cached.(Overview); ok {
			return overview, nil
		}
	}

	var places []struct {
		ID    uuid.UUID
		Name  string
		Floor int
	}
	err := db.Select(ctx, s.pool, &places,
		`SELECT id, name, floor FROM places WHERE store_id = $1 ORDER BY floor, sort, name`, storeID)
	if err != nil {
		return Overview{}, fmt.Errorf("load places: %w", err)
	}

	var tables []struct {
		ID        uuid.UUID
		PlaceID   *uuid.UUID
		Name      string
		Status    string
		Occupancy int
		Capacity  int
	}
	err = db.Select(ctx, s.pool, &tables,
		`SELECT id, place_id, name, status, occupancy, capacity
		 FROM dining_tables WHERE store_id = $1 ORDER BY name`, storeID)
	if err != nil {
		return Overview{}, fmt.Errorf("load tables: %w", err)
	}

	var active []struct {
		PlaceID *uuid.UUID
		Amount  float64
	}
	err = db.Select(ctx, s.pool, &active,
		`SELECT t.place_id, COALESCE(SUM(o.amount), 0) AS amount
		 FROM orders o
		 JOIN dining_tables t ON t.id = o.table_id
		 WHERE o.store_id = $1 AND o.status IN ('pending', 'confirmed', 'preparing', 'served')
		 GROUP BY t.place_id`, storeID)
	if err != nil {
		return Overview{}, fmt.Errorf("load active orders: %w", err)
	}

	overview := Overview{
		Places:      make([]PlaceOverview, 0, len(places)),
		GeneratedAt: s.now().UTC(),
	}
	// overview.Places never regrows, so pointers into it stay valid.
	byPlace := make(map[uuid.UUID]*PlaceOverview, len(places))
	for _, p := range places {
		overview.Places = append(overview.Places, PlaceOverview{ID: p.ID, Name: p.Name, Floor: p.Floor})
		byPlace[p.ID] = &overview.Places[len(overview.Places)-1]
	}

	for _, t := range tables {
		info := TableInfo{ID: t.ID, Name: t.Name, Status: t.Status, Occupancy: t.Occupancy, Capacity: t.Capacity}

		overview.TotalTables++
		overview.Occupancy += t.Occupancy
		overview.Capacity += t.Capacity
		if t.Status == admin.TableStatusSeated {
			overview.SeatedTables++
		}

		place := (*PlaceOverview)(nil)
		if t.PlaceID != nil {
			place = byPlace[*t.PlaceID]
		}
		if place == nil {
			overview.Unassigned = append(overview.Unassigned, info)
			continue
		}
		place.Tables = append(place.Tables, info)
		place.Occupancy += t.Occupancy
		place.Capacity += t.Capacity
		if t.Status == admin.TableStatusSeated {
			place.SeatedTables++
		}
	}

	for _, a := range active {
		overview.ActiveAmount += a.Amount
		if a.PlaceID != nil {
			if place := byPlace[*a.PlaceID]; place != nil {
				place.ActiveAmount += a.Amount
			}
		}
	}

	s.cache.Set(key, overview, overviewTTL)
	return overview, nil
}

// TodayStats is the day-so-far report.
type TodayStats struct {
	Date         string         `json:"date"`
	Orders       int            `json:"orders"`
	Revenue      float64        `json:"revenue"`
	Hourly       [24]HourBucket `json:"hourly"`
	PeakHour     int            `json:"peak_hour"`
	PopularItems []RankedItem   `json:"popular_items"`
	Turnover     float64        `json:"turnover"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// TodayStats aggregates the store's orders since midnight UTC.
func (s *Service) TodayStats(ctx context.Context, storeID string) (TodayStats, error) {
	if storeID == "" {
		return TodayStats{}, errors.New("store_id is required")
	}

	key := fmt.Sprintf("stats:%s:today", storeID)
	if cached, ok := s.cache.Get(key); ok {
		if stats, ok := cached.(TodayStats); ok {
			return stats, nil
		}
	}

	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var orders []OrderSample
	err := db.Select(ctx, s.pool, &orders,
		`SELECT EXTRACT(HOUR FROM created_at)::int AS hour, amount, status
		 FROM orders WHERE store_id = $1 AND created_at >= $2`, storeID, midnight)
	if err != nil {
		return TodayStats{}, fmt.Errorf("load today's orders: %w", err)
	}

	var items []ItemSample
	err = db.Select(ctx, s.pool, &items,
		`SELECT oi.name, oi.quantity, oi.price * oi.quantity AS revenue
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE o.store_id = $1 AND o.created_at >= $2 AND o.status <> 'cancelled'
		 ORDER BY o.created_at, oi.id`, storeID, midnight)
	if err != nil {
		return TodayStats{}, fmt.Errorf("load today's items: %w", err)
	}

	var tableCount int
	err = db.Get(ctx, s.pool, &tableCount,
		`SELECT COUNT(*) FROM dining_tables WHERE store_id = $1`, storeID)
	if err != nil {
		return TodayStats{}, fmt.Errorf("count tables: %w", err)
	}

	stats := TodayStats{
		Date:        midnight.Format("2006-01-02"),
		Hourly:      HourlyBuckets(orders),
		GeneratedAt: now,
	}
	completed := 0
	for _, o := range orders {
		if o.Status == admin.OrderStatusCancelled {
			continue
		}
		stats.Orders++
		stats.Revenue += o.Amount
		if o.Status == admin.OrderStatusServed || o.Status == admin.OrderStatusPaid {
			completed++
		}
	}
	stats.PeakHour = PeakHour(stats.Hourly)
	stats.PopularItems = RankItems(items, topItems)
	stats.Turnover = Turnover(completed, tableCount)

	s.cache.Set(key, stats, statsTTL)
	return stats, nil
}

type diningTableRow struct {
	ID        uuid.UUID
	StoreID   string
	Name      string
	Status    string
	Occupancy int
	Capacity  int
	UpdatedAt time.Time
}

func (diningTableRow) TableName() string { return "dining_tables" }

// UpdateTableStatus writes the table's new status and then records the
// transition. The write stands even if recording fails: losing an audit entry
// is preferable to blocking floor operations, and the failure is logged for
// reconciliation.
func (s *Service) UpdateTableStatus(ctx context.Context, storeID, actorID, actorName string, tableID uuid.UUID, newStatus string, occupancy *int) (TableInfo, error) {
	if storeID == "" || actorID == "" || actorName == "" {
		return TableInfo{}, errors.New("store and actor identity are required")
	}
	if !admin.ValidTableStatus(newStatus) {
		return TableInfo{}, fmt.Errorf("unknown table status %q", newStatus)
	}

	var table diningTableRow
	err := s.orm.WithContext(ctx).
		Where("id = ? AND store_id = ?", tableID, storeID).
		First(&table).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return TableInfo{}, gorm.ErrRecordNotFound
	case err != nil:
		return TableInfo{}, fmt.Errorf("load table: %w", err)
	}

	before := map[string]any{"status": table.Status, "occupancy": table.Occupancy}

	table.Status = newStatus
	switch {
	case occupancy != nil && *occupancy >= 0:
		table.Occupancy = *occupancy
	case newStatus == admin.TableStatusEmpty:
		table.Occupancy = 0
	}
	table.UpdatedAt = s.now().UTC()

	if err := s.orm.WithContext(ctx).Save(&table).Error; err != nil {
		return TableInfo{}, fmt.Errorf("update table status: %w", err)
	}

	after := map[string]any{"status": table.Status, "occupancy": table.Occupancy}
	if _, err := s.engine.Record(ctx, logs.RecordParams{
		Action:      logs.ActionTableStatusChanged,
		StoreID:     storeID,
		ActorID:     actorID,
		ActorName:   actorName,
		Subject:     &logs.Subject{Kind: logs.SubjectTable, ID: tableID.String()},
		BeforeState: before,
		AfterState:  after,
		Details:     fmt.Sprintf("table %q %s -> %s", table.Name, before["status"], table.Status),
	}); err != nil {
		s.log.Error().Err(err).
			Str("table_id", tableID.String()).
			Str("store_id", storeID).
			Msg("record table status change")
	}

	cache.InvalidateStore(s.cache, storeID)

	if s.bus != nil {
		event := StatusEvent{
			StoreID:   storeID,
			TableID:   tableID,
			Name:      table.Name,
			Status:    table.Status,
			Occupancy: table.Occupancy,
		}
		if err := s.bus.Publish(ctx, bus.SubjectTableStatus, event); err != nil {
			s.log.Debug().Err(err).Str("table_id", tableID.String()).Msg("publish table status")
		}
	}

	return TableInfo{
		ID: table.ID, Name: table.Name, Status: table.Status,
		Occupancy: table.Occupancy, Capacity: table.Capacity,
	}, nil
}
