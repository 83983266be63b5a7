package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"posd/pkg/bus"
)

// StatusEvent is the table-status message carried on the bus.
type StatusEvent struct {
	StoreID   string    `json:"store_id"`
	TableID   uuid.UUID `json:"table_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Occupancy int       `json:"occupancy"`
}

// TableState is the tracker's view of one table.
type TableState struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Occupancy int       `json:"occupancy"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker consumes table-status events and keeps a live per-store picture of
// the floor. It is eventually consistent with the database; the overview
// endpoint remains the authoritative read.
type Tracker struct {
	bus *bus.Bus
	log zerolog.Logger

	mu     sync.RWMutex
	stores map[string]map[uuid.UUID]TableState

	sub io.Closer
}

// NewTracker creates a Tracker reading from b.
func NewTracker(b *bus.Bus, logger zerolog.Logger) *Tracker {
	return &Tracker{
		bus:    b,
		log:    logger,
		stores: make(map[string]map[uuid.UUID]TableState),
	}
}

// Start subscribes to the table-status subject with a durable consumer so the
// tracker resumes where it left off after a restart.
func (t *Tracker) Start(ctx context.Context) error {
	if t.bus == nil {
		return errors.New("bus is required")
	}

	sub, err := t.bus.Subscribe(ctx, bus.SubjectTableStatus, "posd-occupancy", t.handle)
	if err != nil {
		return fmt.Errorf("subscribe table status: %w", err)
	}
	t.sub = sub
	return nil
}

// Stop drains the subscription.
func (t *Tracker) Stop() {
	if t.sub != nil {
		_ = t.sub.Close()
	}
}

func (t *Tracker) handle(_ context.Context, data []byte) error {
	var event StatusEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// Malformed messages are dropped, not redelivered forever.
		t.log.Warn().Err(err).Msg("drop malformed table status event")
		return nil
	}
	if event.StoreID == "" || event.TableID == uuid.Nil {
		t.log.Warn().Msg("drop table status event without identity")
		return nil
	}

	t.apply(event, time.Now().UTC())
	return nil
}

func (t *Tracker) apply(event StatusEvent, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tables, ok := t.stores[event.StoreID]
	if !ok {
		tables = make(map[uuid.UUID]TableState)
		t.stores[event.StoreID] = tables
	}
	tables[event.TableID] = TableState{
		Name:      event.Name,
		Status:    event.Status,
		Occupancy: event.Occupancy,
		UpdatedAt: at,
	}
}

// Snapshot returns a copy of the store's live table map.
func (t *Tracker) Snapshot(storeID string) map[uuid.UUID]TableState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[uuid.UUID]TableState, len(t.stores[storeID]))
	for id, state := range t.stores[storeID] {
		out[id] = state
	}
	return out
}
