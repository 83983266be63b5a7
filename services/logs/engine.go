package logs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"posd/pkg/bus"
	"posd/pkg/cache"
)

const (
	defaultUndoWindow  = 30 * time.Minute
	defaultMaxPageSize = 100
	defaultPageSize    = 20
	defaultPageTTL     = 30 * time.Second
)

// Config controls the engine's tunables.
type Config struct {
	// UndoWindow is how long after creation an undoable log can be reversed.
	UndoWindow time.Duration
	// MaxPageSize caps List page sizes regardless of what the caller asks for.
	MaxPageSize int
	// PageTTL is how long unfiltered list pages stay cached.
	PageTTL time.Duration
}

// Engine records activity entries and reverses a bounded subset of them.
// Everything is scoped by store: a log is only visible to, and undoable by,
// actors of the store that produced it.
type Engine struct {
	orm   *gorm.DB
	cache *cache.Cache
	bus   *bus.Bus
	cfg   Config
	log   zerolog.Logger

	now func() time.Time
}

// NewEngine wires an Engine to its injected collaborators. The bus is
// optional; cache and orm are not.
func NewEngine(orm *gorm.DB, c *cache.Cache, b *bus.Bus, cfg Config, logger zerolog.Logger) (*Engine, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	if c == nil {
		return nil, errors.New("cache is required")
	}
	if cfg.UndoWindow <= 0 {
		cfg.UndoWindow = defaultUndoWindow
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = defaultMaxPageSize
	}
	if cfg.PageTTL <= 0 {
		cfg.PageTTL = defaultPageTTL
	}

	return &Engine{
		orm:   orm,
		cache: c,
		bus:   b,
		cfg:   cfg,
		log:   logger,
		now:   time.Now,
	}, nil
}

// RecordParams describes a new activity entry. Undoable overrides the
// per-action default when set.
type RecordParams struct {
	Action      Action
	StoreID     string
	ActorID     string
	ActorName   string
	Subject     *Subject
	BeforeState map[string]any
	AfterState  map[string]any
	Details     string
	Amount      *float64
	Undoable    *bool
}

// Record validates params and appends an immutable activity entry. The
// store's cache partition is invalidated and the event published best-effort.
func (e *Engine) Record(ctx context.Context, p RecordParams) (Entry, error) {
	if !p.Action.Valid() {
		return Entry{}, validationError("unknown action %q", p.Action)
	}
	if p.StoreID == "" {
		return Entry{}, validationError("store_id is required")
	}
	if p.ActorID == "" || p.ActorName == "" {
		return Entry{}, validationError("actor_id and actor_name are required")
	}
	if p.Details == "" {
		return Entry{}, validationError("details is required")
	}
	if p.Amount != nil && *p.Amount < 0 {
		return Entry{}, validationError("amount must be non-negative")
	}
	if p.Subject != nil && !p.Subject.Kind.Valid() {
		return Entry{}, validationError("unknown subject kind %q", p.Subject.Kind)
	}

	undoable := p.Action.DefaultUndoable()
	if p.Undoable != nil {
		undoable = *p.Undoable
	}

	now := e.now().UTC()
	model := activityLogModel{
		ID:          uuid.New(),
		StoreID:     p.StoreID,
		Action:      string(p.Action),
		ActorID:     p.ActorID,
		ActorName:   p.ActorName,
		BeforeState: toJSONMap(p.BeforeState),
		AfterState:  toJSONMap(p.AfterState),
		Details:     p.Details,
		Amount:      p.Amount,
		Undoable:    undoable,
		CreatedAt:   now,
	}
	if p.Subject != nil {
		model.SubjectType = string(p.Subject.Kind)
		model.SubjectID = p.Subject.ID
	}

	if err := e.orm.WithContext(ctx).Create(&model).Error; err != nil {
		return Entry{}, storageError("insert activity log", err)
	}

	cache.InvalidateStore(e.cache, p.StoreID)

	entry := model.toEntry(now, e.cfg.UndoWindow)
	e.publish(ctx, bus.SubjectLogRecorded, map[string]any{
		"log_id":   entry.ID,
		"store_id": entry.StoreID,
		"action":   entry.Action,
	})

	return entry, nil
}

// ListResult is one page of logs plus pagination metadata.
type ListResult struct {
	Logs    []Entry `json:"logs"`
	Total   int64   `json:"total"`
	HasMore bool    `json:"has_more"`
}

// List returns a page of the store's logs, most recent first. Unfiltered
// pages are cached briefly; filtered queries always hit the store.
func (e *Engine) List(ctx context.Context, storeID string, limit, offset int, action Action) (ListResult, error) {
	if storeID == "" {
		return ListResult{}, validationError("store_id is required")
	}
	if action != "" && !action.Valid() {
		return ListResult{}, validationError("unknown action %q", action)
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > e.cfg.MaxPageSize {
		limit = e.cfg.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	key := fmt.Sprintf("logs:%s:page:%d:%d", storeID, limit, offset)
	if action == "" {
		if cached, ok := e.cache.Get(key); ok {
			if result, ok := cached.(ListResult); ok {
				return result, nil
			}
		}
	}

	query := e.orm.WithContext(ctx).Model(&activityLogModel{}).Where("store_id = ?", storeID)
	if action != "" {
		query = query.Where("action = ?", string(action))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return ListResult{}, storageError("count activity logs", err)
	}

	// The id tiebreak keeps pagination deterministic when entries share a
	// timestamp; within such a group the order is by id, not insertion.
	var models []activityLogModel
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error; err != nil {
		return ListResult{}, storageError("list activity logs", err)
	}

	now := e.now().UTC()
	entries := make([]Entry, 0, len(models))
	for _, m := range models {
		entries = append(entries, m.toEntry(now, e.cfg.UndoWindow))
	}

	result := ListResult{
		Logs:    entries,
		Total:   total,
		HasMore: int64(offset+len(entries)) < total,
	}

	if action == "" {
		e.cache.Set(key, result, e.cfg.PageTTL)
	}

	return result, nil
}

// Undoable returns the store's logs currently satisfying the undoable
// predicate: flag set, not yet undone, and inside the window.
func (e *Engine) Undoable(ctx context.Context, storeID string, limit int) ([]Entry, error) {
	if storeID == "" {
		return nil, validationError("store_id is required")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > e.cfg.MaxPageSize {
		limit = e.cfg.MaxPageSize
	}

	now := e.now().UTC()
	cutoff := now.Add(-e.cfg.UndoWindow)

	var models []activityLogModel
	err := e.orm.WithContext(ctx).
		Where("store_id = ? AND undoable = ? AND undone_at IS NULL AND created_at >= ?", storeID, true, cutoff).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, storageError("list undoable logs", err)
	}

	entries := make([]Entry, 0, len(models))
	for _, m := range models {
		entries = append(entries, m.toEntry(now, e.cfg.UndoWindow))
	}
	return entries, nil
}

// UndoResult reports a successful reversal.
type UndoResult struct {
	Log     Entry  `json:"log"`
	Message string `json:"message"`
}

// Undo reverses a previously recorded action. Preconditions are checked in
// order (exists, flag, not already undone, supported, window), then the
// compensation, the undone mark, and the companion entry run in a single
// transaction. The mark is conditional on undone_at still being null, so a
// concurrent undo of the same log loses deterministically.
func (e *Engine) Undo(ctx context.Context, logID uuid.UUID, storeID, actorID, actorName string) (UndoResult, error) {
	if logID == uuid.Nil {
		return UndoResult{}, validationError("log_id is required")
	}
	if storeID == "" || actorID == "" || actorName == "" {
		return UndoResult{}, validationError("store_id, actor_id and actor_name are required")
	}

	var model activityLogModel
	err := e.orm.WithContext(ctx).
		Where("id = ? AND store_id = ?", logID, storeID).
		First(&model).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return UndoResult{}, notFoundError("log %s not found", logID)
	case err != nil:
		return UndoResult{}, storageError("load activity log", err)
	}

	if !model.Undoable {
		return UndoResult{}, conflictError(CodeNotUndoable, "action %s is not undoable", model.Action)
	}
	if model.UndoneAt != nil {
		return UndoResult{}, conflictError(CodeAlreadyUndone, "log has already been undone")
	}

	comp, ok := compensators[Action(model.Action)]
	if !ok {
		return UndoResult{}, conflictError(CodeUndoUnsupported, "undo not supported for action %s", model.Action)
	}
	if comp.unsupported != "" {
		// Permanent refusal, independent of the time window.
		return UndoResult{}, conflictError(CodeUndoUnsupported, "%s", comp.unsupported)
	}

	now := e.now().UTC()
	if now.Sub(model.CreatedAt) > e.cfg.UndoWindow {
		return UndoResult{}, conflictError(CodeWindowExpired, "undo time limit exceeded")
	}

	companion := activityLogModel{
		ID:          uuid.New(),
		StoreID:     model.StoreID,
		Action:      string(ActionLogUndone),
		ActorID:     actorID,
		ActorName:   actorName,
		SubjectType: model.SubjectType,
		SubjectID:   model.SubjectID,
		// Swapped so the reversal narrative reads forward.
		BeforeState: model.AfterState,
		AfterState:  model.BeforeState,
		Details:     fmt.Sprintf("undo: %s", model.Details),
		Undoable:    false,
		CreatedAt:   now,
	}

	err = e.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&activityLogModel{}).
			Where("id = ? AND undone_at IS NULL", model.ID).
			Updates(map[string]any{"undone_at": now, "undone_by": actorID})
		if res.Error != nil {
			return storageError("mark log undone", res.Error)
		}
		if res.RowsAffected == 0 {
			return conflictError(CodeAlreadyUndone, "log has already been undone")
		}

		if err := comp.apply(tx, &model, now); err != nil {
			return err
		}

		if err := tx.Create(&companion).Error; err != nil {
			return storageError("insert companion log", err)
		}
		return nil
	})
	if err != nil {
		var engineErr *Error
		if errors.As(err, &engineErr) {
			return UndoResult{}, engineErr
		}
		return UndoResult{}, storageError("undo transaction", err)
	}

	cache.InvalidateStore(e.cache, model.StoreID)

	model.UndoneAt = &now
	model.UndoneBy = actorID
	entry := model.toEntry(now, e.cfg.UndoWindow)

	e.publish(ctx, bus.SubjectLogUndone, map[string]any{
		"log_id":    entry.ID,
		"store_id":  entry.StoreID,
		"action":    entry.Action,
		"undone_by": actorID,
	})

	return UndoResult{Log: entry, Message: comp.message}, nil
}

// Export streams every log of the store, most recent first, through fn.
func (e *Engine) Export(ctx context.Context, storeID string, fn func(Entry) error) error {
	if storeID == "" {
		return validationError("store_id is required")
	}
	if fn == nil {
		return validationError("callback is required")
	}

	const batchSize = 500
	now := e.now().UTC()

	for offset := 0; ; offset += batchSize {
		var models []activityLogModel
		err := e.orm.WithContext(ctx).
			Where("store_id = ?", storeID).
			Order("created_at DESC, id DESC").
			Limit(batchSize).
			Offset(offset).
			Find(&models).Error
		if err != nil {
			return storageError("export activity logs", err)
		}
		for _, m := range models {
			if err := fn(m.toEntry(now, e.cfg.UndoWindow)); err != nil {
				return err
			}
		}
		if len(models) < batchSize {
			return nil
		}
	}
}

func (e *Engine) publish(ctx context.Context, subj string, payload any) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, subj, payload); err != nil {
		e.log.Debug().Err(err).Str("subject", subj).Msg("publish log event")
	}
}
