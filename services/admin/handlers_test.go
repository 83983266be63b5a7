package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"posd/pkg/cache"
	"posd/services/logs"
	"posd/services/staff"
)

// Mirror of the engine's log table so the test schema can be migrated from
// here.
type testActivityLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	StoreID     string
	Action      string
	ActorID     string
	ActorName   string
	SubjectType string
	SubjectID   string
	BeforeState datatypes.JSONMap
	AfterState  datatypes.JSONMap
	Details     string
	Amount      *float64
	Undoable    bool
	UndoneAt    *time.Time
	UndoneBy    string
	CreatedAt   time.Time
}

func (testActivityLog) TableName() string { return "activity_logs" }

type testEnv struct {
	db     *gorm.DB
	server *httptest.Server
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&placeModel{}, &tableModel{}, &categoryModel{}, &menuModel{},
		&orderModel{}, &orderItemModel{}, &testActivityLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	engine, err := logs.NewEngine(db, cache.New(64, time.Minute), nil, logs.Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	handler, err := NewHandler(db, engine, nil, "", zerolog.Nop())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	issuer, err := staff.NewTokenIssuer("test-key", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	token, err := issuer.Issue(staff.Member{
		ID: uuid.New(), StoreID: "s1", Role: staff.RoleAdmin, Name: "Mina",
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(staff.Auth(issuer))
		handler.Routes(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{db: db, server: srv, token: token}
}

func (env *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, env.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+env.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	var envelope map[string]any
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res, envelope
}

func TestTableLifecycleRecordsLogs(t *testing.T) {
	env := newTestEnv(t)

	res, body := env.do(t, http.MethodPost, "/tables", map[string]any{
		"name": "T1", "capacity": 6,
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create table: status %d, body %v", res.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	table := data["table"].(map[string]any)
	if table["status"] != TableStatusEmpty {
		t.Fatalf("new table status = %v, want %s", table["status"], TableStatusEmpty)
	}
	tableID := table["id"].(string)

	res, _ = env.do(t, http.MethodPatch, "/tables/"+tableID, map[string]any{"name": "Window 1"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update table: status %d", res.StatusCode)
	}

	res, _ = env.do(t, http.MethodDelete, "/tables/"+tableID, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete table: status %d", res.StatusCode)
	}

	var recorded []testActivityLog
	env.db.Where("store_id = ?", "s1").Order("created_at ASC").Find(&recorded)
	if len(recorded) != 3 {
		t.Fatalf("recorded %d logs, want 3", len(recorded))
	}
	wantActions := []string{"table.created", "table.updated", "table.deleted"}
	for i, log := range recorded {
		if log.Action != wantActions[i] {
			t.Fatalf("log[%d].action = %s, want %s", i, log.Action, wantActions[i])
		}
		if log.Undoable {
			t.Fatalf("catalog CRUD log %s must not be undoable", log.Action)
		}
	}
}

func TestDeleteSeatedTableConflicts(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now().UTC()
	seated := tableModel{
		ID: uuid.New(), StoreID: "s1", Name: "T9", Status: TableStatusSeated,
		Occupancy: 4, Capacity: 4, CreatedAt: now, UpdatedAt: now,
	}
	if err := env.db.Create(&seated).Error; err != nil {
		t.Fatalf("insert table: %v", err)
	}

	res, body := env.do(t, http.MethodDelete, "/tables/"+seated.ID.String(), nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, body %v", res.StatusCode, body)
	}
}

func TestCrossStoreRowsInvisible(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now().UTC()
	foreign := placeModel{
		ID: uuid.New(), StoreID: "other", Name: "Elsewhere", CreatedAt: now, UpdatedAt: now,
	}
	if err := env.db.Create(&foreign).Error; err != nil {
		t.Fatalf("insert place: %v", err)
	}

	res, _ := env.do(t, http.MethodPatch, "/places/"+foreign.ID.String(), map[string]any{"name": "Hijack"})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-store update: status %d, want 404", res.StatusCode)
	}

	_, body := env.do(t, http.MethodGet, "/places", nil)
	data := body["data"].(map[string]any)
	if places := data["places"].([]any); len(places) != 0 {
		t.Fatalf("foreign place leaked into listing: %v", places)
	}
}

func TestOrderCreateComputesAmount(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now().UTC()
	menu := menuModel{
		ID: uuid.New(), StoreID: "s1", Name: "Espresso", Price: 3.5, Available: true,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := env.db.Create(&menu).Error; err != nil {
		t.Fatalf("insert menu: %v", err)
	}

	res, body := env.do(t, http.MethodPost, "/orders", map[string]any{
		"items": []map[string]any{{"menu_id": menu.ID.String(), "quantity": 2}},
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create order: status %d, body %v", res.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	order := data["order"].(map[string]any)
	if amount := order["amount"].(float64); amount != 7.0 {
		t.Fatalf("amount = %v, want 7", amount)
	}

	var recorded testActivityLog
	if err := env.db.Where("action = ?", "order.created").First(&recorded).Error; err != nil {
		t.Fatalf("order.created log missing: %v", err)
	}
	if !recorded.Undoable {
		t.Fatal("order.created should default to undoable")
	}

	// Paying the order emits a payment log carrying the amount.
	orderID := order["id"].(string)
	res, _ = env.do(t, http.MethodPatch, fmt.Sprintf("/orders/%s/status", orderID), map[string]any{"status": "paid"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("pay order: status %d", res.StatusCode)
	}
	var payment testActivityLog
	if err := env.db.Where("action = ?", "payment.completed").First(&payment).Error; err != nil {
		t.Fatalf("payment.completed log missing: %v", err)
	}
	if payment.Amount == nil || *payment.Amount != 7.0 {
		t.Fatalf("payment amount = %v, want 7", payment.Amount)
	}
}
