package logs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"posd/services/staff"
)

func newHandlerServer(t *testing.T, engine *Engine) (*httptest.Server, string) {
	t.Helper()

	handler, err := NewHandler(engine)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	issuer, err := staff.NewTokenIssuer("test-key", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	token, err := issuer.Issue(staff.Member{
		ID: uuid.New(), StoreID: "s1", Role: staff.RoleServer, Name: "Mina",
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
	return srv, token
}

func getJSON(t *testing.T, srv *httptest.Server, token, path string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer res.Body.Close()

	var envelope map[string]any
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res.StatusCode, envelope
}

func TestListRejectsMalformedPagingParams(t *testing.T) {
	engine, _, _ := newTestEngine(t, Config{})
	srv, token := newHandlerServer(t, engine)

	mustRecord(t, engine, RecordParams{
		Action: ActionTableSeated, StoreID: "s1", ActorID: "u1", ActorName: "Mina",
		Details: "seating",
	})

	tests := []struct {
		name string
		path string
	}{
		{"list limit", "/logs?limit=abc"},
		{"list offset", "/logs?offset=1.5"},
		{"undoable limit", "/logs/undoable?limit=many"},
		{"by-action limit", "/logs/actions/table.seated?limit=x"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, envelope := getJSON(t, srv, token, tc.path)
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", status)
			}
			errBody := envelope["error"].(map[string]any)
			if errBody["code"] != string(CodeValidation) {
				t.Fatalf("code = %v, want %s", errBody["code"], CodeValidation)
			}
		})
	}

	// Well-formed params still work.
	status, envelope := getJSON(t, srv, token, "/logs?limit=10&offset=0")
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %v", status, envelope)
	}
	data := envelope["data"].(map[string]any)
	if logs := data["logs"].([]any); len(logs) != 1 {
		t.Fatalf("logs = %v", logs)
	}
}
