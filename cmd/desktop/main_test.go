package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kimhsiao/infovault/backend/internal/db"
	"github.com/kimhsiao/infovault/backend/internal/export"
)

func newTestServer(t *testing.T) (*httptest.Server, *WSHub) {
	t.Helper()
	database, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Bootstrap(database.DB); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	repo := db.NewRepository(database.DB)

	hub := NewWSHub()
	mux := newRouter(repo, export.NewService(repo), hub, nil, t.TempDir())

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		repo.Close()
		database.Close()
	})
	return srv, hub
}

// TestRouterRegisters catches ServeMux pattern conflicts, which panic
// at registration time rather than failing a request.
func TestRouterRegisters(t *testing.T) {
	database, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer database.Close()
	if err := db.Bootstrap(database.DB); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	repo := db.NewRepository(database.DB)
	defer repo.Close()

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("route registration panicked: %v", r)
		}
	}()
	if mux := newRouter(repo, export.NewService(repo), NewWSHub(), nil, t.TempDir()); mux == nil {
		t.Fatal("newRouter returned nil")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestSeededProjectsServed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/projects")
	if err != nil {
		t.Fatalf("projects request failed: %v", err)
	}
	defer resp.Body.Close()

	var projects []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		t.Fatalf("failed to decode projects: %v", err)
	}
	// First run seeds three starter projects.
	if len(projects) != 3 {
		t.Errorf("expected 3 seeded projects, got %d", len(projects))
	}
}

func TestWebSocketReceivesBroadcast(t *testing.T) {
	srv, hub := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Host": []string{"localhost"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	// Wait for registration before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast(EventItemCreated, map[string]any{"id": int64(7)})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var envelope WSEnvelope
	if err := conn.ReadJSON(&envelope); err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}
	if envelope.Type != EventItemCreated {
		t.Errorf("unexpected event type %q", envelope.Type)
	}
	if envelope.Data["id"] != float64(7) {
		t.Errorf("unexpected payload: %v", envelope.Data)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	// CheckOrigin keys off the Host header; a non-local host is refused.
	req := httptest.NewRequest("GET", "http://evil.example/ws", nil)
	if upgrader.CheckOrigin(req) {
		t.Error("foreign host must not pass the origin check")
	}

	local := httptest.NewRequest("GET", "http://localhost:8090/ws", nil)
	if !upgrader.CheckOrigin(local) {
		t.Error("localhost must pass the origin check")
	}
}
