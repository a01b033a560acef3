package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hailstone/internal/duel"
	"hailstone/internal/store"
)

func createTestServer(t *testing.T) (*Server, store.Conn) {
	t.Helper()

	conn := store.NewMemory().Connect()
	t.Cleanup(func() {
		conn.Close()
	})

	return NewServer(nil, conn, "127.0.0.1:0"), conn
}

func createSession(t *testing.T, conn store.Conn, session duel.Session) {
	t.Helper()

	if err := conn.Create(session.Path(), session); err != nil {
		t.Fatal(err)
	}
}

func TestGetDuelsListsOnlyPublicPending(t *testing.T) {
	server, conn := createTestServer(t)

	createSession(t, conn, duel.Session{
		ID: "AAAAAA", CreatedAt: time.Now().UTC(), Public: true, Rated: true,
		Status:  duel.StatusPending,
		Player1: &duel.PlayerSlot{UID: "uid-a", Name: "Darunia"},
	})
	createSession(t, conn, duel.Session{
		ID: "BBBBBB", Public: false, Status: duel.StatusPending,
		Player1: &duel.PlayerSlot{UID: "uid-b", Name: "Nabooru"},
	})
	createSession(t, conn, duel.Session{
		ID: "CCCCCC", Public: true, Status: duel.StatusActive,
		Player1: &duel.PlayerSlot{UID: "uid-c", Name: "Rauru"},
		Player2: &duel.PlayerSlot{UID: "uid-d", Name: "Impa"},
	})

	rec := httptest.NewRecorder()
	server.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/duels", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got []duelSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 listed duel, got %d", len(got))
	}
	if got[0].ID != "AAAAAA" || got[0].CreatedBy != "Darunia" || !got[0].Rated {
		t.Errorf("wrong summary: %+v", got[0])
	}
}

func TestGetDuel(t *testing.T) {
	server, conn := createTestServer(t)

	createSession(t, conn, duel.Session{
		ID: "AAAAAA", Public: true, Status: duel.StatusPending,
		StartNumber: 27,
		Player1:     &duel.PlayerSlot{UID: "uid-a", Name: "Darunia", CurrentNumber: 27},
	})

	rec := httptest.NewRecorder()
	server.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/duel/aaaaaa", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got duel.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "AAAAAA" || got.StartNumber != 27 {
		t.Errorf("wrong session: %+v", got)
	}

	rec = httptest.NewRecorder()
	server.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/duel/ZZZZZZ", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown duel, got %d", rec.Code)
	}
}

func TestGetLeaderboardRejectsBadLimit(t *testing.T) {
	server, _ := createTestServer(t)

	rec := httptest.NewRecorder()
	server.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leaderboard?limit=nope", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
