package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parkgate/internal/config"
	"parkgate/internal/domain/parking"
)

type stubLedger struct {
	events    []parking.Event
	incidents []parking.Incident
}

func (s *stubLedger) InsertEntry(context.Context, *parking.Event) error { return nil }
func (s *stubLedger) UpdateEvent(context.Context, int64, parking.SettlementUpdate) error {
	return nil
}
func (s *stubLedger) FindLatestPaid(context.Context, string) (*parking.Event, error) {
	return nil, nil
}
func (s *stubLedger) FindOldestUnpaid(context.Context, string) (*parking.Event, error) {
	return nil, nil
}
func (s *stubLedger) InsertIncident(context.Context, *parking.Incident) error { return nil }
func (s *stubLedger) ListEvents(context.Context) ([]parking.Event, error) {
	return s.events, nil
}
func (s *stubLedger) ListIncidents(context.Context) ([]parking.Incident, error) {
	return s.incidents, nil
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTP{
			AllowedOrigins: []string{"*"},
			Auth: config.Auth{
				JWTSecret:        "test-secret",
				OperatorPassword: "hunter2",
				TokenTTL:         time.Hour,
			},
		},
	}
}

func testRouter(ledger *stubLedger) *gin.Engine {
	return NewRouter(ledger, testConfig(), zerolog.Nop())
}

func TestListLogs(t *testing.T) {
	entry := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	amount := int64(1000)
	ledger := &stubLedger{
		events: []parking.Event{
			{ID: 2, Plate: "RAD456E", Paid: true, EntryTime: entry.Add(time.Hour), AmountPaid: &amount},
			{ID: 1, Plate: "RAB123C", Paid: false, EntryTime: entry},
		},
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil)
	testRouter(ledger).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Data []struct {
			ID    int64  `json:"id"`
			Plate string `json:"plate"`
			Paid  string `json:"payment_status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(body.Data) != 2 {
		t.Fatalf("entries = %d, want 2", len(body.Data))
	}
	if body.Data[0].Paid != "Yes" || body.Data[1].Paid != "No" {
		t.Fatalf("payment status rendering wrong: %+v", body.Data)
	}
}

func TestAlertsRequireAuth(t *testing.T) {
	ledger := &stubLedger{}
	router := testRouter(ledger)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", w.Code)
	}
}

func TestLoginAndListAlerts(t *testing.T) {
	ledger := &stubLedger{
		incidents: []parking.Incident{
			{ID: 1, Plate: "RAB123C", Timestamp: time.Now(), IncidentType: parking.IncidentUnauthorizedExit},
		},
	}
	router := testRouter(ledger)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"password":"hunter2"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil || login.Token == "" {
		t.Fatalf("no token in login response: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("alerts status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data []parking.Incident `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal alerts: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].IncidentType != parking.IncidentUnauthorizedExit {
		t.Fatalf("alerts = %+v", body.Data)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	router := testRouter(&stubLedger{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login status = %d, want 401", w.Code)
	}
}
