package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Status {
	t.Helper()
	var s Status
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return s
}

func TestLive(t *testing.T) {
	h := NewHandler(0)
	rec := httptest.NewRecorder()
	h.HandleLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if s := decode(t, rec); s.Status != "alive" {
		t.Fatalf("Status = %q", s.Status)
	}
}

func TestReady(t *testing.T) {
	storeErr := errors.New("database is locked")

	tests := []struct {
		name     string
		startup  bool
		check    error
		wantCode int
	}{
		{"ready", false, nil, http.StatusOK},
		{"starting", true, nil, http.StatusServiceUnavailable},
		{"store down", false, storeErr, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(0)
			if tt.startup {
				h = NewHandler(1 << 40)
			}
			h.AddCheck("store", func(context.Context) error { return tt.check })

			rec := httptest.NewRecorder()
			h.HandleReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			s := decode(t, rec)
			if s.Checks["opcua_server"] != "disabled" {
				t.Errorf("opcua check = %q, want disabled", s.Checks["opcua_server"])
			}
			if tt.check != nil && s.Checks["store"] == "healthy" {
				t.Error("failing store reported healthy")
			}
		})
	}
}

func TestReadyWithOPCUA(t *testing.T) {
	h := NewHandler(0)
	h.SetOPCUAReady(true)

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if s := decode(t, rec); s.Checks["opcua_server"] != "healthy" {
		t.Fatalf("opcua check = %q", s.Checks["opcua_server"])
	}
}
