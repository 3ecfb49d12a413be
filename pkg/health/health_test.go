package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name  string
		pings map[string]error
		opt   map[string]bool
		want  Status
	}{
		{"all up", map[string]error{"index": nil, "store": nil}, nil, StatusUp},
		{"optional down", map[string]error{"index": nil, "redis": errors.New("refused")}, map[string]bool{"redis": true}, StatusDegraded},
		{"required down", map[string]error{"index": errors.New("not built"), "redis": errors.New("refused")}, map[string]bool{"redis": true}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, err := range tt.pings {
				c.Register(name, PingCheck(func(context.Context) error { return err }, tt.opt[name]))
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s (%+v)", report.Status, tt.want, report.Components)
			}
			if len(report.Components) != len(tt.pings) {
				t.Errorf("components = %d, want %d", len(report.Components), len(tt.pings))
			}
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	ready := false
	c.Register("index", PingCheck(func(context.Context) error {
		if !ready {
			return errors.New("index not built")
		}
		return nil
	}, false))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not ready: status = %d", rec.Code)
	}

	ready = true
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready: status = %d", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Components["index"].Status != StatusUp {
		t.Errorf("index component = %+v", report.Components["index"])
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
