package telemetry

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewHandler(t *testing.T) {
	tests := []struct {
		environment string
		wantCopy    bool
	}{
		{"development", true},
		{"production", false},
	}
	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			var primary, stdout bytes.Buffer
			logger := slog.New(newHandler(
				slog.NewTextHandler(&primary, &slog.HandlerOptions{Level: slog.LevelWarn}),
				tt.environment, &stdout,
			)).With(slog.String("component", "test"))

			logger.Info("task added")
			logger.Warn("task validation failed")

			if strings.Contains(primary.String(), "task added") {
				t.Errorf("expected info record to be filtered, got %q", primary.String())
			}
			if !strings.Contains(primary.String(), "component=test") {
				t.Errorf("expected attrs to propagate, got %q", primary.String())
			}
			if got := strings.Contains(stdout.String(), "task added"); got != tt.wantCopy {
				t.Errorf("expected stdout copy %v, got %q", tt.wantCopy, stdout.String())
			}
			if tt.wantCopy && !strings.Contains(stdout.String(), `"component":"test"`) {
				t.Errorf("expected attrs in stdout copy, got %q", stdout.String())
			}
		})
	}
}

func TestNewMetrics(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"), func() int64 { return 3 })
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if m.TasksCreated == nil || m.ValidationFailures == nil || m.RequestCounter == nil {
		t.Errorf("expected all instruments to be created, got %+v", m)
	}
}
