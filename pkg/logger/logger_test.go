package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestNew_LevelsAndService(t *testing.T) {
	tests := []struct {
		level    string
		logDebug bool
		logInfo  bool
		logWarn  bool
	}{
		{level: "debug", logDebug: true, logInfo: true, logWarn: true},
		{level: "INFO", logInfo: true, logWarn: true},
		{level: "warn", logWarn: true},
		{level: "error"},
		{level: "", logInfo: true, logWarn: true},
		{level: "verbose", logInfo: true, logWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: tt.level, Output: &buf, Service: "scheduling"})

			check := func(enabled bool, emit func(), want string) {
				buf.Reset()
				emit()
				if got := strings.Contains(buf.String(), want); got != enabled {
					t.Errorf("%s logged = %v, want %v", want, got, enabled)
				}
			}
			check(tt.logDebug, func() { log.Debug("debug line") }, "debug line")
			check(tt.logInfo, func() { log.Info("info line") }, "info line")
			check(tt.logWarn, func() { log.Warn("warn line") }, "warn line")
		})
	}
}

func TestNew_JSONCarriesServiceAndTrace(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: DEBUG, Output: &buf, Service: "scheduling"}).With("component", "ledger")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	log.InfoContext(ctx, "Reservation created successfully", "id", "res-1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("not JSON: %v (%s)", err, buf.String())
	}
	want := map[string]string{
		"service":   "scheduling",
		"component": "ledger",
		"id":        "res-1",
		"trace_id":  traceID.String(),
		"span_id":   spanID.String(),
	}
	for k, v := range want {
		if record[k] != v {
			t.Errorf("%s = %v, want %s", k, record[k], v)
		}
	}
}

func TestNew_NoTraceWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Output: &buf, Format: TEXT}).InfoContext(context.Background(), "plain")

	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("unexpected trace id: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "msg=plain") {
		t.Errorf("expected text format: %s", buf.String())
	}
}
