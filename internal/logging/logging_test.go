package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	defaultLogger.mu.Lock()
	prevOut, prevLevel, prevHook := defaultLogger.output, defaultLogger.minLevel, defaultLogger.hook
	defaultLogger.mu.Unlock()
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(prevOut)
		SetLevel(prevLevel)
		SetHook(prevHook)
	})
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestF(t *testing.T) {
	tests := []struct {
		name     string
		keyvals  []interface{}
		expected map[string]interface{}
	}{
		{"single pair", []interface{}{"key", "value"}, map[string]interface{}{"key": "value"}},
		{"multiple pairs", []interface{}{"key1", "val1", "key2", 123}, map[string]interface{}{"key1": "val1", "key2": 123}},
		{"empty", []interface{}{}, map[string]interface{}{}},
		{"odd number of args (last ignored)", []interface{}{"key1", "val1", "key2"}, map[string]interface{}{"key1": "val1"}},
		{"non-string key (ignored)", []interface{}{123, "value", "realkey", "realvalue"}, map[string]interface{}{"realkey": "realvalue"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := F(tt.keyvals...)
			if len(result) != len(tt.expected) {
				t.Fatalf("F() returned %d fields, expected %d", len(result), len(tt.expected))
			}
			for k, v := range tt.expected {
				if result[k] != v {
					t.Errorf("F() key '%s' = %v, expected %v", k, result[k], v)
				}
			}
		})
	}
}

func TestLevelThreshold(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelWarn)

	Debug("hidden")
	Info("hidden too")
	Warn("shown", F("k", "v"))
	Error("shown too")

	entries := decodeLines(t, buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].SeverityText != "WARN" || entries[0].SeverityNumber != 13 {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].Attributes["k"] != "v" {
		t.Errorf("expected attribute k=v, got %v", entries[0].Attributes)
	}
}

func TestNamedComponent(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelDebug)

	log := Named("exporter").With("signal", "traces")
	log.Debug("sending", F("records", 3))

	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	attrs := entries[0].Attributes
	if attrs["component"] != "exporter" || attrs["signal"] != "traces" {
		t.Errorf("missing component fields: %v", attrs)
	}
	if attrs["records"] != float64(3) {
		t.Errorf("expected records=3, got %v", attrs["records"])
	}
}

func TestHookReceivesEntries(t *testing.T) {
	capture(t)
	SetLevel(LevelInfo)

	var got []string
	SetHook(func(level Level, msg string, _ map[string]interface{}) {
		got = append(got, string(level)+":"+msg)
	})

	Info("one")
	Debug("filtered")
	Error("two")

	if strings.Join(got, ",") != "INFO:one,ERROR:two" {
		t.Errorf("unexpected hook calls: %v", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"", LevelInfo, false},
		{"Warning", LevelWarn, false},
		{"ERROR", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSetResource(t *testing.T) {
	buf := capture(t)
	SetResource(map[string]string{"service.name": "otlp-shipper"})
	defer SetResource(nil)

	Info("hello")

	entries := decodeLines(t, buf)
	if entries[0].Resource["service.name"] != "otlp-shipper" {
		t.Errorf("resource not attached: %v", entries[0].Resource)
	}
}
