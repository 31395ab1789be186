package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestNewWritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	log.Info("dropped")
	WithRequestID(ContextWithRequestID(context.Background(), "r-1"), log).Warn("kept")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["request_id"] != "r-1" || entry["timestamp"] == nil {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log, _ := New(Config{Level: "verbose", Encoding: "console", Output: &buf})
	log.Debug("hidden")
	log.Info("shown")
	if bytes.Contains(buf.Bytes(), []byte("hidden")) || !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestWithRequestIDWithoutID(t *testing.T) {
	if WithRequestID(context.Background(), nil) != nil {
		t.Fatalf("nil logger must stay nil")
	}
	if RequestIDFromContext(nil) != "" {
		t.Fatalf("nil context has no request id")
	}
}
