package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/goliatone/go-formblocks/pkg/logger"
)

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "debug", Version: "1.2.3", Output: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	log.Info("form rendered", "form", "profile")
	log.Sync()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode entry %q: %v", buf.String(), err)
	}
	if entry[logger.MessageKey] != "form rendered" || entry["form"] != "profile" || entry[logger.VersionKey] != "1.2.3" {
		t.Fatalf("unexpected entry %#v", entry)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "error", Output: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Info("hidden")
	log.V(1).Info("hidden too")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	if _, err := logger.New(logger.Config{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
	if _, err := logger.New(logger.Config{Format: "xml"}); err == nil {
		t.Fatalf("expected invalid format error")
	}
}

func TestContextRoundTrip(t *testing.T) {
	log, err := logger.New(logger.Config{Output: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	ctx := logger.WithLogger(context.Background(), log.Logger)
	if got := logger.FromContext(ctx); got.GetSink() != log.Logger.GetSink() {
		t.Fatalf("expected logger from context")
	}
	if logger.FromContext(context.Background()).Enabled() {
		t.Fatalf("expected discard logger fallback")
	}
}
