package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestConsoleHandlerPromotesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	NewComponentLogger(logger, "worker").Info("claimed job", Int64(FieldJobID, 7))

	line := buf.String()
	if !strings.Contains(line, "INFO worker: claimed job") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "job_id=7") {
		t.Fatalf("missing job_id attr: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be promoted out of attrs: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Warn("ocr failed", Error(errors.New("timeout after 90s")))
	if !strings.Contains(buf.String(), `error="timeout after 90s"`) {
		t.Fatalf("expected quoted error value, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAttachesJobID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := WithJobID(context.Background(), 42)
	WithContext(ctx, logger).Info("processing")
	if !strings.Contains(buf.String(), "job_id=42") {
		t.Fatalf("expected job_id from context, got %q", buf.String())
	}
}
