package slack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/archanaanairr/vb6/internal/project"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormatJobMessage_WithFailuresAndLargeFiles(t *testing.T) {
	summary := project.Summary{
		ProjectName: "LegacyScanner",
		Namespace:   "LegacyScanner.Converted",
		Successful:  []string{"modMain.bas", "clsPort.cls"},
		Failed:      []string{"modBad.bas (conversion failed)"},
		Large:       []string{"modHuge.bas (2100 lines)"},
	}

	msg := formatJobMessage(summary, "upload", "1m42s")

	if msg == "" {
		t.Fatal("expected non-empty message")
	}

	// Check key content is present
	checks := []string{
		"LegacyScanner",
		"upload",
		"1m42s",
		"LegacyScanner.Converted",
		"Converted: 2 of 3 files",
		"Failed: 1",
		"1. modBad.bas (conversion failed)",
		"Chunked large files: 1",
		"modHuge.bas",
	}
	for _, check := range checks {
		if !containsStr(msg, check) {
			t.Errorf("expected message to contain %q", check)
		}
	}
}

func TestFormatJobMessage_Empty(t *testing.T) {
	summary := project.Summary{
		ProjectName: "Empty",
		Namespace:   "Empty.Converted",
	}

	msg := formatJobMessage(summary, "upload", "0s")

	if !containsStr(msg, "No VB6 sources") {
		t.Errorf("expected empty message, got %q", msg)
	}
}

func TestPostJobSummary_Success(t *testing.T) {
	var gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
			t.Errorf("expected JSON content type, got %q", ct)
		}

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		json.Unmarshal(body, &payload)

		text, _ := payload["text"].(string)
		gotText = text
		if _, ok := payload["blocks"]; !ok {
			t.Error("expected blocks in payload")
		}

		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	p := NewPoster(server.URL, discardLogger())

	summary := project.Summary{
		ProjectName: "LegacyScanner",
		Namespace:   "LegacyScanner.Converted",
		Successful:  []string{"modMain.bas"},
	}

	err := p.PostJobSummary(context.Background(), summary, "github", "12s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !containsStr(gotText, "LegacyScanner") {
		t.Errorf("expected posted text to name the project, got %q", gotText)
	}
	if !containsStr(gotText, "github") {
		t.Errorf("expected posted text to name the source, got %q", gotText)
	}
}

func TestPostJobSummary_WebhookError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "no_service")
	}))
	defer server.Close()

	p := NewPoster(server.URL, discardLogger())

	err := p.PostJobSummary(context.Background(), project.Summary{ProjectName: "X", Namespace: "X.App"}, "upload", "3s")
	if err == nil {
		t.Fatal("expected error for webhook error response")
	}
	if !containsStr(err.Error(), "no_service") {
		t.Errorf("expected error to carry the webhook body, got %v", err)
	}
}

func containsStr(s, substr string) bool {
	return len(s) >= len(substr) && searchStr(s, substr)
}

func searchStr(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
