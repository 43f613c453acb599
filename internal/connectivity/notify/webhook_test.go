package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWebhookNotifierPostsTextPayload(t *testing.T) {
	var (
		gotContentType string
		gotBody        []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	alert := Alert{
		UnitID:   "unit-1",
		Message:  "unit offline: last heartbeat 12m0s ago",
		Severity: SeverityCritical,
		At:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := notifier.Notify(context.Background(), alert); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if gotContentType != "application/json" {
		t.Fatalf("expected json content type, got %q", gotContentType)
	}
	var payload struct {
		MsgType string `json:"msgtype"`
		Text    struct {
			Content string `json:"content"`
		} `json:"text"`
	}
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.MsgType != "text" {
		t.Fatalf("expected msgtype text, got %q", payload.MsgType)
	}
	for _, want := range []string{"unit-1", "unit offline", "CRITICAL", "2026-08-01T12:00:00Z"} {
		if !strings.Contains(payload.Text.Content, want) {
			t.Fatalf("content %q missing %q", payload.Text.Content, want)
		}
	}
}

func TestWebhookNotifierFailsOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := notifier.Notify(context.Background(), Alert{UnitID: "unit-1"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestWebhookNotifierRequiresURL(t *testing.T) {
	if _, err := NewWebhookNotifier(""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestMultiNotifierFansOut(t *testing.T) {
	first := &recordingNotifier{}
	second := &recordingNotifier{}
	multi := NewMultiNotifier(first, second)

	if err := multi.Notify(context.Background(), Alert{UnitID: "unit-1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if first.count != 1 || second.count != 1 {
		t.Fatalf("expected both notifiers called, got %d and %d", first.count, second.count)
	}
}

type recordingNotifier struct {
	count int
}

func (n *recordingNotifier) Notify(context.Context, Alert) error {
	n.count++
	return nil
}
