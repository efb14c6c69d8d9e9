package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSender struct {
	name string
	err  error
	sent []string
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func TestNotifyFiltersEvents(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{EventStopLoss}, testLogger())

	if err := n.Notify(context.Background(), EventOrderFilled, "filled", "x"); err != nil {
		t.Fatalf("filtered notify returned error: %v", err)
	}
	if err := n.Notify(context.Background(), EventStopLoss, "stop", "x"); err != nil {
		t.Fatalf("allowed notify returned error: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0] != "stop" {
		t.Fatalf("sent = %v, want only the stop-loss alert", s.sent)
	}
}

func TestEmptyAllowListPassesEverything(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	if err := n.Notify(context.Background(), EventOrderFailed, "failed", "x"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(s.sent) != 1 {
		t.Fatalf("sent = %v, want 1 alert", s.sent)
	}
}

func TestOneFailedSenderDoesNotBlockOthers(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("boom")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.NotifyAll(context.Background(), "title", "body")
	if err == nil {
		t.Fatalf("expected combined error from failed sender")
	}
	if len(good.sent) != 1 {
		t.Fatalf("healthy sender did not receive the alert")
	}
}

func TestTelegramSendPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottok123/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("tok123", "chat9")
	s.apiBase = srv.URL

	if err := s.Send(context.Background(), "Order filled", "BNBBTC BUY"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["chat_id"] != "chat9" {
		t.Fatalf("chat_id = %q", got["chat_id"])
	}
	if got["text"] != "*Order filled*\nBNBBTC BUY" {
		t.Fatalf("text = %q", got["text"])
	}
}

func TestDiscordSendRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad webhook", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	if err := s.Send(context.Background(), "t", "m"); err == nil {
		t.Fatalf("expected error on 400 response")
	}
}
