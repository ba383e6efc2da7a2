package wa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumenisp/panel/pkg/logger"
)

func TestGatewaySend(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody sendRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "tok-123", logger.New())
	if err := g.Send(context.Background(), "628123@s.whatsapp.net", "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotPath != "/send" {
		t.Errorf("path = %q, want /send", gotPath)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotBody.JID != "628123@s.whatsapp.net" || gotBody.Text != "hello" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestGatewaySendNoToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("unexpected auth header %q", auth)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "", logger.New())
	if err := g.Send(context.Background(), "628123", "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestGatewaySendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "", logger.New())
	if err := g.Send(context.Background(), "628123", "hi"); err == nil {
		t.Fatal("expected error on 502 response")
	}
}

func TestNoopSend(t *testing.T) {
	n := Noop{Logger: logger.New()}
	if err := n.Send(context.Background(), "628123", "dropped"); err != nil {
		t.Fatalf("Noop.Send: %v", err)
	}
}
