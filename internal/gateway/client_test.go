package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/message/sendText/vendas-01" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("apikey"); got != "gw-secret" {
			t.Errorf("apikey = %q", got)
		}

		var req sendTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Number != "5511999990001" || req.Text != "Olá!" {
			t.Errorf("request = %+v", req)
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"key":{"id":"abc"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "gw-secret", testLogger())
	if !c.SendText(context.Background(), "vendas-01", "5511999990001", "Olá!") {
		t.Error("SendText() = false, want true")
	}
}

func TestSendText_DefaultInstance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/message/sendText/"+DefaultInstance {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", testLogger())
	if !c.SendText(context.Background(), "", "5511999990001", "oi") {
		t.Error("SendText() = false, want true")
	}
}

func TestSendText_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance disconnected", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", testLogger())
	if c.SendText(context.Background(), "vendas-01", "5511999990001", "oi") {
		t.Error("SendText() = true, want false on non-2xx")
	}
}

func TestSendText_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "k", testLogger())
	if c.SendText(context.Background(), "vendas-01", "5511999990001", "oi") {
		t.Error("SendText() = true, want false on connection failure")
	}
}
