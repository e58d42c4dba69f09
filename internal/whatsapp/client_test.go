package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSendPostsTargetAndMessage(t *testing.T) {
	var got sendRequest
	var auth, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"status":true,"detail":"success! message in queue"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	if err := c.Send(context.Background(), "secret", "628111", "hello"); err != nil {
		t.Fatalf("Send() = %v", err)
	}
	if auth != "secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if got.Target != "628111" || got.Message != "hello" {
		t.Errorf("body = %+v", got)
	}
}

func TestSendErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"gateway refusal", http.StatusOK, `{"status":false,"reason":"invalid token"}`, "send to 628111: http 200: invalid token"},
		{"non-2xx with reason", http.StatusUnauthorized, `{"status":false,"reason":"unauthorized"}`, "send to 628111: http 401: unauthorized"},
		{"non-2xx without json", http.StatusBadGateway, `<html>`, "send to 628111: http 502: Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL, srv.Client()).Send(context.Background(), "k", "628111", "m")
			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatalf("Send() = %v, want TransportError", err)
			}
			if te.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", te.StatusCode, tt.status)
			}
			if err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestSendMalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, srv.Client()).Send(context.Background(), "k", "t", "m")
	var te *TransportError
	if !errors.As(err, &te) || te.Err == nil {
		t.Fatalf("Send() = %v, want TransportError wrapping decode error", err)
	}
}

func TestSendRequiresAPIKey(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	err := NewClient(srv.URL, srv.Client()).Send(context.Background(), "", "t", "m")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Send() = %v, want ErrMissingAPIKey", err)
	}
	if calls != 0 {
		t.Errorf("gateway called %d times", calls)
	}
}

func TestSendHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewClient(srv.URL, srv.Client()).Send(ctx, "k", "t", "m")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send() = %v, want deadline exceeded", err)
	}
}
