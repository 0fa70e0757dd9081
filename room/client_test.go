package room

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateRoomReturnsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/create_room" {
			t.Fatalf("path = %q, want /create_room", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("Authorization = %q", got)
		}
		w.Write([]byte(`{"result":{"url":"https://example.daily.co/room-1"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)
	url, err := c.CreateRoom(context.Background())
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if url != "https://example.daily.co/room-1" {
		t.Fatalf("url = %q", url)
	}
}

func TestCreateRoomNon200IsServiceUnavailable(t *testing.T) {
	var startCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			startCalled = true
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)
	_, err := c.CreateRoom(context.Background())
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("error = %v, want ErrServiceUnavailable", err)
	}
	if startCalled {
		t.Fatalf("StartAgent endpoint hit after failed room creation")
	}
}

func TestCreateRoomNetworkFailureIsServiceUnavailable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "secret", 500*time.Millisecond)
	_, err := c.CreateRoom(context.Background())
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("error = %v, want ErrServiceUnavailable", err)
	}
}

func TestStartAgentReturnsRunToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/start" {
			t.Fatalf("path = %q, want /start", r.URL.Path)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)
	runID, err := c.StartAgent(context.Background(), "https://example.daily.co/room-1")
	if err != nil {
		t.Fatalf("StartAgent() error = %v", err)
	}
	if runID != "https://example.daily.co/room-1" {
		t.Fatalf("runID = %q", runID)
	}
}

func TestStartAgentNon200IsJoinFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)
	_, err := c.StartAgent(context.Background(), "https://example.daily.co/room-1")
	if !errors.Is(err, ErrJoinFailure) {
		t.Fatalf("error = %v, want ErrJoinFailure", err)
	}
}
