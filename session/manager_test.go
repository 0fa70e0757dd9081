package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CerebriumAI/live-stream-shopper/config"
	"github.com/CerebriumAI/live-stream-shopper/feed"
	"github.com/CerebriumAI/live-stream-shopper/room"
)

type noopStore struct{}

type noopSub struct{}

func (noopSub) Unsubscribe() {}

func (noopStore) LoadSnapshot(context.Context, string) ([]feed.Product, error) {
	return nil, nil
}

func (noopStore) SubscribeInserts(context.Context, string, func(feed.Product)) (feed.Subscription, error) {
	return noopSub{}, nil
}

func managerConfig(backendURL string, maxSessions int) *config.Config {
	return &config.Config{
		BackendURL:       backendURL,
		BackendToken:     "token",
		RedisURL:         "127.0.0.1:1", // unreachable, registry degrades
		MaxSessions:      maxSessions,
		SessionTimeout:   time.Minute,
		RequestTimeout:   5 * time.Second,
		MicGraceWindow:   time.Second,
		MicReenableDelay: time.Millisecond,
	}
}

func TestManagerCreateAndRemoveSession(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/create_room" {
			w.Write([]byte(`{"result":{"url":"https://example.daily.co/room-7"}}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(backend.Close)

	cfg := managerConfig(backend.URL, 4)
	sm := NewManager(cfg, room.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.RequestTimeout), noopStore{})
	t.Cleanup(sm.Shutdown)

	live, err := sm.CreateSession(context.Background(), nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if live.RoomURL != "https://example.daily.co/room-7" || live.RunID != live.RoomURL {
		t.Fatalf("unexpected room/run: %q / %q", live.RoomURL, live.RunID)
	}
	if sm.GetActiveSessionCount() != 1 {
		t.Fatalf("session count = %d, want 1", sm.GetActiveSessionCount())
	}
	if _, ok := sm.GetSession(live.ID); !ok {
		t.Fatalf("session %s not registered", live.ID)
	}

	if err := sm.RemoveSession(context.Background(), live.ID); err != nil {
		t.Fatalf("RemoveSession() error = %v", err)
	}
	if sm.GetActiveSessionCount() != 0 {
		t.Fatalf("session count after remove = %d, want 0", sm.GetActiveSessionCount())
	}
	if !live.IsClosed() {
		t.Fatalf("removed session not closed")
	}
}

func TestManagerRejectsAtCapacity(t *testing.T) {
	cfg := managerConfig("http://127.0.0.1:1", 0)
	sm := NewManager(cfg, room.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.RequestTimeout), noopStore{})
	t.Cleanup(sm.Shutdown)

	_, err := sm.CreateSession(context.Background(), nil)
	if !errors.Is(err, ErrMaxSessions) {
		t.Fatalf("error = %v, want ErrMaxSessions", err)
	}
}

func TestManagerCountsInFlightCreationAgainstCap(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/create_room" {
			entered <- struct{}{}
			<-release
			w.Write([]byte(`{"result":{"url":"https://example.daily.co/room-7"}}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(backend.Close)

	cfg := managerConfig(backend.URL, 1)
	sm := NewManager(cfg, room.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.RequestTimeout), noopStore{})
	t.Cleanup(sm.Shutdown)

	done := make(chan error, 1)
	go func() {
		_, err := sm.CreateSession(context.Background(), nil)
		done <- err
	}()

	// Wait until the first creation is mid-flight against the backend.
	<-entered

	// The slot is already reserved even though no session is registered
	// yet, so a second creation is rejected rather than overshooting the
	// cap.
	if _, err := sm.CreateSession(context.Background(), nil); !errors.Is(err, ErrMaxSessions) {
		t.Fatalf("error = %v, want ErrMaxSessions", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if sm.GetActiveSessionCount() != 1 {
		t.Fatalf("session count = %d, want 1", sm.GetActiveSessionCount())
	}
}

func TestManagerCleanupRemovesIdleSessions(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/create_room" {
			w.Write([]byte(`{"result":{"url":"https://example.daily.co/room-7"}}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(backend.Close)

	cfg := managerConfig(backend.URL, 4)
	cfg.SessionTimeout = time.Nanosecond
	sm := NewManager(cfg, room.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.RequestTimeout), noopStore{})
	t.Cleanup(sm.Shutdown)

	live, err := sm.CreateSession(context.Background(), nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	time.Sleep(time.Millisecond)
	sm.CleanupInactiveSessions(context.Background())

	if sm.GetActiveSessionCount() != 0 {
		t.Fatalf("idle session survived cleanup")
	}
	if !live.IsClosed() {
		t.Fatalf("cleaned-up session not closed")
	}
}
