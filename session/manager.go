package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/CerebriumAI/live-stream-shopper/config"
	"github.com/CerebriumAI/live-stream-shopper/feed"
	"github.com/CerebriumAI/live-stream-shopper/room"
)

// ErrMaxSessions is returned when the session cap is reached.
var ErrMaxSessions = fmt.Errorf("maximum sessions reached")

// Manager manages all live sessions
type Manager struct {
	sessions map[string]*Live
	creating int
	mu       sync.RWMutex
	redis    *redis.Client
	config   *config.Config
	rooms    *room.Client
	store    feed.Store
}

// NewManager creates a session manager with an optional Redis-backed
// session registry.
func NewManager(cfg *config.Config, rooms *room.Client, store feed.Store) *Manager {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Redis unavailable, continue without it
		log.Printf("⚠️ Redis unavailable, session registry disabled: %v", err)
		redisClient = nil
	}

	return &Manager{
		sessions: make(map[string]*Live),
		redis:    redisClient,
		config:   cfg,
		rooms:    rooms,
		store:    store,
	}
}

// CreateSession runs the room lifecycle for a new client connection: create
// the room, dispatch the agent into it, then assemble the live session
// scoped to the resulting run. Room creation failing means the agent start
// is never attempted; neither call is retried here.
func (sm *Manager) CreateSession(ctx context.Context, clientConn *websocket.Conn) (*Live, error) {
	// Reserve a slot up front so the cap counts in-flight creations; the
	// two backend calls run outside the lock and must not serialize other
	// clients connecting.
	sm.mu.Lock()
	if len(sm.sessions)+sm.creating >= sm.config.MaxSessions {
		sm.mu.Unlock()
		return nil, ErrMaxSessions
	}
	sm.creating++
	sm.mu.Unlock()
	defer func() {
		sm.mu.Lock()
		sm.creating--
		sm.mu.Unlock()
	}()

	roomURL, err := sm.rooms.CreateRoom(ctx)
	if err != nil {
		return nil, err
	}

	runID, err := sm.rooms.StartAgent(ctx, roomURL)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	live := NewLive(sessionID, roomURL, runID, clientConn, sm.store, sm.config)

	sm.storeSession(ctx, sessionID, live)
	return live, nil
}

// storeSession saves a session to memory and Redis
func (sm *Manager) storeSession(ctx context.Context, sessionID string, live *Live) {
	sm.mu.Lock()
	sm.sessions[sessionID] = live
	sm.mu.Unlock()

	if sm.redis != nil {
		sm.redis.HSet(ctx, "session:"+sessionID, map[string]interface{}{
			"room_url":   live.RoomURL,
			"run_id":     live.RunID,
			"created_at": live.CreatedAt.Format(time.RFC3339),
			"status":     "active",
		})
		sm.redis.SAdd(ctx, "active_sessions", sessionID)
		sm.redis.Expire(ctx, "session:"+sessionID, sm.config.SessionTimeout)
	}
}

// GetSession retrieves a session by ID
func (sm *Manager) GetSession(sessionID string) (*Live, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	live, exists := sm.sessions[sessionID]
	return live, exists
}

// RemoveSession cleans up and removes a session
func (sm *Manager) RemoveSession(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	live, exists := sm.sessions[sessionID]
	if !exists {
		return nil
	}

	live.Close()
	delete(sm.sessions, sessionID)

	if sm.redis != nil {
		sm.redis.Del(ctx, "session:"+sessionID)
		sm.redis.SRem(ctx, "active_sessions", sessionID)
	}

	return nil
}

// GetActiveSessionCount returns current session count
func (sm *Manager) GetActiveSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupInactiveSessions removes sessions whose client has gone quiet
func (sm *Manager) CleanupInactiveSessions(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, live := range sm.sessions {
		if now.Sub(live.LastActivity()) > sm.config.SessionTimeout {
			live.Close()
			delete(sm.sessions, id)

			if sm.redis != nil {
				sm.redis.Del(ctx, "session:"+id)
				sm.redis.SRem(ctx, "active_sessions", id)
			}
		}
	}
}

// StartCleanupRoutine starts periodic cleanup of inactive sessions
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupInactiveSessions(ctx)
		}
	}
}

// Shutdown closes all sessions
func (sm *Manager) Shutdown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, live := range sm.sessions {
		live.Close()
		delete(sm.sessions, id)
	}

	if sm.redis != nil {
		sm.redis.Close()
	}
}
