package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/CerebriumAI/live-stream-shopper/config"
	"github.com/CerebriumAI/live-stream-shopper/feed"
	"github.com/CerebriumAI/live-stream-shopper/messages"
	"github.com/CerebriumAI/live-stream-shopper/transport"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
)

// Live is one user's live shopping session: the UI websocket on one side,
// the relayed call transport, the turn-taking coordinator, the product-feed
// reducer and a session-scoped stats aggregator on the other.
type Live struct {
	ID          string
	RoomURL     string
	RunID       string
	ClientConn  *websocket.Conn
	Relay       *transport.Relay
	Coordinator *Coordinator
	Feed        *feed.Reducer
	Stats       *StatsAggregator
	CreatedAt   time.Time

	// Use a channel for non-blocking writes
	writeChan chan *messages.ServerMessage

	mu           sync.RWMutex
	lastActivity time.Time
	closed       bool
	pumpStarted  bool
	CloseChan    chan struct{}
	pumpDone     chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
	statsSub     transport.Subscription
}

// NewLive assembles a session for an established room and run. The stats
// aggregator is constructed fresh here so no metrics leak across sessions.
func NewLive(id, roomURL, runID string, clientConn *websocket.Conn, store feed.Store, cfg *config.Config) *Live {
	ctx, cancel := context.WithCancel(context.Background())

	relay := transport.NewRelay()

	l := &Live{
		ID:          id,
		RoomURL:     roomURL,
		RunID:       runID,
		ClientConn:  clientConn,
		Relay:       relay,
		Coordinator: NewCoordinator(relay, runID, cfg.MicGraceWindow, cfg.MicReenableDelay),
		Feed:        feed.NewReducer(store),
		Stats:       NewStatsAggregator(),
		CreatedAt:   time.Now(),
		writeChan:   make(chan *messages.ServerMessage, writeBufferSize),
		CloseChan:   make(chan struct{}),
		pumpDone:    make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
	l.lastActivity = l.CreatedAt
	return l
}

// Start wires the effect callbacks, follows the product feed and begins the
// read and write pumps.
func (l *Live) Start() {
	l.mu.Lock()
	l.pumpStarted = true
	l.mu.Unlock()
	go l.writePump()

	l.Relay.OnCommand = func(cmd transport.Command) {
		switch cmd.Kind {
		case transport.CommandSetAudio:
			l.queueMessage(messages.NewMicMessage(l.ID, cmd.Enabled, l.Coordinator.State().Turn.String()))
		case transport.CommandLeave:
			l.queueMessage(messages.NewStatusMessage(l.ID, "disconnected", "Session ended"))
		}
	}

	l.Coordinator.OnStarted = func() {
		l.queueMessage(messages.NewStatusMessage(l.ID, "call_active", ""))
	}
	l.Coordinator.OnPause = func() {
		l.queueMessage(messages.NewPlayerMessage(l.ID, "pause"))
	}
	l.Coordinator.OnResume = func() {
		l.queueMessage(messages.NewPlayerMessage(l.ID, "play"))
	}
	l.Coordinator.OnFatal = func(err error) {
		l.queueMessage(messages.NewErrorMessage(l.ID, messages.ErrCodeTransportFatal, err.Error()))
		l.Close()
	}

	l.Feed.OnAdmit = func(p feed.Product) {
		l.queueMessage(messages.NewProductMessage(l.ID, p))
	}

	// Stats run independently off transport telemetry; participant presence
	// is reported so the UI can show the agent joining.
	l.statsSub = l.Relay.Subscribe(l.onTelemetry)

	if err := l.Feed.Follow(l.ctx, l.RunID); err != nil {
		// A failed snapshot degrades to a live-only feed; anything else on
		// the feed path is reported the same way and the session continues.
		log.Printf("⚠️ [%s] product feed degraded: %v", l.shortID(), err)
		l.queueMessage(messages.NewErrorMessage(l.ID, messages.ErrCodeFeedFetchFailed, "Product history unavailable, showing live detections only"))
	}
	l.queueMessage(messages.NewFeedMessage(l.ID, l.RunID, l.Feed.Products()))

	l.Coordinator.Start()
	l.queueMessage(messages.NewStatusMessage(l.ID, "connected", "Session established"))

	go l.handleClientMessages()
}

func (l *Live) onTelemetry(ev transport.Event) {
	switch e := ev.(type) {
	case transport.Metric:
		at := e.At
		if at.IsZero() {
			at = time.Now()
		}
		l.Stats.Record(e.Category, e.Value, at)
	case transport.ParticipantJoined:
		if l.Relay.RemoteParticipants() > 0 {
			l.queueMessage(messages.NewStatusMessage(l.ID, "agent_present", ""))
		}
	case transport.ParticipantLeft:
		if l.Relay.RemoteParticipants() == 0 {
			l.queueMessage(messages.NewStatusMessage(l.ID, "agent_absent", ""))
		}
	}
}

// writePump handles all outgoing messages in a single goroutine. On shutdown
// it drains whatever is still queued, so fatal errors and the disconnect
// status reach the client before the close frame.
func (l *Live) writePump() {
	defer close(l.pumpDone)
	defer func() {
		// Send close message before exiting
		l.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
		l.ClientConn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	for {
		select {
		case <-l.CloseChan:
			for {
				select {
				case msg := <-l.writeChan:
					if err := l.writeMessage(msg); err != nil {
						return
					}
				default:
					return
				}
			}
		case msg := <-l.writeChan:
			if err := l.writeMessage(msg); err != nil {
				return
			}
		}
	}
}

func (l *Live) writeMessage(msg *messages.ServerMessage) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		log.Printf("⚠️ [%s] failed to encode message: %v", l.shortID(), err)
		return nil
	}
	l.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return l.ClientConn.WriteMessage(websocket.TextMessage, data)
}

// queueMessage adds a message to the write queue (non-blocking). Messages
// queued during teardown are still flushed by the pump's final drain.
func (l *Live) queueMessage(msg *messages.ServerMessage) {
	select {
	case l.writeChan <- msg:
	default:
		// Queue full, drop message (shouldn't happen with proper sizing)
	}
}

func (l *Live) handleClientMessages() {
	defer l.Close()

	for {
		select {
		case <-l.CloseChan:
			return
		default:
			_, raw, err := l.ClientConn.ReadMessage()
			if err != nil {
				if !l.IsClosed() {
					log.Printf("🔌 [%s] client read error: %v", l.shortID(), err)
				}
				return
			}

			l.touch()

			var msg messages.ClientMessage
			if err := sonic.Unmarshal(raw, &msg); err != nil {
				l.queueMessage(messages.NewErrorMessage(l.ID, messages.ErrCodeInvalidMessage, "Invalid message format"))
				continue
			}
			l.processClientMessage(&msg)
		}
	}
}

func (l *Live) processClientMessage(msg *messages.ClientMessage) {
	switch msg.Type {
	case "transport":
		var payload messages.TransportPayload
		if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
			l.queueMessage(messages.NewErrorMessage(l.ID, messages.ErrCodeInvalidMessage, "Invalid transport payload"))
			return
		}
		ev, ok := toTransportEvent(&payload)
		if !ok {
			l.queueMessage(messages.NewErrorMessage(l.ID, messages.ErrCodeInvalidMessage, "Unknown transport event: "+payload.Event))
			return
		}
		l.Relay.Inject(ev)

	case "control":
		var payload messages.ControlPayload
		if err := sonic.Unmarshal(msg.Payload, &payload); err != nil {
			l.queueMessage(messages.NewErrorMessage(l.ID, messages.ErrCodeInvalidMessage, "Invalid control payload"))
			return
		}
		l.handleControlMessage(&payload)

	default:
		l.queueMessage(messages.NewErrorMessage(l.ID, messages.ErrCodeInvalidMessage, "Unknown message type: "+msg.Type))
	}
}

func (l *Live) handleControlMessage(payload *messages.ControlPayload) {
	switch payload.Action {
	case "ping":
		l.queueMessage(messages.NewStatusMessage(l.ID, "pong", ""))
	case "toggle_mute":
		l.Coordinator.ToggleMute()
	case "stats":
		l.queueMessage(messages.NewStatsMessage(l.ID, l.Stats.Snapshot()))
	case "end":
		l.Close()
	default:
		l.queueMessage(messages.NewErrorMessage(l.ID, messages.ErrCodeInvalidMessage, "Unknown control action: "+payload.Action))
	}
}

func toTransportEvent(p *messages.TransportPayload) (transport.Event, bool) {
	switch p.Event {
	case messages.EventActiveSpeaker:
		return transport.ActiveSpeaker{ParticipantID: p.Participant}, true
	case messages.EventParticipantJoined:
		return transport.ParticipantJoined{ParticipantID: p.Participant}, true
	case messages.EventParticipantLeft:
		return transport.ParticipantLeft{ParticipantID: p.Participant}, true
	case messages.EventAppMessage:
		return transport.AppMessage{Payload: p.Data}, true
	case messages.EventMetric:
		return transport.Metric{Category: p.Category, Value: p.Value, At: time.Now()}, true
	case messages.EventFatal:
		return transport.FatalError{Err: errors.New(p.Message)}, true
	default:
		return nil, false
	}
}

// Close terminates the session. Teardown order matters: release the feed
// stream first, then the transport, then the coordinator's pending timers,
// so no stray callback mutates a torn-down session.
func (l *Live) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.Feed.Close()

	if l.statsSub != nil {
		l.statsSub.Unsubscribe()
	}
	l.Relay.Leave()

	l.Coordinator.Close()

	l.cancel()

	// Signal close (stops writePump and the read loop)
	close(l.CloseChan)

	// Keep the connection open until the pump has flushed its queue and
	// sent the close frame.
	l.mu.RLock()
	pumping := l.pumpStarted
	l.mu.RUnlock()
	if pumping {
		select {
		case <-l.pumpDone:
		case <-time.After(writeTimeout):
		}
	}

	if l.ClientConn != nil {
		l.ClientConn.Close()
	}

	return nil
}

// IsClosed returns whether the session is closed
func (l *Live) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

func (l *Live) touch() {
	l.mu.Lock()
	l.lastActivity = time.Now()
	l.mu.Unlock()
}

// LastActivity reports when the client was last heard from.
func (l *Live) LastActivity() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastActivity
}

func (l *Live) shortID() string {
	if len(l.ID) >= 8 {
		return l.ID[:8]
	}
	return l.ID
}
