package messages

import "github.com/CerebriumAI/live-stream-shopper/feed"

// Error codes
const (
	ErrCodeInvalidMessage  = "INVALID_MESSAGE"
	ErrCodeSessionFailed   = "SESSION_FAILED"
	ErrCodeRoomUnavailable = "ROOM_UNAVAILABLE"
	ErrCodeJoinFailed      = "JOIN_FAILED"
	ErrCodeTransportFatal  = "TRANSPORT_FATAL"
	ErrCodeFeedFetchFailed = "FEED_FETCH_FAILED"
)

// Message types
const (
	TypeStatus  = "status"
	TypeError   = "error"
	TypeProduct = "product"
	TypeFeed    = "feed"
	TypeMic     = "mic"
	TypePlayer  = "player"
	TypeStats   = "stats"
)

// ServerMessage represents a message sent to the frontend client
type ServerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Payload   any    `json:"payload"`
}

// StatusPayload contains status updates
type StatusPayload struct {
	Status  string `json:"status"` // "connected", "call_active", "agent_present", "agent_absent", "disconnected", "pong"
	Message string `json:"message,omitempty"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FeedPayload carries the full product feed, newest first
type FeedPayload struct {
	RunID    string         `json:"runId"`
	Products []feed.Product `json:"products"`
}

// MicPayload reports the mic gate and current turn
type MicPayload struct {
	Enabled bool   `json:"enabled"`
	Turn    string `json:"turn"`
}

// PlayerPayload asks the client to pause or resume the media player
type PlayerPayload struct {
	Action string `json:"action"` // "pause", "play"
}

// NewStatusMessage creates a status message
func NewStatusMessage(sessionID, status, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeStatus,
		SessionID: sessionID,
		Payload: StatusPayload{
			Status:  status,
			Message: message,
		},
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(sessionID, code, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeError,
		SessionID: sessionID,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// NewProductMessage announces one newly admitted product
func NewProductMessage(sessionID string, product feed.Product) *ServerMessage {
	return &ServerMessage{
		Type:      TypeProduct,
		SessionID: sessionID,
		Payload:   product,
	}
}

// NewFeedMessage carries the full reduced feed
func NewFeedMessage(sessionID, runID string, products []feed.Product) *ServerMessage {
	return &ServerMessage{
		Type:      TypeFeed,
		SessionID: sessionID,
		Payload: FeedPayload{
			RunID:    runID,
			Products: products,
		},
	}
}

// NewMicMessage reports a mic gate change
func NewMicMessage(sessionID string, enabled bool, turn string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeMic,
		SessionID: sessionID,
		Payload: MicPayload{
			Enabled: enabled,
			Turn:    turn,
		},
	}
}

// NewPlayerMessage carries a playback command
func NewPlayerMessage(sessionID, action string) *ServerMessage {
	return &ServerMessage{
		Type:      TypePlayer,
		SessionID: sessionID,
		Payload: PlayerPayload{
			Action: action,
		},
	}
}

// NewStatsMessage carries the session's aggregated transport metrics
func NewStatsMessage(sessionID string, stats any) *ServerMessage {
	return &ServerMessage{
		Type:      TypeStats,
		SessionID: sessionID,
		Payload:   stats,
	}
}
