package messages

import "encoding/json"

// ClientMessage represents a message from the frontend client
type ClientMessage struct {
	Type    string          `json:"type"` // "transport", "control"
	Payload json.RawMessage `json:"payload"`
}

// Transport event names relayed by the client
const (
	EventActiveSpeaker     = "active_speaker"
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventAppMessage        = "app_message"
	EventMetric            = "metric"
	EventFatal             = "fatal"
)

// TransportPayload is one call-transport event relayed by the client, which
// holds the actual media connection.
type TransportPayload struct {
	Event       string         `json:"event"`
	Participant string         `json:"participant,omitempty"`
	Data        map[string]any `json:"data,omitempty"`     // app-message payload
	Category    string         `json:"category,omitempty"` // metric category
	Value       float64        `json:"value,omitempty"`    // metric value
	Message     string         `json:"message,omitempty"`  // fatal error text
}

// ControlPayload contains control commands
type ControlPayload struct {
	Action string `json:"action"` // "ping", "toggle_mute", "stats", "end"
}
