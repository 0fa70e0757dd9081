// Package transport defines the call-transport collaborator at its
// interface. The actual media client (room join, encode/decode, networking)
// lives outside this service; the coordinator only consumes its events and
// issues mic/leave requests back through it.
package transport

import "time"

// Event is a sealed variant over the signals a call transport delivers.
type Event interface {
	isEvent()
}

// ActiveSpeaker fires when the transport detects a new dominant speaker.
type ActiveSpeaker struct {
	ParticipantID string
}

// ParticipantJoined fires when a remote participant enters the room.
// Remote participant count > 0 is treated as "agent present".
type ParticipantJoined struct {
	ParticipantID string
}

// ParticipantLeft fires when a remote participant leaves the room.
type ParticipantLeft struct {
	ParticipantID string
}

// AppMessage carries an untyped application-layer payload from the call
// data channel. Classification happens in the cue package.
type AppMessage struct {
	Payload map[string]any
}

// Metric is a transport quality/latency sample.
type Metric struct {
	Category string
	Value    float64
	At       time.Time
}

// FatalError reports an unrecoverable transport failure. It terminates the
// session; nothing retries at this layer.
type FatalError struct {
	Err error
}

func (ActiveSpeaker) isEvent()     {}
func (ParticipantJoined) isEvent() {}
func (ParticipantLeft) isEvent()   {}
func (AppMessage) isEvent()        {}
func (Metric) isEvent()            {}
func (FatalError) isEvent()        {}

// Subscription is an explicit handle for one event listener. Unsubscribe is
// idempotent and must be invoked during session teardown so a torn-down
// session receives no stray callbacks.
type Subscription interface {
	Unsubscribe()
}

// Transport is the call-transport surface the session coordinator depends
// on. Events from one transport are delivered in arrival order.
type Transport interface {
	// SetLocalAudio gates the local microphone.
	SetLocalAudio(enabled bool)
	// Subscribe registers a listener for every subsequent event.
	Subscribe(fn func(Event)) Subscription
	// RemoteParticipants returns the current remote participant count.
	RemoteParticipants() int
	// Leave tears the call down.
	Leave() error
}
