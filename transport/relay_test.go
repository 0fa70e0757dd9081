package transport

import (
	"testing"
)

func TestRelayDeliversEventsInOrder(t *testing.T) {
	r := NewRelay()
	var got []Event
	r.Subscribe(func(ev Event) { got = append(got, ev) })

	r.Inject(ParticipantJoined{ParticipantID: "agent"})
	r.Inject(ActiveSpeaker{ParticipantID: "agent"})
	r.Inject(AppMessage{Payload: map[string]any{"cue": "user_turn"}})

	if len(got) != 3 {
		t.Fatalf("delivered %d events, want 3", len(got))
	}
	if _, ok := got[0].(ParticipantJoined); !ok {
		t.Fatalf("got[0] = %T, want ParticipantJoined", got[0])
	}
	if _, ok := got[2].(AppMessage); !ok {
		t.Fatalf("got[2] = %T, want AppMessage", got[2])
	}
}

func TestRelayUnsubscribeStopsDelivery(t *testing.T) {
	r := NewRelay()
	var count int
	sub := r.Subscribe(func(Event) { count++ })

	r.Inject(ActiveSpeaker{ParticipantID: "agent"})
	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent
	r.Inject(ActiveSpeaker{ParticipantID: "agent"})

	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestRelayTracksRemoteParticipants(t *testing.T) {
	r := NewRelay()
	if r.RemoteParticipants() != 0 {
		t.Fatalf("expected empty room")
	}
	r.Inject(ParticipantJoined{ParticipantID: "agent"})
	r.Inject(ParticipantJoined{ParticipantID: "agent"}) // duplicate join
	if r.RemoteParticipants() != 1 {
		t.Fatalf("RemoteParticipants = %d, want 1", r.RemoteParticipants())
	}
	r.Inject(ParticipantLeft{ParticipantID: "agent"})
	if r.RemoteParticipants() != 0 {
		t.Fatalf("RemoteParticipants = %d, want 0", r.RemoteParticipants())
	}
}

func TestRelayLeaveEmitsCommandAndStopsEvents(t *testing.T) {
	r := NewRelay()
	var cmds []Command
	r.OnCommand = func(c Command) { cmds = append(cmds, c) }

	var count int
	r.Subscribe(func(Event) { count++ })

	r.SetLocalAudio(false)
	if err := r.Leave(); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	r.Inject(ActiveSpeaker{ParticipantID: "agent"})

	if count != 0 {
		t.Fatalf("events delivered after Leave: %d", count)
	}
	if len(cmds) != 2 || cmds[0].Kind != CommandSetAudio || cmds[1].Kind != CommandLeave {
		t.Fatalf("unexpected commands: %#v", cmds)
	}
}
