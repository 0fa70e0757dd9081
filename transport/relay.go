package transport

import "sync"

// Command is an outbound request the relay forwards to the real transport
// client on the other side of the UI connection.
type Command struct {
	Kind    CommandKind
	Enabled bool // mic state for CommandSetAudio
}

type CommandKind int

const (
	CommandSetAudio CommandKind = iota
	CommandLeave
)

// Relay is the concrete Transport used in this service. The UI client holds
// the actual call; its read loop injects transport events here, and mic/leave
// requests surface through OnCommand for the write path to deliver back.
// Inject is expected to be called from a single goroutine (the connection
// read loop), which preserves per-source arrival order.
type Relay struct {
	// OnCommand receives outbound transport commands. Set before use.
	OnCommand func(Command)

	mu           sync.RWMutex
	subs         map[int]func(Event)
	nextID       int
	participants map[string]struct{}
	closed       bool
}

func NewRelay() *Relay {
	return &Relay{
		subs:         make(map[int]func(Event)),
		participants: make(map[string]struct{}),
	}
}

// Inject delivers one event from the remote transport client to all
// subscribers, updating participant bookkeeping on the way through.
func (r *Relay) Inject(ev Event) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	switch e := ev.(type) {
	case ParticipantJoined:
		r.participants[e.ParticipantID] = struct{}{}
	case ParticipantLeft:
		delete(r.participants, e.ParticipantID)
	}
	fns := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

type relaySub struct {
	relay *Relay
	id    int
	once  sync.Once
}

func (s *relaySub) Unsubscribe() {
	s.once.Do(func() {
		s.relay.mu.Lock()
		delete(s.relay.subs, s.id)
		s.relay.mu.Unlock()
	})
}

func (r *Relay) Subscribe(fn func(Event)) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	return &relaySub{relay: r, id: id}
}

func (r *Relay) SetLocalAudio(enabled bool) {
	r.command(Command{Kind: CommandSetAudio, Enabled: enabled})
}

func (r *Relay) RemoteParticipants() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// Leave asks the remote client to leave the call and stops event delivery.
func (r *Relay) Leave() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.subs = make(map[int]func(Event))
	r.mu.Unlock()

	r.command(Command{Kind: CommandLeave})
	return nil
}

func (r *Relay) command(cmd Command) {
	r.mu.RLock()
	fn := r.OnCommand
	r.mu.RUnlock()
	if fn != nil {
		fn(cmd)
	}
}
