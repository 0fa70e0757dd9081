package session

import (
	"log"
	"sync"
	"time"

	"github.com/CerebriumAI/live-stream-shopper/cue"
	"github.com/CerebriumAI/live-stream-shopper/transport"
)

const coordinatorQueueSize = 64

// Coordinator owns microphone gating and turn state for one session. Every
// async source (transport speaker activity, parsed cues, timer fires,
// manual mute requests) lands on a single buffered queue consumed by one
// goroutine, so racing signals resolve to "last cue wins" instead of
// interleaving. The coordinator is the only writer of State.Muted and
// State.Turn.
//
// Effects are surfaced through callbacks in the order they are decided;
// wire them before Start.
type Coordinator struct {
	OnStarted    func()
	OnMicChange  func(enabled bool)
	OnTurnChange func(Turn)
	OnPause      func()
	OnResume     func()
	OnFatal      func(error)

	tr            transport.Transport
	graceWindow   time.Duration
	reenableDelay time.Duration

	queue     chan coordEvent
	done      chan struct{}
	closeOnce sync.Once
	sub       transport.Subscription

	mu         sync.RWMutex
	state      State
	micTimer   *time.Timer
	graceTimer *time.Timer
	timerGen   int

	// run-loop-owned
	started   bool
	graceOver bool
	firstMic  bool
	playing   bool
}

type coordEvent interface{ isCoordEvent() }

type cueEvent struct{ c cue.Cue }
type speakerEvent struct{ participantID string }
type graceElapsedEvent struct{}
type micTimerEvent struct{ gen int }
type toggleMuteEvent struct{}
type fatalEvent struct{ err error }

func (cueEvent) isCoordEvent()          {}
func (speakerEvent) isCoordEvent()      {}
func (graceElapsedEvent) isCoordEvent() {}
func (micTimerEvent) isCoordEvent()     {}
func (toggleMuteEvent) isCoordEvent()   {}
func (fatalEvent) isCoordEvent()        {}

func NewCoordinator(tr transport.Transport, runID string, graceWindow, reenableDelay time.Duration) *Coordinator {
	return &Coordinator{
		tr:            tr,
		graceWindow:   graceWindow,
		reenableDelay: reenableDelay,
		queue:         make(chan coordEvent, coordinatorQueueSize),
		done:          make(chan struct{}),
		state: State{
			RunID:     runID,
			CallState: CallConnecting,
			Muted:     true,
			Turn:      TurnUser,
		},
		// The media player autoplays on session load.
		playing: true,
	}
}

// Start mutes the local mic, arms the start-of-session grace window and
// begins consuming events. The mic stays force-disabled until the grace
// window has elapsed and the agent has spoken, whatever the turn state.
// Otherwise the mic picks up the agent's opening line and interrupts it
// immediately.
func (c *Coordinator) Start() {
	c.tr.SetLocalAudio(false)
	c.sub = c.tr.Subscribe(c.onTransportEvent)

	c.mu.Lock()
	c.graceTimer = time.AfterFunc(c.graceWindow, func() {
		c.enqueue(graceElapsedEvent{})
	})
	c.mu.Unlock()

	go c.run()
}

// ToggleMute flips the mic-enabled flag without changing turn state. This is
// the user-initiated transition and also the action invoked right after a
// playback resume.
func (c *Coordinator) ToggleMute() {
	c.enqueue(toggleMuteEvent{})
}

// State returns a snapshot of the current session state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Close stops the run loop and cancels any pending delayed mic re-enable;
// timer fires arriving afterwards are dropped at the queue.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		if c.sub != nil {
			c.sub.Unsubscribe()
		}
		close(c.done)

		c.mu.Lock()
		if c.micTimer != nil {
			c.micTimer.Stop()
			c.micTimer = nil
		}
		if c.graceTimer != nil {
			c.graceTimer.Stop()
			c.graceTimer = nil
		}
		c.mu.Unlock()
	})
}

func (c *Coordinator) onTransportEvent(ev transport.Event) {
	switch e := ev.(type) {
	case transport.ActiveSpeaker:
		c.enqueue(speakerEvent{participantID: e.ParticipantID})
	case transport.AppMessage:
		parsed := cue.Parse(e.Payload)
		if parsed.Kind == cue.Unknown {
			return
		}
		c.enqueue(cueEvent{c: parsed})
	case transport.FatalError:
		c.enqueue(fatalEvent{err: e.Err})
	}
}

func (c *Coordinator) enqueue(ev coordEvent) {
	select {
	case c.queue <- ev:
	case <-c.done:
	}
}

func (c *Coordinator) run() {
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.queue:
			c.handle(ev)
		}
	}
}

func (c *Coordinator) handle(ev coordEvent) {
	switch e := ev.(type) {
	case speakerEvent:
		c.handleFirstSpeaker(e)
	case graceElapsedEvent:
		c.graceOver = true
		c.maybeFirstEnable()
	case cueEvent:
		c.handleCue(e.c)
	case micTimerEvent:
		c.handleMicTimer(e.gen)
	case toggleMuteEvent:
		c.setMic(c.State().Muted)
	case fatalEvent:
		c.setCallState(CallError)
		log.Printf("❌ transport fatal error, leaving session: %v", e.err)
		if c.OnFatal != nil {
			c.OnFatal(e.err)
		}
	}
}

// handleFirstSpeaker latches the session active on the first speaker signal.
// Later speaker changes carry no state.
func (c *Coordinator) handleFirstSpeaker(speakerEvent) {
	if c.started {
		return
	}
	c.started = true
	c.setCallState(CallConnected)
	log.Printf("🗣️ first active speaker, session started")
	if c.OnStarted != nil {
		c.OnStarted()
	}
	c.maybeFirstEnable()
}

// maybeFirstEnable performs the one-time initial mic enable once both the
// grace window has elapsed and the agent has spoken.
func (c *Coordinator) maybeFirstEnable() {
	if c.firstMic || !c.graceOver || !c.started {
		return
	}
	if c.State().Turn != TurnUser {
		return
	}
	c.firstMic = true
	c.setMic(true)
}

func (c *Coordinator) handleCue(parsed cue.Cue) {
	switch parsed.Kind {
	case cue.UserTurn:
		c.setTurn(TurnUser)
		// Enable after a short delay so the mic doesn't pick up residual
		// agent audio.
		c.scheduleMicEnable(c.reenableDelay)

	case cue.AssistantTurn:
		c.cancelMicEnable()
		c.setTurn(TurnAssistant)
		c.setMic(false)

	case cue.Transcript:
		// The agent is narrating: stop the media player competing with it.
		if c.playing {
			c.playing = false
			if c.OnPause != nil {
				c.OnPause()
			}
		}
		if parsed.Final && cue.MatchesResume(parsed.Text) {
			log.Printf("▶️ resume phrase matched: %q", parsed.Text)
			c.playing = true
			if c.OnResume != nil {
				c.OnResume()
			}
			// Hand the floor back: suppress the mic so playback audio
			// doesn't read as an interruption.
			c.setMic(c.State().Muted)
		}
	}
}

func (c *Coordinator) handleMicTimer(gen int) {
	c.mu.RLock()
	stale := gen != c.timerGen
	c.mu.RUnlock()
	if stale {
		return
	}
	if !c.graceOver {
		// Still inside the start-of-session force-mute; the grace elapse
		// handles the first enable.
		return
	}
	c.firstMic = true
	c.setMic(true)
}

func (c *Coordinator) scheduleMicEnable(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timerGen++
	gen := c.timerGen
	if c.micTimer != nil {
		c.micTimer.Stop()
	}
	c.micTimer = time.AfterFunc(d, func() {
		c.enqueue(micTimerEvent{gen: gen})
	})
}

func (c *Coordinator) cancelMicEnable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timerGen++
	if c.micTimer != nil {
		c.micTimer.Stop()
		c.micTimer = nil
	}
}

func (c *Coordinator) setMic(enabled bool) {
	c.mu.Lock()
	if c.state.Muted == !enabled {
		c.mu.Unlock()
		return
	}
	c.state.Muted = !enabled
	c.mu.Unlock()

	c.tr.SetLocalAudio(enabled)
	if c.OnMicChange != nil {
		c.OnMicChange(enabled)
	}
}

func (c *Coordinator) setTurn(t Turn) {
	c.mu.Lock()
	if c.state.Turn == t {
		c.mu.Unlock()
		return
	}
	c.state.Turn = t
	c.mu.Unlock()

	if c.OnTurnChange != nil {
		c.OnTurnChange(t)
	}
}

func (c *Coordinator) setCallState(s CallState) {
	c.mu.Lock()
	c.state.CallState = s
	c.mu.Unlock()
}
