// Package cue classifies inbound app messages from the call data channel
// into a closed set of session cues. The agent backend sends untyped
// key/value payloads; everything downstream of Parse works on the tagged
// variant instead of probing fields.
package cue

// Kind identifies the cue variant.
type Kind int

const (
	Unknown Kind = iota
	UserTurn
	AssistantTurn
	Transcript
)

// Cue is the classified form of one app message. Text, Final and SpeakerID
// are only meaningful when Kind is Transcript.
type Cue struct {
	Kind      Kind
	Text      string
	Final     bool
	SpeakerID string
}

// Parse classifies a raw app-message payload. It never fails: malformed or
// unrecognized payloads come back as Unknown and are dropped by the caller.
//
// Classification order:
//  1. A "cue" field equal to "user_turn" hands the turn to the user.
//  2. Any other "cue" value hands the turn to the assistant.
//  3. A final transcript from the agent (speech_final, non-empty text,
//     empty user_id) becomes a final Transcript.
//  4. A partial agent transcript (non-empty text, empty user_id) becomes a
//     non-final Transcript.
func Parse(payload map[string]any) Cue {
	if payload == nil {
		return Cue{Kind: Unknown}
	}

	if raw, ok := payload["cue"]; ok {
		if s, ok := raw.(string); ok && s == "user_turn" {
			return Cue{Kind: UserTurn}
		}
		return Cue{Kind: AssistantTurn}
	}

	// Transcript payloads identify the agent by an empty user_id. A missing
	// user_id means the speaker is unknown, not the agent.
	userID, ok := payload["user_id"].(string)
	if !ok || userID != "" {
		return Cue{Kind: Unknown}
	}

	text, ok := payload["text"].(string)
	if !ok || text == "" {
		return Cue{Kind: Unknown}
	}

	final, _ := payload["speech_final"].(bool)
	return Cue{Kind: Transcript, Text: text, Final: final, SpeakerID: userID}
}

func (k Kind) String() string {
	switch k {
	case UserTurn:
		return "user_turn"
	case AssistantTurn:
		return "assistant_turn"
	case Transcript:
		return "transcript"
	default:
		return "unknown"
	}
}
