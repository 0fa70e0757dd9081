package cue

import "testing"

func TestParseUserTurn(t *testing.T) {
	c := Parse(map[string]any{"cue": "user_turn"})
	if c.Kind != UserTurn {
		t.Fatalf("Kind = %v, want UserTurn", c.Kind)
	}
}

func TestParseAssistantTurn(t *testing.T) {
	for _, raw := range []any{"assistant_turn", "thinking", 42, true} {
		c := Parse(map[string]any{"cue": raw})
		if c.Kind != AssistantTurn {
			t.Fatalf("Parse(cue=%v).Kind = %v, want AssistantTurn", raw, c.Kind)
		}
	}
}

func TestParseFinalTranscript(t *testing.T) {
	c := Parse(map[string]any{
		"user_id":      "",
		"text":         "hello there",
		"speech_final": true,
	})
	if c.Kind != Transcript {
		t.Fatalf("Kind = %v, want Transcript", c.Kind)
	}
	if !c.Final || c.Text != "hello there" || c.SpeakerID != "" {
		t.Fatalf("unexpected cue: %#v", c)
	}
}

func TestParsePartialTranscript(t *testing.T) {
	c := Parse(map[string]any{"user_id": "", "text": "hel"})
	if c.Kind != Transcript || c.Final {
		t.Fatalf("unexpected cue: %#v", c)
	}
}

func TestParseMalformedPayloadsAreUnknown(t *testing.T) {
	cases := []map[string]any{
		nil,
		{},
		{"text": "hello"},                               // no user_id
		{"user_id": "abc123", "text": "hello"},          // not the agent
		{"user_id": "", "text": ""},                     // empty text
		{"user_id": "", "speech_final": true},           // no text
		{"user_id": 7, "text": "hello"},                 // wrong type
		{"speech_final": true},                          // transcript fields missing
		{"unrelated": "value", "other": []string{"x"}},  // junk
	}
	for i, payload := range cases {
		if c := Parse(payload); c.Kind != Unknown {
			t.Fatalf("case %d: Kind = %v, want Unknown", i, c.Kind)
		}
	}
}

func TestMatchesResumeCaseInsensitiveSubstring(t *testing.T) {
	if !MatchesResume("We can now CONTINUE WITH THE LECTURE, thanks") {
		t.Fatalf("expected match for uppercase phrase inside sentence")
	}
	if !MatchesResume("please play the video") {
		t.Fatalf("expected match for 'play the video'")
	}
}

func TestMatchesResumeRejectsUnlistedPhrases(t *testing.T) {
	for _, text := range []string{"let's keep going", "", "lecture continue with"} {
		if MatchesResume(text) {
			t.Fatalf("unexpected match for %q", text)
		}
	}
}
