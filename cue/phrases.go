package cue

import "strings"

// resumePhrases is the fixed set of utterances that un-pause the media
// player. Matching is plain lowercase substring matching: "thanks, you can
// continue with the lecture now" matches, and unrelated text containing a
// phrase as a substring is an accepted false positive.
var resumePhrases = []string{
	"you can continue with the lecture",
	"continue with the lecture",
	"you can continue with lecture",
	"continue with lecture",
	"play the video",
	"continue with the video",
}

// MatchesResume reports whether a final transcript fragment asks for
// playback to resume.
func MatchesResume(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range resumePhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
