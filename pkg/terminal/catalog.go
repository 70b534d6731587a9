package terminal

import (
	"slices"
	"time"
)

// DefaultTick is the UI loop period
const DefaultTick = 100 * time.Millisecond

var quickReplies = []string{
	"Hello", "Goodbye", "Yes", "No", "How are you?", "OKAY", "Can't talk",
	"Call me", "Where are you?", "I love you", "Talk Later", "Hmm...",
	"Real Talk", "Please Explain", "TTYL", "LOL", "LMAO",
}

// DefaultQuickReplies returns the built-in quick reply phrases
func DefaultQuickReplies() []string {
	return slices.Clone(quickReplies)
}
