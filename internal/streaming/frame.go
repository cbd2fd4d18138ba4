package streaming

import (
	"strconv"
	"strings"
)

// Wire tags. The widget depends on these exact prefixes, so they are fixed.
const (
	tagData   = "data:"
	tagReason = "reason:"
	tagScore  = "score:"

	doneSentinel = "[DONE]"

	// scoreDelimiter separates answer text from a trailing self-reported
	// confidence score inside the data channel.
	scoreDelimiter = ":::"
)

// ScoreUnknown marks an absent confidence score. Zero is a valid (low) score
// and must not be conflated with "no score reported".
const ScoreUnknown float64 = -1

type FrameKind int

const (
	FrameText FrameKind = iota
	FrameReasoning
	FrameScore
	FrameDone
)

// Frame is one decoded unit of the multiplexed stream.
type Frame struct {
	Kind          FrameKind
	Text          string
	ReasoningText string
	Score         float64
	// Extra carries channel-specific auxiliary payload fields
	// (e.g. slots and meetingUrl on a scheduling result frame).
	Extra map[string]any
}

// SplitConfidence splits a trailing ":::<score>" suffix out of answer text.
// A missing or empty score segment yields ScoreUnknown.
func SplitConfidence(s string) (string, float64) {
	idx := strings.LastIndex(s, scoreDelimiter)
	if idx < 0 {
		return s, ScoreUnknown
	}
	body := s[:idx]
	raw := strings.TrimSpace(s[idx+len(scoreDelimiter):])
	if raw == "" {
		return body, ScoreUnknown
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return s, ScoreUnknown
	}
	return body, score
}
