package streaming

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

type textPayload struct {
	Text string `json:"text"`
}

type reasoningPayload struct {
	ReasoningText string `json:"reasoningText"`
}

// Muxer serializes answer text, reasoning text and confidence scores into
// tagged, newline-terminated frames on one byte stream. Flush is invoked
// after every frame so buffered transports deliver tokens as they arrive.
type Muxer struct {
	w     io.Writer
	flush func()
}

func NewMuxer(w io.Writer, flush func()) *Muxer {
	if flush == nil {
		flush = func() {}
	}
	return &Muxer{w: w, flush: flush}
}

func (m *Muxer) WriteText(text string) error {
	return m.writeJSON(tagData, textPayload{Text: text})
}

func (m *Muxer) WriteReasoning(text string) error {
	return m.writeJSON(tagReason, reasoningPayload{ReasoningText: text})
}

func (m *Muxer) WriteScore(score float64) error {
	return m.writeRaw(tagScore, strconv.FormatFloat(score, 'f', -1, 64))
}

// WritePayload emits an auxiliary data-channel frame. The payload must
// marshal to a JSON object carrying at least a "text" field.
func (m *Muxer) WritePayload(payload map[string]any) error {
	return m.writeJSON(tagData, payload)
}

// WriteDone terminates the stream. No frame may follow it.
func (m *Muxer) WriteDone() error {
	return m.writeRaw(tagData, doneSentinel)
}

func (m *Muxer) writeJSON(tag string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return m.writeRaw(tag, string(b))
}

func (m *Muxer) writeRaw(tag, body string) error {
	if _, err := fmt.Fprintf(m.w, "%s %s\n\n", tag, body); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	m.flush()
	return nil
}
