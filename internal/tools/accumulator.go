package tools

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
)

// ToolCall is a completed, named function invocation requested by a backend.
// It is immutable once the stream's Done token has been observed.
type ToolCall struct {
	Name         string
	RawArguments string
}

// Accumulator reassembles one tool call from the fragmentary name/argument
// deltas a backend emits across many stream chunks. The first non-empty name
// wins and is never overwritten; argument deltas are concatenated in arrival
// order. One call per turn.
type Accumulator struct {
	name string
	args strings.Builder
	seen bool
}

func (a *Accumulator) Add(name, argsDelta string) {
	a.seen = true
	if a.name == "" && name != "" {
		a.name = name
	}
	a.args.WriteString(argsDelta)
}

// Active reports whether any fragment has been observed this turn.
func (a *Accumulator) Active() bool {
	return a.seen
}

// Finalize parses the assembled argument buffer. A parse failure does not
// abort the turn: the raw buffer is logged and an empty argument set is
// substituted so the degraded call still reaches the dispatcher.
func (a *Accumulator) Finalize(log zerolog.Logger) (ToolCall, map[string]any) {
	call := ToolCall{Name: a.name, RawArguments: a.args.String()}
	args := map[string]any{}
	raw := strings.TrimSpace(call.RawArguments)
	if raw == "" {
		return call, args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		log.Warn().
			Str("tool", call.Name).
			Str("rawArguments", call.RawArguments).
			Err(err).
			Msg("tool arguments did not parse, substituting empty object")
		return call, map[string]any{}
	}
	return call, args
}
