package provider

import (
	"context"
	"fmt"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// ToolSchema describes one callable tool offered to a backend: a name plus
// JSON-schema-typed parameters.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request is the normalized chat-turn request. Adapters translate it into
// their backend's native shape; it is immutable for the duration of a turn.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
	Tools       []ToolSchema
}

type TokenKind int

const (
	TokenText TokenKind = iota
	TokenReasoning
	TokenToolCallFragment
	TokenDone
)

// Token is the normalized streaming unit produced by an adapter. Tool-call
// fragments are never interleaved inside a Text token.
type Token struct {
	Kind TokenKind
	// Text carries answer text (TokenText) or reasoning text (TokenReasoning).
	Text string
	// ToolName is set on the fragment that opens a tool call; later
	// fragments of the same call leave it empty.
	ToolName string
	// ArgsDelta is a partial slice of the call's JSON arguments.
	ArgsDelta string
}

// Stream is a finite, non-restartable token sequence. Next returns exactly one
// TokenDone on clean completion and io.EOF afterwards. A transport error
// terminates the stream with that error and no Done token is emitted.
type Stream interface {
	Next() (Token, error)
	Close() error
}

// Adapter hides one generation backend behind the normalized contract.
type Adapter interface {
	Generate(ctx context.Context, req Request) (Stream, error)
}

// Family identifies a backend adapter group by model naming convention.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyAnthropic Family = "anthropic"
	FamilyGemini    Family = "gemini"
	FamilyDeepSeek  Family = "deepseek"
	FamilyGrok      Family = "grok"
)

// FamilyOf maps a model identifier to its adapter family. Unknown models fall
// through to the OpenAI family, which historically hosted the defaults.
func FamilyOf(model string) Family {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "claude"):
		return FamilyAnthropic
	case strings.HasPrefix(m, "gemini"):
		return FamilyGemini
	case strings.HasPrefix(m, "deepseek"):
		return FamilyDeepSeek
	case strings.HasPrefix(m, "grok"):
		return FamilyGrok
	default:
		return FamilyOpenAI
	}
}

// Dispatcher routes a normalized request to the adapter owning its model
// family. It is constructed once at startup and passed by reference into the
// request path; there are no package-level backend clients.
type Dispatcher struct {
	adapters map[Family]Adapter
}

func NewDispatcher(adapters map[Family]Adapter) *Dispatcher {
	return &Dispatcher{adapters: adapters}
}

func (d *Dispatcher) Generate(ctx context.Context, req Request) (Stream, error) {
	family := FamilyOf(req.Model)
	adapter, ok := d.adapters[family]
	if !ok {
		return nil, fmt.Errorf("no adapter configured for model family %q (model %q)", family, req.Model)
	}
	return adapter.Generate(ctx, req)
}
