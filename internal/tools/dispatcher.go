package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"mesa-chat-backend/internal/order"
	"mesa-chat-backend/internal/provider"
	"mesa-chat-backend/internal/types"
)

// Result is the outcome of one dispatched action, emitted back into the
// stream as a further data frame.
type Result struct {
	Text    string
	Payload map[string]any
}

// Context carries the per-turn state a handler may consult. Catalog is the
// request's immutable configuration snapshot; it may be nil when the chatbot
// has no menu configured.
type Context struct {
	ChatbotID      string
	ConversationID string
	Language       string
	Actions        []types.ActionDescriptor
	Catalog        *order.MenuCatalog
}

// Handler executes one named action. Implementations return domain failures
// as conversational Results, reserving the error value for unexpected
// internal faults.
type Handler interface {
	Name() string
	Kind() types.ActionKind
	Schema() provider.ToolSchema
	Execute(ctx context.Context, args map[string]any, tc Context) (Result, error)
}

// Dispatcher maps completed tool calls onto a fixed registry of handlers.
// The registry is resolved once at startup.
type Dispatcher struct {
	handlers map[string]Handler
	schemas  map[string]*jsonschema.Schema
	log      zerolog.Logger
}

func NewDispatcher(log zerolog.Logger, handlers ...Handler) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]Handler, len(handlers)),
		schemas:  make(map[string]*jsonschema.Schema, len(handlers)),
		log:      log,
	}
	for _, h := range handlers {
		name := h.Name()
		if _, dup := d.handlers[name]; dup {
			return nil, fmt.Errorf("duplicate tool handler %q", name)
		}
		raw, err := json.Marshal(h.Schema().Parameters)
		if err != nil {
			return nil, fmt.Errorf("tool %q parameter schema: %w", name, err)
		}
		compiled, err := jsonschema.CompileString(name+".json", string(raw))
		if err != nil {
			return nil, fmt.Errorf("tool %q parameter schema: %w", name, err)
		}
		d.handlers[name] = h
		d.schemas[name] = compiled
	}
	return d, nil
}

// Schemas returns the tool schemas to offer the backend for this turn. Only
// tools whose action kind has an enabled descriptor are offered.
func (d *Dispatcher) Schemas(actions []types.ActionDescriptor) []provider.ToolSchema {
	var out []provider.ToolSchema
	for _, h := range d.handlers {
		if types.FirstEnabled(actions, h.Kind()) != nil {
			out = append(out, h.Schema())
		}
	}
	return out
}

// Dispatch resolves and executes a completed tool call. Unregistered names
// are dropped silently (they may be backend-internal calls not meant for this
// system), as are calls whose action kind has no enabled descriptor. The
// returned bool reports whether a result frame should be emitted.
func (d *Dispatcher) Dispatch(ctx context.Context, call ToolCall, args map[string]any, tc Context) (Result, bool) {
	handler, ok := d.handlers[call.Name]
	if !ok {
		d.log.Debug().Str("tool", call.Name).Msg("dropping unregistered tool call")
		return Result{}, false
	}
	if types.FirstEnabled(tc.Actions, handler.Kind()) == nil {
		d.log.Debug().
			Str("tool", call.Name).
			Str("chatbot", tc.ChatbotID).
			Msg("dropping tool call without an enabled action")
		return Result{}, false
	}
	if err := d.schemas[call.Name].Validate(args); err != nil {
		// Degraded arguments still reach the handler; handlers validate what
		// they actually use and answer conversationally.
		d.log.Warn().Str("tool", call.Name).Err(err).Msg("tool arguments failed schema validation")
	}
	res, err := handler.Execute(ctx, args, tc)
	if err != nil {
		d.log.Error().Str("tool", call.Name).Err(err).Msg("tool handler failed")
		return Result{Text: "Sorry, I couldn't complete that just now. Please try again."}, true
	}
	return res, true
}
