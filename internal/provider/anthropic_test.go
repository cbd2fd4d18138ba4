package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnthropicTestAdapter(handler http.HandlerFunc) (*AnthropicAdapter, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return &AnthropicAdapter{
		apiKey:     "test-key",
		endpoint:   srv.URL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}, srv
}

func drainTokens(t *testing.T, s Stream) []Token {
	t.Helper()
	var out []Token
	for {
		tok, err := s.Next()
		require.NoError(t, err)
		out = append(out, tok)
		if tok.Kind == TokenDone {
			return out
		}
	}
}

func TestAnthropicStreamTextAndReasoning(t *testing.T) {
	adapter, srv := newAnthropicTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		io.WriteString(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"thinking_delta\",\"thinking\":\"hmm\"}}\n\n")
		io.WriteString(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hello\"}}\n\n")
		io.WriteString(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\" there\"}}\n\n")
		io.WriteString(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	})
	defer srv.Close()

	stream, err := adapter.Generate(context.Background(), Request{
		Model:    "claude-sonnet-4-20250514",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	defer stream.Close()

	toks := drainTokens(t, stream)
	require.Len(t, toks, 4)
	assert.Equal(t, Token{Kind: TokenReasoning, Text: "hmm"}, toks[0])
	assert.Equal(t, Token{Kind: TokenText, Text: "Hello"}, toks[1])
	assert.Equal(t, Token{Kind: TokenText, Text: " there"}, toks[2])
	assert.Equal(t, TokenDone, toks[3].Kind)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestAnthropicStreamToolCall(t *testing.T) {
	adapter, srv := newAnthropicTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "event: content_block_start\ndata: {\"type\":\"content_block_start\",\"content_block\":{\"type\":\"tool_use\",\"name\":\"add_to_cart\"}}\n\n")
		io.WriteString(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"{\\\"itemId\\\":\"}}\n\n")
		io.WriteString(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"input_json_delta\",\"partial_json\":\"\\\"i1\\\"}\"}}\n\n")
		io.WriteString(w, "event: content_block_stop\ndata: {\"type\":\"content_block_stop\"}\n\n")
		io.WriteString(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	})
	defer srv.Close()

	stream, err := adapter.Generate(context.Background(), Request{Model: "claude-3-haiku"})
	require.NoError(t, err)
	defer stream.Close()

	toks := drainTokens(t, stream)
	require.Len(t, toks, 4)
	assert.Equal(t, "add_to_cart", toks[0].ToolName)
	assert.Equal(t, TokenToolCallFragment, toks[0].Kind)
	assert.Equal(t, `{"itemId":`+`"i1"}`, toks[1].ArgsDelta+toks[2].ArgsDelta)
}

func TestAnthropicStreamBareEOFIsError(t *testing.T) {
	adapter, srv := newAnthropicTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hel\"}}\n\n")
		// Connection drops without message_stop.
	})
	defer srv.Close()

	stream, err := adapter.Generate(context.Background(), Request{Model: "claude-3-haiku"})
	require.NoError(t, err)
	defer stream.Close()

	tok, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "Hel", tok.Text)

	_, err = stream.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message_stop")
}

func TestAnthropicErrorStatus(t *testing.T) {
	adapter, srv := newAnthropicTestAdapter(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusTooManyRequests)
	})
	defer srv.Close()

	_, err := adapter.Generate(context.Background(), Request{Model: "claude-3-haiku"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAnthropicBuildBody(t *testing.T) {
	adapter := NewAnthropicAdapter("k")
	body := adapter.buildBody(Request{
		Model: "claude-3-haiku",
		Messages: []Message{
			{Role: RoleSystem, Content: "Be brief."},
			{Role: RoleAssistant, Content: "welcome"},
			{Role: RoleUser, Content: "hi"},
			{Role: RoleUser, Content: "menu please"},
		},
		Tools: []ToolSchema{{Name: "get_categories", Parameters: map[string]any{"type": "object"}}},
	})

	assert.Equal(t, "Be brief.", body["system"])
	assert.Equal(t, anthropicDefaultMaxTokens, body["max_tokens"])

	raw, err := json.Marshal(body["messages"])
	require.NoError(t, err)
	var messages []map[string]string
	require.NoError(t, json.Unmarshal(raw, &messages))
	require.Len(t, messages, 3)
	// A leading assistant turn is padded with a neutral user turn, and the
	// two consecutive user turns are merged.
	assert.Equal(t, "user", messages[0]["role"])
	assert.Equal(t, ".", messages[0]["content"])
	assert.Equal(t, "assistant", messages[1]["role"])
	assert.Equal(t, "hi\n\nmenu please", messages[2]["content"])

	tools, ok := body["tools"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, "get_categories", tools[0]["name"])
	assert.NotNil(t, tools[0]["input_schema"])
}
