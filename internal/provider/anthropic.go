package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"

	anthropicDefaultMaxTokens = 1024
)

// AnthropicAdapter speaks the Anthropic messages API directly over SSE.
// System messages are folded into the request's system field and consecutive
// same-role messages are merged, since the backend requires alternating
// user/assistant turns.
type AnthropicAdapter struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewAnthropicAdapter(apiKey string) *AnthropicAdapter {
	return &AnthropicAdapter{
		apiKey:     apiKey,
		endpoint:   anthropicEndpoint,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (a *AnthropicAdapter) Generate(ctx context.Context, req Request) (Stream, error) {
	body, err := json.Marshal(a.buildBody(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic request encode: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic request build: %w", err)
	}
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("anthropic status %d: %s", resp.StatusCode, string(b))
	}
	return &anthropicStream{body: resp.Body, events: newSSEReader(resp.Body)}, nil
}

func (a *AnthropicAdapter) buildBody(req Request) map[string]any {
	system, turns := foldSystem(req.Messages)
	turns = ensureLeadingUser(mergeConsecutive(turns))

	messages := make([]map[string]any, 0, len(turns))
	for _, m := range turns {
		messages = append(messages, map[string]any{"role": string(m.Role), "content": m.Content})
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	body := map[string]any{
		"model":      req.Model,
		"max_tokens": maxTokens,
		"messages":   messages,
		"stream":     true,
	}
	if system != "" {
		body["system"] = system
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, map[string]any{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": t.Parameters,
			})
		}
		body["tools"] = tools
	}
	return body
}

type anthropicStream struct {
	body   io.ReadCloser
	events *sseReader
	done   bool
}

type anthropicEvent struct {
	Type         string `json:"type"`
	ContentBlock struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"content_block"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
}

func (s *anthropicStream) Next() (Token, error) {
	if s.done {
		return Token{}, io.EOF
	}
	for {
		ev, err := s.events.next()
		if errors.Is(err, io.EOF) {
			// The backend always closes with message_stop; a bare EOF is a
			// dropped transport and must not look like completion.
			return Token{}, fmt.Errorf("anthropic stream ended before message_stop")
		}
		if err != nil {
			return Token{}, fmt.Errorf("anthropic stream: %w", err)
		}
		var parsed anthropicEvent
		if err := json.Unmarshal([]byte(ev.data), &parsed); err != nil {
			return Token{}, fmt.Errorf("anthropic event decode: %w", err)
		}
		switch parsed.Type {
		case "message_stop":
			s.done = true
			return Token{Kind: TokenDone}, nil
		case "content_block_start":
			if parsed.ContentBlock.Type == "tool_use" {
				return Token{Kind: TokenToolCallFragment, ToolName: parsed.ContentBlock.Name}, nil
			}
		case "content_block_delta":
			switch parsed.Delta.Type {
			case "text_delta":
				return Token{Kind: TokenText, Text: parsed.Delta.Text}, nil
			case "thinking_delta":
				return Token{Kind: TokenReasoning, Text: parsed.Delta.Thinking}, nil
			case "input_json_delta":
				return Token{Kind: TokenToolCallFragment, ArgsDelta: parsed.Delta.PartialJSON}, nil
			}
		}
		// message_start, message_delta, content_block_stop, ping: nothing to surface.
	}
}

func (s *anthropicStream) Close() error {
	return s.body.Close()
}
