package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// reasoningTokenCeilings caps maxTokens per reasoning-tier model prefix.
// Longest matching prefix wins.
var reasoningTokenCeilings = map[string]int{
	"o1":      100000,
	"o1-mini": 65536,
	"o3":      100000,
	"o3-mini": 65536,
	"o4-mini": 65536,
}

const defaultReasoningCeiling = 32768

// OpenAIAdapter serves the OpenAI model family and, with a custom base URL,
// the OpenAI-compatible backends (DeepSeek, Grok).
type OpenAIAdapter struct {
	client *openai.Client
}

func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{client: openai.NewClient(apiKey)}
}

// NewOpenAICompatAdapter targets an OpenAI-compatible endpoint such as
// DeepSeek (https://api.deepseek.com) or Grok (https://api.x.ai/v1).
func NewOpenAICompatAdapter(apiKey, baseURL string) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIAdapter{client: openai.NewClientWithConfig(cfg)}
}

func (a *OpenAIAdapter) Generate(ctx context.Context, req Request) (Stream, error) {
	stream, err := a.client.CreateChatCompletionStream(ctx, buildChatRequest(req))
	if err != nil {
		return nil, fmt.Errorf("openai stream init: %w", err)
	}
	return &openAIStream{inner: stream}, nil
}

// buildChatRequest translates the normalized request into the backend shape.
// Reasoning-tier models ignore the requested temperature, use the renamed
// token-limit field and cap it to the tier's declared ceiling.
func buildChatRequest(req Request) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:  req.Model,
		Stream: true,
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if isReasoningModel(req.Model) {
		out.Temperature = 1
		out.MaxCompletionTokens = capTokens(req.Model, req.MaxTokens)
	} else {
		out.Temperature = req.Temperature
		out.MaxTokens = req.MaxTokens
	}
	return out
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4"} {
		if m == prefix || strings.HasPrefix(m, prefix+"-") {
			return true
		}
	}
	return false
}

func capTokens(model string, requested int) int {
	ceiling := defaultReasoningCeiling
	longest := -1
	m := strings.ToLower(model)
	for prefix, c := range reasoningTokenCeilings {
		if (m == prefix || strings.HasPrefix(m, prefix+"-")) && len(prefix) > longest {
			longest = len(prefix)
			ceiling = c
		}
	}
	if requested <= 0 || requested > ceiling {
		return ceiling
	}
	return requested
}

type openAIStream struct {
	inner *openai.ChatCompletionStream
	done  bool
}

func (s *openAIStream) Next() (Token, error) {
	if s.done {
		return Token{}, io.EOF
	}
	for {
		resp, err := s.inner.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			return Token{Kind: TokenDone}, nil
		}
		if err != nil {
			return Token{}, fmt.Errorf("openai stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta
		if len(delta.ToolCalls) > 0 {
			tc := delta.ToolCalls[0]
			return Token{
				Kind:      TokenToolCallFragment,
				ToolName:  tc.Function.Name,
				ArgsDelta: tc.Function.Arguments,
			}, nil
		}
		if delta.ReasoningContent != "" {
			return Token{Kind: TokenReasoning, Text: delta.ReasoningContent}, nil
		}
		if delta.Content != "" {
			return Token{Kind: TokenText, Text: delta.Content}, nil
		}
	}
}

func (s *openAIStream) Close() error {
	s.inner.Close()
	return nil
}
