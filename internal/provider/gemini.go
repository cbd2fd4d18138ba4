package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiAdapter speaks the Gemini generateContent API over SSE. The backend
// has no system role: system messages become the systemInstruction field and
// the assistant role is renamed to model.
type GeminiAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewGeminiAdapter(apiKey string) *GeminiAdapter {
	return &GeminiAdapter{
		apiKey:     apiKey,
		baseURL:    geminiBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (a *GeminiAdapter) Generate(ctx context.Context, req Request) (Stream, error) {
	body, err := json.Marshal(a.buildBody(req))
	if err != nil {
		return nil, fmt.Errorf("gemini request encode: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s",
		a.baseURL, url.PathEscape(req.Model), url.QueryEscape(a.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini request build: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, string(b))
	}
	return &geminiStream{body: resp.Body, events: newSSEReader(resp.Body)}, nil
}

func (a *GeminiAdapter) buildBody(req Request) map[string]any {
	system, turns := foldSystem(req.Messages)
	turns = ensureLeadingUser(mergeConsecutive(turns))

	contents := make([]map[string]any, 0, len(turns))
	for _, m := range turns {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []map[string]any{{"text": m.Content}},
		})
	}
	generation := map[string]any{}
	if req.Temperature > 0 {
		generation["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		generation["maxOutputTokens"] = req.MaxTokens
	}
	body := map[string]any{
		"contents":         contents,
		"generationConfig": generation,
	}
	if system != "" {
		body["systemInstruction"] = map[string]any{"parts": []map[string]any{{"text": system}}}
	}
	if len(req.Tools) > 0 {
		decls := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			})
		}
		body["tools"] = []map[string]any{{"functionDeclarations": decls}}
	}
	return body
}

type geminiStream struct {
	body    io.ReadCloser
	events  *sseReader
	pending []Token
	sawStop bool
	done    bool
}

type geminiChunk struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text         string `json:"text"`
				FunctionCall *struct {
					Name string          `json:"name"`
					Args json.RawMessage `json:"args"`
				} `json:"functionCall"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func (s *geminiStream) Next() (Token, error) {
	if s.done {
		return Token{}, io.EOF
	}
	for {
		if len(s.pending) > 0 {
			tok := s.pending[0]
			s.pending = s.pending[1:]
			if tok.Kind == TokenDone {
				s.done = true
			}
			return tok, nil
		}
		ev, err := s.events.next()
		if errors.Is(err, io.EOF) {
			if s.sawStop {
				s.done = true
				return Token{Kind: TokenDone}, nil
			}
			return Token{}, fmt.Errorf("gemini stream ended before finish")
		}
		if err != nil {
			return Token{}, fmt.Errorf("gemini stream: %w", err)
		}
		var chunk geminiChunk
		if err := json.Unmarshal([]byte(ev.data), &chunk); err != nil {
			return Token{}, fmt.Errorf("gemini chunk decode: %w", err)
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		cand := chunk.Candidates[0]
		for _, part := range cand.Content.Parts {
			if part.FunctionCall != nil {
				// Gemini delivers complete call arguments in one part.
				s.pending = append(s.pending, Token{
					Kind:      TokenToolCallFragment,
					ToolName:  part.FunctionCall.Name,
					ArgsDelta: string(part.FunctionCall.Args),
				})
				continue
			}
			if part.Text != "" {
				s.pending = append(s.pending, Token{Kind: TokenText, Text: part.Text})
			}
		}
		if cand.FinishReason != "" {
			s.sawStop = true
		}
	}
}

func (s *geminiStream) Close() error {
	return s.body.Close()
}
