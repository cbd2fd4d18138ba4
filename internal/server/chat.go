package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"mesa-chat-backend/internal/flow"
	"mesa-chat-backend/internal/provider"
	"mesa-chat-backend/internal/store"
	"mesa-chat-backend/internal/streaming"
	"mesa-chat-backend/internal/tools"
	"mesa-chat-backend/internal/types"
)

// handleChat runs one chat turn: the flow graph is consulted first and can
// short-circuit generation entirely; otherwise the turn streams through a
// backend adapter, the tool-call accumulator and the action dispatcher back
// out over the multiplexed frame protocol.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ChatbotID) == "" {
		s.writeError(w, http.StatusBadRequest, "chatbotId is required")
		return
	}
	userMessage := latestUserMessage(req)
	if userMessage == "" && req.NodeID == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	botCfg, err := s.configs.Load(req.ChatbotID)
	if err != nil {
		s.log.Error().Str("chatbot", req.ChatbotID).Err(err).Msg("chatbot config load failed")
		s.writeError(w, http.StatusInternalServerError, "chatbot configuration unavailable")
		return
	}
	if botCfg == nil {
		s.writeError(w, http.StatusNotFound, "unknown chatbot")
		return
	}
	if s.credits.Balance(req.ChatbotID) == 0 {
		s.writeError(w, http.StatusForbidden, "message credits exhausted")
		return
	}

	cid := s.getOrCreateConversationID(w, r, req.ConversationID)
	w.Header().Set("X-Conversation-Id", cid)

	turnCount := s.history.UserTurns(cid)
	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = botCfg.SystemPrompt
	}
	if turnCount == 0 && systemPrompt != "" {
		s.history.Append(cid, store.Message{Role: "system", Content: systemPrompt})
	}
	if userMessage != "" {
		s.history.Append(cid, store.Message{Role: "user", Content: userMessage})
	}

	// Scripted flows are consulted before any backend adapter.
	if botCfg.Flow != nil {
		if node := resolveFlowNode(botCfg.Flow, req, turnCount); node != nil {
			s.history.Append(cid, store.Message{Role: "assistant", Content: node.Message})
			s.writeJSON(w, http.StatusOK, types.FlowReply{
				ConversationID: cid,
				NodeID:         node.ID,
				Message:        node.Message,
				Question:       node.Question,
				Options:        node.Options,
				Image:          node.Image,
				IsFlow:         true,
			})
			return
		}
	}

	s.streamTurn(w, r, req, botCfg, cid)
}

// resolveFlowNode walks the flow graph for this turn. A nil result means the
// flow defers to free-form generation.
func resolveFlowNode(g *flow.Graph, req types.ChatRequest, turnCount int) *flow.Node {
	optionIndex := -1
	if req.OptionIndex != nil {
		optionIndex = *req.OptionIndex
	} else if req.NodeID != "" && req.SelectedOption != "" {
		if current := nodeByID(g, req.NodeID); current != nil {
			for i, opt := range current.Options {
				if strings.EqualFold(opt, req.SelectedOption) {
					optionIndex = i
					break
				}
			}
		}
	}
	return g.Resolve(req.NodeID, optionIndex, turnCount)
}

func nodeByID(g *flow.Graph, id string) *flow.Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

func (s *Server) streamTurn(w http.ResponseWriter, r *http.Request, req types.ChatRequest, botCfg *store.ChatbotConfig, cid string) {
	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	model := req.Model
	if model == "" {
		model = botCfg.Model
	}
	if model == "" {
		model = s.cfg.DefaultModel
	}
	preq := provider.Request{
		Model:       model,
		Messages:    historyToMessages(s.history.Get(cid)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Tools:       s.actions.Schemas(botCfg.Actions),
	}

	ctx := r.Context()
	stream, err := s.providers.Generate(ctx, preq)
	if err != nil {
		s.log.Error().Str("model", model).Err(err).Msg("generation init failed")
		s.writeError(w, http.StatusBadGateway, "generation backend unavailable")
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	mux := streaming.NewMuxer(w, flusher.Flush)

	var answer strings.Builder
	var acc tools.Accumulator
	completed := false
	for !completed {
		tok, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// Transport error: the stream terminates without [DONE]. The
			// turn is not billed and the partial answer is not committed
			// to history.
			s.log.Error().Str("model", model).Err(err).Msg("backend stream failed mid-flight")
			return
		}
		switch tok.Kind {
		case provider.TokenText:
			answer.WriteString(tok.Text)
			_ = mux.WriteText(tok.Text)
		case provider.TokenReasoning:
			_ = mux.WriteReasoning(tok.Text)
		case provider.TokenToolCallFragment:
			acc.Add(tok.ToolName, tok.ArgsDelta)
		case provider.TokenDone:
			completed = true
		}
	}
	if !completed {
		return
	}

	if acc.Active() {
		call, args := acc.Finalize(s.log)
		// A consumer disconnect from here on must not cancel the side
		// effect mid-flight; partial order states are worse than finishing
		// work for a closed connection.
		execCtx := context.WithoutCancel(ctx)
		res, emit := s.actions.Dispatch(execCtx, call, args, tools.Context{
			ChatbotID:      req.ChatbotID,
			ConversationID: cid,
			Language:       req.Language,
			Actions:        botCfg.Actions,
			Catalog:        botCfg.Catalog,
		})
		if emit {
			payload := map[string]any{"text": res.Text}
			for k, v := range res.Payload {
				payload[k] = v
			}
			_ = mux.WritePayload(payload)
			if answer.Len() > 0 {
				answer.WriteString("\n")
			}
			answer.WriteString(res.Text)
		}
	}

	_ = mux.WriteDone()

	// Exactly one credit per completed turn, including pure tool-call turns
	// with no visible text.
	s.credits.Decrement(req.ChatbotID)

	final, _ := streaming.SplitConfidence(answer.String())
	if strings.TrimSpace(final) != "" {
		s.history.Append(cid, store.Message{Role: "assistant", Content: final})
	}
}

func latestUserMessage(req types.ChatRequest) string {
	if strings.TrimSpace(req.Message) != "" {
		return strings.TrimSpace(req.Message)
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" && strings.TrimSpace(req.Messages[i].Content) != "" {
			return strings.TrimSpace(req.Messages[i].Content)
		}
	}
	return ""
}

func historyToMessages(msgs []store.Message) []provider.Message {
	out := make([]provider.Message, 0, len(msgs))
	for _, m := range msgs {
		role := provider.Role(m.Role)
		if role == "" {
			role = provider.RoleUser
		}
		out = append(out, provider.Message{Role: role, Content: m.Content})
	}
	return out
}
