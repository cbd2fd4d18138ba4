package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mesa-chat-backend/internal/provider"
	"mesa-chat-backend/internal/scheduling"
	"mesa-chat-backend/internal/types"
)

const SchedulingToolName = "get_available_slots"

// SchedulingHandler resolves booking availability through the scheduling
// collaborator. External lookup failures degrade to a "no slots" answer
// rather than propagating a transport error to the user.
type SchedulingHandler struct {
	client scheduling.Client
	log    zerolog.Logger
}

func NewSchedulingHandler(client scheduling.Client, log zerolog.Logger) *SchedulingHandler {
	return &SchedulingHandler{client: client, log: log}
}

func (h *SchedulingHandler) Name() string           { return SchedulingToolName }
func (h *SchedulingHandler) Kind() types.ActionKind { return types.ActionScheduling }

func (h *SchedulingHandler) Schema() provider.ToolSchema {
	return provider.ToolSchema{
		Name:        SchedulingToolName,
		Description: "Look up available meeting slots for a booking link between two dates.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"calUrl":   map[string]any{"type": "string", "description": "Booking link, e.g. https://cal.com/owner/intro-call"},
				"dateFrom": map[string]any{"type": "string", "description": "Start of the search window (ISO 8601)"},
				"dateTo":   map[string]any{"type": "string", "description": "End of the search window (ISO 8601)"},
			},
			"required": []any{"dateFrom", "dateTo"},
		},
	}
}

func (h *SchedulingHandler) Execute(ctx context.Context, args map[string]any, tc Context) (Result, error) {
	calURL, _ := args["calUrl"].(string)
	if strings.TrimSpace(calURL) == "" {
		if desc := types.FirstEnabled(tc.Actions, types.ActionScheduling); desc != nil {
			calURL, _ = desc.Metadata["calUrl"].(string)
		}
	}
	owner, slug, err := parseCalURL(calURL)
	if err != nil {
		h.log.Warn().Str("calUrl", calURL).Err(err).Msg("invalid booking link in slot lookup")
		return Result{Text: "I couldn't read that booking link. Could you share it again?"}, nil
	}
	from, err := parseHour(args["dateFrom"])
	if err != nil {
		return Result{Text: "I couldn't read the start date for the availability search."}, nil
	}
	to, err := parseHour(args["dateTo"])
	if err != nil {
		return Result{Text: "I couldn't read the end date for the availability search."}, nil
	}

	slots, err := h.client.GetAvailableSlots(ctx, owner, slug, from, to)
	if err != nil || len(slots) == 0 {
		if err != nil {
			h.log.Warn().Str("owner", owner).Str("event", slug).Err(err).Msg("slot lookup failed, answering best effort")
		}
		return Result{
			Text:    "I couldn't find any available slots in that window.",
			Payload: map[string]any{"slots": map[string]any{}, "meetingUrl": calURL},
		}, nil
	}
	total := 0
	for _, day := range slots {
		total += len(day)
	}
	return Result{
		Text:    fmt.Sprintf("I found %d available slot(s). Pick a time and I'll share the booking link.", total),
		Payload: map[string]any{"slots": slots, "meetingUrl": calURL},
	}, nil
}

// parseCalURL splits a booking link into its owner handle and event slug,
// the last two path segments.
func parseCalURL(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse booking link: %w", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[len(segments)-2] == "" || segments[len(segments)-1] == "" {
		return "", "", fmt.Errorf("booking link %q has no owner/event path", raw)
	}
	return segments[len(segments)-2], segments[len(segments)-1], nil
}

var hourLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// parseHour parses an ISO-ish timestamp and truncates it to hour granularity.
func parseHour(v any) (time.Time, error) {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	for _, layout := range hourLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Truncate(time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
