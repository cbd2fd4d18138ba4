package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesa-chat-backend/internal/scheduling"
	"mesa-chat-backend/internal/types"
)

type fakeSlotClient struct {
	slots map[string][]scheduling.Slot
	err   error

	owner, slug string
	from, to    time.Time
}

func (f *fakeSlotClient) GetAvailableSlots(_ context.Context, owner, slug string, from, to time.Time) (map[string][]scheduling.Slot, error) {
	f.owner, f.slug, f.from, f.to = owner, slug, from, to
	return f.slots, f.err
}

func schedulingActions(meta map[string]any) []types.ActionDescriptor {
	return []types.ActionDescriptor{{Type: types.ActionScheduling, Enabled: true, Metadata: meta}}
}

func TestSchedulingHandlerReturnsSlots(t *testing.T) {
	client := &fakeSlotClient{slots: map[string][]scheduling.Slot{
		"2026-09-01": {{Time: "2026-09-01T10:00:00Z"}, {Time: "2026-09-01T11:00:00Z"}},
	}}
	h := NewSchedulingHandler(client, zerolog.Nop())

	res, err := h.Execute(context.Background(), map[string]any{
		"calUrl":   "https://cal.com/jane/intro-call",
		"dateFrom": "2026-09-01T09:30:00Z",
		"dateTo":   "2026-09-02",
	}, Context{Actions: schedulingActions(nil)})
	require.NoError(t, err)

	assert.Equal(t, "jane", client.owner)
	assert.Equal(t, "intro-call", client.slug)
	// Timestamps are truncated to the hour before the lookup.
	assert.Equal(t, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), client.from)
	assert.Contains(t, res.Text, "2 available slot")
	assert.Equal(t, "https://cal.com/jane/intro-call", res.Payload["meetingUrl"])
}

func TestSchedulingHandlerCalURLFromMetadata(t *testing.T) {
	client := &fakeSlotClient{slots: map[string][]scheduling.Slot{"d": {{Time: "t"}}}}
	h := NewSchedulingHandler(client, zerolog.Nop())

	_, err := h.Execute(context.Background(), map[string]any{
		"dateFrom": "2026-09-01",
		"dateTo":   "2026-09-02",
	}, Context{Actions: schedulingActions(map[string]any{"calUrl": "https://cal.com/acme/demo"})})
	require.NoError(t, err)
	assert.Equal(t, "acme", client.owner)
	assert.Equal(t, "demo", client.slug)
}

func TestSchedulingHandlerLookupFailureDegrades(t *testing.T) {
	client := &fakeSlotClient{err: errors.New("upstream 500")}
	h := NewSchedulingHandler(client, zerolog.Nop())

	res, err := h.Execute(context.Background(), map[string]any{
		"calUrl":   "https://cal.com/jane/intro-call",
		"dateFrom": "2026-09-01",
		"dateTo":   "2026-09-02",
	}, Context{Actions: schedulingActions(nil)})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "couldn't find any available slots")
	assert.Equal(t, map[string]any{}, res.Payload["slots"])
}

func TestSchedulingHandlerBadDates(t *testing.T) {
	h := NewSchedulingHandler(&fakeSlotClient{}, zerolog.Nop())
	res, err := h.Execute(context.Background(), map[string]any{
		"calUrl":   "https://cal.com/jane/intro-call",
		"dateFrom": "whenever",
		"dateTo":   "2026-09-02",
	}, Context{Actions: schedulingActions(nil)})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "start date")
}

func TestParseCalURL(t *testing.T) {
	owner, slug, err := parseCalURL("https://cal.com/jane/intro-call")
	require.NoError(t, err)
	assert.Equal(t, "jane", owner)
	assert.Equal(t, "intro-call", slug)

	owner, slug, err = parseCalURL("https://cal.example/teams/acme/demo/")
	require.NoError(t, err)
	assert.Equal(t, "demo", slug)
	assert.Equal(t, "acme", owner)

	_, _, err = parseCalURL("https://cal.com/justowner")
	assert.Error(t, err)
	_, _, err = parseCalURL("")
	assert.Error(t, err)
}

func TestParseHour(t *testing.T) {
	got, err := parseHour("2026-09-01T10:45:12Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), got)

	got, err = parseHour("2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = parseHour(42)
	assert.Error(t, err)
}
