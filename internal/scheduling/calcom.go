package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Slot is one bookable time offered by the scheduling vendor.
type Slot struct {
	Time string `json:"time"`
}

// Client is the scheduling collaborator contract: available slots between two
// hours, grouped by date. Opaque beyond that.
type Client interface {
	GetAvailableSlots(ctx context.Context, ownerHandle, eventSlug string, from, to time.Time) (map[string][]Slot, error)
}

// CalClient queries a cal.com-compatible slots API.
type CalClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewCalClient(baseURL, apiKey string) *CalClient {
	return &CalClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *CalClient) GetAvailableSlots(ctx context.Context, ownerHandle, eventSlug string, from, to time.Time) (map[string][]Slot, error) {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("usernameList[]", ownerHandle)
	q.Set("eventTypeSlug", eventSlug)
	q.Set("startTime", from.UTC().Format(time.RFC3339))
	q.Set("endTime", to.UTC().Format(time.RFC3339))

	endpoint := c.baseURL + "/slots?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("slots request build: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slots request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("slots status %d: %s", resp.StatusCode, string(b))
	}
	var payload struct {
		Slots map[string][]Slot `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("slots decode: %w", err)
	}
	if payload.Slots == nil {
		payload.Slots = map[string][]Slot{}
	}
	return payload.Slots, nil
}
