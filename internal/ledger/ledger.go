package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// Client appends rows to a spreadsheet-style ledger over its values API.
// Callers treat it as fire-and-forget; errors only ever reach a logging
// sink.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 20 * time.Second
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// AppendRow appends one row to the named sheet.
func (c *Client) AppendRow(ctx context.Context, sheetID, sheetName string, row []string) error {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.baseURL, url.PathEscape(sheetID), url.PathEscape(sheetName))

	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}
	body, err := json.Marshal(map[string]any{"values": []any{cells}})
	if err != nil {
		return fmt.Errorf("ledger row encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger append: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ledger status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
