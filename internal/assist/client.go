package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Client implements Capability against a garden server's assist endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient targets baseURL + "/api/ai". A nil hc uses http.DefaultClient.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{endpoint: strings.TrimRight(baseURL, "/") + "/api/ai", http: hc}
}

type actionResponse struct {
	Text        string       `json:"text"`
	Tags        []string     `json:"tags"`
	Connections []Connection `json:"connections"`
	Titles      []string     `json:"titles"`
	Error       string       `json:"error"`
}

func (c *Client) call(ctx context.Context, action string, payload any) (actionResponse, error) {
	var out actionResponse
	b, err := json.Marshal(map[string]any{"action": action, "payload": payload})
	if err != nil {
		return out, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return out, fmt.Errorf("%s: assist service error (%s)", action, resp.Status)
		}
		return out, &ParseError{Action: action, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = "assist service error"
		}
		return out, fmt.Errorf("%s: %s (%d)", action, msg, resp.StatusCode)
	}
	return out, nil
}

func (c *Client) GenerateDraft(ctx context.Context, topic string) (string, error) {
	out, err := c.call(ctx, "generateDraft", map[string]string{"topic": topic})
	return out.Text, err
}

func (c *Client) GenerateTags(ctx context.Context, content string) ([]string, error) {
	out, err := c.call(ctx, "generateTags", map[string]string{"content": content})
	return out.Tags, err
}

func (c *Client) Summarize(ctx context.Context, content string) (string, error) {
	out, err := c.call(ctx, "summarize", map[string]string{"content": content})
	return out.Text, err
}

func (c *Client) FindConnections(ctx context.Context, current CurrentPost, others []Candidate) ([]Connection, error) {
	out, err := c.call(ctx, "findConnections", connectionsPayload{CurrentPost: current, OtherPosts: others})
	return out.Connections, err
}

func (c *Client) PolishContent(ctx context.Context, content string) (string, error) {
	out, err := c.call(ctx, "polishContent", map[string]string{"content": content})
	return out.Text, err
}

func (c *Client) SuggestTitles(ctx context.Context, content string) ([]string, error) {
	out, err := c.call(ctx, "suggestTitles", map[string]string{"content": content})
	return out.Titles, err
}
