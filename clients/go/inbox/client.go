// Package inbox provides a client for the webhook inbox HTTP API.
package inbox

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a webhook inbox API client.
type Client struct {
	BaseURL    string
	Secret     string
	HTTPClient *http.Client
}

// NewClient creates a new client. The secret is only needed for SendMessage.
func NewClient(baseURL, secret string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Message mirrors the server's message payload.
type Message struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	TS        string `json:"ts"`
	Text      string `json:"text"`
}

// ListOptions holds the optional filters and pagination for ListMessages.
// Zero values are omitted from the request.
type ListOptions struct {
	Limit  int
	Offset int
	From   string
	Since  string
	Query  string
}

// MessageList is the response from ListMessages.
type MessageList struct {
	Data   []Message `json:"data"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// SenderCount is one entry of per-sender message counts.
type SenderCount struct {
	From  string `json:"from"`
	Count int64  `json:"count"`
}

// Stats is the response from Stats.
type Stats struct {
	TotalMessages     int64         `json:"total_messages"`
	SendersCount      int64         `json:"senders_count"`
	MessagesPerSender []SenderCount `json:"messages_per_sender"`
	FirstMessageTS    *string       `json:"first_message_ts"`
	LastMessageTS     *string       `json:"last_message_ts"`
}

// Sign returns the hex HMAC-SHA256 signature for a request body.
func (c *Client) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.Secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SendMessage posts a signed message to the webhook endpoint. The same call
// is safe to retry: a duplicate message_id is accepted as success.
func (c *Client) SendMessage(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/webhook", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", c.Sign(body))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

// ListMessages retrieves one page of stored messages.
func (c *Client) ListMessages(ctx context.Context, opts ListOptions) (*MessageList, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.From != "" {
		q.Set("from", opts.From)
	}
	if opts.Since != "" {
		q.Set("since", opts.Since)
	}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}

	endpoint := c.BaseURL + "/messages"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var list MessageList
	if err := c.getJSON(ctx, endpoint, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Stats retrieves aggregate message statistics.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.getJSON(ctx, c.BaseURL+"/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("inbox: %s: %s", resp.Status, bytes.TrimSpace(body))
}
