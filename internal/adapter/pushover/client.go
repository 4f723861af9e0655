// Package pushover delivers push notifications through the Pushover
// messages API.
package pushover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrNotConfigured = errors.New("pushover credentials not configured")
	ErrDelivery      = errors.New("pushover delivery failed")
)

const defaultBaseURL = "https://api.pushover.net/1/messages.json"

// Pushover hard limits.
const (
	maxTitleLen   = 250
	maxMessageLen = 1024
)

type Client struct {
	token   string
	user    string
	baseURL string
	client  *http.Client
}

func NewClient(token, user string) *Client {
	return &Client{
		token:   token,
		user:    user,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Send delivers one notification. Title and message are truncated to the
// API's limits; linkURL is optional and attached as a supplementary URL.
func (c *Client) Send(ctx context.Context, title, message, linkURL string) error {
	if c.token == "" || c.user == "" {
		return ErrNotConfigured
	}

	form := url.Values{}
	form.Set("token", c.token)
	form.Set("user", c.user)
	form.Set("title", truncate(title, maxTitleLen))
	form.Set("message", truncate(message, maxMessageLen))
	form.Set("priority", "0")
	if linkURL != "" {
		form.Set("url", linkURL)
		form.Set("url_title", "Open article")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrDelivery, resp.StatusCode)
	}
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
