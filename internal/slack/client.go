// Package slack is a minimal read-only Slack Web API client covering the
// surface the ingestion pipeline needs: channel listing, history with a
// since-timestamp cursor, thread replies, and user display names.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hivemindhq/hivemind/internal/log"
)

const defaultBaseURL = "https://slack.com/api"

var (
	// ErrNotInChannel indicates the bot is not a member of the channel.
	ErrNotInChannel = errors.New("bot is not in channel")

	// ErrSlackAPI wraps an ok=false response from the Slack Web API.
	ErrSlackAPI = errors.New("slack API error")
)

// Client is a lightweight Slack Web API client.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     log.Logger

	mu        sync.RWMutex
	nameCache map[string]string // user ID -> display name
}

// New creates a Slack client. token is the bot token (xoxb-...).
func New(token string, logger log.Logger) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("slack token is required")
	}
	return &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		nameCache:  make(map[string]string),
	}, nil
}

// WithBaseURL overrides the API root. Used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimSuffix(base, "/")
	return c
}

// ListChannels returns all public channels visible to the bot,
// following pagination cursors until exhausted.
func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	var all []Channel
	cursor := ""

	for {
		params := url.Values{
			"types": {"public_channel"},
			"limit": {"200"},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp conversationsListResponse
		if err := c.call(ctx, "conversations.list", params, &resp); err != nil {
			return nil, fmt.Errorf("listing channels: %w", err)
		}

		all = append(all, resp.Channels...)

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			break
		}
	}

	return all, nil
}

// History fetches channel messages newer than oldest (a Slack ts string;
// empty means from the beginning), following pagination until exhausted.
// If the bot is not a member of the channel it joins once and retries.
func (c *Client) History(ctx context.Context, channelID, oldest string) ([]Message, error) {
	msgs, err := c.history(ctx, channelID, oldest)
	if errors.Is(err, ErrNotInChannel) {
		c.logger.Info("joining channel before reading history", "channel_id", channelID)
		if joinErr := c.JoinChannel(ctx, channelID); joinErr != nil {
			return nil, fmt.Errorf("joining channel %s: %w", channelID, joinErr)
		}
		msgs, err = c.history(ctx, channelID, oldest)
	}
	return msgs, err
}

func (c *Client) history(ctx context.Context, channelID, oldest string) ([]Message, error) {
	var all []Message
	cursor := ""

	for {
		params := url.Values{
			"channel": {channelID},
			"limit":   {"200"},
		}
		if oldest != "" {
			params.Set("oldest", oldest)
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp historyResponse
		if err := c.call(ctx, "conversations.history", params, &resp); err != nil {
			return nil, fmt.Errorf("fetching history for %s: %w", channelID, err)
		}

		all = append(all, resp.Messages...)

		if !resp.HasMore {
			break
		}
		cursor = resp.ResponseMetadata.NextCursor
	}

	return all, nil
}

// Replies fetches all messages of a thread, root included, in order.
func (c *Client) Replies(ctx context.Context, channelID, threadTS string) ([]Message, error) {
	var all []Message
	cursor := ""

	for {
		params := url.Values{
			"channel": {channelID},
			"ts":      {threadTS},
			"limit":   {"200"},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp historyResponse
		if err := c.call(ctx, "conversations.replies", params, &resp); err != nil {
			return nil, fmt.Errorf("fetching replies for %s/%s: %w", channelID, threadTS, err)
		}

		all = append(all, resp.Messages...)

		if !resp.HasMore {
			break
		}
		cursor = resp.ResponseMetadata.NextCursor
	}

	return all, nil
}

// JoinChannel adds the bot to a public channel.
func (c *Client) JoinChannel(ctx context.Context, channelID string) error {
	var resp apiEnvelope
	if err := c.call(ctx, "conversations.join", url.Values{"channel": {channelID}}, &resp); err != nil {
		return fmt.Errorf("joining channel: %w", err)
	}
	return nil
}

// UserDisplayName resolves a user ID to a human-readable name, caching
// results for the lifetime of the client. Unresolvable IDs fall back to
// the raw ID so ingestion never stalls on a deleted account.
func (c *Client) UserDisplayName(ctx context.Context, userID string) string {
	c.mu.RLock()
	if name, ok := c.nameCache[userID]; ok {
		c.mu.RUnlock()
		return name
	}
	c.mu.RUnlock()

	var resp userInfoResponse
	if err := c.call(ctx, "users.info", url.Values{"user": {userID}}, &resp); err != nil {
		c.logger.Warn("resolving user display name", "user_id", userID, "error", err)
		return userID
	}

	name := resp.User.Profile.DisplayName
	if name == "" {
		name = resp.User.Profile.RealName
	}
	if name == "" {
		name = resp.User.Name
	}
	if name == "" {
		name = userID
	}

	c.mu.Lock()
	c.nameCache[userID] = name
	c.mu.Unlock()

	return name
}

// call performs one Web API request. Slack signals failures inside the
// JSON envelope (ok=false) rather than via HTTP status codes.
func (c *Client) call(ctx context.Context, method string, params url.Values, result any) error {
	endpoint := c.baseURL + "/" + method

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", ErrSlackAPI, method, resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("unmarshaling envelope: %w", err)
	}
	if !envelope.OK {
		if envelope.Error == "not_in_channel" {
			return fmt.Errorf("%w: %s", ErrNotInChannel, method)
		}
		return fmt.Errorf("%w: %s returned %q", ErrSlackAPI, method, envelope.Error)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshaling response: %w", err)
		}
	}

	return nil
}
