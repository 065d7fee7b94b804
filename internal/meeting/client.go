// Package meeting is a read-only client for the meeting-recording
// platform API: list meetings, fetch one meeting's metadata, and fetch
// its transcript as ordered speaker turns.
package meeting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://pasta.tldv.io/v1alpha1"

// Client is a lightweight meeting platform API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a meeting platform client.
func New(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("meeting API key is required")
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// WithBaseURL overrides the API root. Used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimSuffix(base, "/")
	return c
}

// ListMeetings returns all meetings recorded after since, following
// pagination until exhausted. Results arrive newest-first from the
// platform; callers that need chronological order must sort.
func (c *Client) ListMeetings(ctx context.Context, since time.Time) ([]Meeting, error) {
	var all []Meeting
	page := 1

	for {
		params := url.Values{
			"page":  {strconv.Itoa(page)},
			"limit": {"50"},
		}
		if !since.IsZero() {
			params.Set("from", since.UTC().Format(time.RFC3339))
		}

		var resp meetingsPage
		if err := c.get(ctx, "/meetings?"+params.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("listing meetings page %d: %w", page, err)
		}

		all = append(all, resp.Results...)

		if resp.Pages == 0 || page >= resp.Pages {
			break
		}
		page++
	}

	return all, nil
}

// GetMeeting fetches one meeting's metadata.
func (c *Client) GetMeeting(ctx context.Context, meetingID string) (*Meeting, error) {
	var m Meeting
	if err := c.get(ctx, "/meetings/"+url.PathEscape(meetingID), &m); err != nil {
		return nil, fmt.Errorf("fetching meeting %s: %w", meetingID, err)
	}
	return &m, nil
}

// GetTranscript fetches a meeting's transcript as ordered speaker turns.
// A meeting without a transcript yields an empty slice, not an error.
func (c *Client) GetTranscript(ctx context.Context, meetingID string) ([]TranscriptTurn, error) {
	var resp transcriptResponse
	if err := c.get(ctx, "/meetings/"+url.PathEscape(meetingID)+"/transcript", &resp); err != nil {
		return nil, fmt.Errorf("fetching transcript for %s: %w", meetingID, err)
	}
	return resp.Data, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

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
		return fmt.Errorf("meeting API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshaling response: %w", err)
		}
	}

	return nil
}
