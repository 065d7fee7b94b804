package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/firebase/genkit/go/ai"
	readability "github.com/go-shiori/go-readability"

	"github.com/hivemindhq/hivemind/internal/chat"
	"github.com/hivemindhq/hivemind/internal/log"
)

// SearchWebName is the Genkit tool name for external web search.
const SearchWebName = "search_web"

// MaxWebResults bounds the results fed back to the model.
const MaxWebResults = 5

// maxEnrichFetches bounds how many result pages get fetched when the
// search engine returned no excerpt for them.
const maxEnrichFetches = 2

// WebSearchInput is the model-facing input schema.
type WebSearchInput struct {
	Query string `json:"query" jsonschema_description:"The web search query"`
}

// WebResult is one search engine hit.
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// WebSearcher is the search surface the tool needs; the production
// implementation is *SearXNGClient.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]WebResult, error)
}

// WebSearch holds the web search tool's dependencies.
type WebSearch struct {
	searcher WebSearcher
	logger   log.Logger
}

// NewWebSearch creates the web search tool handler.
func NewWebSearch(searcher WebSearcher, logger log.Logger) (*WebSearch, error) {
	if searcher == nil {
		return nil, fmt.Errorf("web searcher is required")
	}
	return &WebSearch{searcher: searcher, logger: logger}, nil
}

// Search runs an external web search. On failure the model receives an
// apologetic sentence, not an error, so the conversation continues.
func (w *WebSearch) Search(ctx *ai.ToolContext, input WebSearchInput) (string, error) {
	results, err := w.searcher.Search(ctx.Context, input.Query)
	if err != nil {
		w.logger.Warn("web search failed", "query", input.Query, "error", err)
		return "Sorry, web search is unavailable right now. Answer from what you already know and say so.", nil
	}
	if len(results) == 0 {
		return "The web search returned no results for this query.", nil
	}
	if len(results) > MaxWebResults {
		results = results[:MaxWebResults]
	}

	if collector := CollectorFromContext(ctx.Context); collector != nil {
		for _, r := range results {
			collector.Add(chat.Source{
				Kind:    chat.SourceKindWeb,
				Title:   r.Title,
				URL:     r.URL,
				Excerpt: excerpt(r.Content),
			})
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d web results:\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "\n[%d] %s\nURL: %s\nContent: %s\n", i+1, r.Title, r.URL, r.Content)
	}
	return b.String(), nil
}

// SearXNGClient queries a SearXNG instance's JSON API.
type SearXNGClient struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// NewSearXNGClient creates a web search client against the given
// SearXNG instance.
func NewSearXNGClient(baseURL string, logger log.Logger) (*SearXNGClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("SearXNG base URL is required")
	}
	return &SearXNGClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}, nil
}

// Search queries SearXNG and enriches hits that came back without an
// excerpt by fetching the page and extracting its readable content.
func (c *SearXNGClient) Search(ctx context.Context, query string) ([]WebResult, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search engine returned status %d", resp.StatusCode)
	}

	var payload struct {
		Results []WebResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := payload.Results
	if len(results) > MaxWebResults {
		results = results[:MaxWebResults]
	}
	c.enrich(ctx, results)

	return results, nil
}

// enrich fills empty excerpts by fetching the page and running it
// through readability extraction; a failed fetch leaves the result as
// the engine returned it.
func (c *SearXNGClient) enrich(ctx context.Context, results []WebResult) {
	fetched := 0
	for i := range results {
		if results[i].Content != "" || fetched >= maxEnrichFetches {
			continue
		}
		fetched++

		content, err := c.extract(ctx, results[i].URL)
		if err != nil {
			c.logger.Debug("result enrichment failed", "url", results[i].URL, "error", err)
			continue
		}
		results[i].Content = content
	}
}

func (c *SearXNGClient) extract(ctx context.Context, pageURL string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return excerpt(strings.TrimSpace(article.TextContent)), nil
	}

	// Readability gave up; fall back to the first paragraphs.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	var paragraphs []string
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
		return len(paragraphs) < 3
	})
	if len(paragraphs) == 0 {
		return "", fmt.Errorf("no extractable content")
	}
	return excerpt(strings.Join(paragraphs, " ")), nil
}
