// Package discussion fetches raw social-discussion posts for a set of
// community and query pairs. Returned posts carry no relevance guarantee;
// relevance is established downstream by content analysis.
package discussion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"ideagauge/internal/types"
)

// Source is the interface the pipeline consumes.
type Source interface {
	Search(ctx context.Context, communities, queries []string) ([]types.RawPost, error)
}

// RedditClient implements Source against Reddit's public JSON listings.
type RedditClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	// requestDelay spaces sequential probes for rate-limit courtesy. The
	// added latency is deliberate.
	requestDelay time.Duration
	perQueryMax  int
	logger       *zap.Logger
}

// RedditConfig holds configuration for the Reddit client.
type RedditConfig struct {
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration
	RequestDelay time.Duration
	PerQueryMax  int
	Logger       *zap.Logger
}

// DefaultRedditConfig returns sensible defaults.
func DefaultRedditConfig() RedditConfig {
	return RedditConfig{
		BaseURL:      "https://www.reddit.com",
		UserAgent:    "ideagauge/1.0 (market research)",
		Timeout:      15 * time.Second,
		RequestDelay: 1100 * time.Millisecond,
		PerQueryMax:  25,
	}
}

// NewRedditClient creates a Reddit discussion source.
func NewRedditClient(config RedditConfig) *RedditClient {
	defaults := DefaultRedditConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RequestDelay < 0 {
		config.RequestDelay = defaults.RequestDelay
	}
	if config.PerQueryMax <= 0 {
		config.PerQueryMax = defaults.PerQueryMax
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedditClient{
		baseURL:      strings.TrimSuffix(config.BaseURL, "/"),
		userAgent:    config.UserAgent,
		httpClient:   &http.Client{Timeout: config.Timeout},
		requestDelay: config.RequestDelay,
		perQueryMax:  config.PerQueryMax,
		logger:       logger,
	}
}

// redditListing mirrors the subset of the listing payload we read.
type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title        string  `json:"title"`
				Selftext     string  `json:"selftext"`
				SelftextHTML string  `json:"selftext_html"`
				Author       string  `json:"author"`
				Ups          int     `json:"ups"`
				Subreddit    string  `json:"subreddit"`
				Permalink    string  `json:"permalink"`
				CreatedUTC   float64 `json:"created_utc"`
				NumComments  int     `json:"num_comments"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Search probes every (community x query) pair sequentially with a fixed
// inter-request delay and returns the deduplicated union. Individual probe
// failures are logged and skipped; an error is returned only when every
// probe failed.
func (c *RedditClient) Search(ctx context.Context, communities, queries []string) ([]types.RawPost, error) {
	var posts []types.RawPost
	seen := make(map[string]bool)
	probes := 0
	failures := 0
	var lastErr error

	for _, community := range communities {
		for _, query := range queries {
			if probes > 0 && c.requestDelay > 0 {
				select {
				case <-time.After(c.requestDelay):
				case <-ctx.Done():
					return posts, ctx.Err()
				}
			}
			probes++

			found, err := c.searchOne(ctx, community, query)
			if err != nil {
				failures++
				lastErr = err
				c.logger.Warn("Discussion probe failed",
					zap.String("community", community),
					zap.String("query", query),
					zap.Error(err))
				continue
			}
			for _, p := range found {
				if p.Permalink != "" && seen[p.Permalink] {
					continue
				}
				seen[p.Permalink] = true
				posts = append(posts, p)
			}
		}
	}

	if probes > 0 && failures == probes {
		return nil, fmt.Errorf("all %d discussion probes failed: %w", probes, lastErr)
	}
	c.logger.Info("Discussion search complete",
		zap.Int("probes", probes),
		zap.Int("failures", failures),
		zap.Int("posts", len(posts)))
	return posts, nil
}

func (c *RedditClient) searchOne(ctx context.Context, community, query string) ([]types.RawPost, error) {
	sub := strings.TrimPrefix(strings.TrimSpace(community), "r/")
	if sub == "" {
		return nil, fmt.Errorf("empty community name")
	}

	endpoint := fmt.Sprintf("%s/r/%s/search.json?%s", c.baseURL, url.PathEscape(sub),
		url.Values{
			"q":           {query},
			"restrict_sr": {"1"},
			"sort":        {"relevance"},
			"limit":       {fmt.Sprintf("%d", c.perQueryMax)},
		}.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	posts := make([]types.RawPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		bodyText := d.Selftext
		if bodyText == "" && d.SelftextHTML != "" {
			bodyText = stripHTML(d.SelftextHTML)
		}
		posts = append(posts, types.RawPost{
			Title:        d.Title,
			Body:         bodyText,
			Author:       d.Author,
			Upvotes:      d.Ups,
			Community:    "r/" + d.Subreddit,
			Permalink:    d.Permalink,
			TimestampUTC: time.Unix(int64(d.CreatedUTC), 0).UTC(),
			CommentCount: d.NumComments,
		})
	}
	return posts, nil
}

// stripHTML reduces an HTML fragment to its text content.
func stripHTML(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.WriteString(tokenizer.Token().Data)
		}
	}
	return strings.TrimSpace(b.String())
}
