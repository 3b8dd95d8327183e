package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mkraev/binance-assistant/pkg/logger"
)

// Headline is one fetched news or social item, not yet scored.
type Headline struct {
	Source    string
	Title     string
	Summary   string
	URL       string
	Published time.Time
}

// Source fetches recent headlines from one feed.
type Source interface {
	GetName() string
	IsEnabled() bool
	FetchHeadlines(ctx context.Context, keywords []string, limit int) ([]Headline, error)
}

const coindeskAPIURL = "https://www.coindesk.com/arc/outboundfeeds/news/?outputType=json&size=%d"

// CoinDeskSource fetches news headlines from CoinDesk
type CoinDeskSource struct {
	enabled bool
	client  *http.Client
}

// NewCoinDeskSource creates new CoinDesk source
func NewCoinDeskSource(enabled bool) *CoinDeskSource {
	return &CoinDeskSource{
		enabled: enabled,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *CoinDeskSource) GetName() string {
	return "coindesk"
}

func (c *CoinDeskSource) IsEnabled() bool {
	return c.enabled
}

func (c *CoinDeskSource) FetchHeadlines(ctx context.Context, keywords []string, limit int) ([]Headline, error) {
	if !c.enabled {
		return nil, nil
	}

	url := fmt.Sprintf(coindeskAPIURL, limit)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	var result []struct {
		Type      string `json:"type"`
		Canonical string `json:"canonical_url"`
		Headlines struct {
			Basic string `json:"basic"`
		} `json:"headlines"`
		Description struct {
			Basic string `json:"basic"`
		} `json:"description"`
		DisplayDate time.Time `json:"display_date"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	headlines := make([]Headline, 0, len(result))
	for _, article := range result {
		if article.Type != "story" {
			continue
		}
		if !isRelevant(article.Headlines.Basic+" "+article.Description.Basic, keywords) {
			continue
		}
		headlines = append(headlines, Headline{
			Source:    "coindesk",
			Title:     article.Headlines.Basic,
			Summary:   article.Description.Basic,
			URL:       article.Canonical,
			Published: article.DisplayDate,
		})
	}

	logger.Debug("fetched CoinDesk headlines", zap.Int("count", len(headlines)))
	return headlines, nil
}

const redditAPIURL = "https://www.reddit.com/r/%s/hot.json?limit=%d"

// RedditSource fetches hot posts from crypto subreddits
type RedditSource struct {
	enabled    bool
	subreddits []string
	client     *http.Client
}

// NewRedditSource creates new Reddit source
func NewRedditSource(enabled bool, subreddits []string) *RedditSource {
	if len(subreddits) == 0 {
		subreddits = []string{"CryptoCurrency", "Bitcoin", "ethereum"}
	}
	return &RedditSource{
		enabled:    enabled,
		subreddits: subreddits,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *RedditSource) GetName() string {
	return "reddit"
}

func (r *RedditSource) IsEnabled() bool {
	return r.enabled
}

func (r *RedditSource) FetchHeadlines(ctx context.Context, keywords []string, limit int) ([]Headline, error) {
	if !r.enabled {
		return nil, nil
	}

	perSub := limit / len(r.subreddits)
	if perSub < 1 {
		perSub = 1
	}

	all := make([]Headline, 0)
	for _, subreddit := range r.subreddits {
		posts, err := r.fetchSubreddit(ctx, subreddit, perSub)
		if err != nil {
			logger.Warn("failed to fetch reddit posts",
				zap.String("subreddit", subreddit),
				zap.Error(err),
			)
			continue
		}
		for _, post := range posts {
			if isRelevant(post.Title+" "+post.Summary, keywords) {
				all = append(all, post)
			}
		}
	}

	logger.Debug("fetched Reddit headlines",
		zap.Int("count", len(all)),
		zap.Strings("subreddits", r.subreddits),
	)
	return all, nil
}

func (r *RedditSource) fetchSubreddit(ctx context.Context, subreddit string, limit int) ([]Headline, error) {
	url := fmt.Sprintf(redditAPIURL, subreddit, limit)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Reddit rejects requests without a UA
	req.Header.Set("User-Agent", "binance-assistant/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Children []struct {
				Data struct {
					Title      string  `json:"title"`
					Selftext   string  `json:"selftext"`
					Permalink  string  `json:"permalink"`
					CreatedUTC float64 `json:"created_utc"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	posts := make([]Headline, 0, len(result.Data.Children))
	for _, child := range result.Data.Children {
		posts = append(posts, Headline{
			Source:    "r/" + subreddit,
			Title:     child.Data.Title,
			Summary:   child.Data.Selftext,
			URL:       "https://reddit.com" + child.Data.Permalink,
			Published: time.Unix(int64(child.Data.CreatedUTC), 0).UTC(),
		})
	}
	return posts, nil
}

func isRelevant(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
