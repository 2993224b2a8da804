package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/source"
)

const (
	defaultHackerNewsAPI = "https://hacker-news.firebaseio.com/v0"
	defaultStoryLimit    = 30
)

// HackerNewsFetcher pulls top stories from the Firebase-backed HN API.
type HackerNewsFetcher struct {
	client *http.Client
}

// NewHackerNewsFetcher wires an HTTP client; a nil client gets a default.
func NewHackerNewsFetcher(client *http.Client) *HackerNewsFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HackerNewsFetcher{client: client}
}

// Name identifies the strategy inside the registry.
func (h *HackerNewsFetcher) Name() string {
	return "hackernews"
}

type hackerNewsItem struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
	Time  int64  `json:"time"`
	Dead  bool   `json:"dead"`
}

// Fetch lists the current top stories and resolves each to a content item.
// Stories without an external URL (Ask HN posts) carry their text as body.
func (h *HackerNewsFetcher) Fetch(ctx context.Context, req source.Request) ([]domain.ContentItem, error) {
	apiURL := req.Options["apiUrl"]
	if apiURL == "" {
		apiURL = defaultHackerNewsAPI
	}
	limit := req.MaxItems
	if limit <= 0 {
		limit = defaultStoryLimit
	}

	var ids []int64
	if err := h.getJSON(ctx, apiURL+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("list top stories: %w", err)
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	items := make([]domain.ContentItem, 0, len(ids))
	for _, id := range ids {
		var story hackerNewsItem
		err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", apiURL, id), &story)
		if err != nil {
			return nil, fmt.Errorf("story %d: %w", id, err)
		}
		if story.Type != "story" || story.Dead || story.Title == "" {
			continue
		}

		items = append(items, domain.ContentItem{
			ExternalID:  strconv.FormatInt(story.ID, 10),
			Source:      req.SourceName,
			Title:       story.Title,
			URL:         story.URL,
			Body:        story.Text,
			PublishedAt: time.Unix(story.Time, 0).UTC(),
		})
	}

	return items, nil
}

func (h *HackerNewsFetcher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsDigest/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hackernews returned %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
