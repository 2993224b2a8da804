package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"NewsDigest/internal/config"
	"NewsDigest/internal/ports"
)

// DiffBotClient extracts article text through the DiffBot-style article API.
// Calls are rate limited client-side; 429 responses retry with exponential
// backoff, any other upstream failure is permanent for the item.
type DiffBotClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
}

var _ ports.Extractor = (*DiffBotClient)(nil)

// NewDiffBotClient builds a client from configuration.
func NewDiffBotClient(cfg config.ExtractionConfig) *DiffBotClient {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	return &DiffBotClient{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
		maxRetries: 3,
	}
}

// Extract fetches the main article text for a URL. Returns an empty string
// without error when the service finds no article object.
func (c *DiffBotClient) Extract(ctx context.Context, pageURL string) (string, error) {
	if c.endpoint == "" || c.apiKey == "" {
		return "", fmt.Errorf("extraction client misconfigured")
	}
	if strings.HasPrefix(pageURL, "mailto:") {
		return "", nil
	}

	var text string
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		extracted, err := c.fetch(ctx, pageURL)
		if err != nil {
			return err
		}
		text = extracted
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("extract %s: %w", pageURL, err)
	}
	return text, nil
}

func (c *DiffBotClient) fetch(ctx context.Context, pageURL string) (string, error) {
	endpoint := fmt.Sprintf("%s?token=%s&url=%s", c.endpoint, url.QueryEscape(c.apiKey), url.QueryEscape(pageURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("new request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("rate limited: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return "", backoff.Permanent(fmt.Errorf("extraction service returned %s", resp.Status))
	}

	var payload struct {
		Objects []struct {
			Text string `json:"text"`
		} `json:"objects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}

	if len(payload.Objects) == 0 {
		return "", nil
	}
	return payload.Objects[0].Text, nil
}

// WithFallback chains a secondary extractor behind a primary one: the
// secondary runs when the primary errors or yields no text.
func WithFallback(primary, secondary ports.Extractor) ports.Extractor {
	return &fallbackExtractor{primary: primary, secondary: secondary}
}

type fallbackExtractor struct {
	primary   ports.Extractor
	secondary ports.Extractor
}

func (f *fallbackExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	text, err := f.primary.Extract(ctx, pageURL)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if f.secondary == nil {
		return text, err
	}
	return f.secondary.Extract(ctx, pageURL)
}
