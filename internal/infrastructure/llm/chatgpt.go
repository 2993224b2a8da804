package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// ChatGPTClient implements ports.TagModel backed by OpenAI-compatible APIs.
// The model is prompted for a fenced-YAML document with summary, tags and
// entities; malformed responses are retried a bounded number of times with a
// format-correction prompt before the item fails.
type ChatGPTClient struct {
	endpoint      string
	model         string
	apiKey        string
	requiredTags  []string
	formatRetries int
	httpClient    *http.Client
	logger        *slog.Logger
}

var _ ports.TagModel = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration; logger may be nil.
func NewChatGPTClient(cfg config.ChatGPTConfig, logger *slog.Logger) *ChatGPTClient {
	if logger == nil {
		logger = slog.Default()
	}
	retries := cfg.FormatRetries
	if retries <= 0 {
		retries = 2
	}
	return &ChatGPTClient{
		endpoint:      cfg.Endpoint,
		model:         cfg.Model,
		apiKey:        cfg.APIKey,
		requiredTags:  cfg.RequiredTags,
		formatRetries: retries,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// Analyze runs the analysis prompt over one item's content and returns the
// parsed summary, raw tags and entities.
func (c *ChatGPTClient) Analyze(ctx context.Context, title, content string) (domain.Analysis, error) {
	if c == nil {
		return domain.Analysis{}, fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Analysis{}, fmt.Errorf("chatgpt client misconfigured")
	}
	if strings.TrimSpace(title) == "" && strings.TrimSpace(content) == "" {
		return domain.Analysis{}, fmt.Errorf("empty content provided")
	}

	prompt := buildAnalysisPrompt(title, content)
	userPrompt := prompt

	var lastErr error
	for attempt := 0; attempt <= c.formatRetries; attempt++ {
		raw, err := c.complete(ctx, userPrompt)
		if err != nil {
			return domain.Analysis{}, err
		}

		analysis, err := parseAnalysis(raw, c.logger)
		if err == nil {
			return c.withRequiredTags(analysis), nil
		}

		lastErr = err
		c.logger.Info("retrying with format correction", "attempt", attempt+1, "error", err)
		userPrompt = fmt.Sprintf(
			"Your previous response was not valid YAML in the requested structure. Error: %v\n"+
				"Please fix the format issues and provide a valid response.\n"+
				"Original prompt: %s", err, prompt)
	}

	return domain.Analysis{}, fmt.Errorf("model response invalid after %d retries: %w", c.formatRetries, lastErr)
}

func (c *ChatGPTClient) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send prompt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// withRequiredTags appends the configured always-present tags with zero
// score when the model did not mention them, so digest filters can rely on
// their existence.
func (c *ChatGPTClient) withRequiredTags(analysis domain.Analysis) domain.Analysis {
	present := make(map[string]bool, len(analysis.Tags))
	for _, tag := range analysis.Tags {
		present[strings.ToLower(strings.TrimSpace(tag.Name))] = true
	}
	for _, required := range c.requiredTags {
		if !present[strings.ToLower(required)] {
			analysis.Tags = append(analysis.Tags, domain.RawTag{Name: required, Score: 0})
		}
	}
	return analysis
}
