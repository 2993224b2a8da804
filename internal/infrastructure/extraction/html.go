package extraction

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/ports"
)

// HTMLExtractor is the local fallback: it fetches the page itself and pulls
// paragraph text out of the document. Much cruder than the article API, but
// better than losing the item entirely.
type HTMLExtractor struct {
	client *http.Client
}

var _ ports.Extractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor wires an HTTP client; a nil client gets a sane default.
func NewHTMLExtractor(client *http.Client) *HTMLExtractor {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLExtractor{client: client}
}

// Extract downloads the page and joins its paragraph text.
func (e *HTMLExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsDigest/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	doc.Find("script, style, nav, footer").Remove()

	scope := doc.Find("article")
	if scope.Length() == 0 {
		scope = doc.Selection
	}

	var paragraphs []string
	scope.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	return strings.Join(paragraphs, "\n\n"), nil
}
