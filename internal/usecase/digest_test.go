package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/storage"
)

type capturingNotifier struct {
	messages []string
}

func (n *capturingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.messages = append(n.messages, digest)
	return nil
}

func TestDigestRunGroupsRelevantItems(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	seed := []domain.ProcessedItem{
		{
			Item:          domain.ContentItem{Title: "strong ai story", URL: "https://example.com/a"},
			NormalizedURL: "https://example.com/a",
			Summary:       "summary a",
			Tags:          []domain.TagScore{{Name: "artificial intelligence", Score: 0.9}},
			Status:        domain.StatusTagged,
		},
		{
			Item:          domain.ContentItem{Title: "weak ai story", URL: "https://example.com/b"},
			NormalizedURL: "https://example.com/b",
			Tags:          []domain.TagScore{{Name: "artificial intelligence", Score: 0.2}},
			Status:        domain.StatusTagged,
		},
		{
			Item:          domain.ContentItem{Title: "gardening story", URL: "https://example.com/c"},
			NormalizedURL: "https://example.com/c",
			Tags:          []domain.TagScore{{Name: "gardening", Score: 0.9}},
			Status:        domain.StatusTagged,
		},
	}
	for _, item := range seed {
		if _, err := mem.SaveProcessed(context.Background(), item); err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}

	notifier := &capturingNotifier{}
	d := NewDigest(DigestDeps{
		Repository:   mem,
		Notifier:     notifier,
		RelevantTags: []string{"Artificial Intelligence"},
		MinScore:     0.5,
	})

	if err := d.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(notifier.messages) != 1 {
		t.Fatalf("expected one digest, got %d", len(notifier.messages))
	}
	msg := notifier.messages[0]
	if !strings.Contains(msg, "*artificial intelligence*") {
		t.Fatalf("missing section header: %q", msg)
	}
	if !strings.Contains(msg, "strong ai story") {
		t.Fatalf("missing qualifying item: %q", msg)
	}
	if strings.Contains(msg, "weak ai story") || strings.Contains(msg, "gardening story") {
		t.Fatalf("digest leaked filtered items: %q", msg)
	}
}

func TestDigestRunPublishesNothingWhenEmpty(t *testing.T) {
	t.Parallel()

	notifier := &capturingNotifier{}
	d := NewDigest(DigestDeps{
		Repository:   storage.NewMemory(),
		Notifier:     notifier,
		RelevantTags: []string{"artificial intelligence"},
		MinScore:     0.5,
	})

	if err := d.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("expected no digest, got %d", len(notifier.messages))
	}
}

func TestDigestRunRespectsWindow(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	if _, err := mem.SaveProcessed(context.Background(), domain.ProcessedItem{
		Item:          domain.ContentItem{Title: "fresh"},
		NormalizedURL: "https://example.com/a",
		Tags:          []domain.TagScore{{Name: "artificial intelligence", Score: 0.9}},
		Status:        domain.StatusTagged,
	}); err != nil {
		t.Fatalf("seed item: %v", err)
	}

	notifier := &capturingNotifier{}
	d := NewDigest(DigestDeps{
		Repository:   mem,
		Notifier:     notifier,
		RelevantTags: []string{"artificial intelligence"},
		MinScore:     0.5,
		Window:       time.Minute,
	})

	// The item was just created, a window ending an hour from now excludes it.
	if err := d.Run(context.Background(), time.Now().Add(2*time.Hour)); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(notifier.messages) != 0 {
		t.Fatalf("expected stale item excluded, got %d messages", len(notifier.messages))
	}
}
