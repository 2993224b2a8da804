package taxonomy

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"NewsDigest/internal/domain"
)

func testSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Version: "v1",
		Mapping: map[string][]string{
			"artificial intelligence": {"artificial intelligence"},
			"ai":                      {"artificial intelligence"},
			"ai in agriculture":       {"artificial intelligence", "agriculture"},
			"agriculture":             {"agriculture"},
			"clickbait":               nil,
		},
		Canonical: map[string]bool{
			"artificial intelligence": true,
			"agriculture":             true,
		},
	}
}

func TestApplyMergesScoresByMax(t *testing.T) {
	t.Parallel()

	tags, err := Apply([]domain.RawTag{
		{Name: "ai", Score: 0.6},
		{Name: "artificial intelligence", Score: 0.9},
	}, testSnapshot())
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if len(tags) != 1 {
		t.Fatalf("expected 1 merged tag, got %d: %v", len(tags), tags)
	}
	if tags[0].Name != "artificial intelligence" || tags[0].Score != 0.9 {
		t.Fatalf("expected (artificial intelligence, 0.9), got (%s, %v)", tags[0].Name, tags[0].Score)
	}
}

func TestApplySplitKeepsScoreOnEachFacet(t *testing.T) {
	t.Parallel()

	tags, err := Apply([]domain.RawTag{{Name: "ai in agriculture", Score: 0.7}}, testSnapshot())
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	got := map[string]float64{}
	for _, tag := range tags {
		got[tag.Name] = tag.Score
	}
	want := map[string]float64{"artificial intelligence": 0.7, "agriculture": 0.7}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestApplyUnknownTagIsProvisional(t *testing.T) {
	t.Parallel()

	tags, err := Apply([]domain.RawTag{{Name: "  Quantum Sensing ", Score: 0.4}}, testSnapshot())
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if len(tags) != 1 {
		t.Fatalf("expected 1 tag, got %d", len(tags))
	}
	if tags[0].Name != "quantum sensing" {
		t.Fatalf("expected folded passthrough, got %q", tags[0].Name)
	}
	if !tags[0].Provisional {
		t.Fatalf("unknown tag must be flagged provisional")
	}
}

func TestApplyExplicitDiscard(t *testing.T) {
	t.Parallel()

	tags, err := Apply([]domain.RawTag{
		{Name: "clickbait", Score: 0.9},
		{Name: "ai", Score: 0.5},
	}, testSnapshot())
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if len(tags) != 1 || tags[0].Name != "artificial intelligence" {
		t.Fatalf("discarded tag leaked through: %v", tags)
	}
}

func TestApplyRejectsInvalidTagsKeepsRest(t *testing.T) {
	t.Parallel()

	tags, err := Apply([]domain.RawTag{
		{Name: "", Score: 0.5},
		{Name: "ai", Score: 1.5},
		{Name: "ai", Score: 0.8},
	}, testSnapshot())
	if !errors.Is(err, ErrInvalidRawTag) {
		t.Fatalf("expected ErrInvalidRawTag, got %v", err)
	}

	if len(tags) != 1 || tags[0].Name != "artificial intelligence" || tags[0].Score != 0.8 {
		t.Fatalf("valid tag lost alongside invalid ones: %v", tags)
	}
}

func TestApplyIdempotent(t *testing.T) {
	t.Parallel()

	input := []domain.RawTag{
		{Name: "ai", Score: 0.6},
		{Name: "AI in Agriculture", Score: 0.3},
		{Name: "rust", Score: 0.5},
	}

	first, err := Apply(input, testSnapshot())
	if err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	second, err := Apply(input, testSnapshot())
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Apply is not idempotent: %v vs %v", first, second)
	}
}

type recordingLog struct {
	refs []string
	tags [][]domain.RawTag
}

func (l *recordingLog) Record(_ context.Context, ref string, tags []domain.RawTag) error {
	l.refs = append(l.refs, ref)
	l.tags = append(l.tags, tags)
	return nil
}

func (l *recordingLog) Corpus(context.Context) ([]domain.RawTagStat, error) { return nil, nil }

func TestNormalizerRecordsRawTagsVerbatim(t *testing.T) {
	t.Parallel()

	log := &recordingLog{}
	n := NewNormalizer(log, nil)

	_, err := n.Normalize(context.Background(), "story:42", []domain.RawTag{
		{Name: "AI", Score: 0.6},
		{Name: "brand new concept", Score: 0.4},
	}, testSnapshot())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if len(log.refs) != 1 || log.refs[0] != "story:42" {
		t.Fatalf("raw tags not recorded for item: %v", log.refs)
	}
	if len(log.tags[0]) != 2 || log.tags[0][0].Name != "AI" {
		t.Fatalf("raw tags must be recorded verbatim, got %v", log.tags[0])
	}
}
