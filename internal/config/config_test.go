package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected default log level: %s", cfg.Logging.Level)
	}
	if cfg.Scheduler.CronExpression != "0 6 * * *" {
		t.Fatalf("unexpected default cron: %s", cfg.Scheduler.CronExpression)
	}
	if cfg.Taxonomy.SimilarityThreshold != 0.6 {
		t.Fatalf("unexpected similarity threshold: %v", cfg.Taxonomy.SimilarityThreshold)
	}
	if len(cfg.Sources) == 0 || cfg.Sources[0].Fetcher != "hackernews" {
		t.Fatalf("expected default hackernews source, got %+v", cfg.Sources)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: debug
scheduler:
  cronExpression: "30 7 * * *"
  timezone: "Europe/Berlin"
taxonomy:
  stoplist: ["clickbait"]
  similarityThreshold: 0.7
sources:
  - name: frontpage
    fetcher: hackernews
    maxItems: 10
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("NEWS_DIGEST_CONFIG", path)
	t.Setenv("DATABASE_DSN", "postgres://env/db")
	t.Setenv("CHATGPT_API_KEY", "env-key")

	cfg := Load()

	if cfg.Logging.Level != "debug" {
		t.Fatalf("file override lost: %s", cfg.Logging.Level)
	}
	if cfg.Scheduler.CronExpression != "30 7 * * *" {
		t.Fatalf("cron override lost: %s", cfg.Scheduler.CronExpression)
	}
	if cfg.Scheduler.Location().String() != "Europe/Berlin" {
		t.Fatalf("timezone not bound: %s", cfg.Scheduler.Location())
	}
	if cfg.Taxonomy.SimilarityThreshold != 0.7 {
		t.Fatalf("taxonomy override lost: %v", cfg.Taxonomy.SimilarityThreshold)
	}
	if len(cfg.Taxonomy.Stoplist) != 1 || cfg.Taxonomy.Stoplist[0] != "clickbait" {
		t.Fatalf("stoplist override lost: %+v", cfg.Taxonomy.Stoplist)
	}
	if cfg.Database.DSN != "postgres://env/db" {
		t.Fatalf("env override lost: %s", cfg.Database.DSN)
	}
	if cfg.ChatGPT.APIKey != "env-key" {
		t.Fatalf("chatgpt key override lost: %s", cfg.ChatGPT.APIKey)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].MaxItems != 10 {
		t.Fatalf("sources override lost: %+v", cfg.Sources)
	}
	if cfg.ChatGPT.Model == "" {
		t.Fatalf("defaults must survive partial file")
	}
}

func TestLoadBadTimezoneRevertsToUTC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("scheduler:\n  timezone: Mars/Olympus\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NEWS_DIGEST_CONFIG", path)

	cfg := Load()
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("expected UTC fallback, got %s", cfg.Scheduler.Location())
	}
}
