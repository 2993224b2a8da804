package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "NEWS_DIGEST_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	chatGPTAPIKeyEnv = "CHATGPT_API_KEY"
	chatGPTModelEnv  = "CHATGPT_MODEL"
	diffbotTokenEnv  = "DIFFBOT_TOKEN"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Extraction ExtractionConfig `yaml:"extraction"`
	ChatGPT    ChatGPTConfig    `yaml:"chatgpt"`
	Taxonomy   TaxonomyConfig   `yaml:"taxonomy"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Sources    []SourceConfig   `yaml:"sources"`
}

// LoggingConfig controls the console logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN keeps
// all state in memory, which is useful for dry runs and tests.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ExtractionConfig describes the DiffBot article extraction API.
type ExtractionConfig struct {
	Endpoint          string `yaml:"endpoint"`
	APIKey            string `yaml:"apiKey"`
	RequestsPerMinute int    `yaml:"requestsPerMinute"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint      string   `yaml:"endpoint"`
	Model         string   `yaml:"model"`
	APIKey        string   `yaml:"apiKey"`
	FormatRetries int      `yaml:"formatRetries"`
	RequiredTags  []string `yaml:"requiredTags"`
}

// TaxonomyConfig tunes tag normalization, review and digest selection.
type TaxonomyConfig struct {
	Synonyms            map[string][]string `yaml:"synonyms"`
	AxisTerms           map[string][]string `yaml:"axisTerms"`
	Stoplist            []string            `yaml:"stoplist"`
	SimilarityThreshold float64             `yaml:"similarityThreshold"`
	RelevantTags        []string            `yaml:"relevantTags"`
	MinTagScore         float64             `yaml:"minTagScore"`
	BackfillConcurrency int                 `yaml:"backfillConcurrency"`
}

// TelegramConfig wires all data required to send digests.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SourceConfig describes a single content source with its fetch strategy.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Fetcher  string            `yaml:"fetcher"`
	MaxItems int               `yaml:"maxItems"`
	Options  map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(diffbotTokenEnv); v != "" {
		c.Extraction.APIKey = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Extraction.Endpoint != "" {
		base.Extraction.Endpoint = override.Extraction.Endpoint
	}
	if override.Extraction.APIKey != "" {
		base.Extraction.APIKey = override.Extraction.APIKey
	}
	if override.Extraction.RequestsPerMinute > 0 {
		base.Extraction.RequestsPerMinute = override.Extraction.RequestsPerMinute
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.FormatRetries > 0 {
		base.ChatGPT.FormatRetries = override.ChatGPT.FormatRetries
	}
	if len(override.ChatGPT.RequiredTags) > 0 {
		base.ChatGPT.RequiredTags = override.ChatGPT.RequiredTags
	}

	if len(override.Taxonomy.Synonyms) > 0 {
		base.Taxonomy.Synonyms = override.Taxonomy.Synonyms
	}
	if len(override.Taxonomy.AxisTerms) > 0 {
		base.Taxonomy.AxisTerms = override.Taxonomy.AxisTerms
	}
	if len(override.Taxonomy.Stoplist) > 0 {
		base.Taxonomy.Stoplist = override.Taxonomy.Stoplist
	}
	if override.Taxonomy.SimilarityThreshold > 0 {
		base.Taxonomy.SimilarityThreshold = override.Taxonomy.SimilarityThreshold
	}
	if len(override.Taxonomy.RelevantTags) > 0 {
		base.Taxonomy.RelevantTags = override.Taxonomy.RelevantTags
	}
	if override.Taxonomy.MinTagScore > 0 {
		base.Taxonomy.MinTagScore = override.Taxonomy.MinTagScore
	}
	if override.Taxonomy.BackfillConcurrency > 0 {
		base.Taxonomy.BackfillConcurrency = override.Taxonomy.BackfillConcurrency
	}

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.ChatID != "" {
		base.Telegram.ChatID = override.Telegram.ChatID
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Database:  DatabaseConfig{DSN: ""},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Extraction: ExtractionConfig{
			Endpoint:          "https://api.diffbot.com/v3/article",
			RequestsPerMinute: 30,
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:      "https://api.openai.com/v1/chat/completions",
			Model:         "gpt-4o-mini",
			FormatRetries: 2,
			RequiredTags:  []string{"artificial intelligence"},
		},
		Taxonomy: TaxonomyConfig{
			SimilarityThreshold: 0.6,
			RelevantTags:        []string{"artificial intelligence", "machine learning"},
			MinTagScore:         0.5,
			BackfillConcurrency: 8,
		},
		Sources: []SourceConfig{
			{
				Name:     "hackernews",
				Fetcher:  "hackernews",
				MaxItems: 30,
				Options: map[string]string{
					"apiUrl": "https://hacker-news.firebaseio.com/v0",
				},
			},
		},
	}
}
