package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all environment-driven settings.
type Config struct {
	HTTPPort      string
	DBPath        string
	JobsDir       string
	EnableWatcher bool
	WorkerCount   int
	QueueSize     int
	RecoveryLimit int
	LogLevel      string
	NotifyURL     string
	ConfigPath    string
	Sources       SourcesConfig
	Lexicon       LexiconConfig

	// LoadErr records a failure to read the YAML overlay; env settings still apply.
	LoadErr error
}

// SourcesConfig carries adapter credentials and tuning.
type SourcesConfig struct {
	Twitter        TwitterConfig
	Reddit         RedditConfig
	News           NewsConfig
	Demo           DemoConfig
	RequestsPerSec float64
	RequestTimeout time.Duration
}

type TwitterConfig struct {
	Enabled     bool
	BearerToken string
	BaseURL     string
	Cooldown    time.Duration
}

type RedditConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	UserAgent    string
	TokenURL     string
	BaseURL      string
	Cooldown     time.Duration
}

type NewsConfig struct {
	Enabled  bool
	APIKey   string
	BaseURL  string
	Cooldown time.Duration
}

// DemoConfig enables the synthetic source used for local runs.
type DemoConfig struct {
	Enabled bool
	Seed    int64
}

// LexiconConfig extends the default sentiment word lists.
type LexiconConfig struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

// fileConfig is the optional YAML overlay. Pointers distinguish unset keys.
type fileConfig struct {
	Sources struct {
		Twitter *struct {
			Enabled     *bool  `yaml:"enabled"`
			CooldownSec *int   `yaml:"cooldown_sec"`
			BaseURL     string `yaml:"base_url"`
		} `yaml:"twitter"`
		Reddit *struct {
			Enabled     *bool  `yaml:"enabled"`
			CooldownSec *int   `yaml:"cooldown_sec"`
			BaseURL     string `yaml:"base_url"`
		} `yaml:"reddit"`
		News *struct {
			Enabled     *bool  `yaml:"enabled"`
			CooldownSec *int   `yaml:"cooldown_sec"`
			BaseURL     string `yaml:"base_url"`
		} `yaml:"news"`
		Demo *struct {
			Enabled *bool  `yaml:"enabled"`
			Seed    *int64 `yaml:"seed"`
		} `yaml:"demo"`
		RequestsPerSec *float64 `yaml:"requests_per_sec"`
	} `yaml:"sources"`
	Lexicon LexiconConfig `yaml:"lexicon"`
}

// Load reads configuration from environment, an optional .env file and an
// optional YAML overlay at CONFIG_PATH.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:      getenv("PORT", "8000"),
		DBPath:        getenv("DB_PATH", "./research.db"),
		JobsDir:       getenv("JOBS_DIR", "./jobs"),
		EnableWatcher: getenvBool("ENABLE_WATCHER", false),
		WorkerCount:   clampInt(getenvInt("WORKER_COUNT", 2), 1, 64),
		QueueSize:     clampInt(getenvInt("QUEUE_SIZE", 128), 8, 1024),
		RecoveryLimit: clampInt(getenvInt("RECOVERY_LIMIT", 64), 1, 1024),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		NotifyURL:     getenv("NOTIFY_WEBHOOK_URL", ""),
		ConfigPath:    getenv("CONFIG_PATH", ""),
		Sources: SourcesConfig{
			Twitter: TwitterConfig{
				Enabled:     true,
				BearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),
				BaseURL:     getenv("TWITTER_BASE_URL", "https://api.twitter.com"),
				Cooldown:    2 * time.Second,
			},
			Reddit: RedditConfig{
				Enabled:      true,
				ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
				ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
				UserAgent:    os.Getenv("REDDIT_USER_AGENT"),
				TokenURL:     getenv("REDDIT_TOKEN_URL", "https://www.reddit.com/api/v1/access_token"),
				BaseURL:      getenv("REDDIT_BASE_URL", "https://oauth.reddit.com"),
				Cooldown:     2 * time.Second,
			},
			News: NewsConfig{
				Enabled:  true,
				APIKey:   os.Getenv("NEWSAPI_KEY"),
				BaseURL:  getenv("NEWSAPI_BASE_URL", "https://newsapi.org"),
				Cooldown: time.Second,
			},
			Demo: DemoConfig{
				Enabled: getenvBool("DEMO_SOURCE", false),
				Seed:    int64(getenvInt("DEMO_SEED", 1)),
			},
			RequestsPerSec: getenvFloat("SOURCE_RPS", 5),
			RequestTimeout: 10 * time.Second,
		},
	}

	if cfg.ConfigPath != "" {
		cfg.LoadErr = cfg.applyFile(cfg.ConfigPath)
	}
	return cfg
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return err
	}
	c.merge(fc)
	return nil
}

func (c *Config) merge(fc fileConfig) {
	s := fc.Sources
	if s.Twitter != nil {
		if s.Twitter.Enabled != nil {
			c.Sources.Twitter.Enabled = *s.Twitter.Enabled
		}
		if s.Twitter.CooldownSec != nil {
			c.Sources.Twitter.Cooldown = time.Duration(*s.Twitter.CooldownSec) * time.Second
		}
		if s.Twitter.BaseURL != "" {
			c.Sources.Twitter.BaseURL = s.Twitter.BaseURL
		}
	}
	if s.Reddit != nil {
		if s.Reddit.Enabled != nil {
			c.Sources.Reddit.Enabled = *s.Reddit.Enabled
		}
		if s.Reddit.CooldownSec != nil {
			c.Sources.Reddit.Cooldown = time.Duration(*s.Reddit.CooldownSec) * time.Second
		}
		if s.Reddit.BaseURL != "" {
			c.Sources.Reddit.BaseURL = s.Reddit.BaseURL
		}
	}
	if s.News != nil {
		if s.News.Enabled != nil {
			c.Sources.News.Enabled = *s.News.Enabled
		}
		if s.News.CooldownSec != nil {
			c.Sources.News.Cooldown = time.Duration(*s.News.CooldownSec) * time.Second
		}
		if s.News.BaseURL != "" {
			c.Sources.News.BaseURL = s.News.BaseURL
		}
	}
	if s.Demo != nil {
		if s.Demo.Enabled != nil {
			c.Sources.Demo.Enabled = *s.Demo.Enabled
		}
		if s.Demo.Seed != nil {
			c.Sources.Demo.Seed = *s.Demo.Seed
		}
	}
	if s.RequestsPerSec != nil && *s.RequestsPerSec > 0 {
		c.Sources.RequestsPerSec = *s.RequestsPerSec
	}
	c.Lexicon.Positive = append(c.Lexicon.Positive, fc.Lexicon.Positive...)
	c.Lexicon.Negative = append(c.Lexicon.Negative, fc.Lexicon.Negative...)
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
