package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Quiz   QuizConfig   `yaml:"quiz"`
	LLM    LLMConfig    `yaml:"llm"`
	Embed  EmbedConfig  `yaml:"embed"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr        string  `yaml:"addr"`
	RateLimit   float64 `yaml:"rate_limit"`
	RateBurst   int     `yaml:"rate_burst"`
	MaxUploadMB int64   `yaml:"max_upload_mb"`
	UploadDir   string  `yaml:"upload_dir"`
}

type QuizConfig struct {
	InitialBatchSize int `yaml:"initial_batch_size"`
	MoreBatchSize    int `yaml:"more_batch_size"`
	MinTextLength    int `yaml:"min_text_length"`
	// MaxSessions bounds the session store; 0 keeps every session.
	MaxSessions int `yaml:"max_sessions"`
}

type LLMConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Provider     string        `yaml:"provider"`
	BaseURL      string        `yaml:"base_url"`
	Key          string        `yaml:"key" json:"-"`
	Model        string        `yaml:"model"`
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
	Breaker      BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio"`
	OpenTimeout  time.Duration `yaml:"open_timeout"`
}

type EmbedConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads path, applies defaults and environment overrides. An
// empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	mergeWithEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 5
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 10
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = os.TempDir()
	}

	if cfg.Quiz.InitialBatchSize == 0 {
		cfg.Quiz.InitialBatchSize = 10
	}
	if cfg.Quiz.MoreBatchSize == 0 {
		cfg.Quiz.MoreBatchSize = 5
	}
	if cfg.Quiz.MinTextLength == 0 {
		cfg.Quiz.MinTextLength = 50
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "http://localhost:11434"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3.1:8b"
	}
	if cfg.LLM.ReadyTimeout == 0 {
		cfg.LLM.ReadyTimeout = 30 * time.Second
	}
	if cfg.LLM.PollInterval == 0 {
		cfg.LLM.PollInterval = 500 * time.Millisecond
	}
	if cfg.LLM.CallTimeout == 0 {
		cfg.LLM.CallTimeout = 20 * time.Second
	}
	if cfg.LLM.Breaker.MinRequests == 0 {
		cfg.LLM.Breaker.MinRequests = 5
	}
	if cfg.LLM.Breaker.FailureRatio == 0 {
		cfg.LLM.Breaker.FailureRatio = 0.5
	}
	if cfg.LLM.Breaker.OpenTimeout == 0 {
		cfg.LLM.Breaker.OpenTimeout = 30 * time.Second
	}

	if cfg.Embed.BaseURL == "" {
		cfg.Embed.BaseURL = cfg.LLM.BaseURL
	}
	if cfg.Embed.Model == "" {
		cfg.Embed.Model = "nomic-embed-text"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func mergeWithEnv(cfg *Config) {
	if addr := os.Getenv("DOCUQUEST_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv("DOCUQUEST_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if baseURL := os.Getenv("LLM_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		cfg.LLM.Key = key
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
	if embedURL := os.Getenv("EMBED_BASE_URL"); embedURL != "" {
		cfg.Embed.BaseURL = embedURL
	}
}
