package config

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Server.RateLimit <= 0 {
		errors = append(errors, ValidationError{Field: "server.rate_limit", Message: "rate_limit must be positive"})
	}
	if c.Server.RateBurst < 1 {
		errors = append(errors, ValidationError{Field: "server.rate_burst", Message: "rate_burst must be positive"})
	}
	if c.Server.MaxUploadMB < 1 {
		errors = append(errors, ValidationError{Field: "server.max_upload_mb", Message: "max_upload_mb must be positive"})
	}

	if c.Quiz.InitialBatchSize < 1 {
		errors = append(errors, ValidationError{Field: "quiz.initial_batch_size", Message: "initial_batch_size must be positive"})
	}
	if c.Quiz.MoreBatchSize < 1 {
		errors = append(errors, ValidationError{Field: "quiz.more_batch_size", Message: "more_batch_size must be positive"})
	}
	if c.Quiz.MinTextLength < 0 {
		errors = append(errors, ValidationError{Field: "quiz.min_text_length", Message: "min_text_length must not be negative"})
	}
	if c.Quiz.MaxSessions < 0 {
		errors = append(errors, ValidationError{Field: "quiz.max_sessions", Message: "max_sessions must not be negative"})
	}

	if c.LLM.Enabled {
		if c.LLM.Provider != "ollama" && c.LLM.Provider != "openai" {
			errors = append(errors, ValidationError{Field: "llm.provider", Message: fmt.Sprintf("unsupported provider: %s", c.LLM.Provider)})
		}
		if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{Field: "llm.base_url", Message: "invalid LLM base URL"})
		}
		if c.LLM.Provider == "openai" && c.LLM.Key == "" {
			errors = append(errors, ValidationError{Field: "llm.key", Message: "API key is required for the openai provider"})
		}
		if c.LLM.ReadyTimeout <= 0 {
			errors = append(errors, ValidationError{Field: "llm.ready_timeout", Message: "ready_timeout must be positive"})
		}
		if c.LLM.PollInterval <= 0 || c.LLM.PollInterval > c.LLM.ReadyTimeout {
			errors = append(errors, ValidationError{Field: "llm.poll_interval", Message: "poll_interval must be positive and not exceed ready_timeout"})
		}
		if c.LLM.Breaker.FailureRatio <= 0 || c.LLM.Breaker.FailureRatio > 1 {
			errors = append(errors, ValidationError{Field: "llm.breaker.failure_ratio", Message: "failure_ratio must be in (0, 1]"})
		}
		if u, err := url.Parse(c.Embed.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{Field: "embed.base_url", Message: "invalid embedding base URL"})
		}
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errors = append(errors, ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown log level: %s", c.Log.Level)})
	}

	return errors
}
