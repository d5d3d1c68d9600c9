package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Config carries everything the gateway reads from the environment.
// All knobs have defaults except the Gemini API key, which is required
// to start, and BACKEND_URL, which is required because every tool call
// goes there.
type Config struct {
	ListenAddr string
	AppEnv     string
	LogLevel   string

	GoogleAPIKey   string
	LLMModelMain   string
	LLMModelDetect string

	BackendURL     string
	BackendTimeout time.Duration

	RedisURL        string
	SessionTTL      time.Duration
	SessionMaxMsgs  int
	RateLimitPerMin int

	MaxFCRounds  int
	TurnDeadline time.Duration

	TTSAPIKey  string
	TTSVoiceID string
	TTSModelID string

	Version string
}

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// FromEnv builds a Config from process environment variables, applying
// defaults and validating the result.
func FromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:     getenv("LISTEN_ADDR", ":8080"),
		AppEnv:         getenv("APP_ENV", EnvDevelopment),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		GoogleAPIKey:   os.Getenv("GOOGLE_API_KEY"),
		LLMModelMain:   getenv("LLM_MODEL_MAIN", "gemini-2.5-flash"),
		LLMModelDetect: getenv("LLM_MODEL_DETECT", "gemini-2.5-flash-lite"),
		BackendURL:     os.Getenv("BACKEND_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		TTSAPIKey:      os.Getenv("TTS_API_KEY"),
		TTSVoiceID:     os.Getenv("TTS_VOICE_ID"),
		TTSModelID:     getenv("TTS_MODEL_ID", "eleven_multilingual_v2"),
		Version:        getenv("APP_VERSION", "dev"),
	}

	var err error
	if cfg.SessionTTL, err = getMinutes("SESSION_TTL_MIN", 60); err != nil {
		return nil, err
	}
	if cfg.SessionMaxMsgs, err = getInt("SESSION_MAX_MESSAGES", 20); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMin, err = getInt("RATE_LIMIT_PER_MIN", 30); err != nil {
		return nil, err
	}
	if cfg.MaxFCRounds, err = getInt("MAX_FC_ROUNDS", 6); err != nil {
		return nil, err
	}
	if cfg.TurnDeadline, err = getSeconds("TURN_DEADLINE_SEC", 60); err != nil {
		return nil, err
	}
	if cfg.BackendTimeout, err = getSeconds("BACKEND_TIMEOUT_SEC", 10); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks internal consistency. It is separate from FromEnv so
// tests can build configs by hand.
func (c *Config) Validate() error {
	if c.GoogleAPIKey == "" {
		return errors.New("GOOGLE_API_KEY is required")
	}
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	if c.AppEnv != EnvDevelopment && c.AppEnv != EnvProduction {
		return errors.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.AppEnv)
	}
	if c.SessionMaxMsgs <= 0 {
		return errors.New("SESSION_MAX_MESSAGES must be positive")
	}
	if c.RateLimitPerMin <= 0 {
		return errors.New("RATE_LIMIT_PER_MIN must be positive")
	}
	if c.MaxFCRounds <= 0 {
		return errors.New("MAX_FC_ROUNDS must be positive")
	}
	return nil
}

// TTSEnabled reports whether the TTS renderer can be configured at all.
func (c *Config) TTSEnabled() bool {
	return c.TTSAPIKey != ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "%s must be an integer", key)
	}
	return n, nil
}

func getSeconds(key string, def int) (time.Duration, error) {
	n, err := getInt(key, def)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func getMinutes(key string, def int) (time.Duration, error) {
	n, err := getInt(key, def)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Minute, nil
}
