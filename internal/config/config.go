package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// DefaultTemperature is the sampling temperature used for match dialogue.
const DefaultTemperature = 0.4

// Config aggregates every configuration section of the service.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Session SessionConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Session: session}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
	// AllowedOrigins restricts browser origins. Empty allows any origin.
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are accepted as-is.
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AIConfig describes the Ark completion backend.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark chat model from the configuration. Temperature
// is applied per call by the conversation engine, not here.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + Model or an AK/SK pair")
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
		MaxTokens: maxTokens,
		TopP:      topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	matchTemperature := DefaultTemperature
	if temperature != nil {
		matchTemperature = *temperature
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: matchTemperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// SessionConfig carries the tuning knobs of the match loop. Defaults are
// the hand-tuned production values.
type SessionConfig struct {
	HistoryLimit    int           `env:"SESSION_HISTORY_LIMIT" envDefault:"300"`
	IdleTimeout     time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"10s"`
	IdlePoll        time.Duration `env:"SESSION_IDLE_POLL" envDefault:"100ms"`
	RestartThrottle time.Duration `env:"SESSION_RESTART_THROTTLE" envDefault:"100ms"`
	RestartBackoff  time.Duration `env:"SESSION_RESTART_BACKOFF" envDefault:"1s"`
	Checkpoints     []int         `env:"SESSION_CHECKPOINTS" envDefault:"15,35,50,80" envSeparator:","`
	CheckpointEvery int           `env:"SESSION_CHECKPOINT_EVERY" envDefault:"60"`
	VoteDuration    time.Duration `env:"VOTE_DURATION" envDefault:"15s"`

	EngineWindow   int           `env:"ENGINE_WINDOW" envDefault:"15"`
	EngineWPM      int           `env:"ENGINE_WPM" envDefault:"300"`
	EngineMinDelay time.Duration `env:"ENGINE_MIN_DELAY" envDefault:"800ms"`
	EngineMaxDelay time.Duration `env:"ENGINE_MAX_DELAY" envDefault:"2s"`
	EngineMaxEmoji int           `env:"ENGINE_MAX_EMOJI" envDefault:"2"`

	DetectMaxWords         int           `env:"DETECT_MAX_WORDS" envDefault:"80"`
	DetectMaxEmoji         int           `env:"DETECT_MAX_EMOJI" envDefault:"20"`
	DetectLoopWindow       int           `env:"DETECT_LOOP_WINDOW" envDefault:"6"`
	DetectLoopThreshold    float64       `env:"DETECT_LOOP_THRESHOLD" envDefault:"0.7"`
	DetectSelfWindow       int           `env:"DETECT_SELF_WINDOW" envDefault:"3"`
	DetectSelfThreshold    float64       `env:"DETECT_SELF_THRESHOLD" envDefault:"0.8"`
	DetectMaxLatency       time.Duration `env:"DETECT_MAX_LATENCY" envDefault:"15s"`
	DetectLanguageWindow   int           `env:"DETECT_LANGUAGE_WINDOW" envDefault:"8"`
	DetectForeignRatio     float64       `env:"DETECT_FOREIGN_RATIO" envDefault:"0.05"`
	DetectMinBigramDensity float64       `env:"DETECT_MIN_BIGRAM_DENSITY" envDefault:"0.05"`

	ChatMaxLength    int           `env:"CHAT_MAX_LENGTH" envDefault:"175"`
	ChatCooldown     time.Duration `env:"CHAT_COOLDOWN" envDefault:"1s"`
	ChatHistoryLimit int           `env:"CHAT_HISTORY_LIMIT" envDefault:"25"`
}

func loadSessionConfig() (SessionConfig, error) {
	var cfg SessionConfig
	if err := env.Parse(&cfg); err != nil {
		return SessionConfig{}, fmt.Errorf("parse session env: %w", err)
	}
	if cfg.HistoryLimit < 1 {
		return SessionConfig{}, fmt.Errorf("invalid SESSION_HISTORY_LIMIT value %d", cfg.HistoryLimit)
	}
	if cfg.ChatHistoryLimit < 1 {
		return SessionConfig{}, fmt.Errorf("invalid CHAT_HISTORY_LIMIT value %d", cfg.ChatHistoryLimit)
	}
	if cfg.EngineMinDelay > cfg.EngineMaxDelay {
		return SessionConfig{}, fmt.Errorf("ENGINE_MIN_DELAY %s exceeds ENGINE_MAX_DELAY %s", cfg.EngineMinDelay, cfg.EngineMaxDelay)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
