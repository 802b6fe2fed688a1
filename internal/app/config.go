package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Telegram.
	BotToken   string
	OperatorID int64 // ADMIN_ID; 0 means no operator
	TestMode   bool  // buy buttons start flows without an invoice

	// LLM credentials. A provider without a key is skipped.
	OpenAIKey  string
	GeminiKey  string
	MistralKey string

	// Palm photo vision.
	PalmVision         bool
	VisionProvider     string
	MistralVisionModel string

	DBPath string

	ListenAddr string
	LogLevel   string

	ProviderTimeoutSecs int

	// Conversation.
	NatalStepwise bool

	// ProvidersFile optionally overrides provider base URLs and models.
	ProvidersFile string

	// Security & hardening.
	AdminToken     string   // persisted next to the DB when empty
	CORSOrigins    []string // allowed CORS origins; empty = ["*"]
	RateLimitRPS   int      // requests per second per IP
	RateLimitBurst int      // burst capacity per IP

	// OpenTelemetry.
	OTelEnabled  bool
	OTelEndpoint string
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory when one exists.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		BotToken:   getEnv("BOT_TOKEN", ""),
		OperatorID: getEnvInt64("ADMIN_ID", 0),
		TestMode:   getEnvBool("TEST_MODE", false),

		OpenAIKey:  getEnv("OPENAI_API_KEY", ""),
		GeminiKey:  getEnv("GEMINI_API_KEY", ""),
		MistralKey: getEnv("MISTRAL_API_KEY", ""),

		PalmVision:         getEnvBool("PALM_VISION", false),
		VisionProvider:     strings.ToLower(getEnv("VISION_PROVIDER", "mistral")),
		MistralVisionModel: getEnv("MISTRAL_VISION_MODEL", "pixtral-12b"),

		DBPath: getEnv("DB_PATH", "data.sqlite3"),

		ListenAddr: getEnv("ASTROHUB_LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("ASTROHUB_LOG_LEVEL", "info"),

		ProviderTimeoutSecs: getEnvInt("ASTROHUB_PROVIDER_TIMEOUT_SECS", 60),

		NatalStepwise: getEnvBool("ASTROHUB_NATAL_STEPWISE", false),
		ProvidersFile: getEnv("ASTROHUB_PROVIDERS_FILE", ""),

		AdminToken:     getEnv("ASTROHUB_ADMIN_TOKEN", ""),
		CORSOrigins:    getEnvStringSlice("ASTROHUB_CORS_ORIGINS", nil),
		RateLimitRPS:   getEnvInt("ASTROHUB_RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("ASTROHUB_RATE_LIMIT_BURST", 20),

		OTelEnabled:  getEnvBool("ASTROHUB_OTEL_ENABLED", false),
		OTelEndpoint: getEnv("ASTROHUB_OTEL_ENDPOINT", "localhost:4318"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks config values for obviously invalid settings. A missing
// bot token is fatal: nothing can run without the chat transport.
func (c Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if c.OperatorID < 0 {
		return fmt.Errorf("ADMIN_ID must be a Telegram user id, got %d", c.OperatorID)
	}
	if c.VisionProvider != "mistral" {
		return fmt.Errorf("VISION_PROVIDER %q is not supported (only \"mistral\")", c.VisionProvider)
	}
	if c.PalmVision && c.MistralVisionModel == "" {
		return errors.New("MISTRAL_VISION_MODEL must be set when PALM_VISION is on")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("ASTROHUB_RATE_LIMIT_RPS must be > 0, got %d", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("ASTROHUB_RATE_LIMIT_BURST must be > 0, got %d", c.RateLimitBurst)
	}
	if c.ProviderTimeoutSecs <= 0 {
		return fmt.Errorf("ASTROHUB_PROVIDER_TIMEOUT_SECS must be > 0, got %d", c.ProviderTimeoutSecs)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvBool also accepts yes/no and on/off, which .env files tend to use.
func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvStringSlice(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				result = append(result, s)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return def
}
