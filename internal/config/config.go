package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `env:"PORT" validate:"required,numeric"`
	DataDir  string `env:"DATA_DIR" validate:"required"`
	AppEnv   string `env:"APP_ENV" validate:"oneof=development production"`
	LogLevel string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	WAPhoneNumberID string        `env:"WA_PHONE_NUMBER_ID" validate:"required"`
	WAAccessToken   string        `env:"WA_ACCESS_TOKEN" validate:"required"`
	WAVerifyToken   string        `env:"WA_VERIFY_TOKEN" validate:"required"`
	WATimeout       time.Duration `env:"WA_TIMEOUT"`

	StoreDriver   string `env:"STORE_DRIVER" validate:"oneof=bolt mongo"`
	MongoURI      string `env:"MONGO_URI" validate:"required_if=StoreDriver mongo"`
	MongoDB       string `env:"MONGO_DB" validate:"required"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	AMQPURL     string `env:"AMQP_URL"`
	NotifyQueue string `env:"NOTIFY_QUEUE" validate:"required_with=AMQPURL"`

	RiskProvider string        `env:"RISK_PROVIDER" validate:"oneof=gemini openai"`
	GeminiAPIKey string        `env:"GEMINI_API_KEY" validate:"required_if=RiskProvider gemini"`
	GeminiModel  string        `env:"GEMINI_MODEL"`
	OpenAIAPIKey string        `env:"OPENAI_API_KEY" validate:"required_if=RiskProvider openai"`
	OpenAIModel  string        `env:"OPENAI_MODEL"`
	RiskTimeout  time.Duration `env:"RISK_TIMEOUT"`

	// DoctorAutoActivate decides whether a freshly registered doctor profile is live
	// immediately or waits for admin review.
	DoctorAutoActivate bool `env:"DOCTOR_AUTO_ACTIVATE"`
	// MaxListedRequests caps the Pending rows shown to a doctor. WhatsApp lists hold
	// 10 rows and three are taken by the bulk actions.
	MaxListedRequests int `env:"MAX_LISTED_REQUESTS" validate:"min=1,max=7"`
	// WebhookRateLimit is requests per minute per source IP.
	WebhookRateLimit int `env:"WEBHOOK_RATE_LIMIT" validate:"min=1"`
}

func Load() (*Config, error) {
	// .env is optional; in production the variables are usually set directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:               envOr("PORT", "8080"),
		DataDir:            envOr("DATA_DIR", "."),
		AppEnv:             envOr("APP_ENV", "production"),
		LogLevel:           envOr("LOG_LEVEL", "info"),
		WAPhoneNumberID:    os.Getenv("WA_PHONE_NUMBER_ID"),
		WAAccessToken:      os.Getenv("WA_ACCESS_TOKEN"),
		WAVerifyToken:      os.Getenv("WA_VERIFY_TOKEN"),
		StoreDriver:        envOr("STORE_DRIVER", "bolt"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            envOr("MONGO_DB", "mindly_db"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		AMQPURL:            os.Getenv("AMQP_URL"),
		NotifyQueue:        envOr("NOTIFY_QUEUE", "mindly_student_notifications"),
		RiskProvider:       strings.ToLower(envOr("RISK_PROVIDER", "gemini")),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        envOr("OPENAI_MODEL", "gpt-4o-mini"),
		DoctorAutoActivate: parseBoolEnv("DOCTOR_AUTO_ACTIVATE", false),
	}

	var errs []error
	var err error
	if cfg.WATimeout, err = parseDurationEnv("WA_TIMEOUT", 15*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.RiskTimeout, err = parseDurationEnv("RISK_TIMEOUT", 20*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxListedRequests, err = parseIntEnv("MAX_LISTED_REQUESTS", 7); err != nil {
		errs = append(errs, err)
	}
	if cfg.WebhookRateLimit, err = parseIntEnv("WEBHOOK_RATE_LIMIT", 120); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if cfg.WAVerifyToken == "" {
		token, err := randomHex(16)
		if err != nil {
			return nil, fmt.Errorf("generating verify token: %w", err)
		}
		cfg.WAVerifyToken = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
	return v
}()

// Validate checks the struct tags and reports problems by env var name.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if", "required_with":
			msgs = append(msgs, fmt.Sprintf("required env var %s is not set", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("env var %s=%v fails %s=%s", fe.Field(), fe.Value(), fe.Tag(), fe.Param()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("env var %s: %w", key, err)
	}
	return n, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("env var %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("env var %s must be positive", key)
	}
	return d, nil
}

// parseBoolEnv accepts true/1/yes/on and false/0/no/off; anything else yields def.
func parseBoolEnv(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
