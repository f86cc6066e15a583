package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Storage backends for finished screenings.
const (
	StoreSQLite   = "sqlite"
	StoreFirebase = "firebase"
)

// Config holds all the configuration for the bot
type Config struct {
	BotToken string

	Store                         string
	DatabasePath                  string
	FirebaseServiceAccountKeyPath string
	FirebaseDatabaseURL           string

	QuestionnairePath string
	MetricsAddr       string

	GreetingDelay time.Duration
	AnswerDelay   time.Duration
	VerdictDelay  time.Duration

	LogLevel  string
	LogFormat string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, errors.New("BOT_TOKEN environment variable is required")
	}

	cfg := &Config{
		BotToken:          botToken,
		Store:             getenv("STORE", StoreSQLite),
		DatabasePath:      getenv("DB_PATH", "./data/donorbot.db"),
		QuestionnairePath: os.Getenv("QUESTIONNAIRE_PATH"),
		MetricsAddr:       getenv("METRICS_ADDR", ":9090"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "json"),
	}

	switch cfg.Store {
	case StoreSQLite:
	case StoreFirebase:
		cfg.FirebaseServiceAccountKeyPath = os.Getenv("FIREBASE_SERVICE_ACCOUNT_KEY_PATH")
		if cfg.FirebaseServiceAccountKeyPath == "" {
			return nil, errors.New("FIREBASE_SERVICE_ACCOUNT_KEY_PATH environment variable not set")
		}
		cfg.FirebaseDatabaseURL = os.Getenv("FIREBASE_DATABASE_URL")
		if cfg.FirebaseDatabaseURL == "" {
			return nil, errors.New("FIREBASE_DATABASE_URL environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown STORE %q, want %q or %q", cfg.Store, StoreSQLite, StoreFirebase)
	}

	var err error
	if cfg.GreetingDelay, err = duration("GREETING_DELAY"); err != nil {
		return nil, err
	}
	if cfg.AnswerDelay, err = duration("ANSWER_DELAY"); err != nil {
		return nil, err
	}
	if cfg.VerdictDelay, err = duration("VERDICT_DELAY"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// duration reads a Go duration; unset means zero, which leaves the engine
// default in place.
func duration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}
	return d, nil
}
