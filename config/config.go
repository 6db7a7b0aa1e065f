package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"go-mlapi/mlapi"
)

const (
	defaultPort         = "8080"
	defaultFeedLimit    = 10
	defaultFeedSchedule = "*/10 * * * *"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Endpoint   string
	Key        string
	APIVersion string
	Port       string

	// Base64 encoded service account JSON.
	FirebaseCredentials        string
	NaturalLanguageCredentials string

	MapsKey   string
	OpenAIKey string

	FeedURIs     []string
	FeedLimit    int
	FeedSchedule string
}

// Load reads a .env file when one exists and builds a Config from the environment.
func Load(filenames ...string) (*Config, error) {
	if err := godotenv.Load(filenames...); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using getenv for lookups.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Endpoint:                   getenv("LANGUAGE_ENDPOINT"),
		Key:                        getenv("LANGUAGE_KEY"),
		APIVersion:                 getenv("LANGUAGE_API_VERSION"),
		Port:                       getenv("PORT"),
		FirebaseCredentials:        getenv("FIREBASE_CREDENTIALS"),
		NaturalLanguageCredentials: getenv("NATURAL_LANGUAGE_CREDENTIALS"),
		MapsKey:                    getenv("MAPS_CREDENTIALS"),
		OpenAIKey:                  getenv("OPENAI_API_KEY"),
		FeedURIs:                   splitList(getenv("FEED_URIS")),
		FeedLimit:                  defaultFeedLimit,
		FeedSchedule:               getenv("FEED_SCHEDULE"),
	}

	if cfg.APIVersion == "" {
		cfg.APIVersion = mlapi.DefaultVersion
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.FeedSchedule == "" {
		cfg.FeedSchedule = defaultFeedSchedule
	}
	if v := getenv("FEED_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FEED_LIMIT %q: %w", v, err)
		}
		cfg.FeedLimit = limit
	}

	return cfg, nil
}

// Validate checks the settings the analyze-text client cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("LANGUAGE_ENDPOINT is not set"))
	}
	if c.Key == "" {
		errs = append(errs, errors.New("LANGUAGE_KEY is not set"))
	}
	// The public feed endpoint accepts 1 to 100 posts per page.
	if c.FeedLimit < 1 || c.FeedLimit > 100 {
		errs = append(errs, fmt.Errorf("FEED_LIMIT must be between 1 and 100, got %d", c.FeedLimit))
	}
	return errors.Join(errs...)
}

// DecodeCredentials decodes a base64 encoded credentials JSON value.
func DecodeCredentials(encoded string) ([]byte, error) {
	creds, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return creds, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
