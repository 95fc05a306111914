package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string

	StoreBackend  string // memory, sqlite or mongo
	DBPath        string
	MongoURI      string
	MongoDatabase string
	PollInterval  time.Duration

	CacheBackend string // pebble or memory
	CachePath    string

	StrictWrites bool
	WriteRetries int
	RetryBackoff time.Duration
	WriteTimeout time.Duration

	ChangefeedSink string // none, file, kafka or both
	ChangefeedDir  string
	KafkaBootstrap string
	KafkaTopic     string

	ReminderInterval time.Duration
	Timezone         string

	LogLevel string
	LogFile  string
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		StoreBackend:     getEnv("STORE_BACKEND", "sqlite"),
		DBPath:           getEnv("DB_PATH", "/data/pharmaflow.db"),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "pharmaflow"),
		PollInterval:     p.duration("POLL_INTERVAL", time.Second),
		CacheBackend:     getEnv("CACHE_BACKEND", "pebble"),
		CachePath:        getEnv("CACHE_PATH", "/data/cache"),
		StrictWrites:     p.bool("STRICT_WRITES", true),
		WriteRetries:     p.int("WRITE_RETRIES", 3),
		RetryBackoff:     p.duration("RETRY_BACKOFF", 200*time.Millisecond),
		WriteTimeout:     p.duration("WRITE_TIMEOUT", 10*time.Second),
		ChangefeedSink:   getEnv("CHANGEFEED_SINK", "file"),
		ChangefeedDir:    getEnv("CHANGEFEED_DIR", "/data/changefeed"),
		KafkaBootstrap:   getEnv("KAFKA_BOOTSTRAP", "localhost:9092"),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "pharmaflow.changes"),
		ReminderInterval: p.duration("REMINDER_INTERVAL", 5*time.Minute),
		Timezone:         getEnv("TIMEZONE", "Local"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          getEnv("LOG_FILE", ""),
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}

	switch cfg.StoreBackend {
	case "memory", "sqlite", "mongo":
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	switch cfg.CacheBackend {
	case "memory", "pebble":
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
	switch cfg.ChangefeedSink {
	case "none", "file", "kafka", "both":
	default:
		return nil, fmt.Errorf("unknown CHANGEFEED_SINK %q", cfg.ChangefeedSink)
	}
	return cfg, nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}
	return loc, nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// parser collects conversion errors so every bad variable is reported at once.
type parser struct {
	errs []error
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.errs = append(p.errs, fmt.Errorf("invalid %s %q: want a positive duration", key, v))
		return def
	}
	return d
}

func (p *parser) int(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		p.errs = append(p.errs, fmt.Errorf("invalid %s %q: want a non-negative integer", key, v))
		return def
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s %q: want true or false", key, v))
		return def
	}
	return b
}
