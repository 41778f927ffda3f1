package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/DeafMist/news-verifier/internal/credibility"
	"github.com/DeafMist/news-verifier/internal/trust"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Kafka holds the broker list and the raw news topic.
type Kafka struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// Verification configures the credibility engine and its trust registry.
type Verification struct {
	SimilarityThreshold    float64
	MinConfirmations       int
	BonusPerConfirmation   int
	ContradictionThreshold float64
	CacheSize              int
	DefaultLanguage        string

	TrustFile      string
	TrustDefault   int
	TrustRedisAddr string
	TrustRedisKey  string
}

// EngineConfig maps the verification settings onto credibility.Config.
func (v Verification) EngineConfig() credibility.Config {
	c := credibility.DefaultConfig()
	c.SimilarityThreshold = v.SimilarityThreshold
	c.MinConfirmations = v.MinConfirmations
	c.BonusPerConfirmation = v.BonusPerConfirmation
	c.ContradictionThreshold = v.ContradictionThreshold
	c.CacheSize = v.CacheSize
	c.DefaultLanguage = v.DefaultLanguage
	return c
}

// TrustOptions describes the trust registry to build.
func (v Verification) TrustOptions() trust.Options {
	return trust.Options{
		File:      v.TrustFile,
		Default:   v.TrustDefault,
		RedisAddr: v.TrustRedisAddr,
		RedisKey:  v.TrustRedisKey,
	}
}

// Worker holds configuration for the Kafka -> verify -> Elasticsearch worker.
type Worker struct {
	Common
	Kafka
	Verification
	KafkaConsumer    string
	KeywordLimit     int
	KeywordMinLength int
	DedupeCapacity   int
	DedupeTTL        time.Duration
	BatchSize        int
	BatchWait        time.Duration
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Verification
	BindAddr       string
	DefaultPage    int
	MaxPage        int
	MaxVerifyItems int
}

// Retention configures the cleanup job.
type Retention struct {
	Common
	Schedule  string
	MaxAge    time.Duration
	BatchSize int
}

// Feed is one polled source.
type Feed struct {
	SourceID string
	URL      string
}

// Collector configures the feed poller.
type Collector struct {
	Kafka
	Feeds             []Feed
	Schedule          string
	RequestsPerSecond float64
	Burst             int
	Concurrency       int
	FetchTimeout      time.Duration
	UserAgent         string
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "news"),
	}
}

func loadKafka() (Kafka, error) {
	k := Kafka{
		KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "news_raw"),
	}
	if len(k.KafkaBrokers) == 0 {
		return Kafka{}, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	return k, nil
}

func loadVerification() (Verification, error) {
	v := Verification{
		SimilarityThreshold:    getFloat("VERIFY_SIMILARITY_THRESHOLD", 0.4),
		MinConfirmations:       getInt("VERIFY_MIN_CONFIRMATIONS", 2),
		BonusPerConfirmation:   getInt("VERIFY_BONUS_PER_CONFIRMATION", 1),
		ContradictionThreshold: getFloat("VERIFY_CONTRADICTION_THRESHOLD", 0.3),
		CacheSize:              getInt("VERIFY_CACHE_SIZE", 1000),
		DefaultLanguage:        getEnv("VERIFY_DEFAULT_LANGUAGE", "en"),
		TrustFile:              getEnv("TRUST_FILE", ""),
		TrustDefault:           getInt("TRUST_DEFAULT", trust.DefaultTrust),
		TrustRedisAddr:         getEnv("TRUST_REDIS_ADDR", ""),
		TrustRedisKey:          getEnv("TRUST_REDIS_KEY", trust.DefaultRedisKey),
	}

	if err := v.EngineConfig().Validate(); err != nil {
		return Verification{}, err
	}
	if v.TrustDefault < trust.MinTrust || v.TrustDefault > trust.MaxTrust {
		return Verification{}, fmt.Errorf("TRUST_DEFAULT must be within [%d,%d]", trust.MinTrust, trust.MaxTrust)
	}
	return v, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	k, err := loadKafka()
	if err != nil {
		return nil, err
	}
	v, err := loadVerification()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Common:           loadCommon(),
		Kafka:            k,
		Verification:     v,
		KafkaConsumer:    getEnv("KAFKA_CONSUMER_GROUP", "news-verifier"),
		KeywordLimit:     getInt("WORKER_KEYWORD_LIMIT", 8),
		KeywordMinLength: getInt("WORKER_KEYWORD_MIN_LEN", 4),
		DedupeCapacity:   getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:        getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:        getInt("WORKER_BATCH_SIZE", 50),
		BatchWait:        getDuration("WORKER_BATCH_WAIT", "5s"),
	}

	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.BatchWait <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_WAIT must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.KeywordLimit <= 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_LIMIT must be positive")
	}
	if c.KeywordMinLength < 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_MIN_LEN cannot be negative")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	v, err := loadVerification()
	if err != nil {
		return nil, err
	}

	c := &API{
		Common:         loadCommon(),
		Verification:   v,
		BindAddr:       getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage:    getInt("API_PAGE_SIZE", 20),
		MaxPage:        getInt("API_MAX_PAGE_SIZE", 100),
		MaxVerifyItems: getInt("API_MAX_VERIFY_ITEMS", 500),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}
	if c.MaxVerifyItems <= 0 {
		return nil, fmt.Errorf("API_MAX_VERIFY_ITEMS must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Schedule:  getEnv("RETENTION_SCHEDULE", "@every 24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "168h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return nil, fmt.Errorf("RETENTION_SCHEDULE: %w", err)
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

// LoadCollector builds a Collector config from environment variables.
func LoadCollector() (*Collector, error) {
	k, err := loadKafka()
	if err != nil {
		return nil, err
	}
	feeds, err := parseFeeds(getEnv("COLLECTOR_FEEDS", ""))
	if err != nil {
		return nil, err
	}

	c := &Collector{
		Kafka:             k,
		Feeds:             feeds,
		Schedule:          getEnv("COLLECTOR_SCHEDULE", "@every 10m"),
		RequestsPerSecond: getFloat("COLLECTOR_RATE", 2),
		Burst:             getInt("COLLECTOR_BURST", 1),
		Concurrency:       getInt("COLLECTOR_CONCURRENCY", 4),
		FetchTimeout:      getDuration("COLLECTOR_FETCH_TIMEOUT", "20s"),
		UserAgent:         getEnv("COLLECTOR_USER_AGENT", "news-verifier/1.0"),
	}

	if len(c.Feeds) == 0 {
		return nil, fmt.Errorf("COLLECTOR_FEEDS must list at least one source_id=url pair")
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return nil, fmt.Errorf("COLLECTOR_SCHEDULE: %w", err)
	}
	if c.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("COLLECTOR_RATE must be positive")
	}
	if c.Burst <= 0 {
		return nil, fmt.Errorf("COLLECTOR_BURST must be positive")
	}
	if c.Concurrency <= 0 {
		return nil, fmt.Errorf("COLLECTOR_CONCURRENCY must be positive")
	}

	return c, nil
}

// parseFeeds reads "source_id=url,source_id=url".
func parseFeeds(raw string) ([]Feed, error) {
	parts := splitAndTrim(raw)
	feeds := make([]Feed, 0, len(parts))
	for _, part := range parts {
		id, url, ok := strings.Cut(part, "=")
		id, url = strings.TrimSpace(id), strings.TrimSpace(url)
		if !ok || id == "" || url == "" {
			return nil, fmt.Errorf("COLLECTOR_FEEDS: malformed entry %q", part)
		}
		feeds = append(feeds, Feed{SourceID: id, URL: url})
	}
	return feeds, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
