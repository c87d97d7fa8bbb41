package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// clientConfig collects option values before component construction.
type clientConfig struct {
	httpClient         *http.Client
	baseURL            string
	userAgent          string
	rateLimitPerMinute int
	cacheMaxEntries    int
	cacheTTL           time.Duration
	maxInflight        int
	requestLog         *RequestLog
	metrics            *MetricsCollector
	logger             Logger
	debug              bool
	requestIDGen       func() string
}

// Option represents a configuration option.
type Option func(*clientConfig)

// WithBaseURL points the client at an alternate service root. Used by
// verification runs against a test target.
func WithBaseURL(baseURL string) Option {
	return func(cfg *clientConfig) {
		cfg.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = client
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(cfg *clientConfig) {
		cfg.userAgent = userAgent
	}
}

// WithRateLimit sets the maximum admissions per trailing minute.
func WithRateLimit(perMinute int) Option {
	return func(cfg *clientConfig) {
		cfg.rateLimitPerMinute = perMinute
	}
}

// WithCache sets the response cache capacity and entry TTL.
func WithCache(maxEntries int, ttl time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.cacheMaxEntries = maxEntries
		cfg.cacheTTL = ttl
	}
}

// WithMaxInflight bounds the number of simultaneous network calls.
func WithMaxInflight(n int) Option {
	return func(cfg *clientConfig) {
		cfg.maxInflight = n
	}
}

// WithRequestLog attaches an append-only request log.
func WithRequestLog(log *RequestLog) Option {
	return func(cfg *clientConfig) {
		cfg.requestLog = log
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(cfg *clientConfig) {
		cfg.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(cfg *clientConfig) {
		cfg.metrics = collector
	}
}

// WithLogger sets a logger for debug output and enables it.
func WithLogger(logger Logger) Option {
	return func(cfg *clientConfig) {
		cfg.logger = logger
		cfg.debug = true
	}
}

// WithSimpleLogger enables debug logging with a stderr logger.
func WithSimpleLogger() Option {
	return func(cfg *clientConfig) {
		cfg.logger = NewSimpleLogger()
		cfg.debug = true
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(cfg *clientConfig) {
		cfg.requestIDGen = gen
	}
}

func defaultRequestIDGen() string {
	return uuid.NewString()
}
