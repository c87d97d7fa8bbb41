package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL points at the public OpenDota API.
	DefaultBaseURL = "https://api.opendota.com/api"

	defaultUserAgent      = "dota2-tui"
	defaultRequestTimeout = 20 * time.Second
	defaultConnectTimeout = 8 * time.Second

	// maxBodySize bounds how much of a response body is read.
	maxBodySize = 10 * 1024 * 1024
)

// Client mediates all access to the remote stats service. A lookup
// enters the in-flight tracker; on cache hit it returns immediately,
// on miss the owning caller passes the rate limiter and concurrency
// governor, performs the single network call, logs the outcome and
// populates the cache before fanning the result out to every caller
// that coalesced on the key. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string

	limiter    *RateLimiter
	governor   *Governor
	cache      *ResponseCache
	inflight   *InflightTracker
	requestLog *RequestLog
	metrics    *MetricsCollector
	logger     Logger
	debug      bool

	requestIDGen func() string

	validationError error
}

// New constructs a Client using the provided functional options.
// Configuration errors (a zero rate limit, a non-positive cache
// capacity) surface through ValidationError and from every lookup,
// never as panics.
func New(options ...Option) *Client {
	cfg := clientConfig{
		baseURL:            DefaultBaseURL,
		userAgent:          defaultUserAgent,
		rateLimitPerMinute: 60,
		cacheMaxEntries:    256,
		cacheTTL:           5 * time.Minute,
		maxInflight:        6,
		requestIDGen:       defaultRequestIDGen,
	}
	for _, option := range options {
		option(&cfg)
	}

	c := &Client{
		httpClient:   cfg.httpClient,
		baseURL:      strings.TrimRight(cfg.baseURL, "/"),
		userAgent:    cfg.userAgent,
		inflight:     NewInflightTracker(),
		requestLog:   cfg.requestLog,
		metrics:      cfg.metrics,
		logger:       cfg.logger,
		debug:        cfg.debug,
		requestIDGen: cfg.requestIDGen,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: defaultRequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: defaultConnectTimeout}).DialContext,
			},
		}
	}

	var err error
	if c.limiter, err = NewRateLimiter(cfg.rateLimitPerMinute); err != nil {
		c.validationError = err
		return c
	}
	if c.governor, err = NewGovernor(cfg.maxInflight); err != nil {
		c.validationError = err
		return c
	}
	if c.cache, err = NewResponseCache(cfg.cacheMaxEntries, cfg.cacheTTL); err != nil {
		c.validationError = err
		return c
	}

	return c
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// Close releases the request log, flushing queued records.
func (c *Client) Close() error {
	return c.requestLog.Close()
}

// Heroes returns hero id -> localized name from /heroStats.
func (c *Client) Heroes(ctx context.Context) (map[int]string, error) {
	var stats []HeroStat
	if err := c.getJSON(ctx, "/heroStats", nil, &stats); err != nil {
		return nil, err
	}
	heroes := make(map[int]string, len(stats))
	for _, hero := range stats {
		heroes[hero.ID] = hero.LocalizedName
	}
	return heroes, nil
}

// Profile returns the player profile for accountID.
func (c *Client) Profile(ctx context.Context, accountID uint32) (*PlayerResponse, error) {
	var player PlayerResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/players/%d", accountID), nil, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

// RecentMatches returns the player's recent matches. When the
// recentMatches endpoint fails it falls back to the full matches
// endpoint with a small page; the fallback is a distinct request, not
// a retry of the failed one.
func (c *Client) RecentMatches(ctx context.Context, accountID uint32) ([]PlayerMatch, error) {
	var matches []PlayerMatch
	primary := fmt.Sprintf("/players/%d/recentMatches", accountID)
	err := c.getJSON(ctx, primary, nil, &matches)
	if err == nil {
		return matches, nil
	}

	if c.debug && c.logger != nil {
		c.logger.Warn("recentMatches failed, trying matches fallback", "accountID", accountID, "error", err.Error())
	}
	fallback := fmt.Sprintf("/players/%d/matches", accountID)
	query := url.Values{}
	query.Set("limit", "20")
	query.Set("significant", "0")
	if fallbackErr := c.getJSON(ctx, fallback, query, &matches); fallbackErr != nil {
		return nil, err
	}
	return matches, nil
}

// MatchDetail returns the full detail for matchID.
func (c *Client) MatchDetail(ctx context.Context, matchID uint64) (*MatchDetail, error) {
	var detail MatchDetail
	if err := c.getJSON(ctx, fmt.Sprintf("/matches/%d", matchID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// HeroConstants returns hero id -> constant from /constants/heroes.
func (c *Client) HeroConstants(ctx context.Context) (map[int]HeroConstant, error) {
	var raw map[string]HeroConstant
	if err := c.getJSON(ctx, "/constants/heroes", nil, &raw); err != nil {
		return nil, err
	}
	heroes := make(map[int]HeroConstant, len(raw))
	for _, hero := range raw {
		heroes[hero.ID] = hero
	}
	return heroes, nil
}

// ItemConstants returns item id -> constant from /constants/items.
// Entries with id 0 are placeholder rows and are dropped.
func (c *Client) ItemConstants(ctx context.Context) (map[int]ItemConstant, error) {
	var raw map[string]ItemConstant
	if err := c.getJSON(ctx, "/constants/items", nil, &raw); err != nil {
		return nil, err
	}
	items := make(map[int]ItemConstant, len(raw))
	for _, item := range raw {
		if item.ID == 0 {
			continue
		}
		items[item.ID] = item
	}
	return items, nil
}

// ImageBytes fetches raw image bytes from an absolute URL through the
// same admission pipeline as JSON lookups: concurrent fetches for the
// same URL coalesce into one call, which passes the rate limiter and
// governor before hitting the network. Bytes are not kept in the
// response cache; the on-disk image cache owns persistence.
func (c *Client) ImageBytes(ctx context.Context, rawURL string) ([]byte, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}

	key := "img:" + rawURL
	call, owner := c.inflight.Join(key)
	if !owner {
		c.metrics.RecordDeduplicationHit(rawURL)
		return call.Wait(ctx)
	}

	body, err := c.fetch(ctx, rawURL, rawURL)
	c.inflight.Complete(key, body, err)
	return body, err
}

// getJSON runs one logical lookup through cache, dedup, admission and
// transport, then decodes into out. Decode failures are reported as
// parse errors, distinct from transport failures, and are not cached.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	if c.validationError != nil {
		return c.validationError
	}

	key := cacheKey(path, query)
	if body, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheHit(path)
		if c.debug && c.logger != nil {
			c.logger.Debug("cache hit", "key", key)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return parseError(path, err)
		}
		return nil
	}
	c.metrics.RecordCacheMiss(path)

	call, owner := c.inflight.Join(key)
	var body []byte
	var err error
	if owner {
		requestURL := c.baseURL + path
		if len(query) > 0 {
			requestURL += "?" + query.Encode()
		}
		body, err = c.fetch(ctx, path, requestURL)
		if err == nil {
			c.cache.Set(key, body)
			c.metrics.RecordCacheSize("responses", c.cache.Len())
		}
		c.inflight.Complete(key, body, err)
	} else {
		c.metrics.RecordDeduplicationHit(path)
		if c.debug && c.logger != nil {
			c.logger.Debug("coalesced onto in-flight call", "key", key)
		}
		body, err = call.Wait(ctx)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return parseError(path, err)
	}
	return nil
}

// fetch performs exactly one network call: rate limiter admission,
// governor slot, GET, classification, request log. No automatic retry.
func (c *Client) fetch(ctx context.Context, endpoint, requestURL string) ([]byte, error) {
	var requestID string
	if c.debug && c.logger != nil {
		requestID = c.requestIDGen()
		c.logger.Debug("starting request", "requestID", requestID, "url", requestURL)
	}

	if err := c.limiter.Admit(ctx); err != nil {
		return nil, err
	}
	c.metrics.RecordRateLimiterTokens("api", c.limiter.Tokens())

	if err := c.governor.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.governor.Release()

	c.metrics.RecordRequestStart(endpoint)
	defer c.metrics.RecordRequestEnd(endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &Error{Type: ErrorTypeNetwork, Message: "invalid request", Endpoint: endpoint, Cause: err, Timestamp: time.Now()}
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		apiErr := classifyTransport(endpoint, err, latency)
		apiErr.RequestID = requestID
		c.observe(endpoint, latency, apiErr)
		return nil, apiErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		apiErr := classifyStatus(endpoint, resp.StatusCode, latency)
		apiErr.RequestID = requestID
		c.observe(endpoint, latency, apiErr)
		return nil, apiErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		apiErr := classifyTransport(endpoint, err, latency)
		apiErr.RequestID = requestID
		c.observe(endpoint, latency, apiErr)
		return nil, apiErr
	}

	c.observe(endpoint, latency, nil)
	if c.debug && c.logger != nil {
		c.logger.Debug("request complete", "requestID", requestID, "endpoint", endpoint, "elapsed", latency)
	}
	return body, nil
}

// observe records one outcome to the metrics collector and request log.
func (c *Client) observe(endpoint string, latency time.Duration, err error) {
	code := outcomeCode(err)
	c.metrics.RecordRequest(endpoint, code, latency)
	var apiErr *Error
	if errors.As(err, &apiErr) {
		c.metrics.RecordError(apiErr.Type, endpoint)
	}
	c.requestLog.Record(RequestOutcome{
		Time:     time.Now(),
		Endpoint: endpoint,
		Latency:  latency,
		Code:     code,
	})
}
