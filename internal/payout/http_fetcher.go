package payout

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"github.com/yourusername/keiba-analytics/internal/metrics"
	"github.com/yourusername/keiba-analytics/internal/models"
)

// backoffSchedule paces retries after throttling responses.
var backoffSchedule = []time.Duration{5 * time.Second, 10 * time.Second, 30 * time.Second}

// HTTPConfig holds configuration for the payout HTTP fetcher.
type HTTPConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RequestDelay float64 // minimum seconds between requests
	UserAgent    string
}

// DefaultHTTPConfig returns recommended defaults
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		BaseURL:      "https://db.netkeiba.com",
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RequestDelay: 1.0,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// NewRateLimiter builds the pacing clock for a fetcher. One limiter must be
// shared by every fetcher in the process so pacing spans all of them.
func NewRateLimiter(requestDelay float64) *rate.Limiter {
	if requestDelay <= 0 {
		requestDelay = 1.0
	}
	return rate.NewLimiter(rate.Limit(1.0/requestDelay), 1)
}

// HTTPFetcher fetches and parses payout pages with retry and pacing.
type HTTPFetcher struct {
	client  *retryablehttp.Client
	limiter *rate.Limiter
	config  HTTPConfig
	logger  *logrus.Logger
}

// NewHTTPFetcher creates a fetcher. The limiter is taken, not created, so
// callers can share one pacing clock across fetchers.
func NewHTTPFetcher(cfg HTTPConfig, limiter *rate.Limiter, logger *logrus.Logger) *HTTPFetcher {
	if logger == nil {
		logger = logrus.New()
	}
	if limiter == nil {
		limiter = NewRateLimiter(cfg.RequestDelay)
	}

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = cfg.Timeout
	client.RetryMax = cfg.MaxRetries
	client.CheckRetry = throttleRetryPolicy()
	client.Backoff = scheduleBackoff()
	client.Logger = log.New(io.Discard, "", 0)
	client.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		if attempt > 0 {
			metrics.PayoutRetriesTotal.Inc()
		}
	}

	return &HTTPFetcher{
		client:  client,
		limiter: limiter,
		config:  cfg,
		logger:  logger,
	}
}

// FetchBundle retrieves and parses the full payout block of one race.
func (f *HTTPFetcher) FetchBundle(ctx context.Context, raceID string) (*Bundle, error) {
	if err := models.ValidateRaceID(raceID); err != nil {
		return nil, err
	}

	body, err := f.fetchPage(ctx, fmt.Sprintf("%s/race/%s", f.config.BaseURL, raceID))
	if err != nil {
		metrics.PayoutFetchesTotal.WithLabelValues("network_error").Inc()
		return nil, fmt.Errorf("%w: %v", models.ErrRetryExhausted, err)
	}

	bundle, err := parsePayoutPage(body)
	if err != nil {
		if err == models.ErrNotYetSettled {
			metrics.PayoutFetchesTotal.WithLabelValues("not_yet_settled").Inc()
		} else {
			metrics.PayoutFetchesTotal.WithLabelValues("parse_error").Inc()
		}
		return nil, err
	}

	metrics.PayoutFetchesTotal.WithLabelValues("ok").Inc()
	return bundle, nil
}

// FetchPlacePayouts implements Fetcher.
func (f *HTTPFetcher) FetchPlacePayouts(ctx context.Context, raceID string) ([]PlacePayout, error) {
	bundle, err := f.FetchBundle(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if len(bundle.Place) == 0 {
		return nil, models.ErrPayoutUnavailable
	}
	return bundle.Place, nil
}

// FetchWinPayout implements Fetcher.
func (f *HTTPFetcher) FetchWinPayout(ctx context.Context, raceID string) (*WinPayout, error) {
	bundle, err := f.FetchBundle(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if bundle.Win == nil {
		return nil, models.ErrPayoutUnavailable
	}
	return bundle.Win, nil
}

// FetchQuinellaPayout implements Fetcher.
func (f *HTTPFetcher) FetchQuinellaPayout(ctx context.Context, raceID string) (*QuinellaPayout, error) {
	bundle, err := f.FetchBundle(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if bundle.Quinella == nil {
		return nil, models.ErrPayoutUnavailable
	}
	return bundle.Quinella, nil
}

// FetchTrioPayout implements Fetcher.
func (f *HTTPFetcher) FetchTrioPayout(ctx context.Context, raceID string) (*TrioPayout, error) {
	bundle, err := f.FetchBundle(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if bundle.Trio == nil {
		return nil, models.ErrPayoutUnavailable
	}
	return bundle.Trio, nil
}

// fetchPage performs one paced, retried GET and decodes the EUC-JP body.
func (f *HTTPFetcher) fetchPage(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	start := time.Now()
	defer func() {
		metrics.PayoutFetchLatency.Observe(time.Since(start).Seconds())
	}()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// The race database serves EUC-JP.
	decoded, err := io.ReadAll(transform.NewReader(resp.Body, japanese.EUCJP.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	return string(decoded), nil
}

// throttleRetryPolicy retries network errors and throttling responses
// (403/429/503); other client errors fail immediately.
func throttleRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, err
		}
		switch resp.StatusCode {
		case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return true, nil
		}
		return false, nil
	}
}

// scheduleBackoff walks the fixed 5s/10s/30s schedule.
func scheduleBackoff() retryablehttp.Backoff {
	return func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		if attemptNum < len(backoffSchedule) {
			return backoffSchedule[attemptNum]
		}
		return backoffSchedule[len(backoffSchedule)-1]
	}
}
