package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/metrics"
	"github.com/annko/keiba-bot-go/internal/util"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

// SessionCookie is set by netkeiba once a premium login succeeds.
const SessionCookie = "nkauth"

type Config struct {
	UserAgent         string
	Timeout           time.Duration
	RetryCount        int
	RetryWait         time.Duration
	RetryMaxWait      time.Duration
	RequestsPerSecond float64
	Burst             int
	LoginURL          string
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = constants.FetchConfig.UserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = constants.FetchConfig.Timeout
	}
	if c.RetryWait <= 0 {
		c.RetryWait = constants.FetchConfig.RetryWait
	}
	if c.RetryMaxWait <= 0 {
		c.RetryMaxWait = constants.FetchConfig.RetryMaxWait
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = constants.FetchConfig.RequestsPerSec
	}
	if c.Burst <= 0 {
		c.Burst = constants.FetchConfig.Burst
	}
	if c.LoginURL == "" {
		c.LoginURL = constants.URLs.Login
	}
	return c
}

// Fetcher performs polite GETs against the racing sites. All requests share one
// rate limiter and one cookie jar; circuit breakers are kept per host.
type Fetcher struct {
	cfg      Config
	client   *resty.Client
	jar      http.CookieJar
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	logger   *zap.Logger
	loggedIn atomic.Bool

	mu       sync.Mutex
	breakers map[string]*util.CircuitBreaker
}

func New(cfg Config, m *metrics.Metrics, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	f := &Fetcher{
		cfg:     cfg,
		jar:     jar,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		metrics:  m,
		logger:   logger,
		breakers: make(map[string]*util.CircuitBreaker),
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept-Language", "ja,en;q=0.8").
		SetCookieJar(jar)

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return f.limiter.Wait(req.Context())
	})
	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
	})

	f.client = client
	return f, nil
}

// Get returns the raw body of a 2xx response.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	host := hostOf(rawURL)
	breaker := f.breakerFor(host)
	if !breaker.CanExecute() {
		return nil, errors.NewServiceError(host+" temporarily disabled", "fetch", "get", nil)
	}

	start := time.Now()
	resp, err := f.client.R().SetContext(ctx).Get(rawURL)
	f.observe(host, start)

	if err != nil {
		if ctx.Err() != nil {
			f.count(host, "canceled")
			return nil, ctx.Err()
		}
		breaker.RecordFailure(0)
		f.count(host, "error")
		f.logger.Warn("Fetch failed", zap.String("url", rawURL), zap.Error(err))

		apiErr := errors.NewAPIError("failed to fetch page", http.StatusBadGateway, map[string]any{"url": rawURL})
		apiErr.Cause = err
		return nil, apiErr
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
			breaker.RecordFailure(0)
		}
		f.count(host, fmt.Sprintf("http_%d", status))
		f.logger.Warn("Unexpected status",
			zap.String("url", rawURL),
			zap.Int("status", status),
		)
		return nil, errors.NewAPIError(
			fmt.Sprintf("unexpected status %d", status),
			status,
			map[string]any{"url": rawURL},
		)
	}

	breaker.RecordSuccess()
	f.count(host, "ok")
	f.logger.Debug("Fetched page",
		zap.String("url", rawURL),
		zap.Int("bytes", len(resp.Body())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp.Body(), nil
}

// Document fetches rawURL, decodes it from charset and parses the markup.
func (f *Fetcher) Document(ctx context.Context, rawURL, charset string) (*goquery.Document, error) {
	body, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	decoded, err := Decode(body, charset)
	if err != nil {
		return nil, errors.NewScrapeError("failed to decode page", rawURL, "", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, errors.NewScrapeError("failed to parse page", rawURL, "", err)
	}
	return doc, nil
}

// Login posts netkeiba premium credentials. The session cookie stays in the jar and
// is sent with every later request.
func (f *Fetcher) Login(ctx context.Context, userID, password string) error {
	resp, err := f.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"login_id": userID,
			"pswd":     password,
		}).
		Post(f.cfg.LoginURL)
	if err != nil {
		return errors.NewServiceError("netkeiba login failed", "fetch", "login", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return errors.NewAPIError("netkeiba login rejected", resp.StatusCode(), nil)
	}

	loginURL, err := url.Parse(f.cfg.LoginURL)
	if err != nil {
		return fmt.Errorf("invalid login url: %w", err)
	}
	for _, c := range f.jar.Cookies(loginURL) {
		if c.Name == SessionCookie && c.Value != "" {
			f.loggedIn.Store(true)
			f.logger.Info("Logged in to netkeiba")
			return nil
		}
	}
	return errors.NewAPIError("netkeiba login did not return a session", http.StatusUnauthorized, nil)
}

func (f *Fetcher) LoggedIn() bool {
	return f.loggedIn.Load()
}

func (f *Fetcher) breakerFor(host string) *util.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.breakers[host]
	if !ok {
		b = util.NewCircuitBreaker(
			"fetch:"+host,
			constants.CircuitBreakerConfig.FailureThreshold,
			constants.CircuitBreakerConfig.ResetTimeout,
			constants.CircuitBreakerConfig.HealthCheckInterval,
			nil,
			f.logger,
		)
		f.breakers[host] = b
	}
	return b
}

// BreakerStatuses lists one breaker per host fetched so far, sorted by name.
func (f *Fetcher) BreakerStatuses() []util.CircuitBreakerStatus {
	f.mu.Lock()
	statuses := make([]util.CircuitBreakerStatus, 0, len(f.breakers))
	for _, b := range f.breakers {
		statuses = append(statuses, b.GetStatus())
	}
	f.mu.Unlock()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

func (f *Fetcher) observe(host string, start time.Time) {
	if f.metrics == nil {
		return
	}
	f.metrics.FetchDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
}

func (f *Fetcher) count(host, outcome string) {
	if f.metrics == nil {
		return
	}
	f.metrics.FetchRequests.WithLabelValues(host, outcome).Inc()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}
