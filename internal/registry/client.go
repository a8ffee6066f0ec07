package registry

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"gate-checkin-backend/config"
)

// maxPageBytes caps how much of a register page is parsed.
const maxPageBytes = 2 << 20

// defaultTimeout bounds each register request when none is configured.
const defaultTimeout = 15 * time.Second

// Client looks licence numbers up on the public register by replaying its
// HTML search form.
type Client struct {
	cfg       *config.RegistryConfig
	parser    PageParser
	transport http.RoundTripper
	timeout   time.Duration
	limiter   *rate.Limiter
	cache     *cache.Cache
	group     singleflight.Group
	observe   func(Outcome)
}

// Option customizes a Client.
type Option func(*Client)

// WithParser replaces the default HTMLParser.
func WithParser(p PageParser) Option {
	return func(c *Client) { c.parser = p }
}

// WithObserver registers a callback invoked once per completed lookup.
func WithObserver(fn func(Outcome)) Option {
	return func(c *Client) { c.observe = fn }
}

// NewClient creates a registry client from configuration.
func NewClient(cfg *config.RegistryConfig, opts ...Option) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Registry client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	limit := rate.Inf
	if cfg.RateLimitPerSec > 0 {
		limit = rate.Limit(cfg.RateLimitPerSec)
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		cfg:       cfg,
		parser:    NewHTMLParser(cfg.InputNames, cfg.HintTexts, cfg.Labels),
		transport: transport,
		timeout:   timeout,
		limiter:   rate.NewLimiter(limit, 1),
		cache:     cache.New(ttl, 2*ttl),
		observe:   func(Outcome) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup never returns an error: failures are reported in Result.Error so a
// registry outage cannot break a check-in. Concurrent lookups of the same
// licence share one request and clean answers are cached.
func (c *Client) Lookup(ctx context.Context, licence string) Result {
	licence = strings.TrimSpace(licence)
	if !c.cfg.Enabled || c.cfg.SearchURL == "" {
		return Result{Error: ErrDisabled.Error()}
	}
	if cached, ok := c.cache.Get(licence); ok {
		return cached.(Result)
	}

	// The shared flight must not die with whichever caller started it; the
	// per-request timeout still bounds it.
	flightCtx := context.WithoutCancel(ctx)
	v, _, _ := c.group.Do(licence, func() (any, error) {
		res := c.lookup(flightCtx, licence)
		if res.Error == "" {
			c.cache.SetDefault(licence, res)
		}
		return res, nil
	})
	return v.(Result)
}

func (c *Client) lookup(ctx context.Context, licence string) (res Result) {
	outcome := OutcomeError
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Registry lookup for %s panicked: %v", licence, r)
			res, outcome = Result{Error: fmt.Sprintf("registry lookup failed: %v", r)}, OutcomeError
		}
		c.observe(outcome)
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return Result{Error: err.Error()}
	}

	// A fresh jar per lookup keeps session cookies of concurrent searches apart.
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return Result{Error: err.Error()}
	}
	httpClient := &http.Client{Transport: c.transport, Timeout: c.timeout, Jar: jar}

	doc, page, err := c.fetch(ctx, httpClient, http.MethodGet, c.cfg.SearchURL, nil, "")
	if err != nil {
		return Result{Error: err.Error()}
	}
	form, err := c.parser.FindSearchForm(doc, page)
	if err != nil {
		return Result{Error: err.Error()}
	}

	values := form.Values(licence)
	target := *form.Action
	var body io.Reader
	if form.Method == http.MethodGet {
		target.RawQuery = values.Encode()
	} else {
		body = strings.NewReader(values.Encode())
	}
	doc, _, err = c.fetch(ctx, httpClient, form.Method, target.String(), body, page.String())
	if err != nil {
		return Result{Error: err.Error()}
	}

	outcome = c.parser.Classify(doc)
	switch outcome {
	case OutcomeFound:
		res = c.parser.Extract(doc)
		if res.LicenceNumber == "" {
			res.LicenceNumber = licence
		}
		return res
	case OutcomeNoResults:
		return Result{Found: false}
	case OutcomeCaptcha:
		return Result{Error: ErrCaptcha.Error()}
	case OutcomeValidation:
		return Result{Error: ErrValidation.Error()}
	default:
		return Result{Error: ErrUnrecognizedPage.Error()}
	}
}

// fetch performs one request and parses the response, returning the final
// URL after redirects for resolving relative form actions.
func (c *Client) fetch(ctx context.Context, client *http.Client, method, target string, body io.Reader, referer string) (*html.Node, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse register page: %w", err)
	}
	return doc, resp.Request.URL, nil
}
