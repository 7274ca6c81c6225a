// Package pubchem queries the PubChem PUG REST API for compound properties,
// throttling itself with an exponential backoff whenever PubChem answers
// 503 (server busy).
package pubchem

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/chembl/drugname2inchi/backoff"
	"github.com/chembl/drugname2inchi/cache"
	"github.com/chembl/drugname2inchi/metrics"
)

// BaseURL is the compound domain of PUG REST
const BaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug/compound"

// Properties understood by the TXT output of PUG REST
const (
	PropertyInChIKey        = "InChIKey"
	PropertyIsomericSMILES  = "IsomericSMILES"
	PropertyCanonicalSMILES = "CanonicalSMILES"
)

const (
	defaultMaxAttempts      = 10
	defaultBreakerThreshold = 20
	defaultBreakerTimeout   = 30 * time.Second
)

var (
	// ErrServiceUnavailable is returned once every attempt got a 503
	ErrServiceUnavailable = errors.New("pubchem: service unavailable")
	// ErrCircuitOpen is returned while the breaker rejects requests
	ErrCircuitOpen = errors.New("pubchem: circuit breaker open")

	errBusy = errors.New("pubchem: server busy")
)

// StatusError is an answer PubChem gave with a status other than 200 or 404
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pubchem: HTTP %d for %s: %s", e.StatusCode, e.URL, strings.TrimSpace(e.Body))
}

// Response is the raw answer of a query
type Response struct {
	StatusCode int
	Body       []byte
	Cached     bool
}

// Lines parses the body as newline delimited text
func (r *Response) Lines() []string {
	return ParseLines(r.Body)
}

// Client is a PubChem REST client. Each Client owns its backoff, so callers
// that need independent rate limit domains (one per worker) create one Client each.
// A Client is not safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	backoff     *backoff.Backoff
	maxAttempts int
	breaker     *gobreaker.CircuitBreaker
	cache       cache.Cache
	metrics     *metrics.Metrics
	logger      *zap.SugaredLogger

	breakerThreshold uint32
	breakerTimeout   time.Duration
}

// Option configures a Client
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithBackoff(b *backoff.Backoff) Option {
	return func(c *Client) {
		if b != nil {
			c.backoff = b
		}
	}
}

// WithMaxAttempts bounds the number of attempts made while PubChem answers 503.
// n <= 0 retries forever.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open
func WithBreaker(threshold uint32, timeout time.Duration) Option {
	return func(c *Client) {
		if threshold > 0 {
			c.breakerThreshold = threshold
		}
		if timeout > 0 {
			c.breakerTimeout = timeout
		}
	}
}

func WithCache(ch cache.Cache) Option {
	return func(c *Client) {
		c.cache = ch
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client with its own backoff
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxAttempts:      defaultMaxAttempts,
		logger:           zap.NewNop().Sugar(),
		breakerThreshold: defaultBreakerThreshold,
		breakerTimeout:   defaultBreakerTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backoff == nil {
		c.backoff = backoff.New(backoff.DefaultMin, backoff.DefaultMax)
	}
	c.breaker = c.newBreaker()
	return c
}

func (c *Client) newBreaker() *gobreaker.CircuitBreaker {
	logger := c.logger
	threshold := c.breakerThreshold
	unbounded := c.maxAttempts <= 0
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pubchem",
		MaxRequests: 1,
		Timeout:     c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// without an attempt bound a 503 only means "wait longer", it must not trip the breaker
		IsSuccessful: func(err error) bool {
			return err == nil || (unbounded && errors.Is(err, errBusy))
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warnf("Circuit Breaker [%s] state changed: %s -> %s", name, from.String(), to.String())
		},
	})
}

// Backoff exposes the client's backoff state
func (c *Client) Backoff() *backoff.Backoff {
	return c.backoff
}

// Query GETs rawURL, waiting the backoff delay before every attempt. A 503
// doubles the delay and retries, up to the configured number of attempts.
// Any other status halves the delay and is returned as is: error bodies are
// not inspected here.
func (c *Client) Query(ctx context.Context, rawURL string) (*Response, error) {
	logger := c.logger

	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, rawURL)
		if err != nil {
			logger.Warnw("Cache lookup failed", "url", rawURL, "error", err)
		} else if ok {
			logger.Debugw("Cache hit", "url", rawURL)
			return &Response{StatusCode: http.StatusOK, Body: body, Cached: true}, nil
		}
	}

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff.Value()):
		}

		logger.Debugf("GET %s attempt %d", rawURL, attempt)
		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.do(ctx, rawURL)
		})

		if errors.Is(err, errBusy) {
			c.backoff.Double()
			c.metrics.ObserveRetry(c.backoff.Value().Seconds())
			logger.Warnf("PubChem busy (503), backoff now %s", c.backoff.Value())
			if c.maxAttempts > 0 && attempt >= c.maxAttempts {
				return nil, errors.Wrapf(ErrServiceUnavailable, "%s after %d attempts", rawURL, attempt)
			}
			continue
		}
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, errors.Wrapf(ErrCircuitOpen, "%s: %s", rawURL, err)
		}
		if err != nil {
			return nil, err
		}

		c.backoff.Halve()
		c.metrics.ObserveBackoff(c.backoff.Value().Seconds())

		resp := res.(*Response)
		if resp.StatusCode == http.StatusOK && c.cache != nil {
			if err := c.cache.Set(ctx, rawURL, resp.Body); err != nil {
				logger.Warnw("Cache store failed", "url", rawURL, "error", err)
			}
		}
		return resp, nil
	}
}

func (c *Client) do(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pubchem request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(0)
		return nil, errors.Wrapf(err, "GET %s", rawURL)
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(resp.StatusCode)

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, errBusy
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading body of %s", rawURL)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// QueryByName asks for a property of the compounds matching a name
func (c *Client) QueryByName(ctx context.Context, name, property string) (*Response, error) {
	return c.Query(ctx, c.nameURL(name, property))
}

// QueryBySMILES asks for a property of the compound described by a SMILES.
// The SMILES goes in the query string since it may hold '/' and '#'.
func (c *Client) QueryBySMILES(ctx context.Context, smiles, property string) (*Response, error) {
	return c.Query(ctx, c.smilesURL(smiles, property))
}

func (c *Client) nameURL(name, property string) string {
	return fmt.Sprintf("%s/name/%s/property/%s/TXT", c.baseURL, url.PathEscape(name), property)
}

func (c *Client) smilesURL(smiles, property string) string {
	return fmt.Sprintf("%s/smiles/property/%s/TXT?smiles=%s", c.baseURL, property, url.QueryEscape(smiles))
}

// NameToInChIKeys returns the InChIKeys PubChem holds for a name
func (c *Client) NameToInChIKeys(ctx context.Context, name string) ([]string, error) {
	return c.lines(ctx, c.nameURL(name, PropertyInChIKey))
}

// NameToSMILES returns the isomeric or canonical SMILES of every compound matching name
func (c *Client) NameToSMILES(ctx context.Context, name string, isomeric bool) ([]string, error) {
	property := PropertyCanonicalSMILES
	if isomeric {
		property = PropertyIsomericSMILES
	}
	return c.lines(ctx, c.nameURL(name, property))
}

// SMILESToInChIKey returns the InChIKey of a structure, empty if PubChem has none
func (c *Client) SMILESToInChIKey(ctx context.Context, smiles string) (string, error) {
	keys, err := c.lines(ctx, c.smilesURL(smiles, PropertyInChIKey))
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", nil
	}
	return keys[0], nil
}

// lines maps 200 to the parsed body, 404 (no such compound) to an empty set
// and any other status to a *StatusError
func (c *Client) lines(ctx context.Context, rawURL string) ([]string, error) {
	resp, err := c.Query(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Lines(), nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
}

// ParseLines splits a TXT body into its distinct lines, dropping the empty
// element left by the trailing newline
func ParseLines(body []byte) []string {
	parts := strings.Split(string(body), "\n")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}

	seen := make(map[string]struct{}, len(parts))
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSuffix(p, "\r")
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		lines = append(lines, p)
	}
	return lines
}
