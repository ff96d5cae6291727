package notesdk

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/credstore"
	"github.com/aussiebroadwan/moondance/pkg/httpx"
	"github.com/aussiebroadwan/moondance/pkg/slogx"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "moondance-go"

// Config configures a Client.
type Config struct {
	// BaseURL is the API root including the version prefix,
	// e.g. "https://moondance.example/api/v1".
	BaseURL string

	// Backend persists the session. Defaults to an in-memory backend.
	Backend credstore.Backend

	// Transport sends requests on the network. Defaults to
	// http.DefaultTransport.
	Transport http.RoundTripper

	// Timeout bounds each call, including any renewal and replay it
	// triggers. Defaults to 10 seconds.
	Timeout time.Duration

	UserAgent string

	// RateLimit throttles API calls, AuthRateLimit throttles login,
	// registration and refresh. Zero values disable limiting.
	RateLimit     httpx.RateLimitConfig
	AuthRateLimit httpx.RateLimitConfig

	Logger   *slog.Logger
	Observer Observer

	// OnLoginRequired runs after a failed renewal ended the session.
	OnLoginRequired func(reason error)

	// IsAuthFailure overrides the 401 check of the response interceptor.
	IsAuthFailure func(resp *http.Response) bool
}

// Client is the single entry point to the Moondance API. Every call goes
// through one http.Client whose transport attaches credentials and renews
// them on an authorization failure.
type Client struct {
	api     *SDKClient
	auth    *SDKClient
	store   *credstore.Store
	coord   *RefreshCoordinator
	session *Session
	logger  *slog.Logger
}

// New assembles a Client. Call Session().Hydrate before the first request
// to restore a persisted session.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("notesdk: base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "notesdk")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	store := credstore.New(cfg.Backend, logger)

	// Credential exchanges bypass the interceptor.
	auth := &SDKClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
			Transport: httpx.Chain(cfg.Transport,
				httpx.UserAgent(ua),
				httpx.RateLimit(cfg.AuthRateLimit, httpx.HostKeyExtractor),
				slogx.Transport(logger),
			),
		},
	}

	coord := NewRefreshCoordinator(store, auth, logger, observer)
	session := NewSession(store, auth, coord, logger, cfg.OnLoginRequired)

	api := &SDKClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
			Transport: &Transport{
				Base: httpx.Chain(cfg.Transport,
					httpx.UserAgent(ua),
					httpx.RateLimit(cfg.RateLimit, httpx.HostKeyExtractor),
					slogx.Transport(logger),
				),
				Decorator:     Decorator{Tokens: store},
				Coordinator:   coord,
				Logger:        logger,
				Observer:      observer,
				IsAuthFailure: cfg.IsAuthFailure,
			},
		},
	}

	return &Client{
		api:     api,
		auth:    auth,
		store:   store,
		coord:   coord,
		session: session,
		logger:  logger,
	}, nil
}

// Session returns the session of this client.
func (c *Client) Session() *Session { return c.session }

// Coordinator returns the refresh coordinator, mostly for inspection.
func (c *Client) Coordinator() *RefreshCoordinator { return c.coord }

// HTTPClient returns the authenticated http.Client, for calls the typed
// wrappers do not cover (file downloads, for example).
func (c *Client) HTTPClient() *http.Client { return c.api.HTTPClient }

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.api.BaseURL }

// Do sends an authenticated JSON call and decodes the envelope's data into
// out. in and out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	return c.api.call(ctx, method, path, query, in, out)
}

// Close releases the session backend.
func (c *Client) Close() error {
	return c.store.Close()
}

func getJSON[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodGet, path, query, nil, &out)
	return out, err
}
