package llm

import (
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Config tunes the shared upstream client used for the reactivity service,
// the summarization service and the Gemini REST API.
type Config struct {
	// DefaultTimeout bounds calls that set no timeout (default: 30s).
	// Summaries override it; a loading model can take minutes.
	DefaultTimeout time.Duration

	// UserAgent is sent on every call (default: mixsafe-gateway).
	UserAgent string

	// MaxConnsPerHost caps parallel calls into one upstream (default: 16).
	// A single local model server is easily overloaded by precache runs.
	MaxConnsPerHost int

	// HTTPClient replaces the pooled default, mainly for tests.
	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "mixsafe-gateway"
	}
	if c.MaxConnsPerHost <= 0 {
		c.MaxConnsPerHost = 16
	}
	return c
}

// Client performs JSON calls against remote services and maps every
// failure onto a chem.Kind.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// no client-level timeout: each Call carries its own deadline
		httpClient = &http.Client{Transport: newTransport(cfg)}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Named("upstream"),
	}
}

// newTransport leaves ResponseHeaderTimeout unset; the summarization
// service sends no headers until generation finishes.
func newTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// Close drops idle upstream connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
