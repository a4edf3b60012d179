package funnerlife

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xhttp"
)

// maxResponseBytes bounds how much of a provider response is kept.
const maxResponseBytes = 1 << 20

// Client calls the top-up provider API. Every request authenticates with the
// api_key field in its JSON body.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(baseURL string, apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{
		logger:  slog.Default(),
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
		apiKey:     apiKey,
		httpClient: xhttp.NewHTTPClient(xhttp.WithTimeout(cfg.timeout)),
		logger:     cfg.logger,
	}
}

type clientConfig struct {
	logger  *slog.Logger
	timeout time.Duration
}

type Option func(*clientConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) { cfg.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

// post sends body as JSON and returns the raw status and response body. A
// non-2xx status is not an error here.
func (c *Client) post(ctx context.Context, path string, body any) (int, []byte, error) {
	payload, err := go_json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	xhttp.SetRequestHeadersJSON(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
