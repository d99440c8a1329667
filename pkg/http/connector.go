package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Connector is a JSON-over-HTTP client bound to one backend base URL.
type Connector struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// ConnectorConfig names the backend and the logger requests are traced to.
type ConnectorConfig struct {
	BaseURL string
	Logger  *zap.Logger
}

// NewConnector builds a connector; options tune the underlying client.
func NewConnector(config *ConnectorConfig, options ...HttpOpts) *Connector {
	return &Connector{
		baseURL:    config.BaseURL,
		httpClient: newClient(options...),
		logger:     config.Logger,
	}
}

// RequestOpt adjusts a single request.
type RequestOpt func(*requestConfig)

type requestConfig struct {
	headers map[string]string
}

// WithHeader sets one header on the request.
func WithHeader(key, value string) RequestOpt {
	return func(c *requestConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

// DoRequest performs one JSON request against baseURL+endpoint. Non-2xx
// answers come back as *HTTPError, transport failures as *NetworkError;
// respBody may be nil when the caller does not care about the answer.
func (c *Connector) DoRequest(ctx context.Context, method, endpoint string, reqBody, respBody any, opts ...RequestOpt) error {
	cfg := &requestConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	req, err := c.buildRequest(ctx, method, c.baseURL+endpoint, reqBody, cfg)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(raw)}
	}

	if respBody == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Connector) buildRequest(ctx context.Context, method, url string, reqBody any, cfg *requestConfig) (*http.Request, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
		// The logging transport cannot re-read a consumed body, so it
		// gets the payload through the context.
		ctx = context.WithValue(ctx, payloadContextKey{}, encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range cfg.headers {
		req.Header.Set(key, value)
	}
	return req, nil
}
