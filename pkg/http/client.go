// Package http wraps the standard HTTP client with the transport chain the
// bot uses for outbound API calls: JSON plumbing, auth injection and
// request logging.
package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// TransportFunc decorates a RoundTripper. Decorators registered with
// WithTransport are applied in order, so the last one sees the request
// first.
type TransportFunc func(http.RoundTripper) http.RoundTripper

type httpConfig struct {
	connTimeout         time.Duration
	requestTimeout      time.Duration
	keepAlive           time.Duration
	maxIdleConnsPerHost int
	insecureSkipVerify  bool
	transports          []TransportFunc
}

func newClient(opts ...HttpOpts) *http.Client {
	cfg := &httpConfig{
		connTimeout:         30 * time.Second,
		requestTimeout:      30 * time.Second,
		keepAlive:           90 * time.Second,
		maxIdleConnsPerHost: 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	dialer := &net.Dialer{
		Timeout:   cfg.connTimeout,
		KeepAlive: cfg.keepAlive,
	}

	var transport http.RoundTripper = &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: cfg.maxIdleConnsPerHost,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     tlsConfig(cfg),
	}
	for _, decorate := range cfg.transports {
		transport = decorate(transport)
	}

	return &http.Client{
		Timeout:   cfg.requestTimeout,
		Transport: transport,
	}
}

func tlsConfig(cfg *httpConfig) *tls.Config {
	if !cfg.insecureSkipVerify {
		return nil
	}
	return &tls.Config{InsecureSkipVerify: true}
}
