package http

import "time"

// HttpOpts configures the underlying HTTP client of a Connector.
type HttpOpts func(*httpConfig)

// WithConnTimeout bounds how long dialing a connection may take.
func WithConnTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.connTimeout = timeout
	}
}

// WithRequestTimeout bounds a whole request, body read included.
func WithRequestTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.requestTimeout = timeout
	}
}

// WithKeepAlive sets the TCP keep-alive interval.
func WithKeepAlive(interval time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.keepAlive = interval
	}
}

// WithMaxIdleConnsPerHost caps pooled connections per backend host.
func WithMaxIdleConnsPerHost(n int) HttpOpts {
	return func(c *httpConfig) {
		c.maxIdleConnsPerHost = n
	}
}

// WithInsecureSkipVerify disables TLS certificate checks. Local
// development against self-signed endpoints only.
func WithInsecureSkipVerify() HttpOpts {
	return func(c *httpConfig) {
		c.insecureSkipVerify = true
	}
}

// WithTransport appends a RoundTripper decorator to the chain.
func WithTransport(decorate TransportFunc) HttpOpts {
	return func(c *httpConfig) {
		c.transports = append(c.transports, decorate)
	}
}
