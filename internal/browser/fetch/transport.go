// internal/browser/fetch/transport.go
package fetch

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// Connection pool limits, sized like a browser's per-host budget.
const (
	dialTimeout           = 15 * time.Second
	keepAliveInterval     = 30 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 30 * time.Second

	maxIdleConns        = 64
	maxIdleConnsPerHost = 6
	maxConnsPerHost     = 8
	idleConnTimeout     = 90 * time.Second
)

// newTransport builds the HTTP transport. Compression is negotiated by the
// decoding layer so br is accepted alongside gzip.
func newTransport() http.RoundTripper {
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: keepAliveInterval}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12, NextProtos: []string{"h2", "http/1.1"}},
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdleConnsPerHost,
		MaxConnsPerHost:       maxConnsPerHost,
		IdleConnTimeout:       idleConnTimeout,
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
	}
	return &decompressingTransport{next: base}
}
