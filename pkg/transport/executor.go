package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net/http"
	"strings"
	"time"
)

// TLS version constants
const (
	TLS12 = tls.VersionTLS12
	TLS13 = tls.VersionTLS13
)

// Recommended TLS 1.2 cipher suites
var RecommendedTLS12CipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
}

// ExecutorConfig contains the default executor's HTTP and TLS settings
type ExecutorConfig struct {
	MinTLSVersion   uint16
	MaxTLSVersion   uint16
	CipherSuites    []uint16
	Certificates    []tls.Certificate
	RootCAs         *x509.CertPool
	Timeout         time.Duration
	IdleConnTimeout time.Duration
}

// DefaultExecutorConfig returns a default executor configuration
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MinTLSVersion:   TLS12,
		MaxTLSVersion:   TLS13,
		CipherSuites:    RecommendedTLS12CipherSuites,
		Timeout:         30 * time.Second,
		IdleConnTimeout: 90 * time.Second,
	}
}

// HTTPExecutor is the default Executor, built on net/http. Connection
// pooling is delegated to the underlying http.Transport.
type HTTPExecutor struct {
	client *http.Client
}

// NewHTTPExecutor creates an executor from config, or from
// DefaultExecutorConfig when config is nil.
func NewHTTPExecutor(config *ExecutorConfig) *HTTPExecutor {
	if config == nil {
		config = DefaultExecutorConfig()
	}

	tlsConfig := &tls.Config{
		MinVersion:   config.MinTLSVersion,
		MaxVersion:   config.MaxTLSVersion,
		CipherSuites: config.CipherSuites,
		Certificates: config.Certificates,
		RootCAs:      config.RootCAs,
	}

	transport := &http.Transport{
		TLSClientConfig:     tlsConfig,
		IdleConnTimeout:     config.IdleConnTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}

	return &HTTPExecutor{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}
}

// Execute performs one exchange and buffers the full response body.
func (e *HTTPExecutor) Execute(ctx context.Context, req *Request) (*Response, error) {
	resp, httpResp, err := e.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &BodyReadError{Response: resp, Err: err}
	}
	resp.Body = body
	return resp, nil
}

// ExecuteStream performs one exchange and hands the response body back
// unread. The caller owns closing the returned reader.
func (e *HTTPExecutor) ExecuteStream(ctx context.Context, req *Request) (*Response, io.ReadCloser, error) {
	resp, httpResp, err := e.do(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return resp, httpResp.Body, nil
}

func (e *HTTPExecutor) do(ctx context.Context, req *Request) (*Response, *http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		return nil, nil, &TransportError{URL: req.URL, Err: err}
	}

	for name, values := range req.Header {
		if strings.EqualFold(name, "Host") && len(values) > 0 {
			httpReq.Host = values[0]
			continue
		}
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if req.ContentLength >= 0 {
		httpReq.ContentLength = req.ContentLength
	}

	client := e.client
	if !req.FollowRedirects {
		stopped := *e.client
		stopped.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		client = &stopped
	}

	start := time.Now()
	httpResp, err := client.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		return nil, nil, &TransportError{URL: req.URL, Err: err}
	}

	return &Response{
		StatusCode:    httpResp.StatusCode,
		Status:        httpResp.Status,
		Elapsed:       elapsed,
		RequestHeader: httpReq.Header,
		Header:        httpResp.Header,
	}, httpResp, nil
}
