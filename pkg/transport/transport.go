// Package transport implements the HTTP transport layer for SOAP clients.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotStreamable is delivered on a RequestStream reader when the
// configured executor cannot hand the response body back as a stream.
var ErrNotStreamable = errors.New("transport: executor does not support streaming")

// Request is a transport-agnostic descriptor of one HTTP exchange.
// It is immutable once built; ownership passes to the Executor.
type Request struct {
	Method string
	URL    string
	Header http.Header

	// Body is nil for zero-body requests. ContentLength is -1 when the
	// body length is unknown (passthrough streams).
	Body          io.Reader
	ContentLength int64

	FollowRedirects bool
}

// Response describes a completed HTTP exchange. Ownership passes to the
// caller; it is not mutated afterward.
type Response struct {
	StatusCode int
	Status     string
	Elapsed    time.Duration

	// RequestHeader is the header set actually sent on the wire.
	RequestHeader http.Header
	Header        http.Header

	// Body is fully buffered on the Execute path and nil on the
	// streaming path.
	Body []byte
}

// Executor performs one HTTP exchange. The default implementation is
// HTTPExecutor; replacements (proxies, test doubles) must return either
// a Response or an error, never both.
//
// A non-2xx status is not an error: it is surfaced as a normal Response
// and classification is left to the caller.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// StreamExecutor is implemented by executors able to hand the response
// body back as a stream instead of buffering it. Response.Body is nil
// on this path; the returned ReadCloser must be closed by the caller.
type StreamExecutor interface {
	ExecuteStream(ctx context.Context, req *Request) (*Response, io.ReadCloser, error)
}

// TransportError reports a failure to complete an exchange at all:
// DNS, connection, TLS or timeout trouble. It is never retried here.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HandshakeError reports a failed NTLM handshake. The real request is
// never sent when the handshake fails.
type HandshakeError struct {
	Err error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("transport: ntlm handshake: %v", e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// BodyReadError reports a failure while materializing the response body
// after a successful exchange. Response carries the exchange metadata
// that was available when the read failed.
type BodyReadError struct {
	Response *Response
	Err      error
}

func (e *BodyReadError) Error() string {
	return fmt.Sprintf("transport: reading response body: %v", e.Err)
}

func (e *BodyReadError) Unwrap() error { return e.Err }
