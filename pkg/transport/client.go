package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirosfoundation/go-soap-http/pkg/envelope"
	"github.com/sirosfoundation/go-soap-http/pkg/mime"
	"github.com/sirosfoundation/go-soap-http/pkg/ntlm"
)

// Client builds SOAP HTTP requests and runs them through an Executor.
// A Client is safe for concurrent use; in-flight requests share the
// executor but own their descriptors exclusively.
type Client struct {
	config   *Config
	executor Executor
	logger   *slog.Logger
}

// ClientOption customizes a Client at construction time.
type ClientOption func(c *Client)

// WithExecutor replaces the default HTTP executor. The replacement must
// honor the Executor contract, including non-2xx not being an error.
func WithExecutor(e Executor) ClientOption {
	return func(c *Client) {
		c.executor = e
	}
}

// WithLogger attaches a structured logger; slog.Default is used
// otherwise.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client from config, or from DefaultConfig when
// config is nil.
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.executor == nil {
		execConfig, err := config.executorConfig()
		if err != nil {
			return nil, err
		}
		c.executor = NewHTTPExecutor(execConfig)
	}
	return c, nil
}

// RequestOptions carries the per-request knobs recognized by Request
// and RequestStream. A nil *RequestOptions is valid.
type RequestOptions struct {
	// Headers are merged over the composed base headers, overwriting on
	// case-insensitive name match.
	Headers http.Header
	// Attachments selects the MTOM encoding for string payloads.
	Attachments []mime.Attachment
	// ForceMTOM selects the MTOM encoding even without attachments.
	ForceMTOM bool
}

// Request performs one logical SOAP exchange: build the request,
// negotiate NTLM when configured, execute, and normalize the textual
// response body. The payload is a string (encoded per options), an
// io.Reader (passed through untouched), or nil for a GET.
//
// Exactly one of the return values is meaningful. Errors are
// *TransportError, *HandshakeError or *BodyReadError; a non-2xx status
// is returned as a normal Response.
func (c *Client) Request(ctx context.Context, rawurl string, payload any, opts *RequestOptions) (*Response, error) {
	req, err := c.buildRequest(rawurl, payload, opts)
	if err != nil {
		return nil, err
	}

	if err := c.negotiate(ctx, req); err != nil {
		return nil, err
	}

	c.logger.Debug("executing request", "method", req.Method, "url", req.URL)
	resp, err := c.executor.Execute(ctx, req)
	if err != nil {
		c.logger.Debug("exchange failed", "url", req.URL, "error", err)
		return nil, err
	}
	c.logger.Debug("exchange completed", "url", req.URL, "status", resp.StatusCode, "elapsed", resp.Elapsed)

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "multipart/") {
		resp.Body = []byte(envelope.Normalize(string(resp.Body)))
	}
	return resp, nil
}

// RequestStream performs one logical exchange but relays the response
// body through the returned reader instead of buffering it. The reader
// is handed back before the exchange resolves; build, handshake and
// transport failures surface as the reader's error. An executor without
// streaming support yields ErrNotStreamable.
func (c *Client) RequestStream(ctx context.Context, rawurl string, payload any, opts *RequestOptions) io.ReadCloser {
	pr, pw := io.Pipe()

	go func() {
		req, err := c.buildRequest(rawurl, payload, opts)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := c.negotiate(ctx, req); err != nil {
			pw.CloseWithError(err)
			return
		}

		streamer, ok := c.executor.(StreamExecutor)
		if !ok {
			pw.CloseWithError(ErrNotStreamable)
			return
		}

		c.logger.Debug("executing streaming request", "method", req.Method, "url", req.URL)
		resp, body, err := streamer.ExecuteStream(ctx, req)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		defer body.Close()

		if _, err := io.Copy(pw, body); err != nil {
			pw.CloseWithError(&BodyReadError{Response: resp, Err: err})
			return
		}
		pw.Close()
	}()

	return pr
}

// buildRequest composes base headers, selects the body encoding, and
// merges caller overrides into a Request descriptor.
func (c *Client) buildRequest(rawurl string, payload any, opts *RequestOptions) (*Request, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("transport: parsing url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("transport: url %q has no scheme or host", rawurl)
	}

	header := BaseHeader(u, c.config.PersistentConnection)
	if c.config.UserAgent != "" {
		header.Set("User-Agent", c.config.UserAgent)
	}

	text, isString := payload.(string)
	mtom := isString && mime.UsesMTOM(opts.Attachments, opts.ForceMTOM)

	// Plain bodies are sized before header overrides so callers can
	// still replace the default content type; MTOM rewrites the final
	// Content-Type afterward to keep its action parameter.
	if isString && !mtom {
		mime.EncodePlain(text, header)
	}
	mergeHeader(header, opts.Headers)

	var body io.Reader
	contentLength := int64(-1)
	switch {
	case payload == nil:
	case mtom:
		buf, err := mime.EncodeMTOM(text, opts.Attachments, header)
		if err != nil {
			return nil, err
		}
		contentLength = int64(buf.Len())
		body = buf
	case isString:
		contentLength = int64(len(text))
		body = strings.NewReader(text)
	default:
		stream, ok := payload.(io.Reader)
		if !ok {
			return nil, fmt.Errorf("transport: unsupported payload type %T", payload)
		}
		body = stream
	}

	method := http.MethodGet
	if payload != nil {
		method = http.MethodPost
	}

	return &Request{
		Method:          method,
		URL:             rawurl,
		Header:          header,
		Body:            body,
		ContentLength:   contentLength,
		FollowRedirects: true,
	}, nil
}

// negotiate performs the two-round-trip NTLM handshake when credentials
// are configured and merges the resulting Authorization header into
// req. The real request is never sent when the handshake fails.
func (c *Client) negotiate(ctx context.Context, req *Request) error {
	cred := c.config.NTLM
	if cred == nil {
		return nil
	}

	auth, err := c.handshake(ctx, req.URL, *cred)
	if err != nil {
		c.logger.Debug("ntlm handshake failed", "url", req.URL, "error", err)
		return &HandshakeError{Err: err}
	}
	req.Header.Set("Authorization", auth)
	return nil
}

// handshake sends the Type-1 probe and answers the server's Type-2
// challenge, returning the Authorization value for the real request.
func (c *Client) handshake(ctx context.Context, rawurl string, cred ntlm.Credentials) (string, error) {
	negotiate, err := ntlm.Negotiate(cred)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(rawurl)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}

	// Zero-body probe on a kept-alive connection; the challenge is
	// bound to the connection the Type-1 message traveled on.
	probe := &Request{
		Method:          http.MethodGet,
		URL:             rawurl,
		Header:          BaseHeader(u, true),
		ContentLength:   -1,
		FollowRedirects: true,
	}
	if c.config.UserAgent != "" {
		probe.Header.Set("User-Agent", c.config.UserAgent)
	}
	probe.Header.Set("Authorization", negotiate)

	resp, err := c.executor.Execute(ctx, probe)
	if err != nil {
		return "", err
	}

	challenge := resp.Header.Get("WWW-Authenticate")
	if challenge == "" {
		return "", ntlm.ErrNoChallenge
	}
	return ntlm.Authenticate(challenge, cred)
}
