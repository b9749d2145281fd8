package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sirosfoundation/go-soap-http/pkg/ntlm"
)

// fakeExecutor replays scripted exchanges and records every request it
// receives, including a copy of the body bytes.
type fakeExecutor struct {
	requests  []*Request
	bodies    []string
	responses []*Response
	errs      []error
}

func (f *fakeExecutor) Execute(_ context.Context, req *Request) (*Response, error) {
	var body string
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = string(data)
	}
	f.requests = append(f.requests, req)
	f.bodies = append(f.bodies, body)

	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return &Response{StatusCode: http.StatusOK, Status: "200 OK", Header: http.Header{}}, nil
}

// fakeStreamExecutor adds a streaming path gated on a channel so tests
// can observe the stream being handed back before the exchange resolves.
type fakeStreamExecutor struct {
	fakeExecutor
	release chan struct{}
	data    string
	err     error
}

func (f *fakeStreamExecutor) ExecuteStream(ctx context.Context, req *Request) (*Response, io.ReadCloser, error) {
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	resp := &Response{StatusCode: http.StatusOK, Status: "200 OK", Header: http.Header{}}
	return resp, io.NopCloser(strings.NewReader(f.data)), nil
}

func newTestClient(t *testing.T, cfg *Config, exec Executor) *Client {
	t.Helper()
	c, err := NewClient(cfg, WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestRequest_PlainBody(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestClient(t, nil, exec)

	payload := "a=1&b=2"
	if _, err := c.Request(context.Background(), "http://service.example.com/soap", payload, nil); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if len(exec.requests) != 1 {
		t.Fatalf("expected exactly 1 exchange, got %d", len(exec.requests))
	}
	req := exec.requests[0]
	if req.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", req.Method)
	}
	if exec.bodies[0] != payload {
		t.Errorf("body = %q, want %q", exec.bodies[0], payload)
	}
	if got := req.Header.Get("Content-Length"); got != "7" {
		t.Errorf("Content-Length = %q, want 7", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := req.Header.Get("Connection"); got != "close" {
		t.Errorf("Connection = %q, want close", got)
	}
	if got := req.Header.Get("Host"); got != "service.example.com" {
		t.Errorf("Host = %q", got)
	}
}

func TestRequest_MultiByteContentLength(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestClient(t, nil, exec)

	// 10 UTF-8 bytes, 6 runes.
	if _, err := c.Request(context.Background(), "http://service.example.com/soap", "héllø€", nil); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if got := exec.requests[0].Header.Get("Content-Length"); got != "10" {
		t.Errorf("Content-Length = %q, want 10 (bytes, not runes)", got)
	}
}

func TestRequest_GetWhenNoPayload(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestClient(t, nil, exec)

	if _, err := c.Request(context.Background(), "http://service.example.com/soap", nil, nil); err != nil {
		t.Fatalf("Request: %v", err)
	}

	req := exec.requests[0]
	if req.Method != http.MethodGet {
		t.Errorf("expected GET, got %s", req.Method)
	}
	if req.Body != nil {
		t.Error("expected nil body")
	}
	if req.Header.Get("Content-Length") != "" {
		t.Error("expected no Content-Length on GET")
	}
}

func TestRequest_HeaderOverrides(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestClient(t, nil, exec)

	opts := &RequestOptions{Headers: http.Header{}}
	opts.Headers.Set("content-type", "text/xml; charset=utf-8")
	opts.Headers.Set("SOAPAction", `"urn:op"`)

	if _, err := c.Request(context.Background(), "http://service.example.com/soap", "<x/>", opts); err != nil {
		t.Fatalf("Request: %v", err)
	}

	req := exec.requests[0]
	if got := req.Header.Get("Content-Type"); got != "text/xml; charset=utf-8" {
		t.Errorf("override lost, Content-Type = %q", got)
	}
	if got := req.Header.Get("Soapaction"); got != `"urn:op"` {
		t.Errorf("SOAPAction = %q", got)
	}
}

func TestRequest_PersistentConnection(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestClient(t, &Config{PersistentConnection: true}, exec)

	if _, err := c.Request(context.Background(), "http://service.example.com/soap", "x", nil); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if got := exec.requests[0].Header.Get("Connection"); got != "keep-alive" {
		t.Errorf("Connection = %q, want keep-alive", got)
	}
}

func TestRequest_MTOMBody(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestClient(t, nil, exec)

	opts := &RequestOptions{ForceMTOM: true}
	if _, err := c.Request(context.Background(), "http://service.example.com/soap", "<soap:Envelope/>", opts); err != nil {
		t.Fatalf("Request: %v", err)
	}

	req := exec.requests[0]
	ct := req.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/related") {
		t.Fatalf("Content-Type = %q, want multipart/related", ct)
	}
	if !strings.Contains(ct, "application/xop+xml") {
		t.Errorf("missing xop type in %q", ct)
	}
	if !strings.Contains(exec.bodies[0], "<soap:Envelope/>") {
		t.Error("multipart body does not carry the payload")
	}
	if req.ContentLength != int64(len(exec.bodies[0])) {
		t.Errorf("ContentLength = %d, want %d", req.ContentLength, len(exec.bodies[0]))
	}
}

func TestRequest_PassthroughBody(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestClient(t, nil, exec)

	if _, err := c.Request(context.Background(), "http://service.example.com/soap", strings.NewReader("raw-bytes"), nil); err != nil {
		t.Fatalf("Request: %v", err)
	}

	req := exec.requests[0]
	if req.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", req.Method)
	}
	if exec.bodies[0] != "raw-bytes" {
		t.Errorf("body = %q", exec.bodies[0])
	}
	if req.Header.Get("Content-Type") != "" {
		t.Errorf("passthrough must not infer a content type, got %q", req.Header.Get("Content-Type"))
	}
}

func TestRequest_NormalizesResponseBody(t *testing.T) {
	exec := &fakeExecutor{responses: []*Response{{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{"Content-Type": []string{"text/xml"}},
		Body:       []byte("junk<?xml version=\"1.0\"?><soap:Envelope>...</soap:Envelope>trailing"),
	}}}
	c := newTestClient(t, nil, exec)

	resp, err := c.Request(context.Background(), "http://service.example.com/soap", "x", nil)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	want := "<?xml version=\"1.0\"?><soap:Envelope>...</soap:Envelope>"
	if string(resp.Body) != want {
		t.Errorf("Body = %q, want %q", resp.Body, want)
	}
}

func TestRequest_Non2xxIsNotError(t *testing.T) {
	exec := &fakeExecutor{responses: []*Response{{
		StatusCode: http.StatusInternalServerError,
		Status:     "500 Internal Server Error",
		Header:     http.Header{},
		Body:       []byte("<soap:Envelope>fault</soap:Envelope>"),
	}}}
	c := newTestClient(t, nil, exec)

	resp, err := c.Request(context.Background(), "http://service.example.com/soap", "x", nil)
	if err != nil {
		t.Fatalf("non-2xx must not be an error, got %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
}

func TestRequest_TransportErrorPropagates(t *testing.T) {
	transportErr := &TransportError{URL: "http://service.example.com/soap", Err: errors.New("connection refused")}
	exec := &fakeExecutor{errs: []error{transportErr}}
	c := newTestClient(t, nil, exec)

	_, err := c.Request(context.Background(), "http://service.example.com/soap", "x", nil)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if len(exec.requests) != 1 {
		t.Errorf("expected exactly 1 exchange, got %d", len(exec.requests))
	}
}

// challengeHeader assembles a minimal valid Type-2 message header value.
func challengeHeader(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("NTLMSSP\x00")
	if err := binary.Write(&buf, binary.LittleEndian, uint32(2)); err != nil {
		t.Fatal(err)
	}
	buf.Write(make([]byte, 8))
	// Unicode negotiate flag; challenges without it are rejected.
	if err := binary.Write(&buf, binary.LittleEndian, uint32(0x00000001)); err != nil {
		t.Fatal(err)
	}
	buf.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	buf.Write(make([]byte, 16))
	return "NTLM " + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func ntlmConfig() *Config {
	cfg := DefaultConfig()
	cfg.NTLM = &ntlm.Credentials{Domain: "CORP", Username: "user", Password: "secret"}
	return cfg
}

func TestRequest_NTLMHandshake(t *testing.T) {
	exec := &fakeExecutor{responses: []*Response{
		{
			StatusCode: http.StatusUnauthorized,
			Status:     "401 Unauthorized",
			Header:     http.Header{"Www-Authenticate": []string{challengeHeader(t)}},
		},
		{StatusCode: http.StatusOK, Status: "200 OK", Header: http.Header{}},
	}}
	c := newTestClient(t, ntlmConfig(), exec)

	if _, err := c.Request(context.Background(), "http://service.example.com/soap", "<x/>", nil); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if len(exec.requests) != 2 {
		t.Fatalf("expected probe + real request, got %d exchanges", len(exec.requests))
	}

	probe := exec.requests[0]
	if probe.Method != http.MethodGet {
		t.Errorf("probe method = %s, want GET", probe.Method)
	}
	if probe.Body != nil {
		t.Error("probe must have no body")
	}
	if got := probe.Header.Get("Connection"); got != "keep-alive" {
		t.Errorf("probe Connection = %q, want keep-alive", got)
	}
	negotiate := probe.Header.Get("Authorization")
	if !strings.HasPrefix(negotiate, "NTLM ") {
		t.Fatalf("probe Authorization = %q", negotiate)
	}

	real := exec.requests[1]
	if real.Method != http.MethodPost {
		t.Errorf("real method = %s, want POST", real.Method)
	}
	auth := real.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "NTLM ") {
		t.Fatalf("real Authorization = %q", auth)
	}
	if auth == negotiate {
		t.Error("real request must carry the Type-3 response, not the Type-1 message")
	}
}

func TestRequest_NTLMProbeUserAgent(t *testing.T) {
	exec := &fakeExecutor{responses: []*Response{
		{
			StatusCode: http.StatusUnauthorized,
			Status:     "401 Unauthorized",
			Header:     http.Header{"Www-Authenticate": []string{challengeHeader(t)}},
		},
		{StatusCode: http.StatusOK, Status: "200 OK", Header: http.Header{}},
	}}
	cfg := ntlmConfig()
	cfg.UserAgent = "custom-agent/2.0"
	c := newTestClient(t, cfg, exec)

	if _, err := c.Request(context.Background(), "http://service.example.com/soap", "<x/>", nil); err != nil {
		t.Fatalf("Request: %v", err)
	}

	// Both exchanges identify themselves the same way.
	for i, req := range exec.requests {
		if got := req.Header.Get("User-Agent"); got != "custom-agent/2.0" {
			t.Errorf("exchange %d User-Agent = %q, want custom-agent/2.0", i, got)
		}
	}
}

func TestRequest_NTLMMissingChallenge(t *testing.T) {
	exec := &fakeExecutor{responses: []*Response{
		{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized", Header: http.Header{}},
	}}
	c := newTestClient(t, ntlmConfig(), exec)

	_, err := c.Request(context.Background(), "http://service.example.com/soap", "<x/>", nil)

	var he *HandshakeError
	if !errors.As(err, &he) {
		t.Fatalf("expected *HandshakeError, got %v", err)
	}
	if !errors.Is(err, ntlm.ErrNoChallenge) {
		t.Errorf("expected ErrNoChallenge cause, got %v", err)
	}
	if len(exec.requests) != 1 {
		t.Errorf("real request must not be sent after a failed handshake, got %d exchanges", len(exec.requests))
	}
}

func TestRequest_InvalidURL(t *testing.T) {
	exec := &fakeExecutor{}
	c := newTestClient(t, nil, exec)

	if _, err := c.Request(context.Background(), "not-a-url", "x", nil); err == nil {
		t.Fatal("expected error for URL without scheme")
	}
	if len(exec.requests) != 0 {
		t.Error("no exchange may happen for an unbuildable request")
	}
}

func TestRequestStream_ReturnsBeforeExchangeResolves(t *testing.T) {
	exec := &fakeStreamExecutor{release: make(chan struct{}), data: "streamed-envelope"}
	c := newTestClient(t, nil, exec)

	done := make(chan io.ReadCloser, 1)
	go func() {
		done <- c.RequestStream(context.Background(), "http://service.example.com/soap", "<x/>", nil)
	}()

	var rc io.ReadCloser
	select {
	case rc = <-done:
	case <-time.After(time.Second):
		t.Fatal("RequestStream did not return before the exchange resolved")
	}

	close(exec.release)
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if string(data) != "streamed-envelope" {
		t.Errorf("stream data = %q", data)
	}
	rc.Close()
}

func TestRequestStream_TransportErrorOnStream(t *testing.T) {
	transportErr := &TransportError{URL: "http://service.example.com/soap", Err: errors.New("dns failure")}
	exec := &fakeStreamExecutor{err: transportErr}
	c := newTestClient(t, nil, exec)

	rc := c.RequestStream(context.Background(), "http://service.example.com/soap", "<x/>", nil)
	_, err := io.ReadAll(rc)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError on the stream, got %v", err)
	}
}

// truncatedReader yields some data then fails, like a connection cut
// mid-body.
type truncatedReader struct {
	data string
	read bool
}

func (r *truncatedReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, io.ErrUnexpectedEOF
}

func (r *truncatedReader) Close() error { return nil }

// brokenStreamExecutor hands back a body that fails partway through.
type brokenStreamExecutor struct {
	fakeExecutor
}

func (b *brokenStreamExecutor) ExecuteStream(_ context.Context, _ *Request) (*Response, io.ReadCloser, error) {
	resp := &Response{StatusCode: http.StatusOK, Status: "200 OK", Header: http.Header{}}
	return resp, &truncatedReader{data: "partial"}, nil
}

func TestRequestStream_BodyReadErrorOnStream(t *testing.T) {
	c := newTestClient(t, nil, &brokenStreamExecutor{})

	rc := c.RequestStream(context.Background(), "http://service.example.com/soap", "<x/>", nil)
	data, err := io.ReadAll(rc)

	if string(data) != "partial" {
		t.Errorf("data before failure = %q, want %q", data, "partial")
	}
	var bre *BodyReadError
	if !errors.As(err, &bre) {
		t.Fatalf("expected *BodyReadError on the stream, got %v", err)
	}
	if bre.Response == nil || bre.Response.StatusCode != http.StatusOK {
		t.Errorf("expected the response descriptor alongside the read failure, got %+v", bre.Response)
	}
}

func TestRequestStream_NotStreamableExecutor(t *testing.T) {
	c := newTestClient(t, nil, &fakeExecutor{})

	rc := c.RequestStream(context.Background(), "http://service.example.com/soap", "<x/>", nil)
	_, err := io.ReadAll(rc)

	if !errors.Is(err, ErrNotStreamable) {
		t.Fatalf("expected ErrNotStreamable, got %v", err)
	}
}

func TestRequestStream_HandshakeErrorOnStream(t *testing.T) {
	exec := &fakeStreamExecutor{}
	exec.responses = []*Response{
		{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized", Header: http.Header{}},
	}
	c := newTestClient(t, ntlmConfig(), exec)

	rc := c.RequestStream(context.Background(), "http://service.example.com/soap", "<x/>", nil)
	_, err := io.ReadAll(rc)

	var he *HandshakeError
	if !errors.As(err, &he) {
		t.Fatalf("expected *HandshakeError on the stream, got %v", err)
	}
	if len(exec.requests) != 1 {
		t.Errorf("real exchange must not run after a failed handshake, got %d", len(exec.requests))
	}
}
