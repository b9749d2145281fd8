package transport

import (
	"net"
	"net/http"
	"net/url"
)

// DefaultUserAgent identifies the client on the wire.
const DefaultUserAgent = "go-soap-http/1.0"

// acceptList prefers XML but tolerates anything, matching what SOAP
// endpoints conventionally expect from browser-era clients.
const acceptList = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// BaseHeader composes the base header set for a request to u. The
// connection token is keep-alive when persistent is set, close
// otherwise. Caller-supplied extra headers are merged on top of this
// set, overwriting on a case-insensitive name match.
func BaseHeader(u *url.URL, persistent bool) http.Header {
	h := http.Header{}
	h.Set("User-Agent", DefaultUserAgent)
	h.Set("Accept", acceptList)
	h.Set("Accept-Encoding", "none")
	h.Set("Accept-Charset", "utf-8")
	if persistent {
		h.Set("Connection", "keep-alive")
	} else {
		h.Set("Connection", "close")
	}
	h.Set("Host", hostHeader(u))
	return h
}

// hostHeader renders the Host value: hostname alone, with :port only
// when the URL names a non-default port for its scheme.
func hostHeader(u *url.URL) string {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		return host
	}
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		return host
	}
	return net.JoinHostPort(host, port)
}

// mergeHeader applies extra on top of h, last write wins per
// canonicalized name.
func mergeHeader(h, extra http.Header) {
	for name, values := range extra {
		h.Del(name)
		for _, v := range values {
			h.Add(name, v)
		}
	}
}
