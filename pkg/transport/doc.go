// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package transport builds and executes the HTTP exchanges of a SOAP client.

The package turns a payload and a target URL into a transport-agnostic
Request descriptor (base headers, encoded body, method), runs it through
an Executor, and hands back a Response descriptor with status, headers,
timing and the normalized body.

# Client Usage

Create and use a client:

	client, err := transport.NewClient(transport.DefaultConfig())
	if err != nil {
	    return err
	}

	resp, err := client.Request(ctx, "https://service.example.com/soap", envelopeXML, nil)

When Config.NTLM carries credentials, the client transparently performs
the two-round-trip NTLM handshake before the real request: a zero-body
probe with a Type-1 negotiation message, then the real exchange with the
Type-3 response derived from the server's challenge.

# Executors

An Executor performs one HTTP exchange. The default HTTPExecutor uses
net/http with TLS 1.2/1.3 and recommended ECDHE cipher suites; callers
needing proxying or test doubles inject their own:

	client, err := transport.NewClient(cfg, transport.WithExecutor(myExecutor))

An HTTP status outside 2xx is not an error at this layer; it is returned
as a normal Response and interpretation is left to the caller.

# Streaming

RequestStream returns a reader synchronously and relays the response
body through it without buffering. Transport failures are delivered as
the reader's error:

	rc := client.RequestStream(ctx, url, envelopeXML, nil)
	defer rc.Close()

# Configuration

Client configuration can be loaded from YAML with environment variable
expansion:

	userAgent: go-soap-http/1.0
	persistentConnection: true
	ntlm:
	  domain: CORP
	  username: svc-soap
	  password: ${SOAP_PASSWORD}
	tls:
	  minVersion: "1.2"
	  maxVersion: "1.3"

See [LoadConfig].

# References

  - TLS 1.3 RFC 8446: https://datatracker.ietf.org/doc/html/rfc8446
  - TLS 1.2 RFC 5246: https://datatracker.ietf.org/doc/html/rfc5246
*/
package transport
