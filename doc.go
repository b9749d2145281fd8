// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package gosoaphttp implements the HTTP transport layer for SOAP clients.

# Overview

go-soap-http takes a logical "send this payload to this endpoint" request
and turns it into a correctly shaped HTTP exchange. It handles MTOM
(MIME Transport Optimization Mechanism) multipart encoding for binary
attachments, performs the two-step NTLM authentication handshake
transparently before the real request, normalizes response bodies so the
SOAP-envelope layer above receives a clean envelope, and offers a
streaming path that relays an in-flight response body without buffering
it in memory.

SOAP envelope construction and parsing, WSDL interpretation, and the
public client API deciding what to send are external collaborators; this
module only moves bytes correctly.

# Package Structure

The library is organized into the following packages:

	github.com/sirosfoundation/go-soap-http/pkg/transport - request building, executors, client
	github.com/sirosfoundation/go-soap-http/pkg/mime      - MTOM multipart/related body encoding
	github.com/sirosfoundation/go-soap-http/pkg/ntlm      - NTLM Type-1/2/3 message handling
	github.com/sirosfoundation/go-soap-http/pkg/envelope  - response body normalization

# Quick Start

To send a SOAP payload:

	import (
	    "github.com/sirosfoundation/go-soap-http/pkg/mime"
	    "github.com/sirosfoundation/go-soap-http/pkg/transport"
	)

	client, err := transport.NewClient(transport.DefaultConfig())
	if err != nil {
	    return err
	}

	resp, err := client.Request(ctx, "https://service.example.com/soap", envelopeXML,
	    &transport.RequestOptions{
	        Attachments: []mime.Attachment{
	            {Name: "report.pdf", ContentID: "report-1", ContentType: "application/pdf", Body: f},
	        },
	    })

The client automatically handles:
  - Base header composition (content negotiation, Host, keep-alive)
  - Body encoding selection (plain, MTOM multipart, passthrough stream)
  - NTLM challenge/response negotiation (when credentials are configured)
  - Envelope extraction from unclean response bodies

# Streaming

For large responses, RequestStream returns a reader immediately and
relays the response body through it without buffering:

	rc := client.RequestStream(ctx, url, envelopeXML, nil)
	defer rc.Close()
	_, err := io.Copy(dst, rc)

# References

  - MTOM: https://www.w3.org/TR/soap12-mtom/
  - XOP: https://www.w3.org/TR/xop10/
  - MIME multipart/related RFC 2387: https://datatracker.ietf.org/doc/html/rfc2387
  - NTLM (MS-NLMP): https://learn.microsoft.com/en-us/openspecs/windows_protocols/ms-nlmp/
*/
package gosoaphttp
