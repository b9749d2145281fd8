// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package mime encodes SOAP request bodies, including MTOM packaging.

A request body is encoded one of three ways:

  - Plain: a string payload with no attachments travels verbatim, with
    Content-Length set to its UTF-8 byte length.
  - MTOM: a string payload with attachments (or with MTOM forced) is
    packaged as multipart/related with XOP wrapping.
  - Passthrough: a non-string payload (a stream) is sent as-is with no
    content-type inference.

# MIME Structure

MTOM requests use multipart/related:

	Content-Type: multipart/related;
	    type="application/xop+xml";
	    start="<primary-id>";
	    start-info="text/xml";
	    boundary="----=_Part_..."

	------=_Part_...
	Content-Type: application/xop+xml; charset=UTF-8; type="text/xml"
	Content-ID: <primary-id>

	[SOAP envelope]

	------=_Part_...
	Content-Type: application/pdf
	Content-Transfer-Encoding: binary
	Content-ID: <attachment-id>
	Content-Disposition: attachment; filename="report.pdf"

	[Binary payload data]

# Encoding a Request

Package a payload with attachments:

	header := http.Header{}
	body, err := mime.EncodeMTOM(envelopeXML, attachments, header)

If the pre-existing Content-Type header carries an action="..."
parameter (SOAP 1.2), it is preserved on the rewritten header.

# Content IDs

Attachments are referenced from the envelope by Content-ID (CID):

	cid:attachment-id

Every attachment's Content-ID must be unique within a request; ids left
empty are generated.

# References

  - MTOM: https://www.w3.org/TR/soap12-mtom/
  - XOP: https://www.w3.org/TR/xop10/
  - MIME multipart/related RFC 2387: https://datatracker.ietf.org/doc/html/rfc2387
*/
package mime
