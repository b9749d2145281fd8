// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package envelope normalizes textual SOAP response bodies.

Some servers prepend or append stray bytes (BOMs, debug output, HTML
error fragments) around an otherwise usable SOAP envelope. Normalize
isolates the outermost namespace-prefixed Envelope element, keeping an
optional leading XML declaration, and drops everything around it:

	body := envelope.Normalize(`junk<?xml version="1.0"?><soap:Envelope>...</soap:Envelope>trailing`)
	// => `<?xml version="1.0"?><soap:Envelope>...</soap:Envelope>`

XML comment blocks are removed before matching. Matching is
case-insensitive on the tag name and makes no attempt to validate the
document; a body without a recognizable Envelope passes through
unchanged. Callers needing real XML validation own that concern
themselves.
*/
package envelope
