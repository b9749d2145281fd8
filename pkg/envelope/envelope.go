// Package envelope isolates SOAP envelopes from unclean response bodies.
package envelope

import (
	"regexp"
	"strings"
)

var (
	commentPattern = regexp.MustCompile(`(?s)<!--.*?-->`)
	declPattern    = regexp.MustCompile(`(?i)<\?xml[^>]*\?>`)
	openPattern    = regexp.MustCompile(`(?i)<([a-z0-9_.-]+):Envelope[\s>]`)
)

// Normalize extracts the outermost namespace-prefixed Envelope element
// from body, together with an immediately preceding XML declaration if
// one is present. XML comments are stripped before matching. If no
// open/close Envelope pair is found, body is returned unchanged.
//
// This is best-effort cleanup for servers that surround the envelope
// with stray bytes; it does not validate the XML.
func Normalize(body string) string {
	stripped := commentPattern.ReplaceAllString(body, "")

	open := openPattern.FindStringSubmatchIndex(stripped)
	if open == nil {
		return body
	}
	prefix := stripped[open[2]:open[3]]

	closePattern := regexp.MustCompile(`(?i)</` + regexp.QuoteMeta(prefix) + `:Envelope>`)
	closes := closePattern.FindAllStringIndex(stripped, -1)
	if len(closes) == 0 || closes[len(closes)-1][1] <= open[0] {
		return body
	}
	end := closes[len(closes)-1][1]

	start := open[0]
	// Keep the nearest leading XML declaration when only whitespace
	// separates it from the opening tag.
	if decls := declPattern.FindAllStringIndex(stripped[:start], -1); len(decls) > 0 {
		decl := decls[len(decls)-1]
		if strings.TrimSpace(stripped[decl[1]:start]) == "" {
			start = decl[0]
		}
	}

	return stripped[start:end]
}
