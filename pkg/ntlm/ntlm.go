// Package ntlm implements the NTLM message layer for HTTP authentication.
package ntlm

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/go-ntlmssp"
)

// Scheme is the authentication scheme token used in Authorization and
// WWW-Authenticate headers.
const Scheme = "NTLM"

var (
	// ErrNoChallenge is returned when the probe response carries no
	// WWW-Authenticate header to answer.
	ErrNoChallenge = errors.New("ntlm: no challenge in response")
	// ErrMalformedChallenge is returned when the WWW-Authenticate header
	// does not contain a decodable Type-2 message.
	ErrMalformedChallenge = errors.New("ntlm: malformed challenge")
)

// Credentials holds the material used to answer an NTLM challenge.
// Username may carry the domain in "DOMAIN\user" form, in which case
// Domain can be left empty.
type Credentials struct {
	Domain      string
	Username    string
	Password    string
	Workstation string
}

// Negotiate produces the Type-1 negotiation message as an Authorization
// header value ("NTLM <base64>").
func Negotiate(cred Credentials) (string, error) {
	domain := cred.Domain
	if domain == "" {
		_, domain, _ = ntlmssp.GetDomain(cred.Username)
	}

	msg, err := ntlmssp.NewNegotiateMessage(domain, cred.Workstation)
	if err != nil {
		return "", fmt.Errorf("ntlm: building negotiate message: %w", err)
	}
	return Scheme + " " + base64.StdEncoding.EncodeToString(msg), nil
}

// Authenticate derives the Type-3 response from the server's Type-2
// challenge. The challenge argument is the raw WWW-Authenticate header
// value; an empty value reports ErrNoChallenge. The returned string is
// the Authorization header value for the real request.
func Authenticate(challenge string, cred Credentials) (string, error) {
	data, err := ParseChallenge(challenge)
	if err != nil {
		return "", err
	}

	user := cred.Username
	domainNeeded := cred.Domain != ""
	if !domainNeeded {
		user, _, domainNeeded = ntlmssp.GetDomain(user)
	}

	msg, err := ntlmssp.ProcessChallenge(data, user, cred.Password, domainNeeded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedChallenge, err)
	}
	return Scheme + " " + base64.StdEncoding.EncodeToString(msg), nil
}

// ParseChallenge extracts the raw Type-2 message bytes from a
// WWW-Authenticate header value of the form "NTLM <base64>".
func ParseChallenge(header string) ([]byte, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, ErrNoChallenge
	}

	payload := header
	if rest, ok := cutScheme(header); ok {
		payload = rest
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedChallenge, err)
	}
	if len(data) == 0 {
		return nil, ErrMalformedChallenge
	}
	return data, nil
}

// cutScheme strips a leading "NTLM" or "Negotiate" scheme token.
func cutScheme(header string) (string, bool) {
	for _, scheme := range []string{Scheme, "Negotiate"} {
		if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
			return strings.TrimSpace(header[len(scheme):]), true
		}
	}
	return header, false
}
