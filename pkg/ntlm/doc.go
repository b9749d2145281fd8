// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package ntlm builds and consumes NTLM handshake messages.

NTLM authenticates a connection with a three-message exchange carried in
HTTP headers: the client sends a Type-1 negotiation message in
Authorization, the server answers with a Type-2 challenge in
WWW-Authenticate, and the client proves its credentials with a Type-3
response derived from that challenge.

This package covers the message layer only:

	auth, _ := ntlm.Negotiate(cred)          // Type-1, "NTLM <base64>"
	auth, _ = ntlm.Authenticate(header, cred) // Type-2 in, Type-3 out

Driving the two HTTP round trips belongs to the transport client, so
the handshake runs through whatever executor the caller has injected.

Message construction is delegated to github.com/Azure/go-ntlmssp.

# References

  - MS-NLMP: https://learn.microsoft.com/en-us/openspecs/windows_protocols/ms-nlmp/
*/
package ntlm
