// Package services – input validation
//
// Validation runs before any cache or database access: a malformed request
// must be rejected without spending a connection on it.
package services

import (
	"net"
	"strings"
)

// maxTutorialIDLen mirrors the varchar(100) column in the schema.
const maxTutorialIDLen = 100

// UnknownClientAddr is the sentinel stored when no client address could be
// derived from the request (e.g. a misconfigured proxy strips it).
const UnknownClientAddr = "unknown"

// ValidTutorialID reports whether id is a non-empty identifier of at most
// 100 characters.
func ValidTutorialID(id string) bool {
	return id != "" && len(id) <= maxTutorialIDLen
}

// ValidClientAddr reports whether addr is acceptable as a rate-limit key.
//
// Real addresses must parse as IPv4 or IPv6. The "unknown" sentinel and
// loopback addresses are accepted so local development and proxied setups
// are not blocked. This is a deliberate policy allowance, not a security
// boundary: a client that hides its address shares the "unknown" bucket
// rather than being rejected.
func ValidClientAddr(addr string) bool {
	if addr == UnknownClientAddr {
		return true
	}
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return false
	}
	if ip := net.ParseIP(trimmed); ip != nil {
		return true
	}
	// Loopback spellings that are not bare IPs (e.g. "localhost").
	return trimmed == "localhost"
}
