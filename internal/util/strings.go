// Package util provides common utility functions used across the sitegate packages.
package util

import "strings"

// SafeTruncate safely truncates a string to maxLen bytes without panicking.
// Returns the original string if it's shorter than maxLen, otherwise returns
// the first maxLen bytes. Used to cap attacker-controlled identifiers before
// they are logged or stored.
//
// If maxLen is negative, it's treated as 0 and returns an empty string.
//
// Example:
//
//	SafeTruncate("very-long-token-abc123", 8) // Returns: "very-lon"
//	SafeTruncate("short", 10)                  // Returns: "short"
//	SafeTruncate("test", -1)                   // Returns: ""
func SafeTruncate(s string, maxLen int) string {
	if maxLen < 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// IsControl reports whether r is an ASCII control character (C0 range or DEL).
func IsControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

// ContainsControl reports whether s contains any ASCII control character.
func ContainsControl(s string) bool {
	return strings.IndexFunc(s, IsControl) >= 0
}

// StripControl removes every ASCII control character from s.
//
// Example:
//
//	StripControl("1.2.3.4\r\nforged") // Returns: "1.2.3.4forged"
func StripControl(s string) string {
	if !ContainsControl(s) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if IsControl(r) {
			return -1
		}
		return r
	}, s)
}
