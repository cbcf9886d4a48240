// Package sanitize classifies and escapes untrusted strings before they reach
// markup or script contexts.
//
// Every function is pure and safe for concurrent use. The classifiers fail
// closed: anything they cannot positively recognize as safe is rejected.
package sanitize
