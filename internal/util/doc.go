// Package util provides common utility functions used across the sitegate packages.
//
// Key utilities:
//   - SafeTruncate: bounds attacker-controlled strings before logging or storage
//   - StripControl / ContainsControl: control-character handling for rate limit
//     keys and URL classification
package util
