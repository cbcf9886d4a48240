// Package testutil provides testing utilities, mock implementations, and request
// builders for the sitegate packages. It includes a mock time provider for
// deterministic window and expiry testing.
package testutil
