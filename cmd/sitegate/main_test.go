package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, err := execute(t, "", "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "sitegate")
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "hash-password")
	assert.Contains(t, out, "version")
	assert.Contains(t, out, "--config")
}

func TestServeCmd_Help(t *testing.T) {
	out, err := execute(t, "", "serve", "--help")
	require.NoError(t, err)

	for _, flag := range []string{"--listen", "--metrics-listen", "--secret-env", "--trust-proxy", "--production", "--log-format"} {
		assert.Contains(t, out, flag)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sitegate dev")
}

func TestHashPasswordCmd(t *testing.T) {
	out, err := execute(t, "hunter2\n", "hash-password", "--cost", "4")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(hash, "$2a$04$"), "unexpected hash %q", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
}

func TestHashPasswordCmd_NoTrailingNewline(t *testing.T) {
	out, err := execute(t, "hunter2", "hash-password", "--cost", "4")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("hunter2")))
}

func TestHashPasswordCmd_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
	}{
		{name: "empty input", stdin: ""},
		{name: "blank line", stdin: "\n"},
		{name: "too long", stdin: strings.Repeat("a", 129) + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.stdin, "hash-password", "--cost", "4")
			assert.Error(t, err)
			assert.Empty(t, out)
		})
	}
}
