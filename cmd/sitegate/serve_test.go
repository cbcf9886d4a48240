package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/sitegate"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	registerServeFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sitegate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(parseFlags(t), "")
	require.NoError(t, err)

	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, defaultMetricsListen, cfg.MetricsListen)
	assert.Equal(t, sitegate.DefaultRoutePrefix, cfg.RoutePrefix)
	assert.Equal(t, defaultSecretEnv, cfg.SecretEnv)
	assert.Equal(t, sitegate.DefaultSessionTTL, cfg.SessionTTL)
	assert.True(t, cfg.TrustProxy)
	assert.True(t, cfg.AuditLog)
	assert.False(t, cfg.Production)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_FileAndFlagPrecedence(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
production: true
session-ttl: 30m
trust-proxy: false
secret-env: SITE_SECRET
`)

	cfg, err := loadConfig(parseFlags(t, "--listen", ":7000"), path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Listen, "flag overrides file")
	assert.True(t, cfg.Production, "file overrides flag default")
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, "SITE_SECRET", cfg.SecretEnv)
	assert.Equal(t, defaultMetricsListen, cfg.MetricsListen, "unset keys keep flag defaults")
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		args []string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.yaml") },
		},
		{
			name: "malformed yaml",
			path: func(t *testing.T) string { return writeConfig(t, "listen: [unterminated\n") },
		},
		{
			name: "empty listen",
			path: func(*testing.T) string { return "" },
			args: []string{"--listen", ""},
		},
		{
			name: "empty secret env",
			path: func(*testing.T) string { return "" },
			args: []string{"--secret-env", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(parseFlags(t, tt.args...), tt.path(t))
			require.Error(t, err)

			oopsErr, ok := oops.AsOops(err)
			require.True(t, ok)
			assert.Equal(t, "CONFIG_INVALID", oopsErr.Code())
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		level   string
		wantErr bool
	}{
		{name: "json info", format: "json", level: "info"},
		{name: "text debug", format: "text", level: "debug"},
		{name: "upper case level", format: "json", level: "WARN"},
		{name: "unknown format", format: "xml", level: "info", wantErr: true},
		{name: "unknown level", format: "json", level: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := newLogger(io.Discard, tt.format, tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLogger_JSONLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "json", "warn")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
}

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func newSite(t *testing.T, lookupEnv func(string) (string, bool), args ...string) *site {
	t.Helper()

	cfg, err := loadConfig(parseFlags(t, args...), "")
	require.NoError(t, err)

	s, err := buildSite(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), lookupEnv)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.inst.Shutdown(t.Context()) })
	return s
}

func postPassword(h http.Handler, path, password string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"password":"`+password+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBuildSite_AuthenticatesWithEnvSecret(t *testing.T) {
	s := newSite(t, env(map[string]string{"ADMIN_PASSWORD": "correct horse"}), "--metrics-listen", "")

	require.True(t, s.server.Configured())

	rec := postPassword(s.handler, "/api/authenticate", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postPassword(s.handler, "/api/authenticate", "correct horse")
	require.Equal(t, http.StatusOK, rec.Code)

	var body sitegate.SuccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sitegate.DefaultCookieName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/api/check-auth", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildSite_CustomSecretEnvAndPrefix(t *testing.T) {
	s := newSite(t, env(map[string]string{"SITE_SECRET": "s3cret-passphrase"}),
		"--metrics-listen", "", "--secret-env", "SITE_SECRET", "--route-prefix", "gate")

	assert.Equal(t, http.StatusOK, postPassword(s.handler, "/gate/authenticate", "s3cret-passphrase").Code)
	assert.Equal(t, http.StatusNotFound, postPassword(s.handler, "/api/authenticate", "s3cret-passphrase").Code)
}

func TestBuildSite_MissingSecretFailsClosed(t *testing.T) {
	s := newSite(t, env(nil), "--metrics-listen", "")

	assert.False(t, s.server.Configured())
	assert.Equal(t, http.StatusInternalServerError, postPassword(s.handler, "/api/authenticate", "anything").Code)
}

func TestBuildSite_PrometheusWhenMetricsEnabled(t *testing.T) {
	s := newSite(t, env(map[string]string{"ADMIN_PASSWORD": "correct horse"}))

	require.NotNil(t, s.inst.Registry())
	postPassword(s.handler, "/api/authenticate", "correct horse")

	rec := httptest.NewRecorder()
	s.inst.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitegate_auth_attempts")
}
