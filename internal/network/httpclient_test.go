package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewHTTPTransport(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		tr := NewHTTPTransport(nil)
		defer tr.CloseIdleConnections()
		assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)
		assert.False(t, tr.TLSClientConfig.InsecureSkipVerify)
		assert.Equal(t, DefaultTLSHandshakeTimeout, tr.TLSHandshakeTimeout)
		assert.NotNil(t, tr.Proxy)
		assert.Contains(t, tr.TLSClientConfig.NextProtos, "h2")
	})

	t.Run("http1 only and insecure", func(t *testing.T) {
		cfg := NewDefaultClientConfig()
		cfg.ForceHTTP2 = false
		cfg.IgnoreTLSErrors = true
		cfg.Logger = zaptest.NewLogger(t)
		tr := NewHTTPTransport(cfg)
		defer tr.CloseIdleConnections()
		assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
		assert.Equal(t, []string{"http/1.1"}, tr.TLSClientConfig.NextProtos)
	})
}

func TestClientUserAgentAndRedirects(t *testing.T) {
	var agents []string
	mux := http.NewServeMux()
	mux.HandleFunc("/loop/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/asset.js", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/asset.js", func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.UserAgent())
		fmt.Fprint(w, "window.axe = {};")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := NewDefaultClientConfig()
	cfg.ForceHTTP2 = false
	cfg.RequestTimeout = 5 * time.Second
	client := NewClient(cfg)
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/moved", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"uxprobe"}, agents)
	assert.Empty(t, req.Header.Get("User-Agent"), "caller's request is left untouched")

	req, err = http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/loop/", nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, errTooManyRedirects)
}
