package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"metadata":{}}`))
	}))
	defer srv.Close()

	body, err := New(time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"metadata":{}}`, string(body))
}

func TestFetchHTMLPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>x</title><script>var a;</script></head><body><h1>Sign in</h1><p>to continue</p></body></html>`))
	}))
	defer srv.Close()

	_, err := New(time.Second).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrNotJSON)
	assert.Contains(t, err.Error(), "Sign in to continue")
	assert.NotContains(t, err.Error(), "var a")
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/big":
			_, _ = w.Write([]byte(`"` + strings.Repeat("a", 64) + `"`))
		default:
			_, _ = w.Write([]byte(`plain text`))
		}
	}))
	defer srv.Close()

	f := New(time.Second)
	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = f.Fetch(context.Background(), srv.URL+"/text")
	assert.ErrorIs(t, err, ErrNotJSON)

	f.maxBytes = 16
	_, err = f.Fetch(context.Background(), srv.URL+"/big")
	assert.ErrorContains(t, err, "exceeds")

	_, err = f.Fetch(context.Background(), "ftp://example.com/file.json")
	assert.ErrorContains(t, err, "unsupported scheme")
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/x.json"))
	assert.True(t, IsURL(" www.example.com"))
	assert.False(t, IsURL("./export.json"))
}

func TestNormalizeURL(t *testing.T) {
	u, err := normalizeURL("www.example.com/a.json")
	require.NoError(t, err)
	assert.Equal(t, "https://www.example.com/a.json", u)
}
