package websearch

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screener/internal/screening/models"
)

var query = models.PlannedQuery{Text: `"Jane Doe" sanctions`, Context: models.ContextGeneral, PriorWeight: 0.5}

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch(t *testing.T) {
	t.Run("sends the provider payload and maps organic results", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "k", r.Header.Get("X-API-KEY"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, `"Jane Doe" sanctions`, body["q"])
			assert.Equal(t, float64(3), body["num"])
			assert.Equal(t, "us", body["gl"])
			assert.Equal(t, "en", body["hl"])

			_, _ = w.Write([]byte(`{"organic":[
				{"title":"Jane Doe <b>sanctioned</b>","link":"https://www.bbc.com/news/1","snippet":"Officials &amp; regulators said..."},
				{"title":"no link"}
			]}`))
		})
		c := New("k", WithBaseURL(srv.URL), WithLimit(3))

		out := c.Search(t.Context(), query, "Jane Doe")

		require.True(t, out.Success)
		require.Len(t, out.Results, 1)
		r := out.Results[0]
		assert.Equal(t, "Jane Doe sanctioned", r.Title)
		assert.Equal(t, "Officials & regulators said...", r.Snippet)
		assert.Equal(t, "bbc.com", r.Domain)
		assert.Equal(t, query, out.Query)
	})

	t.Run("empty organic list is a soft negative", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"organic":[]}`))
		})

		out := New("k", WithBaseURL(srv.URL)).Search(t.Context(), query, "Jane Doe")

		assert.False(t, out.Success)
		assert.Equal(t, MsgNoResults, out.Error)
	})

	t.Run("non-2xx is reported", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		out := New("k", WithBaseURL(srv.URL)).Search(t.Context(), query, "Jane Doe")

		assert.False(t, out.Success)
		assert.Contains(t, out.Error, "403")
	})

	t.Run("timeout", func(t *testing.T) {
		srv := newServer(t, func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})

		out := New("k", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond)).Search(t.Context(), query, "Jane Doe")

		assert.False(t, out.Success)
		assert.Equal(t, MsgTimeout, out.Error)
	})

	t.Run("transport error carries its message", func(t *testing.T) {
		out := New("k", WithBaseURL("http://127.0.0.1:1")).Search(t.Context(), query, "Jane Doe")

		assert.False(t, out.Success)
		assert.NotEmpty(t, out.Error)
	})

	t.Run("not configured", func(t *testing.T) {
		c := New("")

		out := c.Search(t.Context(), query, "Jane Doe")

		assert.False(t, out.Success)
		assert.Equal(t, MsgNotConfigured, out.Error)
		assert.Empty(t, c.Providers())
	})
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "plain text", PlainText("  plain \n text "))
	assert.Equal(t, "AT&T fined", PlainText("AT&amp;T <em>fined</em>"))
	assert.Equal(t, "", PlainText(""))
}
