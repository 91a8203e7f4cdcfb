package apollo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmalens/price-compare-service/internal/domain"
	"github.com/pharmalens/price-compare-service/internal/pharmacies"
)

func newTestClient(serverURL string) *Client {
	return NewClient(Config{BaseURL: serverURL, Enabled: true}, pharmacies.NewHTTPClient(pharmacies.HTTPClientConfig{
		RateLimit:  100,
		BurstSize:  10,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	}))
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{Enabled: true}, nil)

	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultTimeout, client.config.Timeout)
	assert.Equal(t, "apollo", client.ID())
	assert.Equal(t, "Apollo", client.Name())
}

func TestClient_Search(t *testing.T) {
	t.Run("products in __NEXT_DATA__", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"products":[
				{"name":"Dolo-650 Tablet 15's","price":30.5,"mrp":33.76,"urlKey":"dolo-650-tablet","packSize":"15","inStock":true,"image":"https://images.apollo247.in/dolo.jpg"},
				{"title":"Calpol 650","sellingPrice":"28","url":"https://www.apollopharmacy.in/otc/calpol"}
			]}}}</script>`))
		}))
		defer server.Close()

		offers, err := newTestClient(server.URL).Search(context.Background(), domain.NewQuery("Dolo", "650"))
		require.NoError(t, err)

		require.Len(t, offers, 2)
		assert.Equal(t, 30.5, offers[0].Price)
		assert.Equal(t, server.URL+"/otc/dolo-650-tablet", offers[0].URL)
		require.NotNil(t, offers[0].DiscountPercent)
		assert.Equal(t, 9.7, *offers[0].DiscountPercent)

		assert.Equal(t, "Calpol 650", offers[1].ProductName)
		assert.Equal(t, 28.0, offers[1].Price)
		assert.Equal(t, "https://www.apollopharmacy.in/otc/calpol", offers[1].URL)
	})

	t.Run("nested product object", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"data":{"results":[{"name":"Pan 40","salePrice":110}]}}}}</script>`))
		}))
		defer server.Close()

		offers, err := newTestClient(server.URL).Search(context.Background(), domain.NewQuery("Pan", "40"))
		require.NoError(t, err)
		require.Len(t, offers, 1)
		assert.Equal(t, 110.0, offers[0].Price)
	})

	t.Run("falls back to data route using the build id", func(t *testing.T) {
		var dataCalls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/search-medicines/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{}},"buildId":"b-42"}</script>`))
		})
		mux.HandleFunc("/_next/data/b-42/search-medicines/", func(w http.ResponseWriter, r *http.Request) {
			dataCalls.Add(1)
			w.Write([]byte(`{"pageProps":{"searchResults":[{"name":"Crocin","price":20}]}}`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		offers, err := newTestClient(server.URL).Search(context.Background(), domain.NewQuery("Crocin", ""))
		require.NoError(t, err)
		assert.Equal(t, int32(1), dataCalls.Load())
		require.Len(t, offers, 1)
		assert.Equal(t, "Crocin", offers[0].ProductName)
	})

	t.Run("rotated build id is no match", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/search-medicines/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html><script>{"buildId":"old"}</script></html>`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		offers, err := newTestClient(server.URL).Search(context.Background(), domain.NewQuery("Crocin", ""))
		require.NoError(t, err)
		assert.Empty(t, offers)
	})

	t.Run("client-rendered page with empty props is no match", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{}}}</script>`))
		}))
		defer server.Close()

		offers, err := newTestClient(server.URL).Search(context.Background(), domain.NewQuery("Crocin", ""))
		require.NoError(t, err)
		assert.Empty(t, offers)
	})

	t.Run("page without state or build id is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>blocked</html>`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Search(context.Background(), domain.NewQuery("Crocin", ""))
		assert.ErrorIs(t, err, pharmacies.ErrPageStateNotFound)
	})
}
