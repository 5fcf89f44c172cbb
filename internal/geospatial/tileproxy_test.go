package geospatial

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sponge-spot/internal/resilience"
)

func testProxyOptions(base string) TileProxyOptions {
	return TileProxyOptions{
		Template: base + "/{z}/{x}/{y}.png",
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
		},
	}
}

func TestTileProxy_Fetch_Success(t *testing.T) {
	tileData := []byte("fake-png-tile-data")
	var gotPath, gotUA string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write(tileData)
	}))
	defer upstream.Close()

	proxy := NewTileProxy(testProxyOptions(upstream.URL), nil)
	data, ct, err := proxy.Fetch(context.Background(), TileCoord{Z: 12, X: 1144, Y: 1494})
	require.NoError(t, err)

	assert.Equal(t, tileData, data)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, "/12/1144/1494.png", gotPath)
	assert.Equal(t, "sponge-spot/1.0", gotUA)
}

func TestTileProxy_Fetch_CacheHit(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("tile"))
	}))
	defer upstream.Close()

	cache := NewTileCache(100, 10*time.Minute)
	proxy := NewTileProxy(testProxyOptions(upstream.URL), cache)

	coord := TileCoord{Z: 5, X: 10, Y: 10}
	_, _, err := proxy.Fetch(context.Background(), coord)
	require.NoError(t, err)
	_, _, err = proxy.Fetch(context.Background(), coord)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), cache.Stats().Hits)
}

func TestTileProxy_Fetch_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("tile"))
	}))
	defer upstream.Close()

	proxy := NewTileProxy(testProxyOptions(upstream.URL), nil)
	data, _, err := proxy.Fetch(context.Background(), TileCoord{Z: 1, X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, []byte("tile"), data)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTileProxy_Fetch_PermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	proxy := NewTileProxy(testProxyOptions(upstream.URL), nil)
	_, _, err := proxy.Fetch(context.Background(), TileCoord{Z: 1, X: 0, Y: 0})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTileProxy_Fetch_InvalidCoord(t *testing.T) {
	proxy := NewTileProxy(testProxyOptions("http://127.0.0.1:1"), nil)

	_, _, err := proxy.Fetch(context.Background(), TileCoord{Z: 2, X: 4, Y: 0})
	assert.Error(t, err)
	_, _, err = proxy.Fetch(context.Background(), TileCoord{Z: 25, X: 0, Y: 0})
	assert.Error(t, err)
}

func TestTileProxy_BreakerRejects(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	opts := testProxyOptions(upstream.URL)
	opts.Retry.MaxAttempts = 1
	opts.Breaker = resilience.NewBreaker(2, time.Hour)
	proxy := NewTileProxy(opts, nil)

	for i := 0; i < 2; i++ {
		_, _, err := proxy.Fetch(context.Background(), TileCoord{Z: 1, X: 0, Y: 0})
		require.Error(t, err)
	}
	_, _, err := proxy.Fetch(context.Background(), TileCoord{Z: 1, X: 0, Y: 0})
	assert.ErrorIs(t, err, resilience.ErrBreakerOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTileProxy_CancelledTrialKeepsBreakerFailures(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	opts := testProxyOptions(upstream.URL)
	opts.Retry.MaxAttempts = 1
	opts.Breaker = resilience.NewBreaker(2, 50*time.Millisecond)
	proxy := NewTileProxy(opts, nil)
	coord := TileCoord{Z: 1, X: 0, Y: 0}

	for i := 0; i < 2; i++ {
		_, _, err := proxy.Fetch(context.Background(), coord)
		require.Error(t, err)
	}
	time.Sleep(60 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := proxy.Fetch(ctx, coord)
	require.Error(t, err)
	assert.NotErrorIs(t, err, resilience.ErrBreakerOpen)

	// One more upstream failure reopens the breaker immediately.
	_, _, err = proxy.Fetch(context.Background(), coord)
	require.Error(t, err)
	_, _, err = proxy.Fetch(context.Background(), coord)
	assert.ErrorIs(t, err, resilience.ErrBreakerOpen)
}

func TestTileProxy_Fetch_OversizedBody(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write(make([]byte, 64))
	}))
	defer upstream.Close()

	cache := NewTileCache(10, time.Minute)
	opts := testProxyOptions(upstream.URL)
	opts.MaxBytes = 32
	proxy := NewTileProxy(opts, cache)

	_, _, err := proxy.Fetch(context.Background(), TileCoord{Z: 1, X: 0, Y: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 32 bytes")
	assert.Equal(t, int32(1), calls.Load(), "oversized bodies are not retried")
	assert.Equal(t, 0, cache.Stats().Entries)

	opts.MaxBytes = 64
	data, _, err := NewTileProxy(opts, nil).Fetch(context.Background(), TileCoord{Z: 1, X: 0, Y: 0})
	require.NoError(t, err)
	assert.Len(t, data, 64)
}

func TestTileProxy_URL_RotatesSubdomains(t *testing.T) {
	proxy := NewTileProxy(TileProxyOptions{Subdomains: []string{"a", "b", "c"}}, nil)
	coord := TileCoord{Z: 12, X: 1, Y: 2}

	assert.Equal(t, "https://a.tile.openstreetmap.org/12/1/2.png", proxy.URL(coord))
	assert.Equal(t, "https://b.tile.openstreetmap.org/12/1/2.png", proxy.URL(coord))
	assert.Equal(t, "https://c.tile.openstreetmap.org/12/1/2.png", proxy.URL(coord))
	assert.Equal(t, "https://a.tile.openstreetmap.org/12/1/2.png", proxy.URL(coord))
}

func TestTileProxy_ContentType(t *testing.T) {
	tests := []struct {
		template string
		want     string
	}{
		{"http://x/{z}/{x}/{y}.png", "image/png"},
		{"http://x/{z}/{x}/{y}.jpg", "image/jpeg"},
		{"http://x/{z}/{x}/{y}.webp", "image/webp"},
		{"http://x/{z}/{x}/{y}", "application/octet-stream"},
	}
	for _, tt := range tests {
		p := NewTileProxy(TileProxyOptions{Template: tt.template}, nil)
		assert.Equal(t, tt.want, p.contentType(), tt.template)
	}
}

func TestTileProxy_ServeHTTP(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("png"))
	}))
	defer upstream.Close()

	proxy := NewTileProxy(testProxyOptions(upstream.URL), nil)

	rr := httptest.NewRecorder()
	proxy.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tiles/3/2/1.png", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, "png", rr.Body.String())

	rr = httptest.NewRecorder()
	proxy.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tiles/3/99/1.png", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	proxy.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tiles/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTileProxy_ServeHTTP_UpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	proxy := NewTileProxy(testProxyOptions(upstream.URL), nil)
	rr := httptest.NewRecorder()
	proxy.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/1/0/0.png", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestParseTilePath(t *testing.T) {
	coord, err := ParseTilePath("/12/1144/1494.png")
	require.NoError(t, err)
	assert.Equal(t, TileCoord{Z: 12, X: 1144, Y: 1494}, coord)

	coord, err = ParseTilePath("/tiles/0/0/0")
	require.NoError(t, err)
	assert.Equal(t, TileCoord{}, coord)

	_, err = ParseTilePath("/1/x/0.png")
	assert.Error(t, err)
	_, err = ParseTilePath("/1/0")
	assert.Error(t, err)
}
