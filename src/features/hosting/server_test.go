package hosting

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/contre95/xiaozhi-adapter/src/features/config"
	"github.com/contre95/xiaozhi-adapter/src/features/metrics"
	"github.com/contre95/xiaozhi-adapter/src/features/resolving"
	"github.com/contre95/xiaozhi-adapter/src/infra/cache"
	"github.com/contre95/xiaozhi-adapter/src/infra/upstream"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testLRC = "[ti:Test]\n[00:01.50]Hello\n[00:03.00]World"

type upstreamStub struct {
	lyricStatus int
}

func (u *upstreamStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/stream_pcm":
		if r.URL.Query().Get("song") == "Missing Song" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"title":"Test","artist":"Artist","audio_url":"/a.mp3","lyric_url":"/a.lrc","duration":200}`)
	case "/a.mp3":
		w.Write([]byte("FAKE-AUDIO-BYTES"))
	case "/a.lrc":
		if u.lyricStatus != 0 {
			w.WriteHeader(u.lyricStatus)
			return
		}
		io.WriteString(w, testLRC)
	default:
		http.NotFound(w, r)
	}
}

func newTestApp(t *testing.T, stub *upstreamStub) (*fiber.App, *config.Manager) {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Upstream.Host = host
	cfg.Upstream.Port = port
	cfg.Upstream.RetryMax = 0
	manager := config.NewManager(cfg)

	registry := prometheus.NewRegistry()
	service := resolving.NewService(
		upstream.NewXiaozhishopClient(manager),
		cache.NewLRU[[]byte](cfg.Cache.MaxSize),
		cache.NewLRU[string](cfg.Cache.MaxSize),
		manager,
		metrics.NewRecorder(registry),
	)
	return NewServer(manager, service, registry).App(), manager
}

func do(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestSearchThenProxy(t *testing.T) {
	app, _ := newTestApp(t, &upstreamStub{})

	resp, body := do(t, app, http.MethodGet, "/stream_pcm?song=Test&artist=Artist", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode(t, body)
	require.Equal(t, "e639125350be", got["song_id"])
	require.Equal(t, "Test", got["title"])
	require.Equal(t, "Artist", got["artist"])
	require.Equal(t, "/proxy_audio?id=e639125350be", got["audio_url"])
	require.Equal(t, "/proxy_lyric?id=e639125350be", got["lyric_url"])
	require.Equal(t, 200.0, got["duration"])
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, body = do(t, app, http.MethodGet, "/proxy_audio?id=e639125350be", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	require.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
	require.Equal(t, "public, max-age=86400", resp.Header.Get("Cache-Control"))
	require.Equal(t, "FAKE-AUDIO-BYTES", string(body))

	resp, body = do(t, app, http.MethodGet, "/proxy_lyric?id=e639125350be", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	require.Equal(t, testLRC, string(body))

	resp, body = do(t, app, http.MethodGet, "/proxy_lyric?id=e639125350be&format=json", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode(t, body)
	require.Equal(t, true, got["success"])
	require.Equal(t, "json", got["format"])
	require.Equal(t, []any{
		map[string]any{"time": 1500.0, "text": "Hello"},
		map[string]any{"time": 3000.0, "text": "World"},
	}, got["lyrics"])
}

func TestSearch_LyricFailureStillSucceeds(t *testing.T) {
	app, _ := newTestApp(t, &upstreamStub{lyricStatus: http.StatusInternalServerError})

	resp, body := do(t, app, http.MethodGet, "/stream_pcm?song=Test&artist=Artist", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/proxy_lyric?id=e639125350be", decode(t, body)["lyric_url"])

	resp, body = do(t, app, http.MethodGet, "/proxy_lyric?id=e639125350be", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Lyric not in cache, please search again", decode(t, body)["error"])

	resp, _ = do(t, app, http.MethodGet, "/proxy_audio?id=e639125350be", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSearch_Errors(t *testing.T) {
	app, _ := newTestApp(t, &upstreamStub{})

	resp, body := do(t, app, http.MethodGet, "/stream_pcm", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Missing song parameter", decode(t, body)["error"])

	resp, body = do(t, app, http.MethodGet, "/stream_pcm?song=Missing%20Song", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	got := decode(t, body)
	require.Equal(t, "Song not found", got["error"])
	require.Equal(t, "Missing Song", got["title"])
	require.Equal(t, "Unknown", got["artist"])
}

func TestProxy_MissingAndUnknownIDs(t *testing.T) {
	app, _ := newTestApp(t, &upstreamStub{})

	resp, body := do(t, app, http.MethodGet, "/proxy_audio", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Missing id parameter", decode(t, body)["error"])

	resp, _ = do(t, app, http.MethodGet, "/proxy_lyric", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, app, http.MethodGet, "/proxy_audio?id=000000000000", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Audio not in cache, please search again", decode(t, body)["error"])
}

func TestClearCache_SelectedKind(t *testing.T) {
	app, _ := newTestApp(t, &upstreamStub{})
	resp, _ := do(t, app, http.MethodGet, "/stream_pcm?song=Test&artist=Artist", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, app, http.MethodPost, "/clear_cache", `{"type":"audio"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode(t, body)
	require.Equal(t, "Cleared audio cache", got["message"])
	require.Equal(t, 0.0, got["audio_cache_size"])
	require.Equal(t, 1.0, got["lyric_cache_size"])

	resp, _ = do(t, app, http.MethodGet, "/proxy_audio?id=e639125350be", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/clear_cache", `{"type":"video"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, app, http.MethodPost, "/clear_cache", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Cleared all cache", decode(t, body)["message"])
	require.Equal(t, 0.0, decode(t, body)["lyric_cache_size"])
}

func TestHealthAndConfig(t *testing.T) {
	app, manager := newTestApp(t, &upstreamStub{})
	do(t, app, http.MethodGet, "/stream_pcm?song=Test&artist=Artist", "")

	resp, body := do(t, app, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode(t, body)
	require.Equal(t, "ok", got["status"])
	require.Equal(t, "xiaozhishop", got["source"])
	require.Equal(t, 1.0, got["audio_cache_size"])
	require.Equal(t, []any{"e639125350be"}, got["cached_songs"])
	require.Equal(t, manager.Get().Upstream.BaseURL(), got["config"].(map[string]any)["xiaozhishop_url"])

	resp, body = do(t, app, http.MethodPost, "/config", `{"cache_max_size":"5"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode(t, body)
	require.Equal(t, true, got["success"])
	require.Equal(t, 5.0, got["config"].(map[string]any)["cache_max_size"])

	resp, _ = do(t, app, http.MethodPost, "/config", `{"cache_max_size":0,"xiaozhishop_host":"example.org"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, app, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode(t, body)
	require.Equal(t, 5.0, got["cache_max_size"])
	require.Equal(t, manager.Get().Upstream.Host, got["xiaozhishop"].(map[string]any)["host"])
	require.NotEqual(t, "example.org", got["xiaozhishop"].(map[string]any)["host"])
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApp(t, &upstreamStub{})
	do(t, app, http.MethodGet, "/stream_pcm?song=Test&artist=Artist", "")

	resp, body := do(t, app, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `xiaozhi_resolutions_total{outcome="resolved"} 1`)
}
