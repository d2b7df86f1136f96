package upstream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/contre95/xiaozhi-adapter/src/features/config"
	"github.com/contre95/xiaozhi-adapter/src/features/resolving"
	"github.com/contre95/xiaozhi-adapter/src/music"
	"github.com/hashicorp/go-retryablehttp"
)

const lookupPath = "/stream_pcm"

// XiaozhishopClient implements resolving.Upstream against a xiaozhishop server.
type XiaozhishopClient struct {
	cfg    *config.Manager
	client atomic.Pointer[http.Client]
}

var _ resolving.Upstream = (*XiaozhishopClient)(nil)

// NewXiaozhishopClient creates a client that reads the upstream address from
// cfg on every call, so runtime configuration changes apply immediately.
func NewXiaozhishopClient(cfg *config.Manager) *XiaozhishopClient {
	c := &XiaozhishopClient{cfg: cfg}
	c.client.Store(newHTTPClient(cfg.Get().Upstream))
	cfg.Subscribe(func(old, updated *config.Config) {
		if old == nil || old.Upstream.RetryMax != updated.Upstream.RetryMax ||
			old.Upstream.InsecureSkipVerify != updated.Upstream.InsecureSkipVerify {
			c.client.Store(newHTTPClient(updated.Upstream))
		}
	})
	return c
}

func newHTTPClient(up config.Upstream) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// upstream.insecure_skip_verify, on by default for self-signed deployments.
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: up.InsecureSkipVerify}

	rclient := retryablehttp.NewClient()
	rclient.HTTPClient = &http.Client{Transport: transport}
	rclient.RetryMax = up.RetryMax
	rclient.RetryWaitMin = 250 * time.Millisecond
	rclient.RetryWaitMax = 2 * time.Second
	rclient.Logger = slog.Default()
	rclient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rclient.StandardClient()
}

// Lookup asks the upstream to search a song.
func (c *XiaozhishopClient) Lookup(ctx context.Context, song, artist string) (*music.UpstreamSong, error) {
	up := c.cfg.Get().Upstream
	lookupURL := buildLookupURL(up.BaseURL(), song, artist)
	slog.Info("Xiaozhishop API request", "url", lookupURL)

	ctx, cancel := context.WithTimeout(ctx, up.LookupTimeout())
	defer cancel()

	resp, err := c.get(ctx, lookupURL, up.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", resolving.ErrUpstreamUnavailable, redact(err))
	}
	defer resp.Body.Close()

	slog.Info("Xiaozhishop response", "status", resp.StatusCode)
	if !success(resp.StatusCode) {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d %s", resolving.ErrUpstreamStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var found music.UpstreamSong
	if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", resolving.ErrUpstreamUnavailable, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", resolving.ErrUpstreamMalformed, err)
	}
	return &found, nil
}

// FetchAudio downloads an audio asset.
func (c *XiaozhishopClient) FetchAudio(ctx context.Context, ref string) ([]byte, error) {
	return c.FetchAsset(ctx, ref, c.cfg.Get().Upstream.AudioFetchTimeout())
}

// FetchLyric downloads a lyric asset and decodes HTML entities such as &apos;.
func (c *XiaozhishopClient) FetchLyric(ctx context.Context, ref string) (string, error) {
	data, err := c.FetchAsset(ctx, ref, c.cfg.Get().Upstream.LyricFetchTimeout())
	if err != nil {
		return "", err
	}
	return html.UnescapeString(string(data)), nil
}

// FetchAsset downloads ref, resolved against the upstream base URL unless it
// is already absolute, within timeout.
func (c *XiaozhishopClient) FetchAsset(ctx context.Context, ref string, timeout time.Duration) ([]byte, error) {
	up := c.cfg.Get().Upstream
	assetURL, err := resolveReference(up.BaseURL(), ref)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid asset reference: %w", resolving.ErrFetchFailed, redact(err))
	}
	slog.Debug("Fetching asset", "url", assetURL, "timeout", timeout)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.get(ctx, assetURL, up.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", resolving.ErrFetchFailed, redact(err))
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d %s", resolving.ErrFetchFailed, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", resolving.ErrFetchFailed, redact(err))
	}
	return data, nil
}

func (c *XiaozhishopClient) get(ctx context.Context, rawURL, userAgent string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return c.client.Load().Do(req)
}

// buildLookupURL builds the search URL. The song parameter carries the
// whitespace-normalized "song artist" query, the artist is repeated on its own.
func buildLookupURL(baseURL, song, artist string) string {
	query := song
	if artist != "" {
		query = song + " " + artist
	}
	lookupURL := baseURL + lookupPath + "?song=" + escape(normalizeQuery(query))
	if artist != "" {
		lookupURL += "&artist=" + escape(artist)
	}
	return lookupURL
}

func normalizeQuery(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// escape percent-encodes every reserved byte, spaces included.
func escape(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

func resolveReference(baseURL, ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(rel).String(), nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// redact strips the URL that net/http attaches to transport errors.
func redact(err error) error {
	for {
		var uerr *url.Error
		if !errors.As(err, &uerr) {
			return err
		}
		err = uerr.Err
	}
}
