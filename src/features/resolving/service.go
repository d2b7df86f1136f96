package resolving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/contre95/xiaozhi-adapter/src/features/config"
	"github.com/contre95/xiaozhi-adapter/src/features/metrics"
	"github.com/contre95/xiaozhi-adapter/src/music"
	"github.com/dustin/go-humanize"
)

// CacheKind selects which asset cache an operation applies to.
type CacheKind string

const (
	CacheAll   CacheKind = "all"
	CacheAudio CacheKind = "audio"
	CacheLyric CacheKind = "lyric"
)

// CacheSnapshot describes the content of both caches.
type CacheSnapshot struct {
	AudioSize int
	LyricSize int
	AudioKeys []string
	LyricKeys []string
}

// Service resolves songs against the upstream, prefetches their assets and
// serves them back from its caches.
type Service struct {
	upstream Upstream
	audio    Cache[[]byte]
	lyrics   Cache[string]
	metrics  *metrics.Recorder
}

// NewService creates a new resolving service. When cfg is given the cache
// capacity follows its cache.max_size setting.
func NewService(upstream Upstream, audio Cache[[]byte], lyrics Cache[string], cfg *config.Manager, recorder *metrics.Recorder) *Service {
	s := &Service{
		upstream: upstream,
		audio:    audio,
		lyrics:   lyrics,
		metrics:  recorder,
	}
	if cfg != nil {
		s.SetCacheCapacity(cfg.Get().Cache.MaxSize)
		cfg.Subscribe(func(old, updated *config.Config) {
			if old == nil || old.Cache.MaxSize != updated.Cache.MaxSize {
				s.SetCacheCapacity(updated.Cache.MaxSize)
			}
		})
	}
	return s
}

// Resolve looks the song up upstream, prefetches its audio and lyric and
// returns a descriptor whose asset URLs point at this proxy. Prefetch
// failures are logged and never returned.
func (s *Service) Resolve(ctx context.Context, song, artist string) (*music.Resolution, error) {
	song = strings.TrimSpace(song)
	artist = strings.TrimSpace(artist)
	if song == "" {
		return nil, ErrMissingSong
	}

	slog.Info("Searching song", "song", song, "artist", artist)
	found, err := s.upstream.Lookup(ctx, song, artist)
	if err != nil {
		return nil, s.lookupFailed(song, artist, err)
	}

	title := firstNonEmpty(found.Title, song)
	artistName := firstNonEmpty(found.Artist, artist, "Unknown")
	slog.Info("Found song", "title", title, "artist", artistName, "from_cache", found.FromCache, "has_lyric", found.HasLyric())
	slog.Debug("Upstream asset references", "audio_url", found.AudioURL, "lyric_url", found.LyricURL, "cover_url", found.CoverURL)

	if found.AudioURL == "" {
		slog.Error("No audio_url in upstream response", "title", title, "artist", artistName)
		s.metrics.Resolution("no_audio")
		return nil, ErrNoAudioAvailable
	}

	id := music.DeriveSongID(title, artistName)
	s.prefetchAudio(ctx, id, found.AudioURL)
	if found.HasLyric() {
		s.prefetchLyric(ctx, id, found.LyricURL)
	}

	res := &music.Resolution{
		Title:     title,
		Artist:    artistName,
		AudioURL:  music.AudioProxyPath(id),
		Duration:  found.Duration,
		FromCache: found.FromCache,
		SongID:    id,
	}
	if found.HasLyric() {
		lyricURL := music.LyricProxyPath(id)
		res.LyricURL = &lyricURL
	}

	s.metrics.Resolution("resolved")
	slog.Info("Returning song", "title", title, "artist", artistName, "song_id", id, "with_lyric", found.HasLyric())
	return res, nil
}

func (s *Service) lookupFailed(song, artist string, err error) error {
	switch {
	case errors.Is(err, ErrUpstreamStatus):
		slog.Error("Xiaozhishop has no result", "song", song, "artist", artist, "error", err)
		s.metrics.Resolution("not_found")
		return fmt.Errorf("%w: %w", ErrSongNotFound, err)
	case errors.Is(err, ErrUpstreamMalformed):
		slog.Error("Xiaozhishop returned an unreadable response", "song", song, "error", err)
		s.metrics.Resolution("malformed")
	case errors.Is(err, ErrUpstreamUnavailable):
		slog.Error("Xiaozhishop request failed", "song", song, "error", err)
		s.metrics.Resolution("unavailable")
	default:
		slog.Error("Lookup failed", "song", song, "error", err)
		s.metrics.Resolution("error")
	}
	return err
}

func (s *Service) prefetchAudio(ctx context.Context, id music.SongID, ref string) {
	s.metrics.PrefetchAttempted(metrics.AssetAudio)
	slog.Info("Pre-downloading audio", "song_id", id)

	data, err := s.upstream.FetchAudio(ctx, ref)
	if err != nil {
		s.metrics.PrefetchFailed(metrics.AssetAudio)
		slog.Warn("Failed to pre-download audio", "song_id", id, "error", err)
		return
	}

	format := music.AudioFormat(data)
	evicted := s.audio.Put(id.String(), data)
	s.cacheChanged(metrics.AssetAudio, s.audio.Len(), evicted)
	s.metrics.PrefetchSucceeded(metrics.AssetAudio, format, len(data))
	slog.Info("Downloaded audio", "song_id", id, "size", humanize.Bytes(uint64(len(data))), "format", format)
}

func (s *Service) prefetchLyric(ctx context.Context, id music.SongID, ref string) {
	s.metrics.PrefetchAttempted(metrics.AssetLyric)
	slog.Info("Pre-downloading lyric", "song_id", id)

	text, err := s.upstream.FetchLyric(ctx, ref)
	if err != nil {
		s.metrics.PrefetchFailed(metrics.AssetLyric)
		slog.Warn("Failed to pre-download lyric", "song_id", id, "error", err)
		return
	}

	evicted := s.lyrics.Put(id.String(), text)
	s.cacheChanged(metrics.AssetLyric, s.lyrics.Len(), evicted)
	s.metrics.PrefetchSucceeded(metrics.AssetLyric, "lrc", len(text))
	slog.Info("Downloaded lyric", "song_id", id, "chars", len([]rune(text)))
}

func (s *Service) cacheChanged(asset string, size int, evicted []string) {
	for _, key := range evicted {
		slog.Info("Removed entry from cache", "cache", asset, "song_id", key)
	}
	s.metrics.Evicted(asset, len(evicted))
	s.metrics.CacheEntries(asset, size)
}

// Audio returns the cached audio of a resolved song. A miss is final: the
// client has to search again.
func (s *Service) Audio(id string) ([]byte, error) {
	data, ok := s.audio.Get(id)
	s.metrics.ProxyRead(metrics.AssetAudio, ok)
	if !ok {
		return nil, ErrAssetNotCached
	}
	return data, nil
}

// Lyric returns the cached raw lyric text of a resolved song.
func (s *Service) Lyric(id string) (string, error) {
	text, ok := s.lyrics.Get(id)
	s.metrics.ProxyRead(metrics.AssetLyric, ok)
	if !ok {
		return "", ErrAssetNotCached
	}
	return text, nil
}

// ClearCache empties the caches selected by kind.
func (s *Service) ClearCache(kind CacheKind) (CacheSnapshot, error) {
	switch kind {
	case CacheAll, CacheAudio, CacheLyric:
	default:
		return CacheSnapshot{}, fmt.Errorf("%w: %q", ErrUnknownCacheKind, kind)
	}
	if kind == CacheAll || kind == CacheAudio {
		n := s.audio.Clear()
		s.metrics.CacheEntries(metrics.AssetAudio, 0)
		slog.Info("Cleared audio cache", "removed", n)
	}
	if kind == CacheAll || kind == CacheLyric {
		n := s.lyrics.Clear()
		s.metrics.CacheEntries(metrics.AssetLyric, 0)
		slog.Info("Cleared lyric cache", "removed", n)
	}
	return s.Snapshot(), nil
}

// Snapshot reports cache sizes and keys, least recently used first.
func (s *Service) Snapshot() CacheSnapshot {
	return CacheSnapshot{
		AudioSize: s.audio.Len(),
		LyricSize: s.lyrics.Len(),
		AudioKeys: s.audio.Keys(),
		LyricKeys: s.lyrics.Keys(),
	}
}

// SetCacheCapacity changes the limit of both caches for future inserts.
func (s *Service) SetCacheCapacity(n int) {
	s.audio.SetCapacity(n)
	s.lyrics.SetCapacity(n)
	slog.Debug("Cache capacity set", "max_size", n)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
