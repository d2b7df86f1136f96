package resolving

import (
	"context"

	"github.com/contre95/xiaozhi-adapter/src/music"
)

// Upstream is the lookup service songs and their assets are resolved against.
type Upstream interface {
	// Lookup searches a song. A non-2xx answer yields ErrUpstreamStatus, a
	// transport failure ErrUpstreamUnavailable and an undecodable body
	// ErrUpstreamMalformed.
	Lookup(ctx context.Context, song, artist string) (*music.UpstreamSong, error)
	// FetchAudio downloads the audio asset behind ref.
	FetchAudio(ctx context.Context, ref string) ([]byte, error)
	// FetchLyric downloads the lyric behind ref with HTML entities decoded.
	FetchLyric(ctx context.Context, ref string) (string, error)
}

// Cache is a bounded asset store keyed by song id.
type Cache[V any] interface {
	Get(key string) (V, bool)
	// Put returns the keys evicted to make room.
	Put(key string, value V) []string
	Clear() int
	Len() int
	Keys() []string
	SetCapacity(capacity int)
}
