package resolving

import "errors"

var (
	ErrMissingSong      = errors.New("Missing song parameter")
	ErrSongNotFound     = errors.New("Song not found")
	ErrNoAudioAvailable = errors.New("No audio URL available")
	ErrAssetNotCached   = errors.New("Asset not in cache, please search again")
	ErrUnknownCacheKind = errors.New("Unknown cache type")

	// Upstream client failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamStatus      = errors.New("upstream returned a non-success status")
	ErrUpstreamMalformed   = errors.New("upstream returned a malformed response")
	ErrFetchFailed         = errors.New("asset fetch failed")
)
