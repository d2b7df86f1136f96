package resolving

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/contre95/xiaozhi-adapter/src/features/config"
	"github.com/contre95/xiaozhi-adapter/src/features/metrics"
	"github.com/contre95/xiaozhi-adapter/src/infra/cache"
	"github.com/contre95/xiaozhi-adapter/src/music"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// MockUpstream is an in-memory stand-in for the xiaozhishop service.
type MockUpstream struct {
	mu        sync.Mutex
	song      *music.UpstreamSong
	lookupErr error
	assets    map[string]string
	lyricRefs []string
}

func NewMockUpstream(song *music.UpstreamSong) *MockUpstream {
	return &MockUpstream{song: song, assets: make(map[string]string)}
}

func (m *MockUpstream) Lookup(ctx context.Context, song, artist string) (*music.UpstreamSong, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	cpy := *m.song
	return &cpy, nil
}

func (m *MockUpstream) fetch(ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.assets[ref]
	if !ok {
		return "", fmt.Errorf("%w: 404 Not Found", ErrFetchFailed)
	}
	return data, nil
}

func (m *MockUpstream) FetchAudio(ctx context.Context, ref string) ([]byte, error) {
	data, err := m.fetch(ref)
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (m *MockUpstream) FetchLyric(ctx context.Context, ref string) (string, error) {
	m.mu.Lock()
	m.lyricRefs = append(m.lyricRefs, ref)
	m.mu.Unlock()
	return m.fetch(ref)
}

func testSong() *music.UpstreamSong {
	return &music.UpstreamSong{
		Title:    "Test",
		Artist:   "Artist",
		AudioURL: "/a.mp3",
		LyricURL: "/a.lrc",
		Duration: music.DurationOf(200),
	}
}

func newTestService(up Upstream) *Service {
	return NewService(up, cache.NewLRU[[]byte](20), cache.NewLRU[string](20), nil, nil)
}

func TestResolve_PrefetchesBothAssets(t *testing.T) {
	up := NewMockUpstream(testSong())
	up.assets["/a.mp3"] = "AUDIO"
	up.assets["/a.lrc"] = "[00:01.00]hi"
	s := newTestService(up)

	res, err := s.Resolve(context.Background(), "test", "artist")
	require.NoError(t, err)

	id := music.DeriveSongID("Test", "Artist")
	require.Equal(t, id, res.SongID)
	require.Equal(t, "Test", res.Title)
	require.Equal(t, "Artist", res.Artist)
	require.Equal(t, "/proxy_audio?id="+id.String(), res.AudioURL)
	require.NotNil(t, res.LyricURL)
	require.Equal(t, "/proxy_lyric?id="+id.String(), *res.LyricURL)
	require.Equal(t, "200", res.Duration.String())

	audio, err := s.Audio(id.String())
	require.NoError(t, err)
	require.Equal(t, []byte("AUDIO"), audio)

	lyric, err := s.Lyric(id.String())
	require.NoError(t, err)
	require.Equal(t, "[00:01.00]hi", lyric)
}

func TestResolve_MissingSong(t *testing.T) {
	s := newTestService(NewMockUpstream(testSong()))
	_, err := s.Resolve(context.Background(), "   ", "Artist")
	require.ErrorIs(t, err, ErrMissingSong)
}

func TestResolve_UpstreamStatusMeansNotFound(t *testing.T) {
	up := NewMockUpstream(testSong())
	up.lookupErr = fmt.Errorf("%w: 404 Not Found", ErrUpstreamStatus)
	s := newTestService(up)

	_, err := s.Resolve(context.Background(), "Test", "")
	require.ErrorIs(t, err, ErrSongNotFound)
}

func TestResolve_TransportAndMalformedErrorsPassThrough(t *testing.T) {
	up := NewMockUpstream(testSong())
	s := newTestService(up)

	up.lookupErr = fmt.Errorf("%w: connection refused", ErrUpstreamUnavailable)
	_, err := s.Resolve(context.Background(), "Test", "")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.False(t, errors.Is(err, ErrSongNotFound))

	up.lookupErr = fmt.Errorf("%w: invalid character", ErrUpstreamMalformed)
	_, err = s.Resolve(context.Background(), "Test", "")
	require.ErrorIs(t, err, ErrUpstreamMalformed)
}

func TestResolve_NoAudio(t *testing.T) {
	song := testSong()
	song.AudioURL = ""
	s := newTestService(NewMockUpstream(song))

	_, err := s.Resolve(context.Background(), "Test", "Artist")
	require.ErrorIs(t, err, ErrNoAudioAvailable)
	require.Zero(t, s.Snapshot().AudioSize)
	require.Zero(t, s.Snapshot().LyricSize)
}

func TestResolve_LyricFailureIsBestEffort(t *testing.T) {
	up := NewMockUpstream(testSong())
	up.assets["/a.mp3"] = "AUDIO"
	s := newTestService(up)

	res, err := s.Resolve(context.Background(), "Test", "Artist")
	require.NoError(t, err)
	require.NotNil(t, res.LyricURL)

	_, err = s.Audio(res.SongID.String())
	require.NoError(t, err)
	_, err = s.Lyric(res.SongID.String())
	require.ErrorIs(t, err, ErrAssetNotCached)
}

func TestResolve_AudioFailureIsBestEffort(t *testing.T) {
	up := NewMockUpstream(testSong())
	up.assets["/a.lrc"] = "[00:01.00]hi"
	s := newTestService(up)

	res, err := s.Resolve(context.Background(), "Test", "Artist")
	require.NoError(t, err)

	_, err = s.Audio(res.SongID.String())
	require.ErrorIs(t, err, ErrAssetNotCached)
	_, err = s.Lyric(res.SongID.String())
	require.NoError(t, err)
}

func TestResolve_WithoutLyricReference(t *testing.T) {
	song := testSong()
	song.LyricURL = ""
	up := NewMockUpstream(song)
	up.assets["/a.mp3"] = "AUDIO"
	s := newTestService(up)

	res, err := s.Resolve(context.Background(), "Test", "Artist")
	require.NoError(t, err)
	require.Nil(t, res.LyricURL)
	require.Empty(t, up.lyricRefs)
}

func TestResolve_FallsBackToCallerInput(t *testing.T) {
	song := testSong()
	song.Title = ""
	song.Artist = ""
	s := newTestService(NewMockUpstream(song))

	res, err := s.Resolve(context.Background(), "My Song", "")
	require.NoError(t, err)
	require.Equal(t, "My Song", res.Title)
	require.Equal(t, "Unknown", res.Artist)
	require.Equal(t, music.DeriveSongID("My Song", "Unknown"), res.SongID)

	res, err = s.Resolve(context.Background(), "My Song", "Someone")
	require.NoError(t, err)
	require.Equal(t, "Someone", res.Artist)
}

func TestResolve_FirstPrefetchWins(t *testing.T) {
	up := NewMockUpstream(testSong())
	up.assets["/a.mp3"] = "FIRST"
	s := newTestService(up)

	res, err := s.Resolve(context.Background(), "Test", "Artist")
	require.NoError(t, err)

	up.assets["/a.mp3"] = "SECOND"
	_, err = s.Resolve(context.Background(), "Test", "Artist")
	require.NoError(t, err)

	audio, err := s.Audio(res.SongID.String())
	require.NoError(t, err)
	require.Equal(t, []byte("FIRST"), audio)
}

func TestClearCache(t *testing.T) {
	up := NewMockUpstream(testSong())
	up.assets["/a.mp3"] = "AUDIO"
	up.assets["/a.lrc"] = "[00:01.00]hi"
	s := newTestService(up)
	_, err := s.Resolve(context.Background(), "Test", "Artist")
	require.NoError(t, err)

	snap, err := s.ClearCache(CacheAudio)
	require.NoError(t, err)
	require.Zero(t, snap.AudioSize)
	require.Equal(t, 1, snap.LyricSize)

	_, err = s.ClearCache(CacheKind("video"))
	require.ErrorIs(t, err, ErrUnknownCacheKind)

	snap, err = s.ClearCache(CacheAll)
	require.NoError(t, err)
	require.Zero(t, snap.LyricSize)
}

func TestCapacityFollowsConfig(t *testing.T) {
	manager := config.NewManager(config.Default())
	audio := cache.NewLRU[[]byte](20)
	lyrics := cache.NewLRU[string](20)
	NewService(NewMockUpstream(testSong()), audio, lyrics, manager, nil)

	_, err := manager.Apply(config.Update{})
	require.NoError(t, err)
	require.Equal(t, 20, audio.Capacity())

	next := config.Default()
	next.Cache.MaxSize = 2
	manager.Update(next)
	require.Equal(t, 2, audio.Capacity())
	require.Equal(t, 2, lyrics.Capacity())
}

func TestResolve_EvictsOldestSong(t *testing.T) {
	up := NewMockUpstream(testSong())
	up.assets["/a.mp3"] = "AUDIO"
	s := NewService(up, cache.NewLRU[[]byte](2), cache.NewLRU[string](2), nil, metrics.NewRecorder(prometheus.NewRegistry()))

	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		up.song.Title = title
		res, err := s.Resolve(context.Background(), title, "Artist")
		require.NoError(t, err)
		ids = append(ids, res.SongID.String())
	}

	require.Equal(t, ids[1:], s.Snapshot().AudioKeys)
	_, err := s.Audio(ids[0])
	require.ErrorIs(t, err, ErrAssetNotCached)
}
