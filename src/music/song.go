package music

// UpstreamSong is the song descriptor returned by a lookup against the upstream service.
type UpstreamSong struct {
	Title     string   `json:"title"`
	Artist    string   `json:"artist"`
	AudioURL  string   `json:"audio_url"`
	LyricURL  string   `json:"lyric_url"`
	CoverURL  string   `json:"cover_url"`
	Duration  Duration `json:"duration"`
	FromCache bool     `json:"from_cache"`
}

// HasLyric reports whether the upstream advertised a lyric asset.
func (s *UpstreamSong) HasLyric() bool {
	return s.LyricURL != ""
}

// Resolution is what a search returns to clients. Asset URLs always point at
// this proxy, never at the upstream.
type Resolution struct {
	Title     string   `json:"title"`
	Artist    string   `json:"artist"`
	AudioURL  string   `json:"audio_url"`
	LyricURL  *string  `json:"lyric_url"`
	Duration  Duration `json:"duration"`
	FromCache bool     `json:"from_cache"`
	SongID    SongID   `json:"song_id"`
}

// AudioProxyPath returns the proxy path serving the cached audio for id.
func AudioProxyPath(id SongID) string {
	return "/proxy_audio?id=" + id.String()
}

// LyricProxyPath returns the proxy path serving the cached lyric for id.
func LyricProxyPath(id SongID) string {
	return "/proxy_lyric?id=" + id.String()
}
