package music

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const songIDLength = 12

// SongID addresses both asset caches and the proxy URLs of a song.
type SongID string

func (id SongID) String() string { return string(id) }

// DeriveSongID maps a title and artist to a short content address. Only the
// ends of the joined key are trimmed; whitespace inside title or artist is kept.
func DeriveSongID(title, artist string) SongID {
	key := strings.ToLower(strings.TrimSpace(title + "_" + artist))
	sum := md5.Sum([]byte(key))
	return SongID(hex.EncodeToString(sum[:])[:songIDLength])
}
