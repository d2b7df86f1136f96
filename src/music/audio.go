package music

import (
	"bytes"

	"github.com/dhowden/tag"
)

// UnknownAudioFormat is reported for payloads tag cannot identify.
const UnknownAudioFormat = "unknown"

// AudioFormat identifies the container of an audio payload (MP3, FLAC, ...).
func AudioFormat(data []byte) string {
	_, fileType, err := tag.Identify(bytes.NewReader(data))
	if err != nil || fileType == tag.UnknownFileType {
		return UnknownAudioFormat
	}
	return string(fileType)
}
