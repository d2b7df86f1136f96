package music

import (
	"math"
	"strconv"
	"strings"
)

// LyricLine is one timed line of a synced lyric.
type LyricLine struct {
	Time int64  `json:"time"` // offset in milliseconds
	Text string `json:"text"`
}

var lrcMetadataTags = []string{"ar:", "ti:", "al:", "by:", "offset:"}

// ParseLRC converts LRC text into timed lines, keeping the order in which
// they appear in the source. Lines that cannot be parsed are skipped, so the
// result is never an error, only possibly empty.
func ParseLRC(raw string) []LyricLine {
	lines := make([]LyricLine, 0)
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if parsed, ok := parseLRCLine(line); ok {
			lines = append(lines, parsed)
		}
	}
	return lines
}

func parseLRCLine(line string) (LyricLine, bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, "[") {
		return LyricLine{}, false
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return LyricLine{}, false
	}
	tag := line[1:end]
	text := strings.TrimSpace(line[end+1:])

	if isLRCMetadata(tag) {
		return LyricLine{}, false
	}
	parts := strings.Split(tag, ":")
	if len(parts) != 2 {
		return LyricLine{}, false
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return LyricLine{}, false
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return LyricLine{}, false
	}
	if text == "" {
		return LyricLine{}, false
	}
	ms := math.Round((float64(minutes)*60 + seconds) * 1000)
	return LyricLine{Time: int64(ms), Text: text}, true
}

func isLRCMetadata(tag string) bool {
	for _, prefix := range lrcMetadataTags {
		if strings.HasPrefix(tag, prefix) {
			return true
		}
	}
	return false
}
