package download

import "strings"

// Kind selects the extraction strategy for a requested output format.
type Kind int

const (
	// KindAudio requests audio-only extraction with the format as codec.
	KindAudio Kind = iota
	// KindVideo requests best video+audio merged into the format's container.
	KindVideo
)

var (
	audioFormats = []string{"mp3", "m4a", "wav", "aac"}
	videoFormats = []string{"mp4", "webm", "flv", "ogg", "mkv"}
)

// ValidFormats returns every accepted output format, video formats first.
func ValidFormats() []string {
	all := make([]string, 0, len(videoFormats)+len(audioFormats))
	all = append(all, videoFormats...)
	all = append(all, audioFormats...)
	return all
}

// NormalizeFormat lower-cases format and classifies it. Unrecognized
// formats yield an *InvalidFormatError carrying the valid set.
func NormalizeFormat(format string) (string, Kind, error) {
	lower := strings.ToLower(format)
	for _, f := range audioFormats {
		if lower == f {
			return lower, KindAudio, nil
		}
	}
	for _, f := range videoFormats {
		if lower == f {
			return lower, KindVideo, nil
		}
	}
	return "", 0, &InvalidFormatError{Format: format, Valid: ValidFormats()}
}
