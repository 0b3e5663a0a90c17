package player

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned when no decoder matches a stream.
var ErrUnsupportedFormat = errors.New("unsupported format")

const (
	formatMP3  = "mp3"
	formatFLAC = "flac"
	formatOgg  = "ogg"
	formatM4A  = "m4a"
	formatWAV  = "wav"
)

var mimeFormats = map[string]string{
	"audio/mpeg":      formatMP3,
	"audio/mp3":       formatMP3,
	"audio/flac":      formatFLAC,
	"audio/x-flac":    formatFLAC,
	"audio/ogg":       formatOgg,
	"audio/opus":      formatOgg,
	"audio/vorbis":    formatOgg,
	"application/ogg": formatOgg,
	"audio/mp4":       formatM4A,
	"audio/x-m4a":     formatM4A,
	"audio/aac":       formatM4A,
	"audio/wav":       formatWAV,
	"audio/wave":      formatWAV,
	"audio/x-wav":     formatWAV,
}

var extFormats = map[string]string{
	".mp3":  formatMP3,
	".flac": formatFLAC,
	".ogg":  formatOgg,
	".oga":  formatOgg,
	".opus": formatOgg,
	".m4a":  formatM4A,
	".mp4":  formatM4A,
	".wav":  formatWAV,
}

// detectFormat picks a decoder from the response content type, falling
// back to the URL path extension.
func detectFormat(contentType, rawURL string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if f, ok := mimeFormats[strings.ToLower(mt)]; ok {
			return f
		}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return extFormats[strings.ToLower(path.Ext(u.Path))]
}

// memFile lets decoders seek over a fully downloaded stream.
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func decode(data []byte, contentType, rawURL string) (beep.StreamSeekCloser, beep.Format, error) {
	r := memFile{bytes.NewReader(data)}
	switch f := detectFormat(contentType, rawURL); f {
	case formatMP3:
		return decodeMP3(r)
	case formatFLAC:
		return flac.Decode(r)
	case formatOgg:
		return decodeOgg(data)
	case formatM4A:
		return decodeM4A(r)
	case formatWAV:
		return wav.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
	}
}
