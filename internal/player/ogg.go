package player

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gopxl/beep/v2"
	"github.com/jfreymuth/vorbis"
	"github.com/jj11hh/opus"
)

const (
	opusSampleRate = 48000
	// Opus needs 80 ms of decoded audio before a seek target to converge.
	opusPreroll = 3840
	maxOggFrame = 8192
)

var (
	errOggCapture   = errors.New("ogg: invalid capture pattern")
	errOggTruncated = errors.New("ogg: truncated page")
	errOggCodec     = errors.New("ogg: neither opus nor vorbis")
)

// oggPacket is one complete packet. granule is the page granule when the
// packet is the last one finished on its page, -1 otherwise.
type oggPacket struct {
	data    []byte
	granule int64
}

// splitOgg extracts the packets of the first logical stream in data.
func splitOgg(data []byte) ([]oggPacket, error) {
	var (
		packets []oggPacket
		partial []byte
		serial  uint32
		first   = true
	)
	for len(data) > 0 {
		if len(data) < 27 {
			return nil, errOggTruncated
		}
		if string(data[:4]) != "OggS" {
			return nil, errOggCapture
		}
		granule := int64(binary.LittleEndian.Uint64(data[6:14])) //nolint:gosec // granule is signed on the wire
		pageSerial := binary.LittleEndian.Uint32(data[14:18])
		segments := int(data[26])
		if len(data) < 27+segments {
			return nil, errOggTruncated
		}
		lacing := data[27 : 27+segments]
		body := data[27+segments:]
		size := 0
		for _, l := range lacing {
			size += int(l)
		}
		if len(body) < size {
			return nil, errOggTruncated
		}
		data = body[size:]

		if first {
			serial, first = pageSerial, false
		}
		if pageSerial != serial {
			continue
		}

		lastDone := -1
		off := 0
		for _, l := range lacing {
			partial = append(partial, body[off:off+int(l)]...)
			off += int(l)
			if l < 255 {
				packets = append(packets, oggPacket{data: partial, granule: -1})
				partial = nil
				lastDone = len(packets) - 1
			}
		}
		if lastDone >= 0 {
			packets[lastDone].granule = granule
		}
	}
	return packets, nil
}

// oggCodec decodes the packets of one Ogg stream.
type oggCodec interface {
	sampleRate() int
	channels() int
	preSkip() int
	// header consumes a header packet and reports whether audio follows.
	header(pkt []byte) (bool, error)
	decode(pkt []byte, pcm []float32) (int, error)
	reset()
}

func newOggCodec(first []byte) (oggCodec, error) {
	switch {
	case len(first) >= 19 && string(first[:8]) == "OpusHead":
		channels := int(first[9])
		dec, err := opus.NewDecoder(opusSampleRate, channels)
		if err != nil {
			return nil, err
		}
		return &opusCodec{
			dec:   dec,
			chans: channels,
			skip:  int(binary.LittleEndian.Uint16(first[10:12])),
		}, nil
	case len(first) >= 16 && first[0] == 1 && string(first[1:7]) == "vorbis":
		return &vorbisCodec{
			chans:   int(first[11]),
			rate:    int(binary.LittleEndian.Uint32(first[12:16])),
			headers: [][]byte{first},
		}, nil
	}
	return nil, errOggCodec
}

type opusCodec struct {
	dec   *opus.Decoder
	chans int
	skip  int
}

func (c *opusCodec) sampleRate() int { return opusSampleRate }
func (c *opusCodec) channels() int   { return c.chans }
func (c *opusCodec) preSkip() int    { return c.skip }

// header skips OpusTags, the only header after OpusHead.
func (c *opusCodec) header([]byte) (bool, error) { return true, nil }

func (c *opusCodec) decode(pkt []byte, pcm []float32) (int, error) {
	return c.dec.DecodeFloat32(pkt, pcm)
}

func (c *opusCodec) reset() {}

type vorbisCodec struct {
	dec     *vorbis.Decoder
	chans   int
	rate    int
	headers [][]byte
}

func (c *vorbisCodec) sampleRate() int { return c.rate }
func (c *vorbisCodec) channels() int   { return c.chans }
func (c *vorbisCodec) preSkip() int    { return 0 }

// header collects the comment and setup headers, then builds the decoder.
func (c *vorbisCodec) header(pkt []byte) (bool, error) {
	c.headers = append(c.headers, pkt)
	if len(c.headers) < 3 {
		return false, nil
	}
	dec := &vorbis.Decoder{}
	for _, h := range c.headers {
		if err := dec.ReadHeader(h); err != nil {
			return false, err
		}
	}
	c.dec, c.headers = dec, nil
	return true, nil
}

func (c *vorbisCodec) decode(pkt []byte, pcm []float32) (int, error) {
	out, err := c.dec.Decode(pkt)
	if err != nil {
		return 0, err
	}
	return copy(pcm, out) / c.chans, nil
}

func (c *vorbisCodec) reset() { c.dec.Clear() }

// oggStream plays Opus or Vorbis audio demuxed up front.
type oggStream struct {
	codec   oggCodec
	packets []oggPacket // audio packets only
	total   int

	next int
	pcm  []float32
	buf  []float32
	pos  int // samples emitted, negative while inside the pre-skip
	err  error
}

func decodeOgg(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	packets, err := splitOgg(data)
	if err != nil {
		return nil, beep.Format{}, err
	}
	if len(packets) == 0 {
		return nil, beep.Format{}, fmt.Errorf("%w: empty ogg stream", ErrUnsupportedFormat)
	}
	codec, err := newOggCodec(packets[0].data)
	if err != nil {
		return nil, beep.Format{}, err
	}

	audio := packets[1:]
	for done := false; !done; {
		if len(audio) == 0 {
			return nil, beep.Format{}, errOggTruncated
		}
		if done, err = codec.header(audio[0].data); err != nil {
			return nil, beep.Format{}, err
		}
		audio = audio[1:]
	}

	total := 0
	for i := len(audio) - 1; i >= 0; i-- {
		if audio[i].granule >= 0 {
			total = int(audio[i].granule) - codec.preSkip()
			break
		}
	}

	s := &oggStream{
		codec:   codec,
		packets: audio,
		total:   max(total, 0),
		buf:     make([]float32, maxOggFrame*codec.channels()),
		pos:     -codec.preSkip(),
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(codec.sampleRate()),
		NumChannels: codec.channels(),
		Precision:   2,
	}
	return s, format, nil
}

func (s *oggStream) Stream(samples [][2]float64) (int, bool) {
	if s.err != nil {
		return 0, false
	}
	ch := s.codec.channels()
	n := 0
	for n < len(samples) {
		if len(s.pcm) > 0 {
			l := float64(s.pcm[0])
			r := l
			if ch > 1 {
				r = float64(s.pcm[1])
			}
			s.pcm = s.pcm[ch:]
			if s.pos++; s.pos > 0 {
				samples[n] = [2]float64{l, r}
				n++
			}
			continue
		}
		if s.next >= len(s.packets) {
			break
		}
		pkt := s.packets[s.next].data
		s.next++
		got, err := s.codec.decode(pkt, s.buf)
		if err != nil {
			continue // skip damaged packets
		}
		s.pcm = s.buf[:got*ch]
	}
	return n, n > 0
}

func (s *oggStream) Err() error { return s.err }

func (s *oggStream) Len() int { return s.total }

func (s *oggStream) Position() int { return max(s.pos, 0) }

// Seek restarts decoding from the last page boundary before p, minus the
// Opus pre-roll, and discards up to p.
func (s *oggStream) Seek(p int) error {
	p = min(max(p, 0), s.total)
	target := p
	if _, ok := s.codec.(*opusCodec); ok {
		target = max(p-opusPreroll, 0)
	}

	s.next, s.pos = 0, -s.codec.preSkip()
	for i, pkt := range s.packets {
		if pkt.granule < 0 {
			continue
		}
		at := int(pkt.granule) - s.codec.preSkip()
		if at > target {
			break
		}
		s.next, s.pos = i+1, at
	}
	s.pcm = nil
	s.err = nil
	s.codec.reset()

	skip := make([][2]float64, 512)
	for s.pos < p {
		want := min(p-max(s.pos, 0), len(skip))
		if n, ok := s.Stream(skip[:want]); !ok || n == 0 {
			break
		}
	}
	return nil
}

func (s *oggStream) Close() error { return nil }
