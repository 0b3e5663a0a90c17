package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/llehouerou/alac"
	"github.com/llehouerou/go-faad2"
	"github.com/llehouerou/go-m4a"
)

// frameDecoder turns one MP4 sample into stereo frames.
type frameDecoder interface {
	decode(sample []byte) ([][2]float64, error)
	close()
}

// m4aStream plays AAC or ALAC audio from an MP4 container.
type m4aStream struct {
	box    *m4a.Reader
	frames frameDecoder
	closer io.Closer
	total  int

	next    int // next container sample to read
	pending [][2]float64
	err     error
}

func decodeM4A(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	box, err := m4a.Open(rc)
	if err != nil {
		return nil, beep.Format{}, err
	}

	rate := int(box.SampleRate())
	channels := int(box.Channels())
	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: 2, Precision: 2}

	var frames frameDecoder
	switch box.Codec() {
	case m4a.CodecAAC:
		frames, err = newAACFrames(box.CodecConfig(), channels)
	case m4a.CodecALAC:
		bits := int(box.SampleSize())
		if bits == 24 {
			format.Precision = 3
		}
		frames, err = newALACFrames(rate, bits, channels)
	default:
		err = fmt.Errorf("%w: m4a codec %s", ErrUnsupportedFormat, box.Codec())
	}
	if err != nil {
		return nil, beep.Format{}, err
	}

	return &m4aStream{
		box:    box,
		frames: frames,
		closer: rc,
		total:  int(box.Duration().Seconds() * float64(rate)),
	}, format, nil
}

func (s *m4aStream) Stream(samples [][2]float64) (int, bool) {
	if s.err != nil {
		return 0, false
	}
	n := 0
	for n < len(samples) {
		if len(s.pending) > 0 {
			c := copy(samples[n:], s.pending)
			s.pending = s.pending[c:]
			n += c
			continue
		}
		if s.next >= s.box.SampleCount() {
			break
		}
		raw, err := s.box.ReadSample(s.next)
		if err == nil {
			s.pending, err = s.frames.decode(raw)
		}
		if err != nil {
			s.err = err
			break
		}
		s.next++
	}
	return n, n > 0
}

func (s *m4aStream) Err() error { return s.err }

func (s *m4aStream) Len() int { return s.total }

func (s *m4aStream) Position() int {
	return int(s.box.SampleTime(s.next).Seconds()*float64(s.box.SampleRate())) - len(s.pending)
}

// Seek lands on the container sample covering p.
func (s *m4aStream) Seek(p int) error {
	p = min(max(p, 0), s.total)
	at := time.Duration(float64(p) / float64(s.box.SampleRate()) * float64(time.Second))
	s.next = s.box.SeekToTime(at)
	s.pending = nil
	s.err = nil
	return nil
}

func (s *m4aStream) Close() error {
	s.frames.close()
	return s.closer.Close()
}

type aacFrames struct {
	dec      *faad2.Decoder
	channels int
}

func newAACFrames(config []byte, channels int) (*aacFrames, error) {
	ctx := context.Background()
	dec, err := faad2.NewDecoder(ctx)
	if err != nil {
		return nil, err
	}
	if err := dec.Init(ctx, config); err != nil {
		dec.Close(ctx)
		return nil, err
	}
	return &aacFrames{dec: dec, channels: channels}, nil
}

func (a *aacFrames) decode(sample []byte) ([][2]float64, error) {
	pcm, err := a.dec.Decode(context.Background(), sample)
	if err != nil {
		return nil, err
	}
	frames := make([][2]float64, len(pcm)/a.channels)
	for i := range frames {
		l := float64(pcm[i*a.channels]) / 32768
		r := l
		if a.channels > 1 {
			r = float64(pcm[i*a.channels+1]) / 32768
		}
		frames[i] = [2]float64{l, r}
	}
	return frames, nil
}

func (a *aacFrames) close() { a.dec.Close(context.Background()) }

type alacFrames struct {
	dec      *alac.Alac
	bytes    int // per sample
	channels int
}

func newALACFrames(rate, bits, channels int) (*alacFrames, error) {
	if bits != 16 && bits != 24 {
		return nil, fmt.Errorf("%w: %d-bit alac", ErrUnsupportedFormat, bits)
	}
	dec, err := alac.NewWithConfig(alac.Config{
		SampleRate:  rate,
		SampleSize:  bits,
		NumChannels: channels,
		FrameSize:   4096,
	})
	if err != nil {
		return nil, err
	}
	return &alacFrames{dec: dec, bytes: bits / 8, channels: channels}, nil
}

func (a *alacFrames) decode(sample []byte) ([][2]float64, error) {
	raw := a.dec.Decode(sample)
	if raw == nil {
		return nil, errors.New("alac: undecodable frame")
	}
	return pcmLE(raw, a.bytes, a.channels), nil
}

func (a *alacFrames) close() {}

// pcmLE converts little-endian signed PCM of width 2 or 3 bytes to
// stereo frames, duplicating mono and ignoring channels past two.
func pcmLE(raw []byte, width, channels int) [][2]float64 {
	frameBytes := width * channels
	frames := make([][2]float64, len(raw)/frameBytes)
	scale := float64(int(1) << (width*8 - 1))
	at := func(off int) float64 {
		v := int32(raw[off]) | int32(raw[off+1])<<8
		if width == 3 {
			v |= int32(raw[off+2]) << 16
		}
		shift := 32 - width*8
		return float64(v<<shift>>shift) / scale
	}
	for i := range frames {
		off := i * frameBytes
		l := at(off)
		r := l
		if channels > 1 {
			r = at(off + width)
		}
		frames[i] = [2]float64{l, r}
	}
	return frames
}
