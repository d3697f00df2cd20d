package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Format identifies the raw sample encoding of a PCM stream.
type Format int

const (
	// S16LE is signed 16-bit little-endian, the default output of most
	// capture helpers (parec, arecord, ffmpeg -f s16le).
	S16LE Format = iota
	// F32LE is 32-bit little-endian IEEE float.
	F32LE
)

func (f Format) String() string {
	switch f {
	case S16LE:
		return "s16le"
	case F32LE:
		return "f32le"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps a format name to its Format value.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "s16le":
		return S16LE, nil
	case "f32le":
		return F32LE, nil
	}
	return 0, fmt.Errorf("unknown sample format %q", name)
}

func (f Format) bytesPerSample() int {
	if f == F32LE {
		return 4
	}
	return 2
}

// PCMConfig describes a raw PCM byte stream.
type PCMConfig struct {
	SampleRate int
	Channels   int
	Format     Format
	FrameSize  int
}

// PCMSource reads interleaved raw PCM from an io.Reader and downmixes it
// to mono frames. It owns no goroutines; cancellation is checked between
// reads, so a blocked underlying reader must be unblocked by closing it.
type PCMSource struct {
	r          io.Reader
	sampleRate int
	channels   int
	format     Format
	frameSize  int

	raw   []byte
	frame []float64
}

// NewPCM wraps a raw PCM stream. Defaults: 44100 Hz, 2 channels, s16le,
// 1024-sample frames.
func NewPCM(r io.Reader, cfg PCMConfig) (*PCMSource, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 2
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = 1024
	}
	if cfg.Format != S16LE && cfg.Format != F32LE {
		return nil, fmt.Errorf("unsupported sample format %v", cfg.Format)
	}
	return &PCMSource{
		r:          r,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		format:     cfg.Format,
		frameSize:  cfg.FrameSize,
		raw:        make([]byte, cfg.FrameSize*cfg.Channels*cfg.Format.bytesPerSample()),
		frame:      make([]float64, cfg.FrameSize),
	}, nil
}

func (s *PCMSource) SampleRate() int { return s.sampleRate }
func (s *PCMSource) FrameSize() int  { return s.frameSize }

// Read fills and returns the next mono frame. Multichannel input is
// averaged across channels.
func (s *PCMSource) Read(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(s.r, s.raw); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}

	step := s.channels * s.format.bytesPerSample()
	for i := 0; i < s.frameSize; i++ {
		var sum float64
		off := i * step
		for c := 0; c < s.channels; c++ {
			sum += s.decode(off + c*s.format.bytesPerSample())
		}
		s.frame[i] = sum / float64(s.channels)
	}
	return s.frame, nil
}

func (s *PCMSource) decode(off int) float64 {
	switch s.format {
	case F32LE:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(s.raw[off:])))
	default:
		return float64(int16(binary.LittleEndian.Uint16(s.raw[off:]))) / 32768.0
	}
}
