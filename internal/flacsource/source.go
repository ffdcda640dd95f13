// Package flacsource adapts a decoded FLAC stream into the interleaved
// left/right PCM sample-pair iterator the encoder session pulls from. It
// also surfaces the Vorbis comments the tag translator needs.
package flacsource

import (
	"errors"
	"io"

	"github.com/pchchv/flac"
	"github.com/pchchv/flac/meta"
)

// ErrUnsupportedBitDepth is returned when the stream's bits-per-sample
// exceeds what this project supports. 24-bit FLAC is explicitly
// unsupported.
var ErrUnsupportedBitDepth = errors.New("flacsource: unsupported FLAC bit depth (only up to 16-bit is supported)")

const maxSupportedBitsPerSample = 16

// Info is the subset of a FLAC stream's STREAMINFO block the encoder
// session needs to configure the MP3 encoder and size the output.
type Info struct {
	Channels   int
	SampleRate int
	NSamples   uint64
}

// Source decodes one FLAC file into a pull-based source of interleaved
// left/right 16-bit PCM sample pairs. It owns the underlying file handle
// and is closed exactly once, by the encoder session that owns it.
type Source struct {
	stream   *flac.Stream
	Info     Info
	comments []meta.VorbisComment

	pending []int32 // left, right, left, right, ... remaining in the current frame
}

// Open decodes the FLAC headers and metadata at path without reading any
// audio frames yet.
func Open(path string) (*Source, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, err
	}

	if stream.Info.BitsPerSample > maxSupportedBitsPerSample {
		stream.Close()
		return nil, ErrUnsupportedBitDepth
	}

	s := &Source{
		stream: stream,
		Info: Info{
			Channels:   int(stream.Info.NChannels),
			SampleRate: int(stream.Info.SampleRate),
			NSamples:   stream.Info.NSamples,
		},
	}

	for _, block := range stream.Metadata {
		if vc, ok := block.Body.(*meta.VorbisComment); ok {
			s.comments = append(s.comments, *vc)
		}
	}

	return s, nil
}

// VorbisComments returns every VORBIS_COMMENT tag pair found in the
// stream's metadata, in file order.
func (s *Source) VorbisComments() [][2]string {
	var out [][2]string
	for _, vc := range s.comments {
		out = append(out, vc.Tags...)
	}
	return out
}

// Next returns the next interleaved sample pair, narrowing each FLAC
// sample (up to 16 bits wide, already validated at Open) to int16 by
// truncating to its low 16 bits. For mono streams the same sample is
// returned as both left and right. ok is false once the stream is
// exhausted.
func (s *Source) Next() (left, right int16, ok bool, err error) {
	for len(s.pending) == 0 {
		if fillErr := s.fillFrame(); fillErr != nil {
			if fillErr == io.EOF {
				return 0, 0, false, nil
			}
			return 0, 0, false, fillErr
		}
	}

	l := s.pending[0]
	r := l
	if s.Info.Channels > 1 {
		r = s.pending[1]
		s.pending = s.pending[2:]
	} else {
		s.pending = s.pending[1:]
	}

	return int16(l), int16(r), true, nil
}

// fillFrame decodes the next FLAC frame and interleaves its subframes into
// s.pending. Mono frames are stored as a single channel's worth of samples;
// Next() duplicates them into both output channels.
func (s *Source) fillFrame() error {
	f, err := s.stream.ParseNext()
	if err != nil {
		return err
	}

	n := len(f.Subframes[0].Samples)
	if s.Info.Channels == 1 {
		s.pending = append(s.pending[:0], f.Subframes[0].Samples...)
		return nil
	}

	left := f.Subframes[0].Samples
	right := f.Subframes[1].Samples

	interleaved := make([]int32, 0, n*2)
	for i := 0; i < n; i++ {
		interleaved = append(interleaved, left[i], right[i])
	}
	s.pending = interleaved

	return nil
}

// Close releases the underlying FLAC decoder's file handle.
func (s *Source) Close() error {
	return s.stream.Close()
}
