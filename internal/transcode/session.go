// Package transcode implements the Encoder Session: a lazy, pull-based
// FLAC-to-MP3 transcoder bound to one open file handle. It prepends an
// ID3v2.3 tag derived from the source's Vorbis comments, streams encoded
// MP3 frames as they become available, and patches the VBR header in
// place once encoding finishes.
package transcode

import (
	"bytes"
	"errors"
	"log"
	"math"

	id3v2 "github.com/bogem/id3v2/v2"

	"github.com/jtbeckha/mp3v0fs/internal/flacsource"
	"github.com/jtbeckha/mp3v0fs/internal/lame"
	"github.com/jtbeckha/mp3v0fs/internal/tags"
)

var logger = log.New(log.Writer(), "transcode: ", log.LstdFlags)

// state is the session's lifecycle: Initialized -> Encoding -> Finalizing
// -> Done, driven only by Read. No state is ever re-entered.
type state int

const (
	stateInitialized state = iota
	stateEncoding
	stateFinalizing
	stateDone
)

// vbrMaxBitrateKbps is the maximum VBR bitrate the encoder is configured
// with, per the session construction contract.
const vbrMaxBitrateKbps = 320

// vbrQuality is the VBR quality passed to the encoder (0 = highest).
const vbrQuality = 0

// DefaultReadChunk is the number of PCM sample pairs pulled per
// encode_step when the caller does not otherwise size reads, mirroring
// the reference encoder's default read size.
const DefaultReadChunk = 4096

// Session is the EncoderSession of the specification.
type Session struct {
	src *flacsource.Source
	enc *lame.Encoder

	tagSize    int
	maxBitrate int
	sampleRate int
	nSamples   uint64

	state state

	// output holds every byte produced so far; it is never truncated
	// before finalization so that the VBR header region, however long ago
	// it was delivered to a caller, can still be patched in place. The
	// first tagSize bytes are the ID3 tag; MaxVBRFrameSize zero bytes
	// follow it, overwritten in place by finalize once the real header is
	// known. consumed is the read cursor: bytes before it have already
	// been returned by Read.
	output   []byte
	consumed int

	vbrHeaderOffset int
	readChunk       int
}

// New constructs a session for src, configuring the MP3 encoder and
// building the ID3v2.3 tag from vorbisComments. The FLAC source and
// encoder context are owned by the returned session; Close releases both.
// readChunk is the number of PCM sample pairs pulled per encode step; zero
// or negative selects DefaultReadChunk.
func New(src *flacsource.Source, vorbisComments [][2]string, readChunk int) (*Session, error) {
	if readChunk <= 0 {
		readChunk = DefaultReadChunk
	}

	tag := buildTag(vorbisComments)

	enc, err := lame.New()
	if err != nil {
		return nil, err
	}

	if err := configureEncoder(enc, src, tag.Size()); err != nil {
		enc.Close()
		return nil, err
	}

	s := &Session{
		src:             src,
		enc:             enc,
		tagSize:         tag.Size(),
		maxBitrate:      vbrMaxBitrateKbps,
		sampleRate:      src.Info.SampleRate,
		nSamples:        src.Info.NSamples,
		state:           stateInitialized,
		vbrHeaderOffset: tag.Size(),
		readChunk:       readChunk,
	}

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		enc.Close()
		return nil, err
	}

	s.output = append(s.output, buf.Bytes()...)
	s.output = append(s.output, make([]byte, lame.MaxVBRFrameSize)...)

	return s, nil
}

func buildTag(vorbisComments [][2]string) *id3v2.Tag {
	tag := id3v2.NewEmptyTag()
	tag.SetVersion(3)

	for _, kv := range vorbisComments {
		tags.AddFrame(tag, kv[0], kv[1])
	}

	return tag
}

func configureEncoder(enc *lame.Encoder, src *flacsource.Source, tagSize int) error {
	if err := enc.SetChannels(src.Info.Channels); err != nil {
		return err
	}
	if err := enc.SetInSampleRate(src.Info.SampleRate); err != nil {
		return err
	}
	if err := enc.SetVBR(lame.VBRMTRH); err != nil {
		return err
	}
	if err := enc.SetVBRQuality(vbrQuality); err != nil {
		return err
	}
	if err := enc.SetVBRMaxBitrateKbps(vbrMaxBitrateKbps); err != nil {
		return err
	}
	if err := enc.SetWriteVBRTag(true); err != nil {
		return err
	}
	return enc.InitParams()
}

// Read returns up to n bytes from the not-yet-delivered portion of the
// emitted MP3 stream, encoding further PCM as necessary.
// It returns fewer than n bytes only at end of stream, after which no
// further non-empty reads occur.
func (s *Session) Read(n int) ([]byte, error) {
	for s.state != stateDone && s.available() < n {
		produced, err := s.encodeStep(s.readChunk)
		if err != nil {
			return nil, err
		}
		if produced == 0 {
			if err := s.finalize(); err != nil {
				return nil, err
			}
			break
		}
	}

	if n > s.available() {
		n = s.available()
	}

	out := s.output[s.consumed : s.consumed+n]
	s.consumed += n

	return out, nil
}

func (s *Session) available() int {
	return len(s.output) - s.consumed
}

// encodeStep pulls up to n PCM sample pairs from the FLAC source and
// pushes them through the encoder, appending any produced bytes to
// output. It returns the number of sample pairs actually consumed; zero
// signals end of stream.
func (s *Session) encodeStep(n int) (int, error) {
	if s.state == stateInitialized {
		s.state = stateEncoding
	}

	left := make([]int16, 0, n)
	right := make([]int16, 0, n)

	for i := 0; i < n; i++ {
		l, r, ok, err := s.src.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		left = append(left, l)
		right = append(right, r)
	}

	if len(left) == 0 {
		return 0, nil
	}

	encoded, err := s.enc.EncodeBuffer(left, right)
	if err != nil {
		return 0, err
	}

	s.output = append(s.output, encoded...)

	return len(left), nil
}

// finalize flushes the encoder, patches the VBR header into the reserved
// region, and marks the session done. Called exactly once, at the first
// encodeStep that consumes zero PCM pairs.
func (s *Session) finalize() error {
	s.state = stateFinalizing

	flushed, err := s.enc.Flush()
	if err != nil {
		return err
	}
	s.output = append(s.output, flushed...)

	header, err := s.enc.VBRTagFrame()
	if err != nil {
		return err
	}
	if err := s.patchVBRHeader(header); err != nil {
		logger.Printf("finalize: failed to patch VBR header: %v", err)
		return err
	}

	s.state = stateDone
	return nil
}

// patchVBRHeader overwrites the reserved [vbrHeaderOffset,
// vbrHeaderOffset+len(header)) region of output with header. output is
// never truncated before finalize runs, so this region is always still
// present to patch even though it may have already been delivered to a
// caller by an earlier Read; this is the entire reason the session holds
// onto bytes it has already handed out.
func (s *Session) patchVBRHeader(header []byte) error {
	if len(header) > lame.MaxVBRFrameSize {
		return errors.New("transcode: VBR header frame larger than reserved space")
	}

	end := s.vbrHeaderOffset + len(header)
	if end > len(s.output) {
		return errors.New("transcode: output shorter than the reserved VBR header region")
	}

	copy(s.output[s.vbrHeaderOffset:end], header)
	return nil
}

// CalculateSize returns an upper bound on the total number of bytes this
// session will ever emit: the ID3 tag, the reserved VBR header frame, and
// a worst-case estimate of the encoded audio at the configured maximum
// VBR bitrate. Callers that read past the real end of stream receive a
// short final reply.
func (s *Session) CalculateSize() uint64 {
	if s.sampleRate == 0 {
		return uint64(s.tagSize + lame.MaxVBRFrameSize)
	}

	audioBytes := math.Ceil(
		float64(s.nSamples) * 144 * float64(s.maxBitrate) * 10 / (float64(s.sampleRate) / 100))

	return uint64(s.tagSize) + uint64(lame.MaxVBRFrameSize) + uint64(audioBytes)
}

// Close releases the FLAC source and the encoder context. Safe to call
// once, from the open-handle registry's release path.
func (s *Session) Close() error {
	encErr := s.enc.Close()
	srcErr := s.src.Close()

	if encErr != nil {
		return encErr
	}
	return srcErr
}
