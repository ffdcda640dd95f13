// Package lame is a cgo binding onto libmp3lame covering exactly the
// surface the streaming transcode engine needs: VBR-configured encoding of
// 16-bit PCM sample pairs, flushing, and retrieval of the Xing/VBR header
// frame for patching into an already-emitted stream.
//
// This mirrors the binding the reference implementation built against the
// "lame" FFI crate: a thin wrapper around lame_global_flags with one Go
// method per C call, Close releasing the context exactly once.
package lame

/*
#cgo pkg-config: mp3lame
#include <lame/lame.h>
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"unsafe"
)

// VBRMode mirrors libmp3lame's vbr_mode enum. Only the modes this project
// uses are named; others can be passed as their raw integer value.
type VBRMode C.vbr_mode

const (
	VBROff  VBRMode = C.vbr_off
	VBRMTRH VBRMode = C.vbr_mtrh
)

// MaxVBRFrameSize is the maximum size in bytes of the Xing/VBR header frame
// libmp3lame can emit, per lame.h's LAME_MAXMP3BUFFER guidance for a single
// frame. The encoder session reserves this many bytes up front and patches
// them in place once the real header is known.
const MaxVBRFrameSize = 2880

// mp3BufferSlack is the per-lame.h recommendation for sizing an output
// buffer relative to the number of input samples: 1.25x plus a fixed
// overhead, enough headroom that lame_encode_buffer never reports
// Mp3BufferTooSmall for any reasonable input chunk.
const mp3BufferSlack = 7200

// EncodeError reports a negative return code from a libmp3lame encode call.
type EncodeError struct {
	Code int
}

func (e EncodeError) Error() string {
	switch e.Code {
	case -1:
		return "lame: mp3 buffer too small"
	case -2:
		return "lame: malloc problem"
	case -3:
		return "lame: lame_init_params() not called"
	case -4:
		return "lame: psycho acoustic problem"
	default:
		return "lame: unknown encode error"
	}
}

// Encoder wraps one libmp3lame encoding context. It is not safe for
// concurrent use; callers (the encoder session, via the open-handle
// registry's single mutex) must serialize all access.
type Encoder struct {
	ctx    *C.lame_global_flags
	closed bool
}

// New allocates a libmp3lame context. Configuration (channels, sample rate,
// VBR mode) must be applied before InitParams.
func New() (*Encoder, error) {
	ctx := C.lame_init()
	if ctx == nil {
		return nil, errors.New("lame: lame_init failed")
	}
	return &Encoder{ctx: ctx}, nil
}

// SetChannels sets the number of output channels.
func (e *Encoder) SetChannels(channels int) error {
	return checkReturn(C.lame_set_num_channels(e.ctx, C.int(channels)))
}

// SetInSampleRate sets the input PCM sample rate.
func (e *Encoder) SetInSampleRate(rate int) error {
	return checkReturn(C.lame_set_in_samplerate(e.ctx, C.int(rate)))
}

// SetVBR selects a VBR mode.
func (e *Encoder) SetVBR(mode VBRMode) error {
	return checkReturn(C.lame_set_VBR(e.ctx, C.vbr_mode(mode)))
}

// SetVBRQuality sets the VBR quality (0 = highest quality, 9 = lowest).
func (e *Encoder) SetVBRQuality(quality int) error {
	return checkReturn(C.lame_set_VBR_q(e.ctx, C.int(quality)))
}

// SetVBRMaxBitrateKbps caps the VBR bitrate.
func (e *Encoder) SetVBRMaxBitrateKbps(kbps int) error {
	return checkReturn(C.lame_set_VBR_max_bitrate_kbps(e.ctx, C.int(kbps)))
}

// SetWriteVBRTag requests that libmp3lame reserve space for, and later
// produce, a Xing/VBR header frame.
func (e *Encoder) SetWriteVBRTag(write bool) error {
	v := 0
	if write {
		v = 1
	}
	return checkReturn(C.lame_set_bWriteVbrTag(e.ctx, C.int(v)))
}

// InitParams locks in the configuration applied so far. It must be called
// exactly once, after configuration and before the first EncodeBuffer call.
func (e *Encoder) InitParams() error {
	return checkReturn(C.lame_init_params(e.ctx))
}

// EncodeBuffer encodes one channel pair of 16-bit PCM samples. left and
// right must have equal length; for mono input, pass the same slice for
// both (channel count was already fixed by SetChannels). It returns the
// encoded bytes, which may be empty if libmp3lame is still buffering input
// internally.
func (e *Encoder) EncodeBuffer(left, right []int16) ([]byte, error) {
	if len(left) == 0 {
		return nil, nil
	}

	bufSize := len(left)*5/4 + mp3BufferSlack
	out := make([]byte, bufSize)

	n := C.lame_encode_buffer(
		e.ctx,
		(*C.short)(unsafe.Pointer(&left[0])),
		(*C.short)(unsafe.Pointer(&right[0])),
		C.int(len(left)),
		(*C.uchar)(unsafe.Pointer(&out[0])),
		C.int(len(out)))

	written, err := checkEncodeReturn(n)
	if err != nil {
		return nil, err
	}

	return out[:written], nil
}

// Flush drains any PCM libmp3lame has buffered internally, returning the
// final encoded bytes. Called exactly once, when the PCM source is
// exhausted.
func (e *Encoder) Flush() ([]byte, error) {
	out := make([]byte, MaxVBRFrameSize+mp3BufferSlack)

	n := C.lame_encode_flush(
		e.ctx,
		(*C.uchar)(unsafe.Pointer(&out[0])),
		C.int(len(out)))

	written, err := checkEncodeReturn(n)
	if err != nil {
		return nil, err
	}

	return out[:written], nil
}

// VBRTagFrame returns the Xing/VBR header frame libmp3lame has assembled
// from the statistics of everything encoded so far. Must be called after
// Flush. The returned slice is at most MaxVBRFrameSize bytes and is the
// data the encoder session patches into the reserved header region.
func (e *Encoder) VBRTagFrame() ([]byte, error) {
	buf := make([]byte, MaxVBRFrameSize)

	n := C.lame_get_lametag_frame(
		e.ctx,
		(*C.uchar)(unsafe.Pointer(&buf[0])),
		C.size_t(len(buf)))

	size := int(n)
	if size < 0 {
		return nil, errors.New("lame: lame_get_lametag_frame failed")
	}
	if size > len(buf) {
		// The real frame didn't fit our reservation; this cannot happen for
		// MaxVBRFrameSize, which is sized to libmp3lame's own maximum, but
		// guard rather than read out of bounds.
		size = len(buf)
	}

	return buf[:size], nil
}

// Close releases the libmp3lame context. Safe to call more than once.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	C.lame_close(e.ctx)
	e.ctx = nil

	return nil
}

func checkReturn(code C.int) error {
	if code != 0 {
		return errors.New("lame: configuration call failed")
	}
	return nil
}

func checkEncodeReturn(code C.int) (int, error) {
	n := int(code)
	if n < 0 {
		return 0, EncodeError{Code: n}
	}
	return n, nil
}
