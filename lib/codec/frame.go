// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Frame layout:
//
//	[4 bytes big-endian payload length][1 byte flags][payload]
//
// When flagCompressed is set the payload is
//
//	[4 bytes big-endian uncompressed length][LZ4 block]
const (
	frameHeaderSize = 5

	flagCompressed byte = 1 << 0
)

const (
	// CompressThreshold is the smallest encoded message considered
	// for compression. Smaller messages (selects of a handful of
	// local ids, single name replies) do not shrink enough to pay
	// for the extra header.
	CompressThreshold = 256

	// MaxFrameSize bounds a single frame's payload. A property reply
	// batch of a few hundred objects with full descriptions stays
	// well under this.
	MaxFrameSize = 4 << 20
)

// ErrFrameTooLarge is returned when a frame's declared or encoded
// size exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("codec: frame exceeds maximum size")

// WriteFrame encodes v as CBOR and writes it as one frame, LZ4
// compressing the payload when it is at least CompressThreshold bytes
// and compression makes it smaller.
func WriteFrame(w io.Writer, v any) error {
	payload, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("codec: encoding frame: %w", err)
	}

	var flags byte
	if len(payload) >= CompressThreshold {
		if compressed, ok := compressPayload(payload); ok {
			payload = compressed
			flags |= flagCompressed
		}
	}
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	frame := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(payload)))
	frame[4] = flags
	copy(frame[frameHeaderSize:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("codec: writing frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r and decodes it into v. Returns
// io.EOF unwrapped when r is exhausted on a frame boundary so callers
// can treat it as a clean close.
func ReadFrame(r io.Reader, v any) error {
	payload, err := ReadFramePayload(r)
	if err != nil {
		return err
	}
	if err := Unmarshal(payload, v); err != nil {
		return fmt.Errorf("codec: decoding frame: %w", err)
	}
	return nil
}

// ReadFramePayload reads one frame and returns its decompressed CBOR
// payload without decoding it.
func ReadFramePayload(r io.Reader) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("codec: reading frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[0:4])
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	flags := header[4]

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("codec: reading frame payload: %w", err)
	}

	if flags&flagCompressed != 0 {
		return decompressPayload(payload)
	}
	return payload, nil
}

func compressPayload(payload []byte) ([]byte, bool) {
	destination := make([]byte, 4+lz4.CompressBlockBound(len(payload)))
	binary.BigEndian.PutUint32(destination[0:4], uint32(len(payload)))

	written, err := lz4.CompressBlock(payload, destination[4:], nil)
	// Zero means incompressible.
	if err != nil || written == 0 || 4+written >= len(payload) {
		return nil, false
	}
	return destination[:4+written], true
}

func decompressPayload(payload []byte) ([]byte, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("codec: compressed frame shorter than its length prefix")
	}
	size := binary.BigEndian.Uint32(payload[0:4])
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(payload[4:], destination)
	if err != nil {
		return nil, fmt.Errorf("codec: lz4 decompress: %w", err)
	}
	if read != int(size) {
		return nil, fmt.Errorf("codec: lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return destination, nil
}
