/*
 *
 * Copyright 2014 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Package transport implements the core of the gRPC-over-HTTP/2 protocol
// engine: message framing, the per-RPC client and server state machines, the
// connection idle/quiescing state machine, and the keepalive/ping engine.
// HTTP/2 frame parsing itself, TLS, and socket bring-up are all external
// collaborators, per spec.md §1; this package consumes their events and
// produces bytes/frame instructions for them to carry.
package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/chalvern/grpcore/encoding"
)

const frameHeaderLen = 5 // 1 byte compressed flag + 4 byte big-endian length

// Message is a decoded, length-framed gRPC message.
type Message struct {
	Compressed bool
	Payload    []byte
}

// ErrCompressionUnsupported is returned by Reader.Next when a message
// arrives with its compressed flag set but no decompressor was configured.
var ErrCompressionUnsupported = errors.New("transport: compressed flag set but no decompressor configured")

// PayloadLengthLimitExceededError is returned by Reader.Next when the
// announced message length exceeds the caller-supplied max_length for that
// read.
type PayloadLengthLimitExceededError struct {
	Actual uint32
	Limit  uint32
}

func (e *PayloadLengthLimitExceededError) Error() string {
	return fmt.Sprintf("transport: received message length %d exceeds limit %d", e.Actual, e.Limit)
}

type readerState int

const (
	stateExpectingFlag readerState = iota
	stateExpectingLength
	stateExpectingPayload
)

// Reader decodes a byte stream (possibly delivered in arbitrary chunks) into
// a sequence of framed messages, per spec.md §4.1. It is not safe for
// concurrent use; each RPC owns its own Reader.
type Reader struct {
	decompressor       encoding.Compressor
	decompressionLimit int

	buf   []byte // backing storage; buf[r:w] is unconsumed
	r, w  int
	state readerState

	compressedFlag bool
	length         uint32
}

// NewReader constructs a Reader. decompressor may be nil, meaning no
// compressed message can be accepted (Next fails with
// ErrCompressionUnsupported). decompressionLimit bounds the inflated size of
// any single compressed message.
func NewReader(decompressor encoding.Compressor, decompressionLimit int) *Reader {
	return &Reader{decompressor: decompressor, decompressionLimit: decompressionLimit}
}

// Write feeds more bytes of the underlying byte stream to the reader. It
// never blocks and never fails.
func (r *Reader) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	r.buf = append(r.buf[:r.w], p...)
	r.w += len(p)
}

// IsReading reports whether the reader is mid-message (has consumed at
// least the compressed-flag byte of a message it hasn't finished decoding).
func (r *Reader) IsReading() bool {
	return r.state != stateExpectingFlag
}

// Next attempts to decode the next message, whose announced length must not
// exceed maxLength. It returns (nil, nil) if more input is required before a
// full message is available ("none" in spec.md §4.1's vocabulary).
func (r *Reader) Next(maxLength uint32) (*Message, error) {
	for {
		switch r.state {
		case stateExpectingFlag:
			if r.w-r.r < 1 {
				return nil, nil
			}
			flag := r.buf[r.r]
			if flag != 0 && flag != 1 {
				return nil, fmt.Errorf("transport: invalid compressed-flag byte %d", flag)
			}
			compressedFlag := flag == 1
			if compressedFlag && r.decompressor == nil {
				// Leave state and r unadvanced: a peer that ignores this
				// error and calls Next again must deterministically re-hit
				// this same check, never reach stateExpectingPayload with a
				// nil decompressor (spec.md §7).
				return nil, ErrCompressionUnsupported
			}
			r.compressedFlag = compressedFlag
			r.r++
			r.state = stateExpectingLength

		case stateExpectingLength:
			if r.w-r.r < 4 {
				return nil, nil
			}
			r.length = binary.BigEndian.Uint32(r.buf[r.r : r.r+4])
			r.r += 4
			if r.length > maxLength {
				r.state = stateExpectingPayload // still must drain the payload bytes
				return nil, &PayloadLengthLimitExceededError{Actual: r.length, Limit: maxLength}
			}
			r.state = stateExpectingPayload

		case stateExpectingPayload:
			if uint32(r.w-r.r) < r.length {
				return nil, nil
			}
			payload := r.buf[r.r : r.r+int(r.length)]
			r.r += int(r.length)

			compressed := r.compressedFlag
			var out []byte
			if compressed {
				decoded, err := r.decompressor.Decompress(bytes.NewReader(payload), r.decompressionLimit)
				if err != nil {
					r.state = stateExpectingFlag
					r.reclaim()
					return nil, err
				}
				out = decoded
			} else {
				out = append([]byte(nil), payload...)
			}
			r.state = stateExpectingFlag
			r.reclaim()
			return &Message{Compressed: compressed, Payload: out}, nil
		}
	}
}

// reclaim implements spec.md §4.1's buffer hygiene: drop the backing array
// once fully drained, or compact it once the unread tail is small relative
// to what's already been consumed, so a long-lived stream reading many
// small messages doesn't retain an ever-growing backing array.
func (r *Reader) reclaim() {
	if r.r == r.w {
		r.buf = nil
		r.r, r.w = 0, 0
		return
	}
	if r.r > 1024 && r.r > cap(r.buf)/2 {
		remaining := r.w - r.r
		copy(r.buf, r.buf[r.r:r.w])
		r.buf = r.buf[:remaining]
		r.r, r.w = 0, remaining
	}
}

// Writer frames outgoing messages, applying per-message compression when
// configured and requested.
type Writer struct {
	// Compressor is nil for "identity" (no compression configured for this
	// writer); otherwise compression is applied when a message's compressed
	// flag is also true (spec.md §4.1's writer contract).
	Compressor encoding.Compressor
}

// Write frames payload, compressing it first if w.Compressor is non-nil and
// compressed is true, and returns the complete wire-format buffer (flag +
// length + body).
func (w *Writer) Write(payload []byte, compressed bool) ([]byte, error) {
	doCompress := w.Compressor != nil && compressed
	flag := byte(0)
	body := payload
	if doCompress {
		var buf bytes.Buffer
		wc, err := w.Compressor.Compress(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := wc.Write(payload); err != nil {
			return nil, err
		}
		if err := wc.Close(); err != nil {
			return nil, err
		}
		body = buf.Bytes()
		flag = 1
	}
	out := make([]byte, frameHeaderLen+len(body))
	out[0] = flag
	binary.BigEndian.PutUint32(out[1:frameHeaderLen], uint32(len(body)))
	copy(out[frameHeaderLen:], body)
	return out, nil
}
