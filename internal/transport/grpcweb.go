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

package transport

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

// grpcWebTrailerFlag marks a length-prefixed frame on a grpc-web connection
// as carrying trailers rather than a message, per spec.md §4.3's GRPCWeb
// adapter: the high bit of the usual compressed-flag byte is repurposed as
// a frame-type discriminator.
const grpcWebTrailerFlag byte = 0x80

// EncodeGRPCWebTrailers renders trailers as a single grpc-web trailer frame:
// a 0x80 flag byte, a 4-byte big-endian length, and the header block with
// each "name: value" pair joined by CRLF.
func EncodeGRPCWebTrailers(trailers []HeaderField) []byte {
	var body strings.Builder
	for _, f := range trailers {
		fmt.Fprintf(&body, "%s: %s\r\n", f.Name, f.Value)
	}
	b := []byte(body.String())
	out := make([]byte, frameHeaderLen+len(b))
	out[0] = grpcWebTrailerFlag
	binary.BigEndian.PutUint32(out[1:frameHeaderLen], uint32(len(b)))
	copy(out[frameHeaderLen:], b)
	return out
}

// IsGRPCWebTrailerFrame reports whether the flag byte at the start of a
// length-prefixed frame marks it as a trailer frame rather than a message.
func IsGRPCWebTrailerFrame(flag byte) bool {
	return flag&grpcWebTrailerFlag != 0
}

// Base64Encoder accumulates raw bytes and emits only 4-byte-aligned base64
// groups, buffering any remainder (spec.md §4.3: grpc-web-text bodies must
// be valid base64 text at every boundary a proxy might split the stream,
// so each write must encode a multiple of 3 raw input bytes).
type Base64Encoder struct {
	pending []byte // 0-2 unencoded bytes held back from the last Write
}

// Write returns the base64-encoded text for as much of p (prefixed by any
// held-back remainder) as divides evenly into 3-byte groups, retaining the
// rest for the next call.
func (e *Base64Encoder) Write(p []byte) string {
	buf := append(e.pending, p...)
	n := len(buf) - len(buf)%3
	e.pending = append([]byte(nil), buf[n:]...)
	if n == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(buf[:n])
}

// Flush encodes and returns any remaining buffered bytes, padding as
// necessary; call once at end of stream.
func (e *Base64Encoder) Flush() string {
	if len(e.pending) == 0 {
		return ""
	}
	out := base64.StdEncoding.EncodeToString(e.pending)
	e.pending = nil
	return out
}

// Base64Decoder is the receive-side counterpart: it accumulates base64 text
// and decodes complete 4-character groups as they arrive, buffering any
// trailing partial group.
type Base64Decoder struct {
	pending string
}

// Write decodes as many complete 4-character groups as are available from
// pending+s, returning the decoded bytes and retaining any remainder.
func (d *Base64Decoder) Write(s string) ([]byte, error) {
	buf := d.pending + s
	n := len(buf) - len(buf)%4
	d.pending = buf[n:]
	if n == 0 {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(buf[:n])
}
