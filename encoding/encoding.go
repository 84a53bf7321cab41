/*
 *
 * Copyright 2017 gRPC authors.
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

// Package encoding defines the interfaces for per-message compression and
// message codecs, and the registries used to look them up by name.
//
// This package is EXPERIMENTAL, matching the teacher's own stability note.
package encoding

import (
	"fmt"
	"io"
	"strings"
)

// Identity specifies the (no-op) encoding for uncompressed messages. It is
// carried on the wire as the compressed-flag value but performs no
// transformation, per spec.md §3.
const Identity = "identity"

// Compressor is used for compressing and decompressing gRPC messages.
//
// Decompress bounds the inflated size of a single message. It must fail with
// a *LimitExceededError (not silently truncate or allocate without bound)
// when the inflated size would exceed limit, so a malicious or buggy peer
// cannot force unbounded decompression — spec.md §4.1's decompression limit,
// which is per-message, not cumulative.
type Compressor interface {
	// Compress writes the data written to wc to w after compressing it.
	Compress(w io.Writer) (io.WriteCloser, error)
	// Decompress reads framed, compressed bytes from r and returns at most
	// limit bytes of decompressed payload. If the inflated size would exceed
	// limit, Decompress returns a *LimitExceededError and MUST NOT return a
	// partially decompressed result.
	Decompress(r io.Reader, limit int) ([]byte, error)
	// Name is the wire name of the compression algorithm (e.g. "gzip"). The
	// result must be static.
	Name() string
}

// LimitExceededError is returned by Compressor.Decompress when the inflated
// size of a message would exceed the configured limit.
type LimitExceededError struct {
	Limit int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("grpc: received message larger than max (%d)", e.Limit)
}

var registeredCompressor = make(map[string]Compressor)

// RegisterCompressor registers the compressor with gRPC by its name. Like
// the teacher's version, this must only be called during initialization and
// is not thread-safe; the last registration for a given name wins.
func RegisterCompressor(c Compressor) {
	registeredCompressor[strings.ToLower(c.Name())] = c
}

// GetCompressor returns the Compressor registered under name, or nil.
func GetCompressor(name string) Compressor {
	return registeredCompressor[strings.ToLower(name)]
}

// Codec defines the interface gRPC uses to marshal/unmarshal request and
// response messages. The core treats payloads as opaque bytes (spec.md §3);
// Codec exists only because generated-code callers of internal/transport
// still need one, and is kept as a pass-through seam, not exercised by the
// protocol engine itself.
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
	Name() string
}

var registeredCodecs = make(map[string]Codec)

// RegisterCodec registers codec under the lowercased result of its Name().
func RegisterCodec(codec Codec) {
	if codec == nil {
		panic("cannot register a nil Codec")
	}
	name := strings.ToLower(codec.Name())
	if name == "" {
		panic("cannot register Codec with empty Name()")
	}
	registeredCodecs[name] = codec
}

// GetCodec returns the Codec registered under contentSubtype (expected
// lowercase), or nil.
func GetCodec(contentSubtype string) Codec {
	return registeredCodecs[contentSubtype]
}
