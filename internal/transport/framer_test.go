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

package transport

import (
	"bytes"
	"testing"
)

func TestWriterReaderRoundTripUncompressed(t *testing.T) {
	w := &Writer{}
	messages := [][]byte{
		[]byte("hello"),
		[]byte(""),
		bytes.Repeat([]byte("x"), 10000),
	}

	var wire []byte
	for _, m := range messages {
		framed, err := w.Write(m, false)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		wire = append(wire, framed...)
	}

	// Feed the wire bytes in arbitrary small chunks to exercise the reader's
	// partial-read state machine, per spec.md §4.1's framing invariant that
	// chunking must not affect what's decoded.
	r := NewReader(nil, 1<<20)
	var got [][]byte
	for i := 0; i < len(wire); i += 3 {
		end := i + 3
		if end > len(wire) {
			end = len(wire)
		}
		r.Write(wire[i:end])
		for {
			m, err := r.Next(1 << 20)
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if m == nil {
				break
			}
			got = append(got, m.Payload)
		}
	}

	if len(got) != len(messages) {
		t.Fatalf("decoded %d messages, want %d", len(got), len(messages))
	}
	for i, m := range messages {
		if !bytes.Equal(got[i], m) {
			t.Fatalf("message %d = %q, want %q", i, got[i], m)
		}
	}
}

func TestReaderRejectsLengthOverMax(t *testing.T) {
	w := &Writer{}
	framed, err := w.Write(bytes.Repeat([]byte("a"), 100), false)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	r := NewReader(nil, 1<<20)
	r.Write(framed)
	_, err = r.Next(10)
	var plle *PayloadLengthLimitExceededError
	if err == nil {
		t.Fatal("Next with maxLength=10 succeeded, want PayloadLengthLimitExceededError")
	}
	if !asPLLE(err, &plle) {
		t.Fatalf("Next error = %v, want *PayloadLengthLimitExceededError", err)
	}
}

func asPLLE(err error, target **PayloadLengthLimitExceededError) bool {
	if e, ok := err.(*PayloadLengthLimitExceededError); ok {
		*target = e
		return true
	}
	return false
}

func TestReaderRejectsCompressedWithoutDecompressor(t *testing.T) {
	w := &Writer{}
	framed, err := w.Write([]byte("data"), true) // no Compressor configured: compressed flag stays 0
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Force the compressed flag on directly to simulate a peer advertising
	// compression this reader wasn't configured to decode.
	framed[0] = 1

	r := NewReader(nil, 1<<20)
	r.Write(framed)
	_, err = r.Next(1 << 20)
	if err != ErrCompressionUnsupported {
		t.Fatalf("Next error = %v, want ErrCompressionUnsupported", err)
	}
}

