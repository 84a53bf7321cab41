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

func TestEncodeGRPCWebTrailersFlagAndShape(t *testing.T) {
	out := EncodeGRPCWebTrailers([]HeaderField{{headerGRPCStatus, "0"}, {"custom", "value"}})
	if !IsGRPCWebTrailerFrame(out[0]) {
		t.Fatal("encoded trailer frame's flag byte doesn't report as a trailer frame")
	}
	body := out[frameHeaderLen:]
	want := "grpc-status: 0\r\ncustom: value\r\n"
	if string(body) != want {
		t.Fatalf("trailer frame body = %q, want %q", body, want)
	}
}

func TestIsGRPCWebTrailerFrameDistinguishesFromMessage(t *testing.T) {
	if IsGRPCWebTrailerFrame(0) || IsGRPCWebTrailerFrame(1) {
		t.Fatal("ordinary message flag bytes (0 or 1) misidentified as trailer frames")
	}
	if !IsGRPCWebTrailerFrame(0x80) || !IsGRPCWebTrailerFrame(0x81) {
		t.Fatal("trailer flag byte (0x80, optionally OR'd with compressed bit) not identified as a trailer frame")
	}
}

func TestBase64EncoderBuffersToFourByteBoundary(t *testing.T) {
	var enc Base64Encoder
	// 5 bytes: first write only emits a full 3-byte group; 2 bytes held back.
	out1 := enc.Write([]byte("abcde"))
	if len(out1)%4 != 0 {
		t.Fatalf("partial write emitted %d base64 chars, not a multiple of 4", len(out1))
	}
	out2 := enc.Write([]byte("fg")) // now 4 raw bytes pending -> 1 more group
	if len(out2)%4 != 0 {
		t.Fatalf("second write emitted %d base64 chars, not a multiple of 4", len(out2))
	}
	tail := enc.Flush()

	var dec Base64Decoder
	var decoded []byte
	for _, chunk := range []string{out1, out2, tail} {
		b, err := dec.Write(chunk)
		if err != nil {
			t.Fatalf("Base64Decoder.Write: %v", err)
		}
		decoded = append(decoded, b...)
	}
	if !bytes.Equal(decoded, []byte("abcdefg")) {
		t.Fatalf("round trip = %q, want %q", decoded, "abcdefg")
	}
}

func TestBase64DecoderBuffersPartialGroup(t *testing.T) {
	var enc Base64Encoder
	full := enc.Write([]byte("abcdef")) + enc.Flush() // "abcdef" -> 8 base64 chars

	var dec Base64Decoder
	// Feed one character at a time; decoded output must only grow in
	// 3-byte steps, and the final flush-equivalent (feeding everything)
	// must reconstruct the original.
	var decoded []byte
	for i := 0; i < len(full); i++ {
		b, err := dec.Write(string(full[i]))
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		decoded = append(decoded, b...)
	}
	if !bytes.Equal(decoded, []byte("abcdef")) {
		t.Fatalf("decoded = %q, want %q", decoded, "abcdef")
	}
}
