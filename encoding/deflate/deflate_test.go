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

package deflate

import (
	"bytes"
	"testing"

	"github.com/chalvern/grpcore/encoding"
)

func compress(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	c := &compressor{}
	wc, err := c.Compress(&buf)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if _, err := wc.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := wc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	c := &compressor{}
	payload := bytes.Repeat([]byte("deflate round trip "), 100)
	wire := compress(t, payload)

	got, err := c.Decompress(bytes.NewReader(wire), len(payload)+1)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("Decompress returned a different payload than was compressed")
	}
}

func TestDecompressEnforcesPerMessageLimit(t *testing.T) {
	c := &compressor{}
	payload := bytes.Repeat([]byte("a"), 1000)
	wire := compress(t, payload)

	_, err := c.Decompress(bytes.NewReader(wire), 10)
	if _, ok := err.(*encoding.LimitExceededError); !ok {
		t.Fatalf("Decompress error = %v (%T), want *encoding.LimitExceededError", err, err)
	}
}
