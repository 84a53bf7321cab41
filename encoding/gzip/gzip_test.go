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

package gzip

import (
	"bytes"
	"testing"

	"github.com/chalvern/grpcore/encoding"
)

func compress(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	c := newCompressor()
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
	c := newCompressor()
	payload := bytes.Repeat([]byte("gzip round trip "), 100)
	wire := compress(t, payload)

	got, err := c.Decompress(bytes.NewReader(wire), len(payload)+1)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("Decompress got %d bytes, want %d bytes equal to original", len(got), len(payload))
	}
}

func TestDecompressEnforcesPerMessageLimit(t *testing.T) {
	c := newCompressor()
	payload := bytes.Repeat([]byte("a"), 1000)
	wire := compress(t, payload)

	_, err := c.Decompress(bytes.NewReader(wire), 10)
	lee, ok := err.(*encoding.LimitExceededError)
	if !ok {
		t.Fatalf("Decompress error = %v (%T), want *encoding.LimitExceededError", err, err)
	}
	if lee.Limit != 10 {
		t.Fatalf("LimitExceededError.Limit = %d, want 10", lee.Limit)
	}
}

func TestDecompressAtExactLimitSucceeds(t *testing.T) {
	c := newCompressor()
	payload := bytes.Repeat([]byte("b"), 256)
	wire := compress(t, payload)

	got, err := c.Decompress(bytes.NewReader(wire), len(payload))
	if err != nil {
		t.Fatalf("Decompress at exact limit: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("Decompress at exact limit returned wrong payload")
	}
}

func TestWriterPoolReusesGzipWriters(t *testing.T) {
	c := newCompressor()
	var buf1, buf2 bytes.Buffer
	wc1, _ := c.Compress(&buf1)
	wc1.Write([]byte("first"))
	wc1.Close()

	wc2, _ := c.Compress(&buf2)
	wc2.Write([]byte("second"))
	wc2.Close()

	got1, err := c.Decompress(bytes.NewReader(buf1.Bytes()), 100)
	if err != nil || string(got1) != "first" {
		t.Fatalf("first Decompress = %q, %v", got1, err)
	}
	got2, err := c.Decompress(bytes.NewReader(buf2.Bytes()), 100)
	if err != nil || string(got2) != "second" {
		t.Fatalf("second Decompress = %q, %v", got2, err)
	}
}

func TestName(t *testing.T) {
	if newCompressor().Name() != "gzip" {
		t.Fatal("Name() != \"gzip\"")
	}
}
