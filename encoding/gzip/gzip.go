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

// Package gzip installs the gzip compressor for gRPC messages.
//
// Importing this package for its side effect registers "gzip" with the
// encoding package; applications that never import it never pay for gzip.
package gzip

import (
	"bytes"
	"compress/gzip"
	"io"
	"sync"

	"github.com/chalvern/grpcore/encoding"
)

func init() {
	encoding.RegisterCompressor(newCompressor())
}

type compressor struct {
	writerPool sync.Pool
}

func newCompressor() *compressor {
	c := &compressor{}
	c.writerPool.New = func() interface{} {
		return gzip.NewWriter(io.Discard)
	}
	return c
}

func (c *compressor) Compress(w io.Writer) (io.WriteCloser, error) {
	z := c.writerPool.Get().(*gzip.Writer)
	z.Reset(w)
	return &pooledWriter{Writer: z, pool: &c.writerPool}, nil
}

type pooledWriter struct {
	*gzip.Writer
	pool *sync.Pool
}

func (p *pooledWriter) Close() error {
	defer p.pool.Put(p.Writer)
	return p.Writer.Close()
}

// Decompress inflates r, bounded by limit bytes. It reads one extra byte
// past limit to distinguish "exactly limit bytes" from "more than limit
// bytes" without buffering the whole stream first, then fails if more
// remained, matching the per-message resource-exhausted contract of
// spec.md §4.1.
func (c *compressor) Decompress(r io.Reader, limit int) ([]byte, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	limited := io.LimitReader(zr, int64(limit)+1)
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(limited); err != nil {
		return nil, err
	}
	if buf.Len() > limit {
		return nil, &encoding.LimitExceededError{Limit: limit}
	}
	return buf.Bytes(), nil
}

func (c *compressor) Name() string { return "gzip" }
