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

// Package deflate installs the deflate ("zlib-failure" in spec.md §4.8's
// error taxonomy refers to this family) compressor for gRPC messages.
package deflate

import (
	"bytes"
	"compress/flate"
	"io"

	"github.com/chalvern/grpcore/encoding"
)

func init() {
	encoding.RegisterCompressor(&compressor{})
}

type compressor struct{}

func (c *compressor) Compress(w io.Writer) (io.WriteCloser, error) {
	fw, err := flate.NewWriter(w, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	return fw, nil
}

func (c *compressor) Decompress(r io.Reader, limit int) ([]byte, error) {
	fr := flate.NewReader(r)
	defer fr.Close()

	limited := io.LimitReader(fr, int64(limit)+1)
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(limited); err != nil {
		return nil, err
	}
	if buf.Len() > limit {
		return nil, &encoding.LimitExceededError{Limit: limit}
	}
	return buf.Bytes(), nil
}

func (c *compressor) Name() string { return "deflate" }
