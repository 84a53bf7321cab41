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
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/chalvern/grpcore/codes"
)

// Well-known gRPC-over-HTTP/2 header names (spec.md §6), always lowercase —
// HTTP/2 requires lowercase header names.
const (
	headerContentType       = "content-type"
	headerTE                = "te"
	headerUserAgent         = "user-agent"
	headerGRPCEncoding      = "grpc-encoding"
	headerGRPCAcceptEncoding = "grpc-accept-encoding"
	headerGRPCTimeout       = "grpc-timeout"
	headerGRPCStatus        = "grpc-status"
	headerGRPCMessage       = "grpc-message"
)

// ContentTypeGRPC is the canonical request/response content type; subtypes
// like "+proto", "+json", "+web", "+web-text" are also accepted, per
// spec.md §6.
const ContentTypeGRPC = "application/grpc"

// DefaultUserAgent is used when the caller supplies no user-agent.
const DefaultUserAgent = "grpc-go-core/1.0"

// IsGRPCContentType reports whether ct names a gRPC content-type family
// ("application/grpc", optionally suffixed "+proto"/"+json"/"+web"/"+web-text"/"-web"/"-web-text").
func IsGRPCContentType(ct string) bool {
	if ct == ContentTypeGRPC {
		return true
	}
	return strings.HasPrefix(ct, ContentTypeGRPC+"+") ||
		strings.HasPrefix(ct, "application/grpc-web")
}

// PercentEncode encodes s for use as a grpc-message header value, per the
// gRPC wire spec: bytes inside %x20-%x7E except '%' pass through as-is;
// everything else, and '%' itself, is percent-escaped.
func PercentEncode(s string) string {
	var needsEscape bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7E || c == '%' {
			needsEscape = true
			break
		}
	}
	if !needsEscape {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7E || c == '%' {
			fmt.Fprintf(&b, "%%%02X", c)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// PercentDecode reverses PercentEncode. Malformed escapes are passed through
// literally rather than erroring, since a malformed grpc-message must never
// itself tear down the RPC.
func PercentDecode(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}
	decoded, err := url.QueryUnescape(strings.ReplaceAll(s, "+", "%2B"))
	if err != nil {
		return s
	}
	return decoded
}

// ParseGRPCStatusTrailer parses the grpc-status trailer value, defaulting to
// codes.Unknown if absent or unparseable as an integer 0-16, per spec.md
// §4.2's trailers-parsing rule.
func ParseGRPCStatusTrailer(raw string) codes.Code {
	if raw == "" {
		return codes.Unknown
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 16 {
		return codes.Unknown
	}
	return codes.Code(n)
}

// SplitMethod splits an HTTP/2 :path of the form /service/method into its
// service and method components. ok is false if path isn't of that shape.
func SplitMethod(path string) (service, method string, ok bool) {
	if len(path) == 0 || path[0] != '/' {
		return "", "", false
	}
	rest := path[1:]
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

// ParseGRPCAcceptEncoding splits a comma-separated grpc-accept-encoding
// header value into its algorithm names, trimming surrounding whitespace.
func ParseGRPCAcceptEncoding(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
