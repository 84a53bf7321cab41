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
	"sort"
	"strings"

	"github.com/chalvern/grpcore/codes"
	"github.com/chalvern/grpcore/encoding"
	"github.com/chalvern/grpcore/status"
)

// serverState is the (request, response) pair of spec.md §4.3. Unlike the
// client machine, a ServerStream only exists once request headers have
// already been accepted, so there is no "request idle" state here.
type serverState int

const (
	requestActiveResponseIdle serverState = iota
	requestClosedResponseIdle
	requestActiveResponseActive
	requestClosedResponseActive
	requestClosedResponseClosed
)

func (s serverState) String() string {
	switch s {
	case requestActiveResponseIdle:
		return "requestActiveResponseIdle"
	case requestClosedResponseIdle:
		return "requestClosedResponseIdle"
	case requestActiveResponseActive:
		return "requestActiveResponseActive"
	case requestClosedResponseActive:
		return "requestClosedResponseActive"
	case requestClosedResponseClosed:
		return "requestClosedResponseClosed"
	default:
		return "serverStateUnknown"
	}
}

func (s serverState) requestActive() bool {
	return s == requestActiveResponseIdle || s == requestActiveResponseActive
}
func (s serverState) responseIdle() bool {
	return s == requestActiveResponseIdle || s == requestClosedResponseIdle
}
func (s serverState) responseActive() bool {
	return s == requestActiveResponseActive || s == requestClosedResponseActive
}
func (s serverState) terminal() bool { return s == requestClosedResponseClosed }

// ResponseHeaders describes the initial response headers a server emits,
// per spec.md §4.3/§6.
type ResponseHeaders struct {
	SendCompress    string
	AcceptEncodings []string

	Metadata              map[string][]string
	NormalizeMetadataKeys bool
}

// Build renders h as the ordered header list: :status, content-type,
// grpc-encoding, grpc-accept-encoding, then user metadata.
func (h *ResponseHeaders) Build(contentType string) []HeaderField {
	out := []HeaderField{
		{":status", "200"},
		{headerContentType, contentType},
	}
	if h.SendCompress != "" {
		out = append(out, HeaderField{headerGRPCEncoding, h.SendCompress})
	}
	if len(h.AcceptEncodings) > 0 {
		out = append(out, HeaderField{headerGRPCAcceptEncoding, strings.Join(h.AcceptEncodings, ",")})
	}
	keys := make([]string, 0, len(h.Metadata))
	for k := range h.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := k
		if h.NormalizeMetadataKeys {
			name = strings.ToLower(name)
		}
		for _, v := range h.Metadata[k] {
			out = append(out, HeaderField{name, v})
		}
	}
	return out
}

// Trailers renders a terminal grpc-status/grpc-message/trailer-metadata set
// from s, per spec.md §4.3/§6. message is percent-encoded.
func Trailers(s *status.Status) []HeaderField {
	out := []HeaderField{
		{headerGRPCStatus, itoa(int(s.Code()))},
	}
	if msg := s.Message(); msg != "" {
		out = append(out, HeaderField{headerGRPCMessage, PercentEncode(msg)})
	}
	keys := make([]string, 0, len(s.Trailer()))
	for k := range s.Trailer() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range s.Trailer()[k] {
			out = append(out, HeaderField{k, v})
		}
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// TrailersOnly renders an immediate, headers-only-carrying-status response:
// :status, content-type, then the same grpc-status/grpc-message/trailer set
// as Trailers, all on a single HEADERS frame with END_STREAM set.
func TrailersOnly(s *status.Status, contentType string) []HeaderField {
	return TrailersOnlyWithAcceptEncoding(s, contentType, nil)
}

// TrailersOnlyWithAcceptEncoding is TrailersOnly plus an optional
// grpc-accept-encoding header, used for the unsupported grpc-encoding
// boundary behavior of spec.md §4.3/§8: "grpc-encoding: br with only
// gzip,identity → unimplemented, grpc-accept-encoding: gzip".
func TrailersOnlyWithAcceptEncoding(s *status.Status, contentType string, acceptEncodings []string) []HeaderField {
	out := []HeaderField{
		{":status", "200"},
		{headerContentType, contentType},
	}
	if len(acceptEncodings) > 0 {
		out = append(out, HeaderField{headerGRPCAcceptEncoding, strings.Join(acceptEncodings, ",")})
	}
	return append(out, Trailers(s)...)
}

// UnsupportedMediaTypeHeaders renders the bare HTTP :status 415 response
// spec.md §4.3/§8 requires for a request whose content-type does not name a
// gRPC family at all. Unlike every other rejection in this package, it
// carries no grpc-status: the RPC never started. The caller must set
// END_STREAM on the frame carrying these headers.
func UnsupportedMediaTypeHeaders() []HeaderField {
	return []HeaderField{{":status", "415"}}
}

// ServerStreamOptions configures a ServerStream at construction.
type ServerStreamOptions struct {
	RequestCardinality  Cardinality
	ResponseCardinality Cardinality

	SupportedDecoders map[string]encoding.Compressor

	DecompressionLimit int
}

// ServerStream is the server-side per-RPC state machine of spec.md §4.3. It
// is synchronous and not safe for concurrent use.
type ServerStream struct {
	state serverState
	opts  ServerStreamOptions

	reader       *Reader
	responseSent int
}

// NewServerStream constructs a ServerStream already past header acceptance,
// in requestActiveResponseIdle, configuring its Reader from decoder (nil
// means the request body carries no compression).
func NewServerStream(opts ServerStreamOptions, decoder encoding.Compressor) *ServerStream {
	return &ServerStream{
		state:  requestActiveResponseIdle,
		opts:   opts,
		reader: NewReader(decoder, opts.DecompressionLimit),
	}
}

// ValidateRequestHeaders checks an incoming request's headers against
// spec.md §4.3/§6 and returns the decoder to use for the request body (nil
// for identity), or a non-nil error the caller should act on. Three distinct
// error shapes are possible:
//
//   - *UnsupportedContentTypeError: the caller must respond with
//     UnsupportedMediaTypeHeaders (a bare HTTP :status 415, no grpc-status).
//   - *MethodNotImplementedError: path did not resolve via registry; the
//     caller should map with ToServerStatus and send trailers-only.
//   - any other error: map with ToServerStatus and send trailers-only,
//     via TrailersOnlyWithAcceptEncoding when the error is an
//     *UnsupportedMessageEncodingError so its Advertised list reaches the
//     peer as grpc-accept-encoding.
//
// path and registry may be left as "" / nil to skip the routing check (for
// callers that resolve the method elsewhere).
func ValidateRequestHeaders(headers map[string][]string, method, path string, registry MethodLookup, supported map[string]encoding.Compressor) (decoder encoding.Compressor, err error) {
	if method != "POST" && method != "GET" {
		return nil, status.Newf(codes.Internal, "invalid :method %q", method).Err()
	}
	ct, _ := firstValue(headers, headerContentType)
	if ct == "" || !IsGRPCContentType(ct) {
		return nil, &UnsupportedContentTypeError{ContentType: ct}
	}
	if registry != nil {
		if _, _, ok := registry.Lookup(path); !ok {
			return nil, &MethodNotImplementedError{Path: path}
		}
	}
	if enc, ok := firstValue(headers, headerGRPCEncoding); ok && enc != "" && enc != encoding.Identity {
		c, ok := supported[enc]
		if !ok {
			return nil, &UnsupportedMessageEncodingError{Encoding: enc, Advertised: advertisedEncodings(supported)}
		}
		return c, nil
	}
	return nil, nil
}

// advertisedEncodings lists the algorithms supported advertises, sorted for
// a deterministic grpc-accept-encoding header value. identity is implicit
// and always accepted, so it is never listed.
func advertisedEncodings(supported map[string]encoding.Compressor) []string {
	out := make([]string, 0, len(supported))
	for name := range supported {
		if name == encoding.Identity {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// State exposes the current state for logging/tests only.
func (ss *ServerStream) State() string { return ss.state.String() }

// ReceiveRequest decodes as many complete request messages as are available
// in data, bounded by maxLength per message. Valid while the request side is
// still open.
func (ss *ServerStream) ReceiveRequest(data []byte, maxLength uint32) ([]Message, error) {
	if !ss.state.requestActive() {
		return nil, &InvalidStateError{Op: "receive_request", State: ss.state.String()}
	}
	ss.reader.Write(data)
	var out []Message
	for {
		m, err := ss.reader.Next(maxLength)
		if err != nil {
			return out, err
		}
		if m == nil {
			return out, nil
		}
		out = append(out, *m)
	}
}

// ReceiveEndOfRequestStream closes the request side's receive direction.
func (ss *ServerStream) ReceiveEndOfRequestStream() error {
	switch ss.state {
	case requestActiveResponseIdle:
		ss.state = requestClosedResponseIdle
		return nil
	case requestActiveResponseActive:
		ss.state = requestClosedResponseActive
		return nil
	case requestClosedResponseIdle, requestClosedResponseActive:
		return ErrAlreadyClosed
	default:
		return &InvalidStateError{Op: "receive_end_of_request_stream", State: ss.state.String()}
	}
}

// ReceiveDataFrameEndStream handles a DATA frame arriving with END_STREAM —
// the normal way a request stream ends (no trailers on the request side).
// It is equivalent to ReceiveEndOfRequestStream for state-machine purposes.
func (ss *ServerStream) ReceiveDataFrameEndStream() error {
	return ss.ReceiveEndOfRequestStream()
}

// SendResponseHeaders emits the initial response headers. Valid only while
// response is idle.
func (ss *ServerStream) SendResponseHeaders(h *ResponseHeaders, contentType string) ([]HeaderField, error) {
	if !ss.state.responseIdle() {
		return nil, &InvalidStateError{Op: "send_response_headers", State: ss.state.String()}
	}
	fields := h.Build(contentType)
	switch ss.state {
	case requestActiveResponseIdle:
		ss.state = requestActiveResponseActive
	case requestClosedResponseIdle:
		ss.state = requestClosedResponseActive
	}
	return fields, nil
}

// SendResponse frames and returns one response message. Response headers
// must already have been sent.
func (ss *ServerStream) SendResponse(payload []byte, compressor encoding.Compressor, compressed bool) ([]byte, error) {
	if !ss.state.responseActive() {
		return nil, &InvalidStateError{Op: "send_response", State: ss.state.String()}
	}
	if ss.opts.ResponseCardinality == One && ss.responseSent >= 1 {
		return nil, &CardinalityViolationError{Side: "response"}
	}
	w := &Writer{Compressor: compressor}
	framed, err := w.Write(payload, compressed)
	if err != nil {
		return nil, err
	}
	ss.responseSent++
	return framed, nil
}

// SendTrailers terminates the RPC with s. If response headers were never
// sent, the caller should instead send TrailersOnly(s, contentType) as a
// single HEADERS+END_STREAM frame; SendTrailers always just advances state
// and returns the Trailers(s) header set, leaving the choice of frame shape
// to the caller since that's an HTTP/2 framing decision outside this
// package's scope.
func (ss *ServerStream) SendTrailers(s *status.Status) ([]HeaderField, error) {
	if ss.state.terminal() {
		return nil, ErrAlreadyComplete
	}
	ss.state = requestClosedResponseClosed
	return Trailers(s), nil
}

// Done reports whether the RPC has reached its terminal state.
func (ss *ServerStream) Done() bool { return ss.state.terminal() }
