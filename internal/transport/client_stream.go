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

// Cardinality is one side's arity: a request or response stream carries
// either exactly one message or arbitrarily many (spec.md §3).
type Cardinality int

const (
	One Cardinality = iota
	Many
)

// clientState is the tagged (client-side, server-side) pair from spec.md
// §4.2. Go is garbage collected, so — per spec.md §4.2's "Copy-on-write
// avoidance" note and §9's implementer guidance — this package omits the
// "modifying" placeholder the teacher's source uses to dodge a COW cost on
// heap-allocated substate; a plain tagged int suffices as long as no method
// here returns before completing its transition, which is the actual
// invariant that matters.
type clientState int

const (
	clientIdleServerIdle clientState = iota
	clientActiveServerIdle
	clientClosedServerIdle
	clientActiveServerActive
	clientClosedServerActive
	clientClosedServerClosed
)

func (s clientState) String() string {
	switch s {
	case clientIdleServerIdle:
		return "clientIdleServerIdle"
	case clientActiveServerIdle:
		return "clientActiveServerIdle"
	case clientClosedServerIdle:
		return "clientClosedServerIdle"
	case clientActiveServerActive:
		return "clientActiveServerActive"
	case clientClosedServerActive:
		return "clientClosedServerActive"
	case clientClosedServerClosed:
		return "clientClosedServerClosed"
	default:
		return "clientStateUnknown"
	}
}

func (s clientState) clientActive() bool {
	return s == clientActiveServerIdle || s == clientActiveServerActive
}
func (s clientState) clientClosed() bool {
	return s == clientClosedServerIdle || s == clientClosedServerActive || s == clientClosedServerClosed
}
func (s clientState) serverIdle() bool {
	return s == clientIdleServerIdle || s == clientActiveServerIdle || s == clientClosedServerIdle
}
func (s clientState) serverActive() bool {
	return s == clientActiveServerActive || s == clientClosedServerActive
}
func (s clientState) terminal() bool {
	return s == clientClosedServerClosed
}

// HeaderField is a single (name, value) HTTP/2 header to be HPACK-encoded by
// the (external) HTTP/2 layer.
type HeaderField struct {
	Name  string
	Value string
}

// RequestHeaders describes the initial headers of a client RPC, per
// spec.md §4.2's "Header construction" and §6.
type RequestHeaders struct {
	Method    string // service/method name component of :path
	Path      string // "/service/method"
	Authority string
	Scheme    string // "http" or "https"
	Cacheable bool   // use :method GET instead of POST

	UserAgent string // defaulted to DefaultUserAgent if empty

	SendCompress    string   // "" means no grpc-encoding header
	AcceptEncodings []string // advertised grpc-accept-encoding, nil means omit

	Timeout Timeout // Infinite means no grpc-timeout header

	Metadata              map[string][]string
	NormalizeMetadataKeys bool
}

// Build renders h as the ordered HTTP/2 header list spec.md §4.2 describes:
// pseudo-headers, content-type, te, user-agent, grpc-encoding,
// grpc-accept-encoding, grpc-timeout, then user metadata.
func (h *RequestHeaders) Build() []HeaderField {
	method := "POST"
	if h.Cacheable {
		method = "GET"
	}
	out := []HeaderField{
		{":method", method},
		{":path", h.Path},
		{":authority", h.Authority},
		{":scheme", h.Scheme},
		{headerContentType, ContentTypeGRPC},
		{headerTE, "trailers"},
	}
	ua := h.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	out = append(out, HeaderField{headerUserAgent, ua})

	if h.SendCompress != "" {
		out = append(out, HeaderField{headerGRPCEncoding, h.SendCompress})
	}
	if len(h.AcceptEncodings) > 0 {
		out = append(out, HeaderField{headerGRPCAcceptEncoding, strings.Join(h.AcceptEncodings, ",")})
	}
	if !h.Timeout.IsInfinite() {
		// EncodeWire cannot fail here since IsInfinite is already false.
		wire, _ := h.Timeout.EncodeWire()
		out = append(out, HeaderField{headerGRPCTimeout, wire})
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

// ClientStreamOptions configures a ClientStream at construction.
type ClientStreamOptions struct {
	RequestCardinality  Cardinality
	ResponseCardinality Cardinality

	// SupportedDecoders is the set of compression algorithms this client can
	// decode (spec.md §3: "the set advertised to peers may be a subset of
	// those supported for decoding").
	SupportedDecoders map[string]encoding.Compressor

	MaxReceiveLength uint32 // not consulted by ClientStream; ReceiveResponseBuffer takes its bound as an argument
	DecompressionLimit int
}

// ClientStream is the client-side per-RPC state machine of spec.md §4.2.
// It is synchronous and not safe for concurrent use — per spec.md §5, a
// single-threaded event loop owns it exclusively.
type ClientStream struct {
	state clientState

	opts ClientStreamOptions

	requestSent  int
	reader       *Reader
	readerReady  bool // decoder configured once response headers observed
}

// NewClientStream constructs a ClientStream in clientIdleServerIdle.
func NewClientStream(opts ClientStreamOptions) *ClientStream {
	return &ClientStream{state: clientIdleServerIdle, opts: opts}
}

// State returns the current (client, server) state pair, exposed for
// logging/tests only — callers must not branch protocol behavior on it from
// outside this package.
func (cs *ClientStream) State() string { return cs.state.String() }

// SendRequestHeaders emits the initial request headers. Valid only from
// clientIdleServerIdle.
func (cs *ClientStream) SendRequestHeaders(h *RequestHeaders) ([]HeaderField, error) {
	if cs.state != clientIdleServerIdle {
		return nil, &InvalidStateError{Op: "send_request_headers", State: cs.state.String()}
	}
	fields := h.Build()
	cs.state = clientActiveServerIdle
	return fields, nil
}

// SendRequest frames and returns one request message.
func (cs *ClientStream) SendRequest(payload []byte, compressor encoding.Compressor, compressed bool) ([]byte, error) {
	switch {
	case cs.state == clientIdleServerIdle:
		return nil, &InvalidStateError{Op: "send_request", State: cs.state.String()}
	case cs.state.clientClosed():
		return nil, &CardinalityViolationError{Side: "request"}
	case !cs.state.clientActive():
		return nil, &InvalidStateError{Op: "send_request", State: cs.state.String()}
	}
	if cs.opts.RequestCardinality == One && cs.requestSent >= 1 {
		return nil, &CardinalityViolationError{Side: "request"}
	}
	w := &Writer{Compressor: compressor}
	framed, err := w.Write(payload, compressed)
	if err != nil {
		return nil, err
	}
	cs.requestSent++
	return framed, nil
}

// SendEndOfRequestStream closes the request stream's send direction.
func (cs *ClientStream) SendEndOfRequestStream() error {
	switch cs.state {
	case clientIdleServerIdle:
		return &InvalidStateError{Op: "send_end_of_request_stream", State: cs.state.String()}
	case clientActiveServerIdle:
		cs.state = clientClosedServerIdle
		return nil
	case clientActiveServerActive:
		cs.state = clientClosedServerActive
		return nil
	default: // already closed
		return ErrAlreadyClosed
	}
}

// ReceiveResponseHeaders validates and accepts response headers, per the
// ordered checks in spec.md §4.2.
//
// If the response is a trailers-only reply (END_STREAM set on this HEADERS
// frame) carrying a grpc-status (an unparseable value yields Unknown), the RPC is complete: the
// synthesized Status is returned as trailersOnly and the state machine moves
// directly to clientClosedServerClosed.
//
// Otherwise, a non-nil err means the headers were rejected (invalid HTTP
// status, content-type, or encoding); the state is left unchanged, and the
// caller is expected to call Fail(ToClientStatus(err)) to terminate the RPC.
// A nil trailersOnly and nil err means ordinary response headers were
// accepted and the state moved to */active.
func (cs *ClientStream) ReceiveResponseHeaders(headers map[string][]string, httpStatus int, endStream bool) (trailersOnly *status.Status, err error) {
	if !cs.state.serverIdle() {
		return nil, &InvalidStateError{Op: "receive_response_headers", State: cs.state.String()}
	}

	if endStream {
		if raw, ok := firstValue(headers, headerGRPCStatus); ok {
			code := ParseGRPCStatusTrailer(raw)
			msg := ""
			if m, ok := firstValue(headers, headerGRPCMessage); ok {
				msg = PercentDecode(m)
			}
			cs.state = clientClosedServerClosed
			return status.New(code, msg).WithTrailer(headers), nil
		}
	}

	if httpStatus != 200 {
		return nil, status.FromHTTPStatus(httpStatus).Err()
	}

	ct, _ := firstValue(headers, headerContentType)
	if ct == "" || !IsGRPCContentType(ct) {
		return nil, status.Newf(codes.Internal, "invalid-content-type: %q", ct).Err()
	}

	if enc, ok := firstValue(headers, headerGRPCEncoding); ok && enc != "" && enc != encoding.Identity {
		if _, supported := cs.opts.SupportedDecoders[enc]; !supported {
			return nil, (&UnsupportedMessageEncodingError{Encoding: enc}).toStatusErr()
		}
		cs.reader = NewReader(cs.opts.SupportedDecoders[enc], cs.opts.DecompressionLimit)
	} else {
		cs.reader = NewReader(nil, cs.opts.DecompressionLimit)
	}
	cs.readerReady = true

	switch cs.state {
	case clientActiveServerIdle:
		cs.state = clientActiveServerActive
	case clientClosedServerIdle:
		cs.state = clientClosedServerActive
	case clientIdleServerIdle:
		// The invariant in spec.md §3 ("the client state may not be
		// 'server active' while the client is still 'idle'") forbids a
		// clientIdleServerActive state outright; treat this as a protocol
		// violation rather than manufacturing a state the machine can't
		// represent.
		return nil, &InvalidStateError{Op: "receive_response_headers", State: cs.state.String()}
	}
	return nil, nil
}

func (e *UnsupportedMessageEncodingError) toStatusErr() error {
	return status.New(codes.Internal, e.Error()).Err()
}

// ReceiveResponseBuffer decodes as many complete messages as are available
// in data (which may contain a partial trailing message), bounded by
// maxLength per message.
func (cs *ClientStream) ReceiveResponseBuffer(data []byte, maxLength uint32) ([]Message, error) {
	if !cs.state.serverActive() {
		return nil, &InvalidStateError{Op: "receive_response_buffer", State: cs.state.String()}
	}
	cs.reader.Write(data)
	var out []Message
	for {
		m, err := cs.reader.Next(maxLength)
		if err != nil {
			return out, err
		}
		if m == nil {
			return out, nil
		}
		out = append(out, *m)
	}
}

// ReceiveEndOfResponseStream parses trailers and terminates the RPC, valid
// from any non-idle, non-terminal state.
func (cs *ClientStream) ReceiveEndOfResponseStream(trailers map[string][]string) (*status.Status, error) {
	if cs.state == clientIdleServerIdle || cs.state == clientClosedServerClosed {
		return nil, &InvalidStateError{Op: "receive_end_of_response_stream", State: cs.state.String()}
	}
	code := codes.Unknown
	if raw, ok := firstValue(trailers, headerGRPCStatus); ok {
		code = ParseGRPCStatusTrailer(raw)
	}
	msg := ""
	if m, ok := firstValue(trailers, headerGRPCMessage); ok {
		msg = PercentDecode(m)
	}
	cs.state = clientClosedServerClosed
	return status.New(code, msg).WithTrailer(trailers), nil
}

// ReceiveDataFrameEndStream handles a DATA frame arriving with END_STREAM
// set and no preceding trailers — a protocol violation (spec.md §4.2/§8).
// From clientClosedServerClosed it is a no-op, matching "ignored".
func (cs *ClientStream) ReceiveDataFrameEndStream() *status.Status {
	if cs.state == clientClosedServerClosed {
		return nil
	}
	cs.state = clientClosedServerClosed
	return status.New(codes.Internal, ErrProtocolViolationDataEndStream.Error())
}

// Fail force-terminates the RPC with s, used by the driving event loop after
// a header-validation error, a deadline, or a user cancellation. It is a
// no-op if the RPC is already terminal, matching the "already complete"
// invariant in spec.md §3.
func (cs *ClientStream) Fail(s *status.Status) *status.Status {
	if cs.state == clientClosedServerClosed {
		return nil
	}
	cs.state = clientClosedServerClosed
	return s
}

// Done reports whether the RPC has reached its terminal state.
func (cs *ClientStream) Done() bool { return cs.state == clientClosedServerClosed }

func firstValue(m map[string][]string, key string) (string, bool) {
	if v, ok := m[key]; ok && len(v) > 0 {
		return v[0], true
	}
	return "", false
}
