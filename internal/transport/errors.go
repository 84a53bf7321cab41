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
	"errors"
	"fmt"

	"github.com/chalvern/grpcore/codes"
	"github.com/chalvern/grpcore/status"
)

// InvalidStateError reports that an operation was attempted from a state
// machine state that does not permit it (spec.md §4.2/§4.3's "else:
// invalid-state" transitions).
type InvalidStateError struct {
	Op    string
	State string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("transport: %s invalid in state %s", e.Op, e.State)
}

// ErrAlreadyClosed reports a send/close attempted on an RPC whose request
// stream is already closed (spec.md §4.2's "closed/*: already-closed").
var ErrAlreadyClosed = errors.New("transport: request stream already closed")

// ErrAlreadyComplete reports an operation attempted on a terminal
// (requestClosedResponseClosed / clientClosedServerClosed) RPC.
var ErrAlreadyComplete = errors.New("transport: rpc already complete")

// CardinalityViolationError reports a second message sent/received on a
// "one message" side of a unary request or response stream.
type CardinalityViolationError struct {
	Side string // "request" or "response"
}

func (e *CardinalityViolationError) Error() string {
	return fmt.Sprintf("transport: cardinality violation: %s stream permits only one message", e.Side)
}

// UnsupportedMessageEncodingError reports a grpc-encoding naming an
// algorithm the receiver has no decoder for. Advertised carries the
// receiver's enabled algorithms, which a server reports back to the peer as
// grpc-accept-encoding alongside the trailers-only unimplemented response
// (spec.md §4.3/§8).
type UnsupportedMessageEncodingError struct {
	Encoding   string
	Advertised []string
}

func (e *UnsupportedMessageEncodingError) Error() string {
	return fmt.Sprintf("unsupported-message-encoding(%s)", e.Encoding)
}

// UnsupportedContentTypeError reports a request whose content-type does not
// name a gRPC family at all. Unlike every other rejection in this package,
// spec.md §4.3/§8 requires this to produce a bare HTTP `:status 415` with
// END_STREAM and no grpc-status whatsoever — the RPC never starts, so this
// is never mapped through ToServerStatus; callers must check for it
// explicitly and respond with UnsupportedMediaTypeHeaders instead.
type UnsupportedContentTypeError struct {
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("transport: unsupported content-type %q", e.ContentType)
}

// MethodNotImplementedError reports a request routed to a "/service/method"
// path the server has no handler for (spec.md §4.3, end-to-end scenario 2).
type MethodNotImplementedError struct {
	Path string
}

func (e *MethodNotImplementedError) Error() string {
	return fmt.Sprintf("transport: %q is not implemented", e.Path)
}

// ErrProtocolViolationDataEndStream is synthesized by the client state
// machine when a DATA frame with END_STREAM arrives before any response
// headers (spec.md §4.2/§8's boundary behavior).
var ErrProtocolViolationDataEndStream = errors.New("Protocol violation: received DATA frame with end stream set")

// ToClientStatus maps an internal transport error to the *status.Status a
// client-side RPC should surface, per the error taxonomy in spec.md §4.8.
// If err already carries a *status.Status (e.g. it originated from a
// trailers-only response), that Status is returned unchanged.
func ToClientStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if s, ok := status.FromError(err); ok {
		return s
	}

	var ume *UnsupportedMessageEncodingError
	var cve *CardinalityViolationError
	var plle *PayloadLengthLimitExceededError
	var invState *InvalidStateError
	switch {
	case errors.As(err, &ume):
		return status.New(codes.Internal, ume.Error())
	case errors.As(err, &cve):
		return status.New(codes.Internal, cve.Error())
	case errors.As(err, &plle):
		return status.New(codes.ResourceExhausted, plle.Error())
	case errors.Is(err, ErrCompressionUnsupported):
		return status.New(codes.Internal, err.Error())
	case errors.Is(err, ErrAlreadyClosed):
		return status.New(codes.Unavailable, err.Error())
	case errors.Is(err, ErrAlreadyComplete):
		return status.New(codes.Unavailable, err.Error())
	case errors.As(err, &invState):
		return status.New(codes.Unavailable, err.Error())
	default:
		return status.New(codes.Unknown, err.Error())
	}
}

// ToServerStatus is ToClientStatus's server-side counterpart: state
// violations map to Internal rather than Unavailable, per spec.md §4.8.
func ToServerStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if s, ok := status.FromError(err); ok {
		return s
	}

	var ume *UnsupportedMessageEncodingError
	var cve *CardinalityViolationError
	var plle *PayloadLengthLimitExceededError
	var invState *InvalidStateError
	var mni *MethodNotImplementedError
	switch {
	case errors.As(err, &mni):
		return status.New(codes.Unimplemented, fmt.Sprintf("'%s' is not implemented", mni.Path))
	case errors.As(err, &ume):
		if len(ume.Advertised) == 0 {
			return status.New(codes.Unimplemented, "compression is not supported")
		}
		return status.New(codes.Unimplemented, ume.Error())
	case errors.As(err, &cve):
		return status.New(codes.Internal, cve.Error())
	case errors.As(err, &plle):
		return status.New(codes.ResourceExhausted, plle.Error())
	case errors.Is(err, ErrCompressionUnsupported):
		return status.New(codes.Internal, err.Error())
	case errors.Is(err, ErrAlreadyComplete):
		return status.New(codes.Internal, err.Error())
	case errors.As(err, &invState):
		return status.New(codes.Internal, err.Error())
	default:
		return status.New(codes.Internal, err.Error())
	}
}
