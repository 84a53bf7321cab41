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

// Package status implements the (code, message, trailing-metadata) gRPC
// status and its mapping to/from HTTP status codes, per the gRPC-over-HTTP/2
// wire specification.
package status

import (
	"fmt"

	"github.com/chalvern/grpcore/codes"
)

// MD is the trailing-metadata carried alongside a Status. It is a thin alias
// so this package has no dependency on a particular metadata representation;
// callers in internal/transport use http.Header-shaped maps.
type MD map[string][]string

// Status represents an RPC status made of a code, a message and optional
// trailing metadata. The zero value is not useful; construct with New or Newf.
type Status struct {
	code    codes.Code
	message string
	trailer MD
}

// New returns a Status representing code and message.
func New(code codes.Code, message string) *Status {
	return &Status{code: code, message: message}
}

// Newf returns New(code, fmt.Sprintf(format, a...)).
func Newf(code codes.Code, format string, a ...interface{}) *Status {
	return New(code, fmt.Sprintf(format, a...))
}

// WithTrailer returns a copy of s carrying the given trailing metadata.
func (s *Status) WithTrailer(md MD) *Status {
	return &Status{code: s.code, message: s.message, trailer: md}
}

// Code returns the status code.
func (s *Status) Code() codes.Code {
	if s == nil {
		return codes.OK
	}
	return s.code
}

// Message returns the status message.
func (s *Status) Message() string {
	if s == nil {
		return ""
	}
	return s.message
}

// Trailer returns the trailing metadata attached to s, if any.
func (s *Status) Trailer() MD {
	if s == nil {
		return nil
	}
	return s.trailer
}

// Err returns an immutable error representing s; if s.Code() is OK, returns
// nil. This is the only success sentinel this package recognizes — the
// grpc-status wire value 0 with no constructed doNotUse shortcut.
func (s *Status) Err() error {
	if s == nil || s.Code() == codes.OK {
		return nil
	}
	return &statusError{s: s}
}

// statusError is the concrete error implementation returned by Err. It is
// unexported so the only supported way to obtain a *Status from an error is
// FromError, matching the teacher's status.FromError/status.Errorf usage.
type statusError struct{ s *Status }

func (e *statusError) Error() string {
	return fmt.Sprintf("rpc error: code = %s desc = %s", e.s.Code(), e.s.Message())
}

func (e *statusError) GRPCStatus() *Status { return e.s }

// Error returns an error representing code and message, or nil if code is OK.
func Error(code codes.Code, message string) error {
	return New(code, message).Err()
}

// Errorf returns Error(code, fmt.Sprintf(format, a...)).
func Errorf(code codes.Code, format string, a ...interface{}) error {
	return Error(code, fmt.Sprintf(format, a...))
}

// FromError returns a Status representation of err.
//
//   - If err is nil, returns (nil, true) — nil represents grpc-status OK.
//   - If err implements `GRPCStatus() *Status` (as errors returned by Error,
//     Errorf and New().Err() do), returns that Status and true.
//   - Otherwise returns (New(codes.Unknown, err.Error()), false), matching the
//     teacher's status.FromError fallback.
func FromError(err error) (s *Status, ok bool) {
	if err == nil {
		return nil, true
	}
	type grpcstatus interface{ GRPCStatus() *Status }
	if gs, ok := err.(grpcstatus); ok {
		return gs.GRPCStatus(), true
	}
	return New(codes.Unknown, err.Error()), false
}

// Code extracts the status code from err, defaulting to codes.OK for a nil
// err and codes.Unknown for an error that carries no Status.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	s, _ := FromError(err)
	return s.Code()
}

// httpToCode is the HTTP→gRPC status mapping from spec.md §6, applied when a
// response's :status is not 200 and no valid grpc-status trailer is present.
var httpToCode = map[int]codes.Code{
	400: codes.Internal,
	401: codes.Unauthenticated,
	403: codes.PermissionDenied,
	404: codes.Unimplemented,
	429: codes.Unavailable,
	502: codes.Unavailable,
	503: codes.Unavailable,
	504: codes.Unavailable,
}

// FromHTTPStatus maps an HTTP :status that is not 200 to a gRPC status, per
// the table in spec.md §6. Unlisted codes (including 200, which callers
// should never pass here) map to codes.Unknown.
func FromHTTPStatus(httpStatus int) *Status {
	if c, ok := httpToCode[httpStatus]; ok {
		return New(c, fmt.Sprintf("unexpected HTTP status code received from server: %d", httpStatus))
	}
	return New(codes.Unknown, fmt.Sprintf("unexpected HTTP status code received from server: %d", httpStatus))
}
