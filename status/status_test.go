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

package status

import (
	"errors"
	"testing"

	"github.com/chalvern/grpcore/codes"
)

func TestErrNilForOK(t *testing.T) {
	if err := New(codes.OK, "").Err(); err != nil {
		t.Errorf("New(OK, \"\").Err() = %v, want nil", err)
	}
}

func TestErrorFromErrorRoundTrip(t *testing.T) {
	err := Error(codes.NotFound, "no such widget")
	s, ok := FromError(err)
	if !ok {
		t.Fatal("FromError(ok=false) for an error produced by this package")
	}
	if s.Code() != codes.NotFound || s.Message() != "no such widget" {
		t.Errorf("FromError = %v/%q, want NotFound/\"no such widget\"", s.Code(), s.Message())
	}
}

func TestFromErrorOnPlainErrorReturnsUnknown(t *testing.T) {
	s, ok := FromError(errors.New("boom"))
	if ok {
		t.Error("FromError(plain error) ok = true, want false")
	}
	if s.Code() != codes.Unknown {
		t.Errorf("FromError(plain error).Code() = %v, want Unknown", s.Code())
	}
}

func TestCodeHelper(t *testing.T) {
	if Code(nil) != codes.OK {
		t.Error("Code(nil) != OK")
	}
	if Code(Error(codes.Internal, "x")) != codes.Internal {
		t.Error("Code(Error(Internal,...)) != Internal")
	}
}

func TestWithTrailerPreservesCodeAndMessage(t *testing.T) {
	s := New(codes.Internal, "oops").WithTrailer(MD{"k": {"v"}})
	if s.Code() != codes.Internal || s.Message() != "oops" {
		t.Error("WithTrailer mutated code/message")
	}
	if s.Trailer()["k"][0] != "v" {
		t.Error("WithTrailer did not attach the trailer")
	}
}

func TestFromHTTPStatusMapping(t *testing.T) {
	cases := map[int]codes.Code{
		400: codes.Internal,
		401: codes.Unauthenticated,
		403: codes.PermissionDenied,
		404: codes.Unimplemented,
		429: codes.Unavailable,
		502: codes.Unavailable,
		503: codes.Unavailable,
		504: codes.Unavailable,
		999: codes.Unknown,
	}
	for httpStatus, want := range cases {
		if got := FromHTTPStatus(httpStatus).Code(); got != want {
			t.Errorf("FromHTTPStatus(%d).Code() = %v, want %v", httpStatus, got, want)
		}
	}
}
