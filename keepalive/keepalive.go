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

// Package keepalive defines the configurable parameters for HTTP/2 PING
// based connection health checking, on both the client and server side.
package keepalive

import "time"

// ClientParameters configures how a connection actively probes the peer to
// notice a broken transport, and sends pings so that intermediaries are
// aware the connection is live. These must be set in coordination with the
// server's EnforcementPolicy, or incompatible settings can result in the
// server closing the connection (spec.md §4.5's ping-strike defense).
type ClientParameters struct {
	// Time is the duration of inactivity after which the client pings the
	// server to check the transport is still alive. The value is used as
	// given; a zero value is not replaced by a default.
	Time time.Duration
	// Timeout is how long the client waits for a ping ack before deciding
	// the connection is dead. Must be strictly less than Time. The value is
	// used as given; a zero value is not replaced by a default.
	Timeout time.Duration
	// PermitWithoutStream, if true, keeps sending keepalive pings even when
	// there are no active RPCs. Default: false.
	PermitWithoutStream bool
}

// ServerParameters configures connection-age and keepalive limits enforced
// by the server.
type ServerParameters struct {
	// MaxConnectionIdle is the duration after which an idle connection (no
	// open streams) is closed with a GOAWAY. Measured from the most recent
	// time the open-stream count reached zero. Default: infinity.
	MaxConnectionIdle time.Duration
	// MaxConnectionAge is the maximum lifetime of a connection before the
	// server sends a GOAWAY. No jitter is applied to it. Default: infinity.
	MaxConnectionAge time.Duration
	// MaxConnectionAgeGrace is an additive grace period after
	// MaxConnectionAge after which the connection is forcibly closed even if
	// streams remain open. Default: infinity.
	MaxConnectionAgeGrace time.Duration
	// Time is the duration of inactivity after which the server pings the
	// client. Default: 2h.
	Time time.Duration
	// Timeout is how long the server waits for a ping ack before closing the
	// connection. Default: 20s.
	Timeout time.Duration
}

// EnforcementPolicy is the server-side policy for rejecting abusive client
// keepalive pings (spec.md §4.5's "ping-strike defense").
type EnforcementPolicy struct {
	// MinTime is the minimum interval a client is expected to wait between
	// pings sent while the connection has no active streams. Default: 5m.
	MinTime time.Duration
	// PermitWithoutStream, if true, the server allows — and polices —
	// keepalive pings even when there are no active streams. If false, any
	// ping received with no active streams is treated as a strike
	// regardless of timing. Default: false.
	PermitWithoutStream bool
}
