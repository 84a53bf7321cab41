/*
 *
 * Copyright 2016 gRPC authors.
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

// Package stats defines instrumentation hooks for RPC progress, mirroring
// the teacher's stats.Handler/stats.Begin/stats.End usage in stream.go. The
// client and server state machines in internal/transport do not emit these
// events; a caller that wants them invokes a Handler itself.
package stats

import (
	"context"
	"time"
)

// RPCStats is implemented by every event type this package defines.
type RPCStats interface {
	isRPCStats()
}

// Begin is emitted when an RPC attempt begins.
type Begin struct {
	Client    bool
	BeginTime time.Time
	FailFast  bool
}

// InPayload is emitted for every message received.
type InPayload struct {
	Client   bool
	Length   int
	WireLength int
	RecvTime time.Time
}

// OutPayload is emitted for every message sent.
type OutPayload struct {
	Client     bool
	Length     int
	WireLength int
	SentTime   time.Time
}

// End is emitted once when an RPC attempt finishes, successfully or not.
type End struct {
	Client    bool
	BeginTime time.Time
	EndTime   time.Time
	Error     error
}

func (Begin) isRPCStats()      {}
func (InPayload) isRPCStats()  {}
func (OutPayload) isRPCStats() {}
func (End) isRPCStats()        {}

// RPCTagInfo carries static per-RPC identity to TagRPC.
type RPCTagInfo struct {
	FullMethodName string
	FailFast       bool
}

// Handler defines the interface gRPC uses to collect stats, matching the
// teacher's stats.Handler.
type Handler interface {
	// TagRPC attaches stats-collection state to ctx and returns the
	// augmented context.
	TagRPC(ctx context.Context, info *RPCTagInfo) context.Context
	// HandleRPC processes an RPCStats event produced during the life of an
	// RPC that ctx was tagged for.
	HandleRPC(ctx context.Context, s RPCStats)
}
