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
	"time"

	"golang.org/x/net/http2"

	"github.com/chalvern/grpcore/keepalive"
)

// ClientKeepaliveEngine drives the client-side half of spec.md §4.5: a
// scheduled PING sent every params.Time of inactivity, torn down if no ack
// arrives within params.Timeout.
type ClientKeepaliveEngine struct {
	params    keepalive.ClientParameters
	scheduler Scheduler

	onSendPing func()
	onTimeout  func()

	pingTask    Task
	timeoutTask Task
	openStreams int
}

// NewClientKeepaliveEngine constructs a ClientKeepaliveEngine. onSendPing is
// invoked to actually emit a PING frame; onTimeout is invoked if no ack
// arrives within params.Timeout, and should tear down the connection.
func NewClientKeepaliveEngine(params keepalive.ClientParameters, scheduler Scheduler, onSendPing, onTimeout func()) *ClientKeepaliveEngine {
	return &ClientKeepaliveEngine{params: params, scheduler: scheduler, onSendPing: onSendPing, onTimeout: onTimeout}
}

func (e *ClientKeepaliveEngine) schedulePing() {
	e.pingTask = e.scheduler.Schedule(e.params.Time, e.firePing)
}

func (e *ClientKeepaliveEngine) firePing() {
	e.pingTask = nil
	e.onSendPing()
	e.timeoutTask = e.scheduler.Schedule(e.params.Timeout, e.onTimeout)
}

// Start begins the keepalive cycle if permitted with zero active streams.
func (e *ClientKeepaliveEngine) Start() {
	if e.params.PermitWithoutStream || e.openStreams > 0 {
		e.schedulePing()
	}
}

// OnStreamOpened begins the keepalive cycle on the first stream if it
// wasn't already running because PermitWithoutStream is false.
func (e *ClientKeepaliveEngine) OnStreamOpened() {
	e.openStreams++
	if !e.params.PermitWithoutStream && e.openStreams == 1 && e.pingTask == nil && e.timeoutTask == nil {
		e.schedulePing()
	}
}

// OnStreamClosed stops the keepalive cycle once the last stream closes, if
// PermitWithoutStream is false.
func (e *ClientKeepaliveEngine) OnStreamClosed() {
	if e.openStreams > 0 {
		e.openStreams--
	}
	if !e.params.PermitWithoutStream && e.openStreams == 0 {
		if e.pingTask != nil {
			e.pingTask.Cancel()
			e.pingTask = nil
		}
		if e.timeoutTask != nil {
			e.timeoutTask.Cancel()
			e.timeoutTask = nil
		}
	}
}

// OnFrameReceived resets the idle clock: any frame from the peer is
// evidence the connection is alive, so the next PING is deferred.
func (e *ClientKeepaliveEngine) OnFrameReceived() {
	if e.timeoutTask != nil {
		// A frame arrived before the ack; still wait for the ack proper,
		// since only a PING ack clears suspicion the peer has wedged.
		return
	}
	if e.pingTask != nil {
		e.pingTask.Cancel()
		e.pingTask = nil
		e.schedulePing()
	}
}

// OnPingAck clears the outstanding timeout and reschedules the next ping.
func (e *ClientKeepaliveEngine) OnPingAck() {
	if e.timeoutTask != nil {
		e.timeoutTask.Cancel()
		e.timeoutTask = nil
	}
	e.schedulePing()
}

// DefaultPingPayload is the 8-byte payload a connection's normal keepalive
// PING frames carry.
var DefaultPingPayload = [8]byte{0, 0, 0, 0, 0, 0, 0, 1}

// GOAWAYPingPayload returns the bitwise complement of payload: the ping
// sent alongside a GOAWAY uses this complemented value so its PONG can be
// unambiguously correlated with the shutdown sequence rather than an
// ordinary keepalive round-trip (spec.md §4.5).
func GOAWAYPingPayload(payload [8]byte) [8]byte {
	var out [8]byte
	for i, b := range payload {
		out[i] = ^b
	}
	return out
}

// ServerAction tells the server-side caller what enforcement response to
// take as a result of a keepalive event.
type ServerAction int

const (
	ServerActionNone ServerAction = iota
	ServerActionGOAWAY               // MaxConnectionAge(Grace) elapsed
	ServerActionEnhanceYourCalmClose // too many bad pings: GOAWAY ENHANCE_YOUR_CALM then close
)

// GoAwayCode reports the HTTP/2 error code the caller should put on the
// GOAWAY frame for this action.
func (a ServerAction) GoAwayCode() http2.ErrCode {
	if a == ServerActionEnhanceYourCalmClose {
		return http2.ErrCodeEnhanceYourCalm
	}
	return http2.ErrCodeNo
}

// Defaults for the ping-strike/ping-throttle defenses (spec.md §4.5),
// matching values production gRPC servers have shipped with for years.
const (
	defaultMaxPingStrikes        = 2
	defaultMaxPingsWithoutData   = 2
)

// ServerKeepaliveEngine drives the server-side half of spec.md §4.5: a
// ping-strike defense against a misbehaving/abusive client, and an
// application-side ping-throttle so a server doesn't itself become the
// abusive peer.
type ServerKeepaliveEngine struct {
	params keepalive.ServerParameters
	policy keepalive.EnforcementPolicy

	strikes int

	lastDataReceived time.Time
	lastPingReceived time.Time
	havePingReceived bool

	pingsSinceData int
	lastPingSent   time.Time
	havePingSent   bool

	openStreams int
}

// NewServerKeepaliveEngine constructs a ServerKeepaliveEngine.
func NewServerKeepaliveEngine(params keepalive.ServerParameters, policy keepalive.EnforcementPolicy) *ServerKeepaliveEngine {
	return &ServerKeepaliveEngine{params: params, policy: policy}
}

// OnDataReceived records that a DATA/HEADERS frame (not just a PING)
// arrived, which resets the bad-ping strike counter and the
// pings-without-data counter.
func (e *ServerKeepaliveEngine) OnDataReceived(now time.Time) {
	e.lastDataReceived = now
	e.strikes = 0
	e.pingsSinceData = 0
}

// OnPingReceived evaluates an incoming client PING against the enforcement
// policy and returns the action the server should take.
func (e *ServerKeepaliveEngine) OnPingReceived(now time.Time) ServerAction {
	minInterval := e.policy.MinTime
	if minInterval == 0 {
		minInterval = 5 * time.Minute
	}
	permit := e.policy.PermitWithoutStream
	badPing := false
	if e.havePingReceived {
		interval := now.Sub(e.lastPingReceived)
		if interval < minInterval && e.openStreams == 0 && permit {
			badPing = true
		}
	}
	if e.openStreams == 0 && !permit {
		badPing = true
	}
	e.lastPingReceived = now
	e.havePingReceived = true

	if badPing {
		e.strikes++
		if e.strikes > defaultMaxPingStrikes {
			return ServerActionEnhanceYourCalmClose
		}
	}
	return ServerActionNone
}

// CanSendPing reports whether the server itself may send a keepalive PING
// now without exceeding its own configured throttle, and if so records that
// one is about to be sent.
func (e *ServerKeepaliveEngine) CanSendPing(now time.Time, permitWithoutCalls bool, minSentInterval time.Duration) bool {
	if e.openStreams == 0 && !permitWithoutCalls {
		return false
	}
	if e.havePingSent && now.Sub(e.lastPingSent) < minSentInterval {
		if e.pingsSinceData >= defaultMaxPingsWithoutData {
			return false
		}
	}
	e.lastPingSent = now
	e.havePingSent = true
	e.pingsSinceData++
	return true
}

// OnStreamOpened/OnStreamClosed track the active-stream count the
// enforcement checks above depend on.
func (e *ServerKeepaliveEngine) OnStreamOpened() { e.openStreams++ }
func (e *ServerKeepaliveEngine) OnStreamClosed() {
	if e.openStreams > 0 {
		e.openStreams--
	}
}

// CheckMaxAge reports whether the connection has lived past
// MaxConnectionAge (+Grace once GOAWAY has already been sent), per
// spec.md §4.5.
func (e *ServerKeepaliveEngine) CheckMaxAge(connectionStart, now time.Time, goAwaySent bool) ServerAction {
	if e.params.MaxConnectionAge == 0 {
		return ServerActionNone
	}
	age := now.Sub(connectionStart)
	if !goAwaySent && age >= e.params.MaxConnectionAge {
		return ServerActionGOAWAY
	}
	if goAwaySent && e.params.MaxConnectionAgeGrace > 0 && age >= e.params.MaxConnectionAge+e.params.MaxConnectionAgeGrace {
		return ServerActionEnhanceYourCalmClose
	}
	return ServerActionNone
}
