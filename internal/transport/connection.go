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

import "time"

// Task is a cancellable scheduled action, returned by Scheduler.Schedule.
type Task interface {
	Cancel()
}

// Scheduler abstracts timer scheduling so the connection state machine
// stays testable without real wall-clock waits. This package ships no
// implementation; the owner of a Connection supplies one.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Task
}

// connState is spec.md §4.4's per-connection lifecycle state.
type connState int

const (
	connOperating connState = iota
	connWaitingToIdle
	connQuiescing
	connClosing
	connClosed
)

// Action tells the caller (which owns the real socket/HTTP2 framer) what to
// do as a result of a Connection transition. Several things can be true of
// a single transition (spec.md §4.4's "operations aggregate" note), so
// Action is a bitmask rather than a single enum value; the zero value means
// "nothing".
type Action int

const (
	ActionNone Action = 0
	// ActionNotifyReady tells the owner to report the channel Ready for the
	// first time: settings have now been seen (spec.md §4.4's "first-time
	// ready" notification).
	ActionNotifyReady Action = 1 << (iota - 1)
	ActionSendFirstGOAWAY
	ActionSendPing
	ActionSendFinalGOAWAY
	ActionCloseSocket
)

// Has reports whether a is included in the set of actions in s.
func (s Action) Has(a Action) bool { return s&a != 0 }

// ChannelNotification tells the owner what to report to the connectivity
// manager once the socket has actually closed (spec.md §4.4's distinction
// between a self-initiated idle close and an otherwise-terminated channel).
type ChannelNotification int

const (
	// NotifyNone is returned when the socket was already closed; there is
	// nothing new to report.
	NotifyNone ChannelNotification = iota
	// NotifyIdle reports that the connection closed as the terminal step of
	// its own idle-timeout-driven graceful shutdown.
	NotifyIdle
	// NotifyInactive reports that the connection closed for any other
	// reason (peer GOAWAY, forced shutdown, socket error).
	NotifyInactive
)

// defaultMaxConcurrentStreams is used when a peer's SETTINGS frame omits
// SETTINGS_MAX_CONCURRENT_STREAMS, per spec.md §4.4.
const defaultMaxConcurrentStreams = 100

// Connection drives the idle/quiescing/closing state machine of spec.md
// §4.4. It does not itself own a socket or HTTP/2 framer; callers apply the
// returned Actions to those.
type Connection struct {
	state connState

	openStreams   int
	highestStream uint32
	initiatedByUs bool // set once quiescing begins
	shouldIdle    bool // true iff the eventual close should be reported as idle

	pingOutstanding bool
	expectedPingAck [8]byte

	settingsSeen         bool
	maxConcurrentStreams uint32

	idleTimeout time.Duration
	scheduler   Scheduler
	idleTask    Task
}

// NewConnection constructs a Connection in the operating state.
func NewConnection(idleTimeout time.Duration, scheduler Scheduler) *Connection {
	return &Connection{state: connOperating, idleTimeout: idleTimeout, scheduler: scheduler}
}

func (c *Connection) String() string {
	switch c.state {
	case connOperating:
		return "operating"
	case connWaitingToIdle:
		return "waitingToIdle"
	case connQuiescing:
		return "quiescing"
	case connClosing:
		return "closing"
	case connClosed:
		return "closed"
	default:
		return "connStateUnknown"
	}
}

// MaxConcurrentStreams reports the peer's advertised
// SETTINGS_MAX_CONCURRENT_STREAMS, or the spec.md §4.4 default of 100 if no
// SETTINGS frame has been seen yet.
func (c *Connection) MaxConcurrentStreams() uint32 {
	if !c.settingsSeen {
		return defaultMaxConcurrentStreams
	}
	return c.maxConcurrentStreams
}

// OnSettingsReceived records the peer's SETTINGS frame. The first time this
// is called, it tells the owner to report the channel Ready (spec.md §4.4:
// "channel becomes ready only once settings have been seen").
func (c *Connection) OnSettingsReceived(maxConcurrentStreams uint32) Action {
	if maxConcurrentStreams == 0 {
		maxConcurrentStreams = defaultMaxConcurrentStreams
	}
	c.maxConcurrentStreams = maxConcurrentStreams
	if c.settingsSeen {
		return ActionNone
	}
	c.settingsSeen = true
	return ActionNotifyReady
}

// OnStreamOpened records a new stream, cancelling any pending idle timer.
func (c *Connection) OnStreamOpened(streamID uint32) {
	c.openStreams++
	if streamID > c.highestStream {
		c.highestStream = streamID
	}
	if c.state == connWaitingToIdle {
		c.idleTask.Cancel()
		c.idleTask = nil
		c.state = connOperating
	}
}

// OnStreamClosed records a stream's completion. It schedules an idle timer
// if the connection is otherwise quiescent (and settings have been seen —
// an idle timer on a connection that never completed its handshake would
// be premature, per spec.md §4.4), or — if the connection is already
// quiescing towards shutdown with no ping outstanding — advances to
// closing once the last stream has drained.
func (c *Connection) OnStreamClosed() Action {
	if c.openStreams > 0 {
		c.openStreams--
	}
	switch {
	case c.state == connOperating && c.openStreams == 0 && c.idleTimeout > 0 && c.settingsSeen:
		c.idleTask = c.scheduler.Schedule(c.idleTimeout, func() {})
		c.state = connWaitingToIdle
		return ActionNone
	case c.state == connQuiescing && c.openStreams == 0 && !c.pingOutstanding:
		c.state = connClosing
		return ActionCloseSocket
	default:
		return ActionNone
	}
}

// OnIdleTimeout fires when the idle timer set by OnStreamClosed elapses
// with no intervening new stream; valid only from waitingToIdle. It begins
// a self-initiated graceful shutdown that, once finished, reports idle
// rather than inactive.
func (c *Connection) OnIdleTimeout() Action {
	if c.state != connWaitingToIdle {
		return ActionNone
	}
	c.idleTask = nil
	c.shouldIdle = true
	return c.beginQuiescing(true)
}

// InitiateGracefulShutdown begins a shutdown not driven by idleness (e.g. an
// operator-requested drain or MaxConnectionAge). Valid from operating or
// waitingToIdle.
func (c *Connection) InitiateGracefulShutdown() Action {
	if c.state != connOperating && c.state != connWaitingToIdle {
		return ActionNone
	}
	if c.idleTask != nil {
		c.idleTask.Cancel()
		c.idleTask = nil
	}
	c.shouldIdle = false
	return c.beginQuiescing(true)
}

// beginQuiescing moves to quiescing and reports the actions needed to
// start the "double GOAWAY" sequence of spec.md §4.4/§4.5: an immediate
// GOAWAY naming the current highest stream, correlated with a PING whose
// PONG later triggers the second, ratcheted GOAWAY. With no open streams
// there is nothing left to drain, so the connection closes immediately
// instead (spec.md §4.4: "If no open streams → close").
func (c *Connection) beginQuiescing(byUs bool) Action {
	c.state = connQuiescing
	c.initiatedByUs = byUs
	if c.openStreams == 0 {
		c.state = connClosing
		return ActionSendFirstGOAWAY | ActionCloseSocket
	}
	c.pingOutstanding = true
	c.expectedPingAck = GOAWAYPingPayload(DefaultPingPayload)
	return ActionSendFirstGOAWAY | ActionSendPing
}

// OnGOAWAYReceived handles the peer initiating shutdown: this side also
// moves to quiescing, but with initiatedByUs false, per spec.md §4.4. The
// eventual close is reported as inactive, not idle — the peer ended the
// connection, this side did not choose to.
func (c *Connection) OnGOAWAYReceived() Action {
	if c.state == connClosing || c.state == connClosed {
		return ActionNone
	}
	if c.idleTask != nil {
		c.idleTask.Cancel()
		c.idleTask = nil
	}
	c.shouldIdle = false
	return c.beginQuiescing(false)
}

// OnPingAck handles the acknowledgement of the PING sent alongside the
// first GOAWAY of a quiescing sequence (the "double GOAWAY" pattern of
// spec.md §4.4/§4.5): the payload must match the complemented value
// beginQuiescing sent, correlating this PONG with that specific GOAWAY
// rather than an ordinary keepalive round-trip. Any stream opened
// concurrently with the first GOAWAY is now known to the peer, so the
// final GOAWAY can name an accurate last-stream-id.
func (c *Connection) OnPingAck(ack [8]byte) Action {
	if c.state != connQuiescing || !c.pingOutstanding || ack != c.expectedPingAck {
		return ActionNone
	}
	c.pingOutstanding = false
	if c.openStreams == 0 {
		c.state = connClosing
		return ActionSendFinalGOAWAY | ActionCloseSocket
	}
	return ActionSendFinalGOAWAY
}

// ShutdownNow forces an immediate, non-graceful close from any
// non-terminal state (spec.md §4.4's shutdown_now event), skipping the
// GOAWAY/ping quiescing sequence entirely.
func (c *Connection) ShutdownNow() Action {
	if c.state == connClosed {
		return ActionNone
	}
	if c.idleTask != nil {
		c.idleTask.Cancel()
		c.idleTask = nil
	}
	c.shouldIdle = false
	c.state = connClosing
	return ActionCloseSocket
}

// OnSocketClosed transitions to the terminal closed state and reports what
// the owner should tell the connectivity manager: idle if this close is
// the culmination of a self-initiated idle-timeout shutdown, inactive
// otherwise (spec.md §4.4).
func (c *Connection) OnSocketClosed() ChannelNotification {
	if c.state == connClosed {
		return NotifyNone
	}
	c.state = connClosed
	if c.shouldIdle {
		return NotifyIdle
	}
	return NotifyInactive
}

// Closed reports whether the connection has reached its terminal state.
func (c *Connection) Closed() bool { return c.state == connClosed }

// HighestStreamID returns the highest stream ID this connection has seen
// opened, for use as a GOAWAY frame's last-stream-id.
func (c *Connection) HighestStreamID() uint32 { return c.highestStream }
