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

package grpcore

import (
	"context"
	"sync"
	"time"

	"github.com/chalvern/grpcore/connectivity"
	"github.com/chalvern/grpcore/grpclog"
	"github.com/chalvern/grpcore/internal/backoff"
)

// Connector is supplied by the caller and performs the actual socket
// connect/TLS handshake/HTTP2 preface exchange for one address — all of
// which are external collaborators to this module (spec.md §1). It blocks
// until the transport is usable or ctx is done/the attempt fails.
type Connector func(ctx context.Context, addr string) error

// ClientConnManager drives the client-facing connectivity state machine of
// spec.md §4.6: idle → connecting → ready → transient-failure, looping back
// to connecting after backoff, with shutdown reachable (and terminal) from
// any state. It owns no socket itself; Connector does the actual dialing.
type ClientConnManager struct {
	mu     sync.Mutex
	target Target
	dial   Connector

	state      connectivity.State
	notify     chan struct{} // closed and replaced on every state change
	retries    int
	maxRetries int // 0 means unlimited (spec.md §4.6)
	strategy   *backoff.Strategy

	cancelConnect context.CancelFunc // cancels the in-flight dial attempt, if any
	shutdownCh    chan struct{}      // closed once, on Shutdown; interrupts a pending backoff sleep
	shutdown      bool
}

// NewClientConnManager constructs a manager in the Idle state for target,
// using dial to perform individual connection attempts and cfg to pace
// reconnection backoff (zero BaseDelay, Multiplier and MaxDelay take their
// backoff.DefaultConfig values; Jitter is used as given).
// maxRetries bounds the number of consecutive failed dial attempts before the
// manager gives up and transitions to Shutdown (spec.md §4.6); 0 means retry
// without limit.
func NewClientConnManager(target string, dial Connector, cfg backoff.Config, maxRetries int) *ClientConnManager {
	return &ClientConnManager{
		target:     parseTarget(target),
		dial:       dial,
		state:      connectivity.Idle,
		notify:     make(chan struct{}),
		strategy:   backoff.NewStrategy(cfg),
		maxRetries: maxRetries,
		shutdownCh: make(chan struct{}),
	}
}

// GetState returns the current connectivity state.
func (cm *ClientConnManager) GetState() connectivity.State {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.state
}

// WaitForStateChange blocks until the state differs from sourceState or ctx
// is done, returning false in the latter case. This mirrors the
// notify-and-replace-channel pattern grpc-go's connectivity state tracker
// uses so callers never race a state transition that happens between their
// check and their wait.
func (cm *ClientConnManager) WaitForStateChange(ctx context.Context, sourceState connectivity.State) bool {
	cm.mu.Lock()
	if cm.state != sourceState {
		cm.mu.Unlock()
		return true
	}
	ch := cm.notify
	cm.mu.Unlock()
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

func (cm *ClientConnManager) setState(s connectivity.State) {
	if !cm.state.CanTransitionTo(s) {
		return
	}
	cm.state = s
	close(cm.notify)
	cm.notify = make(chan struct{})
}

// Connect requests that the manager leave Idle and start connecting, a
// no-op if it's already doing so. It runs the connect loop in its own
// goroutine and returns immediately.
func (cm *ClientConnManager) Connect() {
	cm.mu.Lock()
	if cm.state != connectivity.Idle {
		cm.mu.Unlock()
		return
	}
	cm.setState(connectivity.Connecting)
	cm.mu.Unlock()
	go cm.connectLoop()
}

func (cm *ClientConnManager) connectLoop() {
	for {
		cm.mu.Lock()
		if cm.shutdown {
			cm.mu.Unlock()
			return
		}
		retries := cm.retries
		addr := cm.target.Endpoint
		ctx, cancel := context.WithCancel(context.Background())
		cm.cancelConnect = cancel
		cm.mu.Unlock()

		err := cm.dial(ctx, addr)
		cancel()

		cm.mu.Lock()
		cm.cancelConnect = nil
		if cm.shutdown {
			cm.mu.Unlock()
			return
		}
		if err == nil {
			cm.retries = 0
			cm.strategy.Reset()
			cm.setState(connectivity.Ready)
			cm.mu.Unlock()
			return
		}

		cm.retries = retries + 1
		if cm.maxRetries > 0 && cm.retries >= cm.maxRetries {
			grpclog.Warningf("grpcore: connection attempt to %q failed: %v; retries budget (%d) exhausted, shutting down", addr, err, cm.maxRetries)
			cm.shutdown = true
			cm.setState(connectivity.Shutdown)
			cm.mu.Unlock()
			return
		}

		grpclog.Warningf("grpcore: connection attempt to %q failed: %v", addr, err)
		cm.setState(connectivity.TransientFailure)
		delay := cm.strategy.Backoff(cm.retries - 1)
		cm.mu.Unlock()

		select {
		case <-time.After(delay):
		case <-cm.shutdownCh:
			return
		}

		cm.mu.Lock()
		if cm.shutdown {
			cm.mu.Unlock()
			return
		}
		cm.setState(connectivity.Connecting)
		cm.mu.Unlock()
	}
}

// OnTransportLost is called by the owner of the established transport (the
// connection idle/keepalive machinery in package transport) when a ready
// transport dies, returning the manager to Connecting and resuming the
// backoff loop.
func (cm *ClientConnManager) OnTransportLost() {
	cm.mu.Lock()
	if cm.shutdown || cm.state != connectivity.Ready {
		cm.mu.Unlock()
		return
	}
	cm.setState(connectivity.Connecting)
	cm.mu.Unlock()
	go cm.connectLoop()
}

// Shutdown moves the manager to the terminal Shutdown state, cancelling any
// in-flight dial attempt and waking a goroutine sleeping in backoff between
// attempts (spec.md §4.6's "cancel pending reconnect"). Idempotent.
func (cm *ClientConnManager) Shutdown() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.shutdown {
		return
	}
	cm.shutdown = true
	if cm.cancelConnect != nil {
		cm.cancelConnect()
	}
	close(cm.shutdownCh)
	cm.setState(connectivity.Shutdown)
}
