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

package transport

import (
	"testing"
	"time"

	"golang.org/x/net/http2"

	"github.com/chalvern/grpcore/keepalive"
)

func TestClientKeepaliveEngineSendsPingAfterIdleTime(t *testing.T) {
	sched := &fakeScheduler{}
	var pings, timeouts int
	e := NewClientKeepaliveEngine(
		keepalive.ClientParameters{Time: time.Minute, Timeout: 5 * time.Second, PermitWithoutStream: true},
		sched,
		func() { pings++ },
		func() { timeouts++ },
	)
	e.Start()
	if len(sched.scheduled) != 1 {
		t.Fatalf("Start() scheduled %d tasks, want 1", len(sched.scheduled))
	}
	sched.fire() // fires the ping timer
	if pings != 1 {
		t.Fatalf("pings = %d, want 1", pings)
	}
	// firePing also schedules the ack-timeout task.
	sched.fire()
	if timeouts != 1 {
		t.Fatalf("timeouts = %d, want 1 (no ack arrived)", timeouts)
	}
}

func TestClientKeepaliveEnginePingAckCancelsTimeout(t *testing.T) {
	sched := &fakeScheduler{}
	var timeouts int
	e := NewClientKeepaliveEngine(
		keepalive.ClientParameters{Time: time.Minute, Timeout: 5 * time.Second, PermitWithoutStream: true},
		sched,
		func() {},
		func() { timeouts++ },
	)
	e.Start()
	sched.fire() // send ping, schedule timeout
	e.OnPingAck()
	if timeouts != 0 {
		t.Fatal("timeout fired despite an ack arriving before it")
	}
}

func TestClientKeepaliveSkipsWithoutStreamsByDefault(t *testing.T) {
	sched := &fakeScheduler{}
	e := NewClientKeepaliveEngine(
		keepalive.ClientParameters{Time: time.Minute, Timeout: 5 * time.Second, PermitWithoutStream: false},
		sched, func() {}, func() {},
	)
	e.Start()
	if len(sched.scheduled) != 0 {
		t.Fatal("keepalive started pinging with no active streams despite PermitWithoutStream=false")
	}
	e.OnStreamOpened()
	if len(sched.scheduled) != 1 {
		t.Fatal("opening a stream should start the keepalive cycle")
	}
}

func TestServerKeepalivePingStrikesTriggerEnhanceYourCalm(t *testing.T) {
	e := NewServerKeepaliveEngine(keepalive.ServerParameters{}, keepalive.EnforcementPolicy{MinTime: time.Minute, PermitWithoutStream: true})
	now := time.Unix(0, 0)

	// First ping establishes the baseline; subsequent pings inside MinTime
	// are strikes.
	if a := e.OnPingReceived(now); a != ServerActionNone {
		t.Fatalf("first ping action = %v, want none", a)
	}
	var last ServerAction
	for i := 0; i < 3; i++ {
		now = now.Add(time.Second)
		last = e.OnPingReceived(now)
	}
	if last != ServerActionEnhanceYourCalmClose {
		t.Fatalf("after repeated too-frequent pings, action = %v, want ServerActionEnhanceYourCalmClose", last)
	}
	if code := last.GoAwayCode(); code != http2.ErrCodeEnhanceYourCalm {
		t.Fatalf("GoAwayCode() = %v, want ErrCodeEnhanceYourCalm", code)
	}
}

func TestServerKeepaliveDataResetsStrikes(t *testing.T) {
	e := NewServerKeepaliveEngine(keepalive.ServerParameters{}, keepalive.EnforcementPolicy{MinTime: time.Minute, PermitWithoutStream: true})
	now := time.Unix(0, 0)
	e.OnPingReceived(now)
	now = now.Add(time.Second)
	e.OnPingReceived(now) // strike 1
	e.OnDataReceived(now)
	now = now.Add(time.Second)
	if a := e.OnPingReceived(now); a == ServerActionEnhanceYourCalmClose {
		t.Fatal("strike count should have reset after real data was received")
	}
}

func TestCheckMaxAgeSendsGOAWAYThenEnhanceYourCalmAfterGrace(t *testing.T) {
	e := NewServerKeepaliveEngine(keepalive.ServerParameters{MaxConnectionAge: time.Hour, MaxConnectionAgeGrace: time.Minute}, keepalive.EnforcementPolicy{})
	start := time.Unix(0, 0)

	if a := e.CheckMaxAge(start, start.Add(30*time.Minute), false); a != ServerActionNone {
		t.Fatalf("before MaxConnectionAge, action = %v, want none", a)
	}
	if a := e.CheckMaxAge(start, start.Add(time.Hour), false); a != ServerActionGOAWAY {
		t.Fatalf("at MaxConnectionAge, action = %v, want ServerActionGOAWAY", a)
	}
	if a := e.CheckMaxAge(start, start.Add(time.Hour+2*time.Minute), true); a != ServerActionEnhanceYourCalmClose {
		t.Fatalf("past MaxConnectionAge+Grace with GOAWAY already sent, action = %v, want forced close", a)
	}
}

func TestGOAWAYPingPayloadIsComplementAndInvolutive(t *testing.T) {
	complement := GOAWAYPingPayload(DefaultPingPayload)
	if complement == DefaultPingPayload {
		t.Fatal("GOAWAYPingPayload returned the same payload, want its bitwise complement")
	}
	for i, b := range DefaultPingPayload {
		if complement[i] != ^b {
			t.Fatalf("complement[%d] = %#x, want %#x", i, complement[i], ^b)
		}
	}
	if back := GOAWAYPingPayload(complement); back != DefaultPingPayload {
		t.Fatalf("complementing twice = %v, want the original payload %v", back, DefaultPingPayload)
	}
}
