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

package connectivity

import "testing"

func TestStateString(t *testing.T) {
	if Ready.String() != "READY" {
		t.Errorf("Ready.String() = %q, want READY", Ready.String())
	}
	if State(99).String() != "INVALID_STATE" {
		t.Errorf("State(99).String() = %q, want INVALID_STATE", State(99).String())
	}
}

func TestShutdownIsTerminal(t *testing.T) {
	if Shutdown.CanTransitionTo(Idle) {
		t.Error("Shutdown can transition to Idle, want false")
	}
	if Shutdown.CanTransitionTo(Shutdown) {
		t.Error("Shutdown can transition to itself, want false (terminal)")
	}
}

func TestNonShutdownStatesCanReachShutdown(t *testing.T) {
	for s := Idle; s <= TransientFailure; s++ {
		if !s.CanTransitionTo(Shutdown) {
			t.Errorf("%v cannot transition to Shutdown, want true", s)
		}
	}
}
