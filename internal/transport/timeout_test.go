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
)

func TestDecodeWireEncodeWireRoundTrip(t *testing.T) {
	cases := []string{"1n", "100u", "99999999m", "1S", "30M", "2H"}
	for _, wire := range cases {
		tm, err := DecodeWire(wire)
		if err != nil {
			t.Fatalf("DecodeWire(%q) error: %v", wire, err)
		}
		got, err := tm.EncodeWire()
		if err != nil {
			t.Fatalf("EncodeWire() after DecodeWire(%q) error: %v", wire, err)
		}
		if got != wire {
			t.Fatalf("round trip %q -> %q, want %q", wire, got, wire)
		}
	}
}

func TestDecodeWireRejectsMalformed(t *testing.T) {
	cases := []string{"", "n", "123456789n", "5x", "-1S"}
	for _, wire := range cases {
		if _, err := DecodeWire(wire); err == nil {
			t.Fatalf("DecodeWire(%q) succeeded, want error", wire)
		}
	}
}

func TestRoundPromotesAcrossUnitsWithCeiling(t *testing.T) {
	tm := Round(1000, Nanosecond)
	if tm.Unit != Nanosecond || tm.Amount != 1000 {
		t.Fatalf("Round(1000, ns) = %+v, want 1000ns (already fits in 8 digits)", tm)
	}

	// 1000*1000*1000 + 1 ns needs 10 digits, so it is promoted once, to
	// microseconds; 1000000.001us must round up rather than truncate.
	tm = Round(1000*1000*1000+1, Nanosecond)
	if tm.Unit != Microsecond {
		t.Fatalf("Round(1s+1ns, ns) = %+v, want promoted to microseconds", tm)
	}
	if tm.Amount != 1000001 {
		t.Fatalf("Round(1s+1ns, ns) amount = %d, want 1000001 (rounded up)", tm.Amount)
	}
}

func TestRoundSaturatesAtMaxWireDigitsHours(t *testing.T) {
	tm := Round(^uint64(0), Minute)
	if tm.Unit != Hour {
		t.Fatalf("Round(max, m).Unit = %v, want Hour", tm.Unit)
	}
	if tm.Amount != maxWireDigits {
		t.Fatalf("Round(max, m).Amount = %d, want saturated at %d", tm.Amount, maxWireDigits)
	}
}

func TestInfiniteRefusesWireEncoding(t *testing.T) {
	if !Infinite.IsInfinite() {
		t.Fatal("Infinite.IsInfinite() = false")
	}
	if _, err := Infinite.EncodeWire(); err != ErrInfiniteTimeoutOnWire {
		t.Fatalf("Infinite.EncodeWire() err = %v, want ErrInfiniteTimeoutOnWire", err)
	}
	if got := Infinite.String(); got != "infinite" {
		t.Fatalf("Infinite.String() = %q, want %q", got, "infinite")
	}
}

func TestFromDurationRoundTripsThroughWire(t *testing.T) {
	d := 2500 * time.Millisecond
	tm := FromDuration(d)
	wire, err := tm.EncodeWire()
	if err != nil {
		t.Fatalf("EncodeWire() error: %v", err)
	}
	back, err := DecodeWire(wire)
	if err != nil {
		t.Fatalf("DecodeWire(%q) error: %v", wire, err)
	}
	if back.Duration() < d {
		t.Fatalf("round-tripped duration %v is shorter than original %v (rounding must never shrink a deadline)", back.Duration(), d)
	}
}
