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

// Package backoff implements the exponential-backoff-with-jitter reconnect
// policy described in spec.md §4.6.
package backoff

import (
	"math/rand"
	"time"
)

// Config holds the parameters for the backoff algorithm, following real
// grpc-go's internal/backoff.Config shape.
type Config struct {
	// BaseDelay is the amount of time to wait before retrying the first
	// failed attempt. Default: 1s.
	BaseDelay time.Duration
	// Multiplier is the factor by which the delay grows after each failed
	// attempt. Default: 1.6.
	Multiplier float64
	// Jitter is the factor used to randomize the delay, in [0, 1]. Default: 0.2.
	Jitter float64
	// MaxDelay is the upper bound on the backoff delay. Default: 120s.
	MaxDelay time.Duration
}

// DefaultConfig is the policy used when no Config is supplied.
var DefaultConfig = Config{
	BaseDelay:  time.Second,
	Multiplier: 1.6,
	Jitter:     0.2,
	MaxDelay:   120 * time.Second,
}

// Strategy produces successive backoff delays for a Config, retaining the
// running delay between calls as spec.md §4.6 requires ("delay ← delay ×
// uniform(1-j, 1+j)", not recomputed from scratch each time).
type Strategy struct {
	cfg   Config
	delay time.Duration
	rand  *rand.Rand
}

// NewStrategy returns a Strategy seeded to start from cfg.BaseDelay on its
// first Backoff call.
func NewStrategy(cfg Config) *Strategy {
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = DefaultConfig.Multiplier
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultConfig.MaxDelay
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig.BaseDelay
	}
	return &Strategy{cfg: cfg, rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Reset returns the strategy to its initial state, for use after a
// successful connection (spec.md §4.6: backoff only governs consecutive
// failures).
func (s *Strategy) Reset() {
	s.delay = 0
}

// Backoff returns the delay to wait before the next connection attempt,
// given retries prior consecutive failures (0-indexed: the first failed
// attempt calls Backoff(0)).
func (s *Strategy) Backoff(retries int) time.Duration {
	if retries == 0 || s.delay == 0 {
		s.delay = s.cfg.BaseDelay
		return s.jitter(s.delay)
	}
	backoff, max := float64(s.delay), float64(s.cfg.MaxDelay)
	backoff *= s.cfg.Multiplier
	if backoff > max {
		backoff = max
	}
	s.delay = time.Duration(backoff)
	return s.jitter(s.delay)
}

func (s *Strategy) jitter(d time.Duration) time.Duration {
	if s.cfg.Jitter <= 0 {
		return d
	}
	delta := s.cfg.Jitter * float64(d)
	min := float64(d) - delta
	max := float64(d) + delta
	jittered := min + s.rand.Float64()*(max-min)
	if jittered < 0 {
		jittered = 0
	}
	return time.Duration(jittered)
}
