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

// Package grpclog defines the pluggable logger used for protocol-level
// diagnostics: peer misbehavior, keepalive strikes, reconnect attempts. Per
// spec.md §7, the core never logs on a per-RPC failure — those are status
// values — this logger is only for the "library error delegate" class of
// unexpected internal condition.
package grpclog

import (
	"go.uber.org/zap"
)

// Logger is the minimal logging surface the protocol engine depends on.
type Logger interface {
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type zapLogger struct {
	l *zap.SugaredLogger
}

func (z *zapLogger) Infof(format string, args ...interface{})    { z.l.Infof(format, args...) }
func (z *zapLogger) Warningf(format string, args ...interface{}) { z.l.Warnf(format, args...) }
func (z *zapLogger) Errorf(format string, args ...interface{})   { z.l.Errorf(format, args...) }

var logger Logger = newDefault()

func newDefault() Logger {
	z, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails on a broken encoder config; fall back
		// to a no-op rather than panic from an init-time logging path.
		return &zapLogger{l: zap.NewNop().Sugar()}
	}
	return &zapLogger{l: z.Sugar()}
}

// SetLogger replaces the package-level logger used by the client connection
// manager and service-config parsing. It is not safe to call concurrently with
// logging calls; like the teacher's RegisterCompressor, call it at startup.
func SetLogger(l Logger) { logger = l }

func Infof(format string, args ...interface{})    { logger.Infof(format, args...) }
func Warningf(format string, args ...interface{}) { logger.Warningf(format, args...) }
func Errorf(format string, args ...interface{})   { logger.Errorf(format, args...) }
