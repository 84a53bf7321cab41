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

package stats

import (
	"context"

	"github.com/chalvern/grpcore/status"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// otelHandler is the default Handler, reporting RPC counts and payload sizes
// through OpenTelemetry metric instruments.
type otelHandler struct {
	started   metric.Int64Counter
	completed metric.Int64Counter
	sentBytes metric.Int64Counter
	recvBytes metric.Int64Counter
}

type tagKey struct{}

type tag struct {
	method   string
	failFast bool
}

// NewOTelHandler builds a Handler that records RPC metrics against meter.
// Grounded on codesjoy-yggdrasil's OpenTelemetry metrics wiring
// (go.opentelemetry.io/otel/metric in its dependency set).
func NewOTelHandler(meter metric.Meter) (Handler, error) {
	started, err := meter.Int64Counter("grpc.rpc.started",
		metric.WithDescription("Number of RPC attempts started"))
	if err != nil {
		return nil, err
	}
	completed, err := meter.Int64Counter("grpc.rpc.completed",
		metric.WithDescription("Number of RPC attempts completed, by status code"))
	if err != nil {
		return nil, err
	}
	sentBytes, err := meter.Int64Counter("grpc.rpc.sent_bytes",
		metric.WithDescription("Bytes sent across all messages of an RPC"))
	if err != nil {
		return nil, err
	}
	recvBytes, err := meter.Int64Counter("grpc.rpc.recv_bytes",
		metric.WithDescription("Bytes received across all messages of an RPC"))
	if err != nil {
		return nil, err
	}
	return &otelHandler{started: started, completed: completed, sentBytes: sentBytes, recvBytes: recvBytes}, nil
}

func (h *otelHandler) TagRPC(ctx context.Context, info *RPCTagInfo) context.Context {
	return context.WithValue(ctx, tagKey{}, &tag{method: info.FullMethodName, failFast: info.FailFast})
}

func (h *otelHandler) HandleRPC(ctx context.Context, s RPCStats) {
	t, _ := ctx.Value(tagKey{}).(*tag)
	method := "unknown"
	if t != nil {
		method = t.method
	}
	attrs := attribute.NewSet(attribute.String("grpc.method", method))

	switch v := s.(type) {
	case Begin:
		h.started.Add(ctx, 1, metric.WithAttributeSet(attrs))
	case OutPayload:
		h.sentBytes.Add(ctx, int64(v.WireLength), metric.WithAttributeSet(attrs))
	case InPayload:
		h.recvBytes.Add(ctx, int64(v.WireLength), metric.WithAttributeSet(attrs))
	case End:
		code := status.Code(v.Error)
		h.completed.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(
			attribute.String("grpc.method", method),
			attribute.String("grpc.code", code.String()),
		)))
	}
}
