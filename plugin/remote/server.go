// Licensed to LinDB under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. LinDB licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package remote

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/taskcore/taskcore"
)

// Server hosts one taskcore.ActionFunc for remote peers to invoke via
// Client.Action. It deliberately does not implement the full
// taskcore.ActionContext a local dispatch would provide:
// instance_num/num_instances are meaningless across the wire (they
// describe the caller's local dispatch, not the callee's), and
// should_cancel observes the RPC's own context instead of a Task's
// cooperative flag.
type Server struct {
	fn            taskcore.ActionFunc
	nodeLocalData any
}

// NewServer wraps fn for remote dispatch.
func NewServer(fn taskcore.ActionFunc, nodeLocalData any) *Server {
	return &Server{fn: fn, nodeLocalData: nodeLocalData}
}

// ServiceDesc builds the grpc.ServiceDesc to pass to
// grpc.Server.RegisterService. Handwritten rather than protoc-generated
// since the action's request/response shape is opaque caller-owned
// bytes, not a fixed protobuf message the core could meaningfully
// define in advance.
func (s *Server) ServiceDesc() grpc.ServiceDesc {
	return grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: MethodInvoke,
				Handler:    s.invoke,
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "taskcore/remote.proto",
	}
}

func (s *Server) invoke(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := &wrapperspb.BytesValue{}
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return s.handle(ctx, req)
	}
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod}
	return interceptor(ctx, req, info, func(ctx context.Context, r any) (any, error) {
		return s.handle(ctx, r.(*wrapperspb.BytesValue))
	})
}

func (s *Server) handle(ctx context.Context, req *wrapperspb.BytesValue) (any, error) {
	result := make([]byte, len(req.Value))
	actionCtx := &remoteContext{ctx: ctx}
	s.fn(req.Value, result, s.nodeLocalData, actionCtx)
	if actionCtx.status != nil {
		return nil, actionCtx.status
	}
	return &wrapperspb.BytesValue{Value: result}, nil
}

// remoteContext implements taskcore.ActionContext for a remotely
// dispatched action instance: always instance 0 of 1, worker index -1
// (no local worker backs it), and ShouldCancel mirrors the RPC
// context's own cancellation.
type remoteContext struct {
	ctx    context.Context
	status taskcore.Status
}

func (r *remoteContext) InstanceNum() int  { return 0 }
func (r *remoteContext) NumInstances() int { return 1 }
func (r *remoteContext) WorkerIndex() int  { return -1 }
func (r *remoteContext) ShouldCancel() bool {
	return r.ctx.Err() != nil
}
func (r *remoteContext) SetStatus(status taskcore.Status) {
	r.status = status
}
