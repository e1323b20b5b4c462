package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/entity"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "kbase.KBase"

// Full method names.
const (
	MethodSave     = "/" + ServiceName + "/Save"
	MethodDelete   = "/" + ServiceName + "/Delete"
	MethodDump     = "/" + ServiceName + "/Dump"
	MethodGetState = "/" + ServiceName + "/GetState"
)

// GetStateRequest is the (empty) GetState request.
type GetStateRequest struct{}

// KBaseServer is the server API for the kbase.KBase service.
type KBaseServer interface {
	Save(context.Context, *entity.Batch) (*types.StatusResponse, error)
	Delete(context.Context, *entity.Batch) (*types.StatusResponse, error)
	Dump(context.Context, *types.DumpRequest) (*types.StatusResponse, error)
	GetState(context.Context, *GetStateRequest) (*entity.State, error)
}

// RegisterKBaseServer registers srv on s.
func RegisterKBaseServer(s grpc.ServiceRegistrar, srv KBaseServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KBaseServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Save", Handler: saveHandler},
		{MethodName: "Delete", Handler: deleteHandler},
		{MethodName: "Dump", Handler: dumpHandler},
		{MethodName: "GetState", Handler: getStateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kbase.proto",
}

// unary adapts a typed method to a grpc.MethodHandler.
func unary[Req any, Resp any](fullMethod string, call func(KBaseServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(KBaseServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(KBaseServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	saveHandler     = unary(MethodSave, KBaseServer.Save)
	deleteHandler   = unary(MethodDelete, KBaseServer.Delete)
	dumpHandler     = unary(MethodDump, KBaseServer.Dump)
	getStateHandler = unary(MethodGetState, KBaseServer.GetState)
)
