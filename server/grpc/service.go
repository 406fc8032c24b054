package grpc

import (
	"context"

	"github.com/datachainlab/db3/server"
	gogrpc "google.golang.org/grpc"
)

const serviceName = "db3.Storage"

// StorageServer is the server API of the db3.Storage service
type StorageServer interface {
	Submit(context.Context, *server.SubmitRequest) (*server.SubmitResult, error)
	Get(context.Context, *server.GetRequest) (*server.GetResult, error)
	Scan(context.Context, *server.ScanRequest) (*server.ScanResult, error)
	Nonce(context.Context, *server.NonceRequest) (*server.NonceResult, error)
	Status(context.Context, *server.StatusRequest) (*server.StatusResult, error)
}

func RegisterStorageServer(s *gogrpc.Server, srv StorageServer) {
	s.RegisterService(&storageServiceDesc, srv)
}

var storageServiceDesc = gogrpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*StorageServer)(nil),
	Methods: []gogrpc.MethodDesc{
		{
			MethodName: "Submit",
			Handler: unaryHandler("Submit", func() interface{} { return new(server.SubmitRequest) },
				func(srv StorageServer, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.Submit(ctx, req.(*server.SubmitRequest))
				}),
		},
		{
			MethodName: "Get",
			Handler: unaryHandler("Get", func() interface{} { return new(server.GetRequest) },
				func(srv StorageServer, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.Get(ctx, req.(*server.GetRequest))
				}),
		},
		{
			MethodName: "Scan",
			Handler: unaryHandler("Scan", func() interface{} { return new(server.ScanRequest) },
				func(srv StorageServer, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.Scan(ctx, req.(*server.ScanRequest))
				}),
		},
		{
			MethodName: "Nonce",
			Handler: unaryHandler("Nonce", func() interface{} { return new(server.NonceRequest) },
				func(srv StorageServer, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.Nonce(ctx, req.(*server.NonceRequest))
				}),
		},
		{
			MethodName: "Status",
			Handler: unaryHandler("Status", func() interface{} { return new(server.StatusRequest) },
				func(srv StorageServer, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.Status(ctx, req.(*server.StatusRequest))
				}),
		},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "db3/storage",
}

func fullMethod(method string) string {
	return "/" + serviceName + "/" + method
}

func unaryHandler(
	method string,
	newReq func() interface{},
	call func(StorageServer, context.Context, interface{}) (interface{}, error),
) func(interface{}, context.Context, func(interface{}) error, gogrpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor gogrpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StorageServer), ctx, in)
		}
		info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(StorageServer), ctx, req)
		}
		return interceptor(ctx, in, info, handler)
	}
}
