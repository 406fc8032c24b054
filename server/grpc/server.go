package grpc

import (
	"context"
	"path"

	"github.com/datachainlab/db3/server"
	"github.com/datachainlab/db3/telemetry"
	"github.com/tendermint/tendermint/libs/log"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

type storageServer struct {
	svc *server.Service
}

var _ StorageServer = storageServer{}

// NewServer returns a gRPC server exposing svc as db3.Storage
func NewServer(svc *server.Service, metrics *telemetry.Metrics, logger log.Logger, opts ...gogrpc.ServerOption) *gogrpc.Server {
	logger = logger.With("module", "grpc")
	opts = append(opts, gogrpc.UnaryInterceptor(interceptor(metrics, logger)))
	s := gogrpc.NewServer(opts...)
	RegisterStorageServer(s, storageServer{svc: svc})
	return s
}

// interceptor turns service errors into status errors and counts requests
func interceptor(metrics *telemetry.Metrics, logger log.Logger) gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (interface{}, error) {
		method := path.Base(info.FullMethod)
		res, err := handler(ctx, req)
		if err != nil {
			code := server.GRPCCode(err)
			metrics.RPCRequest("grpc", method, telemetry.ResultError)
			logger.Debug("request failed", "method", method, "code", code, "err", err)
			return nil, status.Error(code, err.Error())
		}
		metrics.RPCRequest("grpc", method, telemetry.ResultAccept)
		return res, nil
	}
}

func (s storageServer) Submit(ctx context.Context, req *server.SubmitRequest) (*server.SubmitResult, error) {
	res, err := s.svc.Submit(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s storageServer) Get(ctx context.Context, req *server.GetRequest) (*server.GetResult, error) {
	res, err := s.svc.Get(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s storageServer) Scan(ctx context.Context, req *server.ScanRequest) (*server.ScanResult, error) {
	res, err := s.svc.Scan(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s storageServer) Nonce(ctx context.Context, req *server.NonceRequest) (*server.NonceResult, error) {
	res, err := s.svc.Nonce(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s storageServer) Status(ctx context.Context, req *server.StatusRequest) (*server.StatusResult, error) {
	res, err := s.svc.Status(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
