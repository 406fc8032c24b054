package grpc

import (
	"context"

	"github.com/datachainlab/db3/server"
	gogrpc "google.golang.org/grpc"
)

// Client calls the db3.Storage service over an existing connection
type Client struct {
	cc *gogrpc.ClientConn
}

func NewClient(cc *gogrpc.ClientConn) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}, opts ...gogrpc.CallOption) error {
	opts = append(opts, gogrpc.CallContentSubtype(CodecName))
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}

func (c *Client) Submit(ctx context.Context, req server.SubmitRequest, opts ...gogrpc.CallOption) (server.SubmitResult, error) {
	var res server.SubmitResult
	err := c.invoke(ctx, "Submit", &req, &res, opts...)
	return res, err
}

func (c *Client) Get(ctx context.Context, req server.GetRequest, opts ...gogrpc.CallOption) (server.GetResult, error) {
	var res server.GetResult
	err := c.invoke(ctx, "Get", &req, &res, opts...)
	return res, err
}

func (c *Client) Scan(ctx context.Context, req server.ScanRequest, opts ...gogrpc.CallOption) (server.ScanResult, error) {
	var res server.ScanResult
	err := c.invoke(ctx, "Scan", &req, &res, opts...)
	return res, err
}

func (c *Client) Nonce(ctx context.Context, req server.NonceRequest, opts ...gogrpc.CallOption) (server.NonceResult, error) {
	var res server.NonceResult
	err := c.invoke(ctx, "Nonce", &req, &res, opts...)
	return res, err
}

func (c *Client) Status(ctx context.Context, opts ...gogrpc.CallOption) (server.StatusResult, error) {
	var res server.StatusResult
	err := c.invoke(ctx, "Status", &server.StatusRequest{}, &res, opts...)
	return res, err
}
