package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/cosmos/cosmos-sdk/types/rest"
	"github.com/datachainlab/db3/app"
	"github.com/datachainlab/db3/server"
	"github.com/datachainlab/db3/telemetry"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	amino "github.com/tendermint/go-amino"
	"github.com/tendermint/tendermint/libs/log"
	types "github.com/tendermint/tendermint/rpc/lib/types"
	"google.golang.org/grpc/codes"
)

const (
	MethodSubmitMutation = "submit_mutation"
	MethodGet            = "get"
	MethodScan           = "scan"
	MethodNonce          = "nonce"
	MethodStatus         = "status"

	maxBodyBytes = 4 << 20
)

// JSON-RPC 2.0 error codes
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	codeServerError    = -32000
)

type method func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Gateway translates JSON-RPC calls on a single POST endpoint into Service calls
type Gateway struct {
	svc     *server.Service
	cdc     *amino.Codec
	metrics *telemetry.Metrics
	logger  log.Logger
	methods map[string]method
}

func NewGateway(svc *server.Service, metrics *telemetry.Metrics, logger log.Logger) *Gateway {
	g := &Gateway{
		svc:     svc,
		cdc:     app.MakeCodec(),
		metrics: metrics,
		logger:  logger.With("module", "jsonrpc"),
	}
	g.methods = map[string]method{
		MethodSubmitMutation: g.submitMutation,
		MethodGet:            g.get,
		MethodScan:           g.scan,
		MethodNonce:          g.nonce,
		MethodStatus:         g.status,
	}
	return g
}

// Handler returns the HTTP handler of the gateway, open to any origin.
// It also serves the node metrics on GET /metrics.
func (g *Gateway) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", g.serveHTTP).Methods(http.MethodPost)
	r.Handle("/metrics", g.metrics.Handler()).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest.WriteErrorResponse(w, http.StatusMethodNotAllowed, fmt.Sprintf("%s not allowed", r.Method))
	})
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.MaxAge(3600),
	)
	return cors(r)
}

func (g *Gateway) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		g.write(w, http.StatusBadRequest, types.NewRPCErrorResponse(nil, codeInvalidRequest, "Invalid Request", err.Error()))
		return
	}
	var req types.RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		g.write(w, http.StatusOK, types.NewRPCErrorResponse(nil, codeParseError, "Parse error. Invalid JSON", err.Error()))
		return
	}
	m, ok := g.methods[req.Method]
	if !ok {
		g.metrics.RPCRequest("jsonrpc", "unknown", telemetry.ResultReject)
		g.write(w, http.StatusOK, types.NewRPCErrorResponse(req.ID, codeMethodNotFound, "Method not found", req.Method))
		return
	}

	res, err := m(r.Context(), req.Params)
	if err != nil {
		g.metrics.RPCRequest("jsonrpc", req.Method, telemetry.ResultError)
		g.logger.Debug("request failed", "method", req.Method, "err", err)
		g.write(w, server.HTTPStatus(err), g.errorResponse(req, err))
		return
	}
	g.metrics.RPCRequest("jsonrpc", req.Method, telemetry.ResultAccept)
	g.write(w, http.StatusOK, types.NewRPCSuccessResponse(g.cdc, req.ID, res))
}

func (g *Gateway) errorResponse(req types.RPCRequest, err error) types.RPCResponse {
	switch server.GRPCCode(err) {
	case codes.InvalidArgument:
		return types.NewRPCErrorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	case codes.Unavailable:
		return types.NewRPCErrorResponse(req.ID, codeServerError, "Service unavailable", err.Error())
	default:
		return types.NewRPCErrorResponse(req.ID, codeInternalError, "Internal error", err.Error())
	}
}

func (g *Gateway) write(w http.ResponseWriter, code int, res types.RPCResponse) {
	bz, err := json.Marshal(res)
	if err != nil {
		g.logger.Error("failed to encode response", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(bz); err != nil {
		g.logger.Debug("failed to write response", "err", err)
	}
}

// params decodes the amino JSON params of a call; absent params leave v unchanged
func (g *Gateway) params(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := g.cdc.UnmarshalJSON(raw, v); err != nil {
		return sdkerrors.Wrap(server.ErrInvalidRequest, err.Error())
	}
	return nil
}

func (g *Gateway) submitMutation(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req server.SubmitRequest
	if err := g.params(raw, &req); err != nil {
		return nil, err
	}
	return g.svc.Submit(ctx, req)
}

func (g *Gateway) get(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req server.GetRequest
	if err := g.params(raw, &req); err != nil {
		return nil, err
	}
	return g.svc.Get(ctx, req)
}

func (g *Gateway) scan(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req server.ScanRequest
	if err := g.params(raw, &req); err != nil {
		return nil, err
	}
	return g.svc.Scan(ctx, req)
}

func (g *Gateway) nonce(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var req server.NonceRequest
	if err := g.params(raw, &req); err != nil {
		return nil, err
	}
	return g.svc.Nonce(ctx, req)
}

func (g *Gateway) status(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	return g.svc.Status(ctx, server.StatusRequest{})
}
