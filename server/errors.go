package server

import (
	"net/http"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/datachainlab/db3/app"
	storetypes "github.com/datachainlab/db3/x/store/types"
	"google.golang.org/grpc/codes"
)

const ModuleName = "rpc"

var (
	ErrInvalidRequest = sdkerrors.Register(ModuleName, 2, "invalid request")
	ErrBroadcast      = sdkerrors.Register(ModuleName, 3, "failed to broadcast transaction")
)

// GRPCCode maps a service error to the gRPC status code returned to clients
func GRPCCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case app.ErrHalted.Is(err), storetypes.ErrClosed.Is(err), ErrBroadcast.Is(err):
		return codes.Unavailable
	case ErrInvalidRequest.Is(err), storetypes.ErrUnknownHeight.Is(err):
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// HTTPStatus maps a service error to the status of a JSON-RPC response
func HTTPStatus(err error) int {
	switch GRPCCode(err) {
	case codes.OK, codes.InvalidArgument:
		return http.StatusOK
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
