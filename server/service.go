package server

import (
	"context"
	"fmt"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/datachainlab/db3/app"
	mutationtypes "github.com/datachainlab/db3/x/mutation/types"
	"github.com/tendermint/tendermint/libs/log"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

const DefaultScanLimit = 100

// Broadcaster hands a transaction to the consensus engine for ordering.
// *github.com/tendermint/tendermint/rpc/client.HTTP satisfies it.
type Broadcaster interface {
	BroadcastTxSync(tx tmtypes.Tx) (*ctypes.ResultBroadcastTx, error)
}

// Service implements the client operations shared by every RPC transport.
// It holds no state of its own.
type Service struct {
	bridge      *app.Bridge
	broadcaster Broadcaster
	maxScan     uint32
	logger      log.Logger
}

func NewService(bridge *app.Bridge, broadcaster Broadcaster, maxScan uint32, logger log.Logger) *Service {
	if maxScan == 0 {
		maxScan = DefaultScanLimit
	}
	return &Service{
		bridge:      bridge,
		broadcaster: broadcaster,
		maxScan:     maxScan,
		logger:      logger.With("module", ModuleName),
	}
}

// Submit pre-validates req.Tx against committed state, then broadcasts it
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if len(req.Tx) == 0 {
		return SubmitResult{}, sdkerrors.Wrap(ErrInvalidRequest, "empty transaction")
	}
	res := SubmitResult{Hash: mutationtypes.TxHash(req.Tx)}
	if _, err := s.bridge.CheckTx(ctx, req.Tx); err != nil {
		if app.ErrHalted.Is(err) {
			return res, err
		}
		res.Codespace, res.Code, res.Log = sdkerrors.ABCIInfo(err, false)
		return res, nil
	}
	out, err := s.broadcaster.BroadcastTxSync(tmtypes.Tx(req.Tx))
	if err != nil {
		s.logger.Error("failed to broadcast tx", "hash", fmt.Sprintf("%X", res.Hash), "err", err)
		return res, sdkerrors.Wrap(ErrBroadcast, err.Error())
	}
	res.Code, res.Log = out.Code, out.Log
	res.Accepted = out.Code == 0
	if !res.Accepted {
		res.Codespace = s.codespaceOf(ctx, req.Tx, out.Code)
	}
	return res, nil
}

// codespaceOf recovers the codespace of an engine-side rejection, which the
// broadcast result does not carry, by checking tx again locally. It is empty
// when the local answer no longer has the same code.
func (s *Service) codespaceOf(ctx context.Context, tx []byte, code uint32) string {
	_, err := s.bridge.CheckTx(ctx, tx)
	if err == nil {
		return ""
	}
	codespace, localCode, _ := sdkerrors.ABCIInfo(err, false)
	if localCode != code {
		return ""
	}
	return codespace
}

func (s *Service) Get(ctx context.Context, req GetRequest) (GetResult, error) {
	if len(req.Key) == 0 {
		return GetResult{}, sdkerrors.Wrap(ErrInvalidRequest, "empty key")
	}
	if req.Height < 0 {
		return GetResult{}, sdkerrors.Wrapf(ErrInvalidRequest, "negative height %d", req.Height)
	}
	return s.bridge.Query(req.Key, req.Prove, req.Height)
}

func (s *Service) Scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	if req.Height < 0 {
		return ScanResult{}, sdkerrors.Wrapf(ErrInvalidRequest, "negative height %d", req.Height)
	}
	limit := req.Limit
	if limit == 0 || limit > s.maxScan {
		limit = s.maxScan
	}
	return s.bridge.Scan(req.Start, req.End, int(limit), req.Height)
}

// Nonce returns the last committed nonce of a sender; clients sign with Nonce+1
func (s *Service) Nonce(ctx context.Context, req NonceRequest) (NonceResult, error) {
	if len(req.Sender) == 0 {
		return NonceResult{}, sdkerrors.Wrap(ErrInvalidRequest, "empty sender")
	}
	nonce, err := s.bridge.Nonce(req.Sender)
	if err != nil {
		return NonceResult{}, err
	}
	return NonceResult{Sender: req.Sender, Nonce: nonce}, nil
}

func (s *Service) Status(ctx context.Context, req StatusRequest) (StatusResult, error) {
	st := s.bridge.State()
	if st.Halted {
		return StatusResult{}, app.ErrHalted
	}
	return StatusResult{Name: app.Name, Version: app.Version, State: st}, nil
}
