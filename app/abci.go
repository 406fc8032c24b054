package app

import (
	"context"
	"fmt"
	"time"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	mutationkeeper "github.com/datachainlab/db3/x/mutation/keeper"
	storetypes "github.com/datachainlab/db3/x/store/types"
	amino "github.com/tendermint/go-amino"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/crypto/merkle"
	"github.com/tendermint/tendermint/libs/log"
)

const (
	QueryPathKey   = "/key"
	QueryPathNonce = "/nonce"
)

// Application adapts a Bridge to the ABCI interface
type Application struct {
	bridge    *Bridge
	cdc       *amino.Codec
	txTimeout time.Duration
	onFatal   func(error)
	logger    log.Logger
}

var _ abci.Application = (*Application)(nil)

// NewApplication returns an ABCI application backed by bridge. Each CheckTx
// and DeliverTx gets txTimeout to finish, zero meaning no limit. onFatal is
// called when the node can no longer follow the chain; nil panics.
func NewApplication(bridge *Bridge, txTimeout time.Duration, onFatal func(error), logger log.Logger) *Application {
	if onFatal == nil {
		onFatal = func(err error) { panic(err) }
	}
	return &Application{
		bridge:    bridge,
		cdc:       MakeCodec(),
		txTimeout: txTimeout,
		onFatal:   onFatal,
		logger:    logger.With("module", "abci"),
	}
}

func (a *Application) Bridge() *Bridge {
	return a.bridge
}

func (a *Application) Info(req abci.RequestInfo) abci.ResponseInfo {
	ci := a.bridge.LastCommit()
	res := abci.ResponseInfo{
		Data:            Name,
		Version:         Version,
		AppVersion:      AppVersion,
		LastBlockHeight: ci.Height,
	}
	// the engine expects an empty hash before the first block
	if ci.Height > 0 {
		res.LastBlockAppHash = ci.Root
	}
	a.logger.Info("handshake", "engine", req.Version, "height", ci.Height, "root", fmt.Sprintf("%X", ci.Root))
	return res
}

func (a *Application) SetOption(req abci.RequestSetOption) abci.ResponseSetOption {
	return abci.ResponseSetOption{}
}

func (a *Application) InitChain(req abci.RequestInitChain) abci.ResponseInitChain {
	gs, err := ParseGenesis(a.cdc, req.AppStateBytes)
	if err == nil {
		err = a.bridge.InitChain(gs)
	}
	if err != nil {
		a.onFatal(sdkerrors.Wrapf(err, "chain %s", req.ChainId))
	}
	return abci.ResponseInitChain{}
}

func (a *Application) CheckTx(req abci.RequestCheckTx) abci.ResponseCheckTx {
	ctx, cancel := a.txContext()
	defer cancel()
	vtx, err := a.bridge.CheckTx(ctx, req.Tx)
	if err != nil {
		codespace, code, msg := sdkerrors.ABCIInfo(err, false)
		return abci.ResponseCheckTx{Codespace: codespace, Code: code, Log: msg}
	}
	return abci.ResponseCheckTx{Code: abci.CodeTypeOK, Data: vtx.Hash, Info: txInfo(vtx)}
}

func (a *Application) BeginBlock(req abci.RequestBeginBlock) abci.ResponseBeginBlock {
	if err := a.bridge.BeginBlock(req.Header.Height, req.Header.Time); err != nil {
		// the following DeliverTx and Commit calls fail as well
		a.logger.Error("BeginBlock failed", "height", req.Header.Height, "err", err)
	}
	return abci.ResponseBeginBlock{}
}

func (a *Application) DeliverTx(req abci.RequestDeliverTx) abci.ResponseDeliverTx {
	ctx, cancel := a.txContext()
	defer cancel()
	vtx, err := a.bridge.DeliverTx(ctx, req.Tx)
	if err != nil {
		codespace, code, msg := sdkerrors.ABCIInfo(err, false)
		return abci.ResponseDeliverTx{Codespace: codespace, Code: code, Log: msg}
	}
	return abci.ResponseDeliverTx{Code: abci.CodeTypeOK, Data: vtx.Hash, Info: txInfo(vtx)}
}

func (a *Application) EndBlock(req abci.RequestEndBlock) abci.ResponseEndBlock {
	if err := a.bridge.EndBlock(req.Height); err != nil {
		a.logger.Error("EndBlock failed", "height", req.Height, "err", err)
	}
	return abci.ResponseEndBlock{}
}

// Commit returns the new root. A failed commit leaves the node unable to agree
// with the chain, so it ends in onFatal and no hash is reported.
func (a *Application) Commit() abci.ResponseCommit {
	root, err := a.bridge.Commit()
	if err != nil {
		a.onFatal(err)
		return abci.ResponseCommit{}
	}
	return abci.ResponseCommit{Data: root}
}

func (a *Application) Query(req abci.RequestQuery) abci.ResponseQuery {
	switch req.Path {
	case "", QueryPathKey:
		res, err := a.bridge.Query(req.Data, req.Prove, req.Height)
		if err != nil {
			return queryError(err)
		}
		return queryResponse(res)
	case QueryPathNonce:
		nonce, err := a.bridge.Nonce(req.Data)
		if err != nil {
			return queryError(err)
		}
		return abci.ResponseQuery{
			Code:   abci.CodeTypeOK,
			Key:    req.Data,
			Value:  storetypes.EncodeNonce(nonce),
			Height: a.bridge.LastCommit().Height,
		}
	default:
		return queryError(sdkerrors.Wrapf(sdkerrors.ErrUnknownRequest, "unknown query path %q", req.Path))
	}
}

func (a *Application) txContext() (context.Context, context.CancelFunc) {
	if a.txTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), a.txTimeout)
}

func queryResponse(res storetypes.QueryResult) abci.ResponseQuery {
	out := abci.ResponseQuery{
		Code:   abci.CodeTypeOK,
		Key:    res.Key,
		Value:  res.Value,
		Height: res.Height,
		Log:    "does not exist",
	}
	if res.Exists {
		out.Log = "exists"
	}
	if res.Proof != nil {
		out.Proof = &merkle.Proof{Ops: []merkle.ProofOp{res.Proof.ProofOp()}}
	}
	return out
}

func queryError(err error) abci.ResponseQuery {
	codespace, code, msg := sdkerrors.ABCIInfo(err, false)
	return abci.ResponseQuery{Codespace: codespace, Code: code, Log: msg}
}

func txInfo(vtx mutationkeeper.ValidatedTx) string {
	return fmt.Sprintf("sender=%s nonce=%d ops=%d", vtx.Sender, vtx.Tx.Mutation.Nonce, len(vtx.Tx.Mutation.Ops))
}
