package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/datachainlab/db3/telemetry"
	mutationkeeper "github.com/datachainlab/db3/x/mutation/keeper"
	mutationtypes "github.com/datachainlab/db3/x/mutation/types"
	nodetypes "github.com/datachainlab/db3/x/node/types"
	storekeeper "github.com/datachainlab/db3/x/store/keeper"
	storetypes "github.com/datachainlab/db3/x/store/types"
	"github.com/tendermint/tendermint/libs/log"
)

// Bridge drives the storage layer from consensus callbacks.
//
// BeginBlock, DeliverTx, EndBlock and Commit must not be called concurrently;
// the consensus engine serializes them. CheckTx, Query and Phase may be called
// from any goroutine.
type Bridge struct {
	phase uint32

	store   *storekeeper.StorageService
	applier mutationkeeper.Applier
	state   *nodetypes.StateHolder
	metrics *telemetry.Metrics
	logger  log.Logger

	view    *mutationkeeper.WorkingView
	height  int64
	time    time.Time
	ended   bool
	genesis []storetypes.Op
}

// NewBridge returns a bridge positioned at the store's last committed height
func NewBridge(
	store *storekeeper.StorageService,
	applier mutationkeeper.Applier,
	state *nodetypes.StateHolder,
	metrics *telemetry.Metrics,
	logger log.Logger,
) *Bridge {
	return &Bridge{
		phase:   uint32(PhaseIdle),
		store:   store,
		applier: applier,
		state:   state,
		metrics: metrics,
		logger:  logger.With("module", ModuleName),
	}
}

func (b *Bridge) Phase() Phase {
	return Phase(atomic.LoadUint32(&b.phase))
}

func (b *Bridge) setPhase(p Phase) {
	atomic.StoreUint32(&b.phase, uint32(p))
}

func (b *Bridge) Halted() bool {
	return b.Phase() == PhaseHalted
}

// State returns the published node state
func (b *Bridge) State() nodetypes.State {
	return b.state.Load()
}

func (b *Bridge) Limits() mutationtypes.Limits {
	return b.applier.Limits()
}

// LastCommit returns the last committed height and root
func (b *Bridge) LastCommit() storetypes.CommitInfo {
	return b.store.LastCommit()
}

// InitChain stages the genesis entries into the first block.
// It is only accepted before any block has been committed.
func (b *Bridge) InitChain(gs GenesisState) error {
	if err := b.expect(PhaseIdle); err != nil {
		return err
	}
	if h := b.store.LastCommit().Height; h != 0 {
		return sdkerrors.Wrapf(ErrProtocol, "InitChain at height %d", h)
	}
	if err := gs.Validate(b.applier.Limits()); err != nil {
		return err
	}
	b.genesis = gs.Ops()
	b.logger.Info("staged genesis state", "entries", len(gs.Entries))
	return nil
}

// CheckTx validates bz against committed state for mempool admission
func (b *Bridge) CheckTx(ctx context.Context, bz []byte) (mutationkeeper.ValidatedTx, error) {
	if b.Halted() {
		return mutationkeeper.ValidatedTx{}, ErrHalted
	}
	vtx, err := b.applier.Check(ctx, bz, b.store)
	b.metrics.CheckedTx(result(err))
	return vtx, err
}

// BeginBlock opens a working view for height
func (b *Bridge) BeginBlock(height int64, blockTime time.Time) error {
	if err := b.expect(PhaseIdle); err != nil {
		return err
	}
	b.setPhase(PhaseValidatingBlock)
	last := b.store.LastCommit()
	if height != last.Height+1 {
		b.setPhase(PhaseIdle)
		return sdkerrors.Wrapf(ErrProtocol, "BeginBlock(%d) after committed height %d", height, last.Height)
	}
	b.view = mutationkeeper.NewWorkingView(b.store)
	if len(b.genesis) > 0 {
		b.view.Stage(b.genesis...)
		b.genesis = nil
	}
	b.height = height
	b.time = blockTime
	b.ended = false
	b.setPhase(PhaseExecutingBlock)
	b.logger.Debug("begin block", "height", height)
	return nil
}

// DeliverTx validates bz against the working view and stages it on success.
// A rejected transaction leaves the view unchanged.
func (b *Bridge) DeliverTx(ctx context.Context, bz []byte) (mutationkeeper.ValidatedTx, error) {
	if err := b.expect(PhaseExecutingBlock); err != nil {
		return mutationkeeper.ValidatedTx{}, err
	}
	if b.ended {
		return mutationkeeper.ValidatedTx{}, sdkerrors.Wrapf(ErrProtocol, "DeliverTx after EndBlock(%d)", b.height)
	}
	vtx, err := b.applier.Apply(ctx, bz, b.view)
	b.metrics.DeliveredTx(result(err))
	if err != nil {
		b.logger.Info("rejected tx", "height", b.height, "hash", fmt.Sprintf("%X", vtx.Hash), "err", err)
	}
	return vtx, err
}

func (b *Bridge) EndBlock(height int64) error {
	if err := b.expect(PhaseExecutingBlock); err != nil {
		return err
	}
	if height != b.height {
		return sdkerrors.Wrapf(ErrProtocol, "EndBlock(%d) inside block %d", height, b.height)
	}
	b.ended = true
	return nil
}

// Commit persists the working view and returns the new root digest.
// An out-of-sequence call changes nothing. A storage failure halts the bridge
// for good, since the engine would otherwise record a root that does not exist.
func (b *Bridge) Commit() ([]byte, error) {
	if err := b.expect(PhaseExecutingBlock); err != nil {
		return nil, err
	}
	if !b.ended {
		return nil, sdkerrors.Wrapf(ErrProtocol, "Commit before EndBlock(%d)", b.height)
	}
	b.setPhase(PhaseCommitting)
	start := time.Now()
	ci, err := b.store.Commit(b.view.Batch(), b.height, b.time)
	if err != nil {
		b.setPhase(PhaseHalted)
		b.state.Halt()
		b.logger.Error("failed to commit block, halting", "height", b.height, "err", err)
		return nil, sdkerrors.Wrapf(err, "halted at height %d", b.height)
	}
	txs := b.view.TxCount()
	b.view = nil
	b.state.Advance(ci.Height, ci.Root, ci.Time)
	b.metrics.Committed(ci.Height, time.Since(start))
	b.setPhase(PhaseIdle)
	b.logger.Info("committed block", "height", ci.Height, "txs", txs, "root", fmt.Sprintf("%X", ci.Root))
	return ci.Root, nil
}

// Query reads key from committed state, zero height meaning the latest
func (b *Bridge) Query(key []byte, prove bool, height int64) (storetypes.QueryResult, error) {
	if b.Halted() {
		return storetypes.QueryResult{}, ErrHalted
	}
	return b.store.Query(key, prove, height)
}

// Scan pages through committed client entries in [start, end)
func (b *Bridge) Scan(start, end []byte, limit int, height int64) (storetypes.ScanResult, error) {
	if b.Halted() {
		return storetypes.ScanResult{}, ErrHalted
	}
	return b.store.Scan(start, end, limit, height)
}

// Nonce returns the last committed nonce of sender
func (b *Bridge) Nonce(sender []byte) (uint64, error) {
	if b.Halted() {
		return 0, ErrHalted
	}
	return b.store.Nonce(sender)
}

func (b *Bridge) expect(p Phase) error {
	switch cur := b.Phase(); cur {
	case p:
		return nil
	case PhaseHalted:
		return ErrHalted
	default:
		return sdkerrors.Wrapf(ErrProtocol, "expected phase %v, got %v", p, cur)
	}
}

func result(err error) string {
	if err != nil {
		return telemetry.ResultReject
	}
	return telemetry.ResultAccept
}
