package keeper

import (
	storetypes "github.com/datachainlab/db3/x/store/types"
)

// NonceReader returns the last accepted nonce of a sender, zero if none
type NonceReader interface {
	Nonce(sender []byte) (uint64, error)
}

// WorkingView is the state of an in-progress block: committed state overlaid
// with the ops of every transaction accepted so far, in delivery order.
type WorkingView struct {
	base  NonceReader
	batch *storetypes.Batch
	txs   int
}

var _ NonceReader = (*WorkingView)(nil)

func NewWorkingView(base NonceReader) *WorkingView {
	return &WorkingView{base: base, batch: storetypes.NewBatch()}
}

func (v *WorkingView) Nonce(sender []byte) (uint64, error) {
	bz, _, ok := v.batch.GetUpdatedValue(storetypes.NonceKey(sender))
	if !ok {
		return v.base.Nonce(sender)
	}
	return storetypes.DecodeNonce(bz)
}

// Stage appends raw client ops that are not part of any transaction
func (v *WorkingView) Stage(ops ...storetypes.Op) {
	for _, op := range ops {
		v.batch.Append(clientOp(op))
	}
}

func (v *WorkingView) apply(tx ValidatedTx) {
	for _, op := range tx.Tx.Mutation.Ops {
		v.batch.Append(clientOp(op))
	}
	v.batch.Put(storetypes.NonceKey(tx.Sender), storetypes.EncodeNonce(tx.Tx.Mutation.Nonce))
	v.txs++
}

// Batch returns the ops to commit for this block
func (v *WorkingView) Batch() *storetypes.Batch {
	return v.batch
}

// TxCount returns the number of accepted transactions
func (v *WorkingView) TxCount() int {
	return v.txs
}

func clientOp(op storetypes.Op) storetypes.Op {
	return storetypes.Op{Type: op.Type, Key: storetypes.DataKey(op.Key), Value: op.Value}
}
