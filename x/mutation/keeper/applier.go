package keeper

import (
	"context"
	"fmt"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/datachainlab/db3/x/mutation/types"
	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/libs/log"
)

// ValidatedTx is a decoded transaction whose sender has been authenticated
type ValidatedTx struct {
	Tx     types.Tx
	Sender crypto.Address
	Hash   []byte
}

// Applier turns raw transaction bytes into validated batches.
// Validation runs in a fixed order: decoding, sender, nonce, limits.
type Applier struct {
	verifier types.SignatureVerifier
	limits   types.Limits
	logger   log.Logger
}

func NewApplier(verifier types.SignatureVerifier, limits types.Limits, logger log.Logger) Applier {
	return Applier{
		verifier: verifier,
		limits:   limits,
		logger:   logger.With("module", fmt.Sprintf("x/%s", types.ModuleName)),
	}
}

func (a Applier) Limits() types.Limits {
	return a.limits
}

// Check validates bz against committed state. Nonces at or below the committed
// one are rejected; gaps are allowed since earlier transactions may still be
// pending. Nothing is mutated.
func (a Applier) Check(ctx context.Context, bz []byte, committed NonceReader) (ValidatedTx, error) {
	return a.validate(ctx, bz, func(sender crypto.Address, nonce uint64) error {
		last, err := committed.Nonce(sender)
		if err != nil {
			return err
		}
		if nonce <= last {
			return sdkerrors.Wrapf(types.ErrInvalidNonce, "stale nonce %d, last accepted %d", nonce, last)
		}
		return nil
	})
}

// Apply validates bz against view and, on success, appends its ops and the
// sender's new nonce to view. A rejected transaction leaves view untouched.
func (a Applier) Apply(ctx context.Context, bz []byte, view *WorkingView) (ValidatedTx, error) {
	vtx, err := a.validate(ctx, bz, func(sender crypto.Address, nonce uint64) error {
		last, err := view.Nonce(sender)
		if err != nil {
			return err
		}
		if nonce != last+1 {
			return sdkerrors.Wrapf(types.ErrInvalidNonce, "expected %d, got %d", last+1, nonce)
		}
		return nil
	})
	if err != nil {
		return vtx, err
	}
	if err := deadline(ctx); err != nil {
		return vtx, err
	}
	view.apply(vtx)
	a.logger.Debug("applied tx", "hash", fmt.Sprintf("%X", vtx.Hash), "sender", vtx.Sender, "nonce", vtx.Tx.Mutation.Nonce, "ops", len(vtx.Tx.Mutation.Ops))
	return vtx, nil
}

func (a Applier) validate(ctx context.Context, bz []byte, checkNonce func(crypto.Address, uint64) error) (ValidatedTx, error) {
	tx, err := types.DecodeTx(bz)
	if err != nil {
		return ValidatedTx{}, err
	}
	vtx := ValidatedTx{Tx: tx, Hash: types.TxHash(bz)}
	if err := deadline(ctx); err != nil {
		return vtx, err
	}
	sender, err := a.verifier.VerifySender(tx)
	if err != nil {
		return vtx, err
	}
	vtx.Sender = sender
	if err := deadline(ctx); err != nil {
		return vtx, err
	}
	if err := checkNonce(sender, tx.Mutation.Nonce); err != nil {
		return vtx, err
	}
	if err := tx.Mutation.ValidateBasic(a.limits); err != nil {
		return vtx, err
	}
	return vtx, nil
}

func deadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return sdkerrors.Wrap(types.ErrDeadline, err.Error())
	}
	return nil
}
