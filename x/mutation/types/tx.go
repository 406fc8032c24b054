package types

import (
	"fmt"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	storetypes "github.com/datachainlab/db3/x/store/types"
	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/crypto/tmhash"
)

// Mutation is the signed part of a transaction
type Mutation struct {
	Nonce uint64          `json:"nonce"`
	Ops   []storetypes.Op `json:"ops"`
}

func NewMutation(nonce uint64, ops ...storetypes.Op) Mutation {
	return Mutation{Nonce: nonce, Ops: ops}
}

// SignBytes returns the canonical bytes covered by the signature
func (m Mutation) SignBytes() []byte {
	return ModuleCdc.MustMarshalBinaryBare(m)
}

// ValidateBasic checks the ops against limits without looking at any state
func (m Mutation) ValidateBasic(limits Limits) error {
	if len(m.Ops) == 0 {
		return ErrEmptyMutation
	}
	if limits.MaxOps > 0 && len(m.Ops) > limits.MaxOps {
		return sdkerrors.Wrapf(ErrTooManyOps, "%d > %d", len(m.Ops), limits.MaxOps)
	}
	for i, op := range m.Ops {
		switch op.Type {
		case storetypes.OpTypePut:
			if limits.MaxValueSize > 0 && len(op.Value) > limits.MaxValueSize {
				return sdkerrors.Wrapf(ErrValueTooLarge, "op %d: %d > %d", i, len(op.Value), limits.MaxValueSize)
			}
		case storetypes.OpTypeDelete:
		default:
			return sdkerrors.Wrapf(ErrUnknownOp, "op %d: %v", i, op.Type)
		}
		if len(op.Key) == 0 {
			return sdkerrors.Wrapf(ErrEmptyKey, "op %d", i)
		}
		if limits.MaxKeySize > 0 && len(op.Key) > limits.MaxKeySize {
			return sdkerrors.Wrapf(ErrKeyTooLarge, "op %d: %d > %d", i, len(op.Key), limits.MaxKeySize)
		}
	}
	return nil
}

// Tx is a signed mutation. The sender is the address of PubKey.
type Tx struct {
	Mutation  Mutation      `json:"mutation"`
	PubKey    crypto.PubKey `json:"pub_key"`
	Signature []byte        `json:"signature"`
}

// NewSignedTx signs a mutation with priv
func NewSignedTx(priv crypto.PrivKey, nonce uint64, ops ...storetypes.Op) (Tx, error) {
	m := NewMutation(nonce, ops...)
	sig, err := priv.Sign(m.SignBytes())
	if err != nil {
		return Tx{}, err
	}
	return Tx{Mutation: m, PubKey: priv.PubKey(), Signature: sig}, nil
}

// Sender returns the address of the signer; nil when the tx carries no key
func (tx Tx) Sender() crypto.Address {
	if tx.PubKey == nil {
		return nil
	}
	return tx.PubKey.Address()
}

func (tx Tx) Bytes() []byte {
	return ModuleCdc.MustMarshalBinaryBare(tx)
}

func (tx Tx) String() string {
	return fmt.Sprintf("Tx{%X nonce=%d ops=%d}", tx.Sender(), tx.Mutation.Nonce, len(tx.Mutation.Ops))
}

// DecodeTx parses the wire form of a transaction
func DecodeTx(bz []byte) (Tx, error) {
	var tx Tx
	if len(bz) == 0 {
		return tx, sdkerrors.Wrap(ErrTxDecode, "empty transaction")
	}
	if err := ModuleCdc.UnmarshalBinaryBare(bz, &tx); err != nil {
		return tx, sdkerrors.Wrap(ErrTxDecode, err.Error())
	}
	return tx, nil
}

// TxHash is the identifier tendermint uses for raw tx bytes
func TxHash(bz []byte) []byte {
	return tmhash.Sum(bz)
}
