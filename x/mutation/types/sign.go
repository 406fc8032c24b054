package types

import (
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/tendermint/tendermint/crypto"
)

// SignatureVerifier authenticates the sender of a transaction
type SignatureVerifier interface {
	VerifySender(tx Tx) (crypto.Address, error)
}

var _ SignatureVerifier = PubKeyVerifier{}

// PubKeyVerifier checks the signature against the public key carried by the tx
type PubKeyVerifier struct{}

func (PubKeyVerifier) VerifySender(tx Tx) (crypto.Address, error) {
	if tx.PubKey == nil {
		return nil, sdkerrors.Wrap(ErrUnauthorized, "missing public key")
	}
	if len(tx.Signature) == 0 {
		return nil, sdkerrors.Wrap(ErrUnauthorized, "missing signature")
	}
	if !tx.PubKey.VerifyBytes(tx.Mutation.SignBytes(), tx.Signature) {
		return nil, ErrUnauthorized
	}
	return tx.PubKey.Address(), nil
}
