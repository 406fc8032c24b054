package types

import (
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
)

var (
	ErrTxDecode      = sdkerrors.Register(ModuleName, 2, "error decoding transaction")
	ErrUnauthorized  = sdkerrors.Register(ModuleName, 3, "signature verification failed")
	ErrInvalidNonce  = sdkerrors.Register(ModuleName, 4, "invalid nonce")
	ErrEmptyMutation = sdkerrors.Register(ModuleName, 5, "mutation has no operations")
	ErrUnknownOp     = sdkerrors.Register(ModuleName, 6, "unknown operation type")
	ErrEmptyKey      = sdkerrors.Register(ModuleName, 7, "key cannot be empty")
	ErrKeyTooLarge   = sdkerrors.Register(ModuleName, 8, "key too large")
	ErrValueTooLarge = sdkerrors.Register(ModuleName, 9, "value too large")
	ErrTooManyOps    = sdkerrors.Register(ModuleName, 10, "too many operations")
	ErrDeadline      = sdkerrors.Register(ModuleName, 11, "validation deadline exceeded")
)
