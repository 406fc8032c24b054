package types

import (
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
)

var (
	ErrStorage       = sdkerrors.Register(ModuleName, 2, "storage failure")
	ErrInvalidHeight = sdkerrors.Register(ModuleName, 3, "invalid commit height")
	ErrUnknownHeight = sdkerrors.Register(ModuleName, 4, "no committed state at height")
	ErrInvalidProof  = sdkerrors.Register(ModuleName, 5, "invalid proof")
	ErrCorrupted     = sdkerrors.Register(ModuleName, 6, "corrupted store entry")
	ErrClosed        = sdkerrors.Register(ModuleName, 7, "store is closed")
)
