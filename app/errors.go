package app

import (
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
)

const (
	// ModuleName is the codespace of consensus callback errors
	ModuleName = "app"
)

var (
	ErrProtocol       = sdkerrors.Register(ModuleName, 2, "consensus callback out of sequence")
	ErrHalted         = sdkerrors.Register(ModuleName, 3, "node halted")
	ErrInvalidRequest = sdkerrors.Register(ModuleName, 4, "malformed consensus request")
	ErrInvalidGenesis = sdkerrors.Register(ModuleName, 5, "invalid genesis state")
)
