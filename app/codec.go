package app

import (
	mutationtypes "github.com/datachainlab/db3/x/mutation/types"
	storetypes "github.com/datachainlab/db3/x/store/types"
	amino "github.com/tendermint/go-amino"
)

// MakeCodec returns the codec of every type the node puts on the wire
func MakeCodec() *amino.Codec {
	cdc := amino.NewCodec()
	mutationtypes.RegisterCodec(cdc)
	storetypes.RegisterCodec(cdc)
	return cdc.Seal()
}
