package types

import (
	amino "github.com/tendermint/go-amino"
)

// ModuleCdc is the codec for store records and proofs
var ModuleCdc = amino.NewCodec()

func init() {
	RegisterCodec(ModuleCdc)
	ModuleCdc.Seal()
}

func RegisterCodec(cdc *amino.Codec) {
	cdc.RegisterConcrete(Proof{}, "db3/store/Proof", nil)
	cdc.RegisterConcrete(CommitInfo{}, "db3/store/CommitInfo", nil)
}
