package types

import (
	amino "github.com/tendermint/go-amino"
	cryptoamino "github.com/tendermint/tendermint/crypto/encoding/amino"
)

// ModuleCdc is the wire codec of transactions
var ModuleCdc = amino.NewCodec()

func init() {
	RegisterCodec(ModuleCdc)
	ModuleCdc.Seal()
}

func RegisterCodec(cdc *amino.Codec) {
	cryptoamino.RegisterAmino(cdc)
	cdc.RegisterConcrete(Mutation{}, "db3/mutation/Mutation", nil)
	cdc.RegisterConcrete(Tx{}, "db3/mutation/Tx", nil)
}
