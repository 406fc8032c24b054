package app

import (
	"fmt"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	mutationtypes "github.com/datachainlab/db3/x/mutation/types"
	storetypes "github.com/datachainlab/db3/x/store/types"
	amino "github.com/tendermint/go-amino"
)

// GenesisState holds the entries present before the first block
type GenesisState struct {
	Entries []storetypes.KV `json:"entries"`
}

func DefaultGenesisState() GenesisState {
	return GenesisState{}
}

// ParseGenesis reads the app state of RequestInitChain; empty input is the default state
func ParseGenesis(cdc *amino.Codec, bz []byte) (GenesisState, error) {
	gs := DefaultGenesisState()
	if len(bz) == 0 {
		return gs, nil
	}
	if err := cdc.UnmarshalJSON(bz, &gs); err != nil {
		return gs, sdkerrors.Wrap(ErrInvalidGenesis, err.Error())
	}
	return gs, nil
}

func (gs GenesisState) Validate(limits mutationtypes.Limits) error {
	seen := make(map[string]bool, len(gs.Entries))
	for i, kv := range gs.Entries {
		if len(kv.Key) == 0 {
			return sdkerrors.Wrapf(ErrInvalidGenesis, "entry %d: empty key", i)
		}
		if limits.MaxKeySize > 0 && len(kv.Key) > limits.MaxKeySize {
			return sdkerrors.Wrapf(ErrInvalidGenesis, "entry %d: key of %d bytes", i, len(kv.Key))
		}
		if limits.MaxValueSize > 0 && len(kv.Value) > limits.MaxValueSize {
			return sdkerrors.Wrapf(ErrInvalidGenesis, "entry %d: value of %d bytes", i, len(kv.Value))
		}
		if seen[string(kv.Key)] {
			return sdkerrors.Wrapf(ErrInvalidGenesis, "duplicate key %X", kv.Key)
		}
		seen[string(kv.Key)] = true
	}
	return nil
}

func (gs GenesisState) Ops() []storetypes.Op {
	ops := make([]storetypes.Op, len(gs.Entries))
	for i, kv := range gs.Entries {
		ops[i] = storetypes.Put(kv.Key, kv.Value)
	}
	return ops
}

func (gs GenesisState) String() string {
	return fmt.Sprintf("GenesisState{%d entries}", len(gs.Entries))
}
