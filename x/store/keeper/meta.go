package keeper

import (
	"encoding/binary"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/datachainlab/db3/x/store/types"
	dbm "github.com/tendermint/tm-db"
)

var (
	keyLatestCommit = []byte("latest")
	keyCommitPrefix = []byte("h/")
)

// metaStore persists a CommitInfo per height plus a pointer to the latest one
type metaStore struct {
	db dbm.DB
}

func newMetaStore(db dbm.DB) metaStore {
	return metaStore{db: db}
}

func commitKey(height int64) []byte {
	k := make([]byte, len(keyCommitPrefix)+8)
	copy(k, keyCommitPrefix)
	binary.BigEndian.PutUint64(k[len(keyCommitPrefix):], uint64(height))
	return k
}

// Latest returns the last persisted commit. ok is false for a fresh store.
func (ms metaStore) Latest() (ci types.CommitInfo, ok bool, err error) {
	return ms.load(keyLatestCommit)
}

func (ms metaStore) Get(height int64) (ci types.CommitInfo, ok bool, err error) {
	return ms.load(commitKey(height))
}

func (ms metaStore) load(key []byte) (types.CommitInfo, bool, error) {
	var ci types.CommitInfo
	bz, err := ms.db.Get(key)
	if err != nil {
		return ci, false, sdkerrors.Wrap(types.ErrStorage, err.Error())
	}
	if bz == nil {
		return ci, false, nil
	}
	if err := types.ModuleCdc.UnmarshalBinaryBare(bz, &ci); err != nil {
		return ci, false, sdkerrors.Wrap(types.ErrCorrupted, err.Error())
	}
	return ci, true, nil
}

// Save writes the record and moves the latest pointer in one synced batch
func (ms metaStore) Save(ci types.CommitInfo) error {
	bz, err := types.ModuleCdc.MarshalBinaryBare(ci)
	if err != nil {
		return err
	}
	batch := ms.db.NewBatch()
	defer batch.Close()
	batch.Set(commitKey(ci.Height), bz)
	batch.Set(keyLatestCommit, bz)
	if err := batch.WriteSync(); err != nil {
		return sdkerrors.Wrap(types.ErrStorage, err.Error())
	}
	return nil
}

func (ms metaStore) Close() error {
	return ms.db.Close()
}
