package keeper

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/datachainlab/db3/x/store/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/tendermint/tendermint/libs/log"
	dbm "github.com/tendermint/tm-db"
)

const (
	trieDirName  = "akv"
	stateDBName  = "state"
	trieCacheMB  = 16
	trieHandles  = 16
	trieMetricNS = "db3/akv/"
)

// AuthStore is a Merkle-Patricia authenticated key-value store. Trie nodes live in
// diskdb; the commit record of every height lives in metadb.
//
// AuthStore is not safe for concurrent use; StorageService guards it.
type AuthStore struct {
	diskdb ethdb.KeyValueStore
	triedb *trie.Database
	trie   *trie.Trie
	meta   metaStore
	last   types.CommitInfo
	logger log.Logger
	closed bool
}

// Open opens or creates the on-disk store under dir
func Open(dir string, logger log.Logger) (*AuthStore, error) {
	diskdb, err := rawdb.NewLevelDBDatabase(filepath.Join(dir, trieDirName), trieCacheMB, trieHandles, trieMetricNS)
	if err != nil {
		return nil, sdkerrors.Wrapf(types.ErrStorage, "failed to open trie database: %v", err)
	}
	metadb, err := dbm.NewGoLevelDB(stateDBName, dir)
	if err != nil {
		diskdb.Close()
		return nil, sdkerrors.Wrapf(types.ErrStorage, "failed to open state database: %v", err)
	}
	return NewAuthStore(diskdb, metadb, logger)
}

// NewAuthStore loads the latest committed root recorded in metadb
func NewAuthStore(diskdb ethdb.KeyValueStore, metadb dbm.DB, logger log.Logger) (*AuthStore, error) {
	s := &AuthStore{
		diskdb: diskdb,
		triedb: trie.NewDatabase(diskdb),
		meta:   newMetaStore(metadb),
		logger: logger.With("module", fmt.Sprintf("x/%s", types.ModuleName)),
	}
	last, ok, err := s.meta.Latest()
	if err != nil {
		return nil, err
	}
	if !ok {
		last = types.CommitInfo{Height: 0, Root: types.EmptyRoot.Bytes()}
	}
	t, err := trie.New(common.BytesToHash(last.Root), s.triedb)
	if err != nil {
		return nil, sdkerrors.Wrapf(types.ErrCorrupted, "failed to load root %X at height %d: %v", last.Root, last.Height, err)
	}
	s.trie = t
	s.last = last
	s.logger.Info("loaded authenticated store", "height", last.Height, "root", fmt.Sprintf("%X", last.Root))
	return s, nil
}

// LastCommit returns the record of the latest committed height
func (s *AuthStore) LastCommit() types.CommitInfo {
	return s.last
}

// Commit applies batch on top of the latest root and persists the result as height.
// On failure the store keeps serving the previous root.
func (s *AuthStore) Commit(batch *types.Batch, height int64, blockTime time.Time) (types.CommitInfo, error) {
	if s.closed {
		return types.CommitInfo{}, types.ErrClosed
	}
	if height != s.last.Height+1 {
		return types.CommitInfo{}, sdkerrors.Wrapf(types.ErrInvalidHeight, "expected %d, got %d", s.last.Height+1, height)
	}
	ci, err := s.commit(batch, height, blockTime)
	if err != nil {
		s.rollback()
		return types.CommitInfo{}, err
	}
	s.last = ci
	s.logger.Debug("committed batch", "height", height, "ops", batch.Len(), "root", fmt.Sprintf("%X", ci.Root))
	return ci, nil
}

func (s *AuthStore) commit(batch *types.Batch, height int64, blockTime time.Time) (types.CommitInfo, error) {
	for _, op := range batch.Ops() {
		var err error
		switch op.Type {
		case types.OpTypePut:
			err = s.trie.TryUpdate(op.Key, types.EncodeValue(op.Value))
		case types.OpTypeDelete:
			err = s.trie.TryDelete(op.Key)
		default:
			err = fmt.Errorf("unknown op type %v", op.Type)
		}
		if err != nil {
			return types.CommitInfo{}, sdkerrors.Wrapf(types.ErrStorage, "failed to apply %v: %v", op, err)
		}
	}
	root, err := s.trie.Commit(nil)
	if err != nil {
		return types.CommitInfo{}, sdkerrors.Wrapf(types.ErrStorage, "failed to hash trie: %v", err)
	}
	if err := s.triedb.Commit(root, false); err != nil {
		return types.CommitInfo{}, sdkerrors.Wrapf(types.ErrStorage, "failed to flush trie: %v", err)
	}
	ci := types.CommitInfo{Height: height, Root: root.Bytes(), Time: blockTime}
	if err := s.meta.Save(ci); err != nil {
		return types.CommitInfo{}, err
	}
	return ci, nil
}

func (s *AuthStore) rollback() {
	t, err := trie.New(common.BytesToHash(s.last.Root), s.triedb)
	if err != nil {
		// the previous root was readable a moment ago
		panic(fmt.Errorf("failed to reload root %X: %v", s.last.Root, err))
	}
	s.trie = t
}

// Get reads a trie key at height; zero means the latest height
func (s *AuthStore) Get(key []byte, height int64) (value []byte, exists bool, err error) {
	t, _, err := s.trieAt(height)
	if err != nil {
		return nil, false, err
	}
	bz, err := t.TryGet(key)
	if err != nil {
		return nil, false, sdkerrors.Wrap(types.ErrStorage, err.Error())
	}
	if bz == nil {
		return nil, false, nil
	}
	value, err = types.DecodeValue(bz)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Prove builds an inclusion or absence proof for a trie key at height
func (s *AuthStore) Prove(key []byte, height int64) (types.Proof, error) {
	t, _, err := s.trieAt(height)
	if err != nil {
		return types.Proof{}, err
	}
	nodes := types.NewProofNodes()
	if err := t.Prove(key, 0, nodes); err != nil {
		return types.Proof{}, sdkerrors.Wrap(types.ErrStorage, err.Error())
	}
	return types.Proof{Key: common.CopyBytes(key), Nodes: nodes.List()}, nil
}

// Iterate walks trie keys in [start, end) in ascending byte order. A nil end is
// unbounded. The order only holds when no key is a prefix of another, which
// DataKey and NonceKey guarantee. When limit entries were collected and more
// remain, next is the first key not returned.
func (s *AuthStore) Iterate(start, end []byte, limit int, height int64, fn func(key, value []byte) error) (next []byte, err error) {
	t, _, err := s.trieAt(height)
	if err != nil {
		return nil, err
	}
	var count int
	it := trie.NewIterator(t.NodeIterator(start))
	for it.Next() {
		if end != nil && bytes.Compare(it.Key, end) >= 0 {
			return nil, nil
		}
		if limit > 0 && count == limit {
			return common.CopyBytes(it.Key), nil
		}
		v, err := types.DecodeValue(it.Value)
		if err != nil {
			return nil, err
		}
		if err := fn(common.CopyBytes(it.Key), common.CopyBytes(v)); err != nil {
			return nil, err
		}
		count++
	}
	if it.Err != nil {
		return nil, sdkerrors.Wrap(types.ErrStorage, it.Err.Error())
	}
	return nil, nil
}

// CommitAt returns the commit record of a height; zero means the latest height
func (s *AuthStore) CommitAt(height int64) (types.CommitInfo, error) {
	_, ci, err := s.trieAt(height)
	return ci, err
}

func (s *AuthStore) trieAt(height int64) (*trie.Trie, types.CommitInfo, error) {
	if s.closed {
		return nil, types.CommitInfo{}, types.ErrClosed
	}
	if height == 0 || height == s.last.Height {
		return s.trie, s.last, nil
	}
	if height < 0 || height > s.last.Height {
		return nil, types.CommitInfo{}, sdkerrors.Wrapf(types.ErrUnknownHeight, "height %d, latest %d", height, s.last.Height)
	}
	ci, ok, err := s.meta.Get(height)
	if err != nil {
		return nil, types.CommitInfo{}, err
	}
	if !ok {
		return nil, types.CommitInfo{}, sdkerrors.Wrapf(types.ErrUnknownHeight, "height %d", height)
	}
	t, err := trie.New(common.BytesToHash(ci.Root), s.triedb)
	if err != nil {
		return nil, types.CommitInfo{}, sdkerrors.Wrap(types.ErrCorrupted, err.Error())
	}
	return t, ci, nil
}

func (s *AuthStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.meta.Close(); err != nil {
		s.diskdb.Close()
		return err
	}
	return s.diskdb.Close()
}
