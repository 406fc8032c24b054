package keeper

import (
	"fmt"
	"sync"
	"time"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/datachainlab/db3/x/store/types"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/tendermint/tendermint/libs/log"
)

// StorageService is the only handle to the AuthStore. Consensus callbacks and
// RPC readers all go through it; a single mutex orders them, and no method
// calls out while holding it.
type StorageService struct {
	mtx    sync.Mutex
	store  *AuthStore
	cache  *lru.Cache
	logger log.Logger
}

type cachedValue struct {
	value  []byte
	exists bool
}

// NewStorageService takes ownership of store. cacheSize bounds the number of
// latest-height point reads kept in memory; zero disables the cache.
func NewStorageService(store *AuthStore, cacheSize int, logger log.Logger) (*StorageService, error) {
	s := &StorageService{
		store:  store,
		logger: logger.With("module", fmt.Sprintf("x/%s", types.ModuleName)),
	}
	if cacheSize > 0 {
		cache, err := lru.New(cacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// LastCommit returns the latest committed height record
func (s *StorageService) LastCommit() types.CommitInfo {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.store.LastCommit()
}

// Query reads a client key at height, zero meaning the latest committed height
func (s *StorageService) Query(key []byte, prove bool, height int64) (types.QueryResult, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ci, err := s.store.CommitAt(height)
	if err != nil {
		return types.QueryResult{}, err
	}
	res := types.QueryResult{Key: key, Height: ci.Height, Root: ci.Root}
	tk := types.DataKey(key)
	if cv, ok := s.cached(tk, ci.Height); ok && !prove {
		res.Value, res.Exists = common.CopyBytes(cv.value), cv.exists
		return res, nil
	}
	res.Value, res.Exists, err = s.store.Get(tk, ci.Height)
	if err != nil {
		return types.QueryResult{}, err
	}
	if s.cache != nil && ci.Height == s.store.LastCommit().Height {
		s.cache.Add(string(tk), cachedValue{value: common.CopyBytes(res.Value), exists: res.Exists})
	}
	if prove {
		proof, err := s.store.Prove(tk, ci.Height)
		if err != nil {
			return types.QueryResult{}, err
		}
		res.Proof = &proof
	}
	return res, nil
}

func (s *StorageService) cached(tk []byte, height int64) (cachedValue, bool) {
	if s.cache == nil || height != s.store.LastCommit().Height {
		return cachedValue{}, false
	}
	v, ok := s.cache.Get(string(tk))
	if !ok {
		return cachedValue{}, false
	}
	return v.(cachedValue), true
}

// Scan returns up to limit client entries in [start, end), resuming at start
func (s *StorageService) Scan(start, end []byte, limit int, height int64) (types.ScanResult, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ci, err := s.store.CommitAt(height)
	if err != nil {
		return types.ScanResult{}, err
	}
	res := types.ScanResult{Height: ci.Height, Root: ci.Root}
	ts, te := types.DataRange(start, end)
	next, err := s.store.Iterate(ts, te, limit, ci.Height, func(k, v []byte) error {
		key, ok := types.ParseDataKey(k)
		if !ok {
			return sdkerrors.Wrapf(types.ErrCorrupted, "unexpected key %X in data range", k)
		}
		res.Entries = append(res.Entries, types.KV{Key: key, Value: v})
		return nil
	})
	if err != nil {
		return types.ScanResult{}, err
	}
	if next != nil {
		res.Next, _ = types.ParseDataKey(next)
	}
	return res, nil
}

// Nonce returns the last accepted nonce of sender at the latest committed height
func (s *StorageService) Nonce(sender []byte) (uint64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	bz, ok, err := s.store.Get(types.NonceKey(sender), 0)
	if err != nil || !ok {
		return 0, err
	}
	return types.DecodeNonce(bz)
}

// Commit writes batch as height. Readers waiting on the lock observe either the
// previous or the new root.
func (s *StorageService) Commit(batch *types.Batch, height int64, blockTime time.Time) (types.CommitInfo, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ci, err := s.store.Commit(batch, height, blockTime)
	if err != nil {
		return types.CommitInfo{}, err
	}
	if s.cache != nil {
		s.cache.Purge()
	}
	return ci, nil
}

func (s *StorageService) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.cache != nil {
		s.cache.Purge()
	}
	return s.store.Close()
}
