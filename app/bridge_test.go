package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/datachainlab/db3/app"
	"github.com/datachainlab/db3/telemetry"
	mutationkeeper "github.com/datachainlab/db3/x/mutation/keeper"
	mutationtypes "github.com/datachainlab/db3/x/mutation/types"
	nodetypes "github.com/datachainlab/db3/x/node/types"
	storekeeper "github.com/datachainlab/db3/x/store/keeper"
	storetypes "github.com/datachainlab/db3/x/store/types"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/crypto/ed25519"
	"github.com/tendermint/tendermint/libs/log"
	dbm "github.com/tendermint/tm-db"
)

type failingDB struct {
	dbm.DB
	fail bool
}

func (db *failingDB) NewBatch() dbm.Batch {
	return failingBatch{Batch: db.DB.NewBatch(), db: db}
}

type failingBatch struct {
	dbm.Batch
	db *failingDB
}

func (b failingBatch) WriteSync() error {
	if b.db.fail {
		return errors.New("input/output error")
	}
	return b.Batch.WriteSync()
}

func newBridge(t *testing.T, metadb dbm.DB) *app.Bridge {
	if metadb == nil {
		metadb = dbm.NewMemDB()
	}
	logger := log.NewNopLogger()
	st, err := storekeeper.NewAuthStore(rawdb.NewMemoryDatabase(), metadb, logger)
	require.NoError(t, err)
	svc, err := storekeeper.NewStorageService(st, 16, logger)
	require.NoError(t, err)
	ci := svc.LastCommit()
	return app.NewBridge(
		svc,
		mutationkeeper.NewApplier(mutationtypes.PubKeyVerifier{}, mutationtypes.DefaultLimits(), logger),
		nodetypes.NewStateHolder(ci.Height, ci.Root, ci.Time),
		telemetry.New(),
		logger,
	)
}

func signed(t *testing.T, priv crypto.PrivKey, nonce uint64, ops ...storetypes.Op) []byte {
	tx, err := mutationtypes.NewSignedTx(priv, nonce, ops...)
	require.NoError(t, err)
	return tx.Bytes()
}

func blockTime(height int64) time.Time {
	return time.Unix(1600000000+height, 0).UTC()
}

type BridgeTestSuite struct {
	suite.Suite
	bridge *app.Bridge
	alice  crypto.PrivKey
}

func (suite *BridgeTestSuite) SetupTest() {
	suite.bridge = newBridge(suite.T(), nil)
	suite.alice = ed25519.GenPrivKey()
}

// block runs a full height and returns the per-tx errors and the new root
func (suite *BridgeTestSuite) block(txs ...[]byte) ([]error, []byte) {
	b := suite.bridge
	height := b.LastCommit().Height + 1
	suite.Require().NoError(b.BeginBlock(height, blockTime(height)))
	var errs []error
	for _, tx := range txs {
		_, err := b.DeliverTx(context.Background(), tx)
		errs = append(errs, err)
	}
	suite.Require().NoError(b.EndBlock(height))
	root, err := b.Commit()
	suite.Require().NoError(err)
	return errs, root
}

func (suite *BridgeTestSuite) get(key string) storetypes.QueryResult {
	res, err := suite.bridge.Query([]byte(key), true, 0)
	suite.Require().NoError(err)
	return res
}

func (suite *BridgeTestSuite) TestPutsInOneBlock() {
	prev := suite.bridge.State()
	errs, root := suite.block(signed(suite.T(), suite.alice, 1,
		storetypes.Put([]byte("a"), []byte("1")),
		storetypes.Put([]byte("b"), []byte("2")),
	))
	suite.NoError(errs[0])

	a := suite.get("a")
	suite.True(a.Exists)
	suite.Equal([]byte("1"), a.Value)
	suite.NoError(a.Proof.VerifyItem(root, []byte("a"), []byte("1")))
	b := suite.get("b")
	suite.Equal([]byte("2"), b.Value)

	st := suite.bridge.State()
	suite.Equal(prev.Height+1, st.Height)
	suite.Equal(root, st.AppHash)
	suite.Equal(blockTime(1), st.Time)
	suite.Equal(prev.Version+1, st.Version)
	suite.Equal(app.PhaseIdle, suite.bridge.Phase())
}

func (suite *BridgeTestSuite) TestDeleteInLaterBlock() {
	_, rootA := suite.block(signed(suite.T(), suite.alice, 1,
		storetypes.Put([]byte("a"), []byte("1")),
		storetypes.Put([]byte("b"), []byte("2")),
	))
	errs, rootB := suite.block(signed(suite.T(), suite.alice, 2, storetypes.Delete([]byte("a"))))
	suite.NoError(errs[0])

	a := suite.get("a")
	suite.False(a.Exists)
	suite.NoError(a.Proof.VerifyAbsence(rootB, []byte("a")))
	suite.NotEqual(rootA, rootB)
	suite.Equal(int64(2), suite.bridge.State().Height)
}

func (suite *BridgeTestSuite) TestDuplicateNonceRejected() {
	var txs [][]byte
	for n := uint64(1); n <= 5; n++ {
		txs = append(txs, signed(suite.T(), suite.alice, n, storetypes.Put([]byte("n"), []byte(fmt.Sprint(n)))))
	}
	_, root := suite.block(txs...)

	n, err := suite.bridge.Nonce(suite.alice.PubKey().Address())
	suite.NoError(err)
	suite.Equal(uint64(5), n)

	dup := signed(suite.T(), suite.alice, 5, storetypes.Put([]byte("n"), []byte("dup")))
	_, err = suite.bridge.CheckTx(context.Background(), dup)
	suite.True(mutationtypes.ErrInvalidNonce.Is(err))

	errs, root2 := suite.block(dup)
	suite.True(mutationtypes.ErrInvalidNonce.Is(errs[0]))
	// an empty block still gets a height, with the state unchanged
	suite.Equal(root, root2)
	suite.Equal(int64(2), suite.bridge.State().Height)
	suite.Equal([]byte("5"), suite.get("n").Value)
}

func (suite *BridgeTestSuite) TestRepeatAndSkipInOneBlock() {
	errs, _ := suite.block(
		signed(suite.T(), suite.alice, 1, storetypes.Put([]byte("k"), []byte("1"))),
		signed(suite.T(), suite.alice, 1, storetypes.Put([]byte("k"), []byte("repeat"))),
		signed(suite.T(), suite.alice, 3, storetypes.Put([]byte("k"), []byte("skip"))),
		signed(suite.T(), suite.alice, 2, storetypes.Put([]byte("k"), []byte("2"))),
	)
	suite.NoError(errs[0])
	suite.True(mutationtypes.ErrInvalidNonce.Is(errs[1]))
	suite.True(mutationtypes.ErrInvalidNonce.Is(errs[2]))
	suite.NoError(errs[3])
	suite.Equal([]byte("2"), suite.get("k").Value)
}

func (suite *BridgeTestSuite) TestPendingWritesInvisible() {
	b := suite.bridge
	suite.block(signed(suite.T(), suite.alice, 1, storetypes.Put([]byte("a"), []byte("1"))))

	suite.Require().NoError(b.BeginBlock(2, blockTime(2)))
	_, err := b.DeliverTx(context.Background(), signed(suite.T(), suite.alice, 2, storetypes.Put([]byte("a"), []byte("2"))))
	suite.Require().NoError(err)

	res := suite.get("a")
	suite.Equal([]byte("1"), res.Value)
	suite.Equal(int64(1), res.Height)
	// the pending nonce is not visible to mempool checks either
	_, err = b.CheckTx(context.Background(), signed(suite.T(), suite.alice, 2, storetypes.Put([]byte("a"), []byte("2"))))
	suite.NoError(err)

	suite.Require().NoError(b.EndBlock(2))
	_, err = b.Commit()
	suite.Require().NoError(err)
	suite.Equal([]byte("2"), suite.get("a").Value)

	// historical reads stay on their height
	old, err := b.Query([]byte("a"), false, 1)
	suite.NoError(err)
	suite.Equal([]byte("1"), old.Value)
}

func (suite *BridgeTestSuite) TestOutOfSequence() {
	b := suite.bridge
	tx := signed(suite.T(), suite.alice, 1, storetypes.Put([]byte("a"), []byte("1")))

	_, err := b.DeliverTx(context.Background(), tx)
	suite.True(app.ErrProtocol.Is(err))
	_, err = b.Commit()
	suite.True(app.ErrProtocol.Is(err))
	suite.True(app.ErrProtocol.Is(b.EndBlock(1)))

	// heights cannot be skipped or replayed
	suite.True(app.ErrProtocol.Is(b.BeginBlock(2, blockTime(2))))
	suite.Equal(app.PhaseIdle, b.Phase())

	suite.Require().NoError(b.BeginBlock(1, blockTime(1)))
	suite.True(app.ErrProtocol.Is(b.BeginBlock(1, blockTime(1))))
	suite.True(app.ErrProtocol.Is(b.EndBlock(2)))
	_, err = b.Commit()
	suite.True(app.ErrProtocol.Is(err))
	suite.Equal(app.PhaseExecutingBlock, b.Phase())
	suite.Equal(int64(0), b.State().Height)
	suite.Require().NoError(b.EndBlock(1))
	_, err = b.DeliverTx(context.Background(), tx)
	suite.True(app.ErrProtocol.Is(err))
	_, err = b.Commit()
	suite.Require().NoError(err)

	// committing twice does not merge into the same height
	_, err = b.Commit()
	suite.True(app.ErrProtocol.Is(err))
	suite.Equal(int64(1), b.State().Height)
	suite.True(app.ErrProtocol.Is(b.BeginBlock(1, blockTime(1))))
}

func (suite *BridgeTestSuite) TestDeadlineIsReject() {
	b := suite.bridge
	suite.Require().NoError(b.BeginBlock(1, blockTime(1)))
	ctx, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()
	_, err := b.DeliverTx(ctx, signed(suite.T(), suite.alice, 1, storetypes.Put([]byte("a"), []byte("1"))))
	suite.True(mutationtypes.ErrDeadline.Is(err))

	// the same nonce is still free
	_, err = b.DeliverTx(context.Background(), signed(suite.T(), suite.alice, 1, storetypes.Put([]byte("a"), []byte("2"))))
	suite.NoError(err)
	suite.Require().NoError(b.EndBlock(1))
	_, err = b.Commit()
	suite.Require().NoError(err)
	suite.Equal([]byte("2"), suite.get("a").Value)
}

func (suite *BridgeTestSuite) TestGenesis() {
	b := suite.bridge
	gs := app.GenesisState{Entries: []storetypes.KV{
		{Key: []byte("g1"), Value: []byte("x")},
		{Key: []byte("g2"), Value: nil},
	}}
	suite.Require().NoError(b.InitChain(gs))
	// genesis entries only become visible with the first block
	suite.False(suite.get("g1").Exists)

	suite.block(signed(suite.T(), suite.alice, 1, storetypes.Put([]byte("g1"), []byte("y"))))
	suite.Equal([]byte("y"), suite.get("g1").Value)
	g2 := suite.get("g2")
	suite.True(g2.Exists)
	suite.Len(g2.Value, 0)

	suite.True(app.ErrProtocol.Is(b.InitChain(app.DefaultGenesisState())))

	dup := app.GenesisState{Entries: []storetypes.KV{{Key: []byte("k")}, {Key: []byte("k")}}}
	suite.True(app.ErrInvalidGenesis.Is(dup.Validate(mutationtypes.DefaultLimits())))
	empty := app.GenesisState{Entries: []storetypes.KV{{Value: []byte("v")}}}
	suite.True(app.ErrInvalidGenesis.Is(empty.Validate(mutationtypes.DefaultLimits())))
}

func (suite *BridgeTestSuite) TestConcurrentQueryDuringCommit() {
	b := suite.bridge
	keys := []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7"}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				res, err := b.Scan(nil, nil, 0, 0)
				if !assert.NoError(suite.T(), err) {
					return
				}
				// every key of a height carries the same value
				for _, kv := range res.Entries {
					if !assert.Equal(suite.T(), fmt.Sprint(res.Height), string(kv.Value)) {
						return
					}
				}
				if res.Height > 0 && !assert.Len(suite.T(), res.Entries, len(keys)) {
					return
				}
			}
		}()
	}

	for n := uint64(1); n <= 20; n++ {
		var ops []storetypes.Op
		for _, k := range keys {
			ops = append(ops, storetypes.Put([]byte(k), []byte(fmt.Sprint(n))))
		}
		errs, _ := suite.block(signed(suite.T(), suite.alice, n, ops...))
		suite.Require().NoError(errs[0])
	}
	close(stop)
	wg.Wait()
}

func TestBridgeTestSuite(t *testing.T) {
	suite.Run(t, new(BridgeTestSuite))
}

func TestCommitFailureHalts(t *testing.T) {
	assert := assert.New(t)
	metadb := &failingDB{DB: dbm.NewMemDB()}
	b := newBridge(t, metadb)
	alice := ed25519.GenPrivKey()

	require.NoError(t, b.BeginBlock(1, blockTime(1)))
	_, err := b.DeliverTx(context.Background(), signed(t, alice, 1, storetypes.Put([]byte("a"), []byte("1"))))
	require.NoError(t, err)
	require.NoError(t, b.EndBlock(1))
	root1, err := b.Commit()
	require.NoError(t, err)

	metadb.fail = true
	require.NoError(t, b.BeginBlock(2, blockTime(2)))
	_, err = b.DeliverTx(context.Background(), signed(t, alice, 2, storetypes.Put([]byte("a"), []byte("2"))))
	require.NoError(t, err)
	require.NoError(t, b.EndBlock(2))
	root, err := b.Commit()
	assert.True(storetypes.ErrStorage.Is(err))
	assert.Nil(root)

	assert.Equal(app.PhaseHalted, b.Phase())
	st := b.State()
	assert.True(st.Halted)
	assert.Equal(int64(1), st.Height)
	assert.Equal(root1, st.AppHash)

	// nothing is served once halted, even after the disk recovers
	metadb.fail = false
	assert.True(app.ErrHalted.Is(b.BeginBlock(2, blockTime(2))))
	_, err = b.CheckTx(context.Background(), signed(t, alice, 2))
	assert.True(app.ErrHalted.Is(err))
	_, err = b.Query([]byte("a"), false, 0)
	assert.True(app.ErrHalted.Is(err))
	_, err = b.Commit()
	assert.True(app.ErrHalted.Is(err))
}

func TestRootIsDeterministic(t *testing.T) {
	alice, bob := ed25519.GenPrivKey(), ed25519.GenPrivKey()
	txs := [][]byte{
		signed(t, alice, 1, storetypes.Put([]byte("a"), []byte("1")), storetypes.Put([]byte("c"), []byte("3"))),
		signed(t, bob, 1, storetypes.Put([]byte("b"), []byte("2"))),
		signed(t, alice, 2, storetypes.Delete([]byte("c"))),
	}

	// one node sees every tx in one block, the other one per block
	run := func(perBlock int) []byte {
		b := newBridge(t, nil)
		var root []byte
		for i := 0; i < len(txs); i += perBlock {
			h := b.LastCommit().Height + 1
			require.NoError(t, b.BeginBlock(h, blockTime(h)))
			for _, tx := range txs[i:min(i+perBlock, len(txs))] {
				_, err := b.DeliverTx(context.Background(), tx)
				require.NoError(t, err)
			}
			require.NoError(t, b.EndBlock(h))
			var err error
			root, err = b.Commit()
			require.NoError(t, err)
		}
		return root
	}
	assert.Equal(t, run(len(txs)), run(1))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
