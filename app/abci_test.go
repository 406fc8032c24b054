package app_test

import (
	"testing"
	"time"

	"github.com/datachainlab/db3/app"
	mutationtypes "github.com/datachainlab/db3/x/mutation/types"
	storetypes "github.com/datachainlab/db3/x/store/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/crypto/ed25519"
	"github.com/tendermint/tendermint/libs/log"
	dbm "github.com/tendermint/tm-db"
)

func runBlock(a *app.Application, height int64, txs ...[]byte) ([]abci.ResponseDeliverTx, abci.ResponseCommit) {
	a.BeginBlock(abci.RequestBeginBlock{Header: abci.Header{Height: height, Time: blockTime(height)}})
	var res []abci.ResponseDeliverTx
	for _, tx := range txs {
		res = append(res, a.DeliverTx(abci.RequestDeliverTx{Tx: tx}))
	}
	a.EndBlock(abci.RequestEndBlock{Height: height})
	return res, a.Commit()
}

func TestApplication(t *testing.T) {
	assert := assert.New(t)
	a := app.NewApplication(newBridge(t, nil), time.Second, nil, log.NewNopLogger())
	alice := ed25519.GenPrivKey()

	info := a.Info(abci.RequestInfo{})
	assert.Equal(app.Name, info.Data)
	assert.Equal(app.AppVersion, info.AppVersion)
	assert.Equal(int64(0), info.LastBlockHeight)
	assert.Empty(info.LastBlockAppHash)

	a.InitChain(abci.RequestInitChain{ChainId: "test", AppStateBytes: []byte(`{"entries":[{"key":"Z2VuZXNpcw==","value":"MQ=="}]}`)})

	tx := signed(t, alice, 1, storetypes.Put([]byte("a"), []byte("1")))
	check := a.CheckTx(abci.RequestCheckTx{Tx: tx})
	assert.Equal(abci.CodeTypeOK, check.Code)
	assert.Equal(mutationtypes.TxHash(tx), check.Data)

	bad := a.CheckTx(abci.RequestCheckTx{Tx: []byte("garbage")})
	assert.Equal(mutationtypes.ModuleName, bad.Codespace)
	assert.Equal(uint32(2), bad.Code)

	delivered, commit := runBlock(a, 1, tx, tx)
	assert.Equal(abci.CodeTypeOK, delivered[0].Code)
	assert.Equal(mutationtypes.ModuleName, delivered[1].Codespace)
	assert.Equal(uint32(4), delivered[1].Code)
	assert.NotEmpty(commit.Data)

	info = a.Info(abci.RequestInfo{})
	assert.Equal(int64(1), info.LastBlockHeight)
	assert.Equal(commit.Data, info.LastBlockAppHash)

	q := a.Query(abci.RequestQuery{Path: app.QueryPathKey, Data: []byte("a"), Prove: true})
	assert.Equal(abci.CodeTypeOK, q.Code)
	assert.Equal([]byte("1"), q.Value)
	assert.Equal(int64(1), q.Height)
	require.NotNil(t, q.Proof)
	require.Len(t, q.Proof.Ops, 1)
	proof, err := storetypes.ProofFromOp(q.Proof.Ops[0])
	require.NoError(t, err)
	assert.NoError(proof.VerifyItem(commit.Data, []byte("a"), []byte("1")))

	q = a.Query(abci.RequestQuery{Data: []byte("genesis")})
	assert.Equal([]byte("1"), q.Value)
	assert.Nil(q.Proof)

	q = a.Query(abci.RequestQuery{Path: app.QueryPathNonce, Data: alice.PubKey().Address()})
	assert.Equal(abci.CodeTypeOK, q.Code)
	assert.Equal(storetypes.EncodeNonce(1), q.Value)

	q = a.Query(abci.RequestQuery{Data: []byte("a"), Height: 7})
	assert.Equal(storetypes.ModuleName, q.Codespace)
	q = a.Query(abci.RequestQuery{Path: "/unknown"})
	assert.NotEqual(abci.CodeTypeOK, q.Code)
}

func TestApplicationCommitFailureIsFatal(t *testing.T) {
	assert := assert.New(t)
	metadb := &failingDB{DB: dbm.NewMemDB()}
	var fatal error
	a := app.NewApplication(newBridge(t, metadb), 0, func(err error) { fatal = err }, log.NewNopLogger())
	alice := ed25519.GenPrivKey()

	metadb.fail = true
	delivered, commit := runBlock(a, 1, signed(t, alice, 1, storetypes.Put([]byte("a"), []byte("1"))))
	assert.Equal(abci.CodeTypeOK, delivered[0].Code)
	assert.Empty(commit.Data)
	assert.True(storetypes.ErrStorage.Is(fatal))
	assert.Equal(app.PhaseHalted, a.Bridge().Phase())

	check := a.CheckTx(abci.RequestCheckTx{Tx: signed(t, alice, 1)})
	assert.Equal(app.ModuleName, check.Codespace)
}

func TestApplicationInvalidGenesisIsFatal(t *testing.T) {
	var fatal error
	a := app.NewApplication(newBridge(t, nil), 0, func(err error) { fatal = err }, log.NewNopLogger())
	a.InitChain(abci.RequestInitChain{AppStateBytes: []byte(`{"entries":[{"value":"MQ=="}]}`)})
	assert.True(t, app.ErrInvalidGenesis.Is(fatal))

	fatal = nil
	a.InitChain(abci.RequestInitChain{AppStateBytes: []byte(`not json`)})
	assert.True(t, app.ErrInvalidGenesis.Is(fatal))
}
