// Package servertest runs an in-memory node for RPC tests
package servertest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/datachainlab/db3/app"
	"github.com/datachainlab/db3/server"
	"github.com/datachainlab/db3/telemetry"
	mutationkeeper "github.com/datachainlab/db3/x/mutation/keeper"
	mutationtypes "github.com/datachainlab/db3/x/mutation/types"
	nodetypes "github.com/datachainlab/db3/x/node/types"
	storekeeper "github.com/datachainlab/db3/x/store/keeper"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/stretchr/testify/require"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
	dbm "github.com/tendermint/tm-db"
)

type Node struct {
	App     *app.Application
	Service *server.Service
	Metrics *telemetry.Metrics
	// Fatal is the error the application stopped on, if any
	Fatal error
}

// NewNode returns a node over an in-memory store, built on metadb if given
func NewNode(t *testing.T, metadb dbm.DB) *Node {
	if metadb == nil {
		metadb = dbm.NewMemDB()
	}
	logger := log.NewNopLogger()
	st, err := storekeeper.NewAuthStore(rawdb.NewMemoryDatabase(), metadb, logger)
	require.NoError(t, err)
	svc, err := storekeeper.NewStorageService(st, 16, logger)
	require.NoError(t, err)
	ci := svc.LastCommit()

	n := &Node{Metrics: telemetry.New()}
	bridge := app.NewBridge(
		svc,
		mutationkeeper.NewApplier(mutationtypes.PubKeyVerifier{}, mutationtypes.DefaultLimits(), logger),
		nodetypes.NewStateHolder(ci.Height, ci.Root, ci.Time),
		n.Metrics,
		logger,
	)
	n.App = app.NewApplication(bridge, time.Second, func(err error) { n.Fatal = err }, logger)
	n.Service = server.NewService(bridge, &blockBroadcaster{app: n.App}, 0, logger)
	return n
}

// blockBroadcaster orders every broadcast transaction into a block of its own
type blockBroadcaster struct {
	mtx sync.Mutex
	app *app.Application
}

var _ server.Broadcaster = (*blockBroadcaster)(nil)

func (b *blockBroadcaster) BroadcastTxSync(tx tmtypes.Tx) (*ctypes.ResultBroadcastTx, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	check := b.app.CheckTx(abci.RequestCheckTx{Tx: tx})
	if check.Code != abci.CodeTypeOK {
		return &ctypes.ResultBroadcastTx{Code: check.Code, Log: check.Log, Hash: tx.Hash()}, nil
	}
	height := b.app.Bridge().LastCommit().Height + 1
	b.app.BeginBlock(abci.RequestBeginBlock{Header: abci.Header{Height: height, Time: time.Now().UTC()}})
	b.app.DeliverTx(abci.RequestDeliverTx{Tx: tx})
	b.app.EndBlock(abci.RequestEndBlock{Height: height})
	b.app.Commit()
	return &ctypes.ResultBroadcastTx{Code: check.Code, Data: check.Data, Log: check.Log, Hash: tx.Hash()}, nil
}

// Submit is a shorthand for submitting through the service
func (n *Node) Submit(t *testing.T, tx []byte) server.SubmitResult {
	res, err := n.Service.Submit(context.Background(), server.SubmitRequest{Tx: tx})
	require.NoError(t, err)
	return res
}
