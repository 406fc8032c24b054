package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/datachainlab/db3/app"
	"github.com/datachainlab/db3/config"
	"github.com/datachainlab/db3/server"
	abciserver "github.com/datachainlab/db3/server/abci"
	dbgrpc "github.com/datachainlab/db3/server/grpc"
	"github.com/datachainlab/db3/server/jsonrpc"
	"github.com/datachainlab/db3/telemetry"
	mutationkeeper "github.com/datachainlab/db3/x/mutation/keeper"
	mutationtypes "github.com/datachainlab/db3/x/mutation/types"
	nodetypes "github.com/datachainlab/db3/x/node/types"
	storekeeper "github.com/datachainlab/db3/x/store/keeper"
	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/libs/log"
	rpcclient "github.com/tendermint/tendermint/rpc/client"
)

const (
	flagConfig      = "config"
	shutdownTimeout = 5 * time.Second
)

// NewNodeCmd returns the command starting the storage node
func NewNodeCmd() *cobra.Command {
	v := config.NewViper()
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Start the storage node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if file := v.GetString(flagConfig); file != "" {
				v.SetConfigFile(file)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger := cfg.Logger(os.Stdout)
			logger.Info("starting db3", "version", app.Version)
			return runNode(cfg, logger, haltFunc(logger))
		},
	}
	config.AddFlags(cmd.Flags())
	cmd.Flags().String(flagConfig, "", "Configuration file (toml, yaml or json)")
	return cmd
}

// haltFunc stops the process after a commit it could not persist
func haltFunc(logger log.Logger) func(error) {
	return func(err error) {
		logger.Error("node halted", "err", err)
		os.Exit(1)
	}
}

func runNode(cfg config.Config, logger log.Logger, halt func(error)) error {
	store, err := storekeeper.Open(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	storage, err := storekeeper.NewStorageService(store, cfg.CacheSize, logger)
	if err != nil {
		store.Close()
		return err
	}
	defer storage.Close()

	// the store persists its height; tendermint replays any later block during the handshake
	last := storage.LastCommit()
	metrics := telemetry.New()
	bridge := app.NewBridge(
		storage,
		mutationkeeper.NewApplier(mutationtypes.PubKeyVerifier{}, cfg.Limits, logger),
		nodetypes.NewStateHolder(last.Height, last.Root, last.Time),
		metrics,
		logger,
	)
	application := app.NewApplication(bridge, cfg.TxTimeout, halt, logger)

	tm, err := rpcclient.NewHTTP(cfg.TendermintAddr(), "/websocket")
	if err != nil {
		return fmt.Errorf("failed to create tendermint client: %w", err)
	}
	logger.Info("broadcasting transactions to tendermint", "addr", cfg.TendermintAddr())
	service := server.NewService(bridge, tm, cfg.MaxScan, logger)

	abciSrv := abciserver.NewServer(cfg.ABCIAddr(), application, cfg.ReadBufSize, logger)
	abciLis, err := abciSrv.Listen()
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ABCIAddr(), err)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		abciLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr(), err)
	}
	httpLis, err := net.Listen("tcp", cfg.JSONRPCAddr())
	if err != nil {
		abciLis.Close()
		grpcLis.Close()
		return fmt.Errorf("failed to listen on %s: %w", cfg.JSONRPCAddr(), err)
	}

	grpcSrv := dbgrpc.NewServer(service, metrics, logger)
	httpSrv := &http.Server{Handler: jsonrpc.NewGateway(service, metrics, logger).Handler()}

	errCh := make(chan error, 3)
	go func() { errCh <- abciSrv.Serve(abciLis) }()
	go func() {
		logger.Info("serving gRPC", "addr", grpcLis.Addr())
		errCh <- grpcSrv.Serve(grpcLis)
	}()
	go func() {
		logger.Info("serving JSON-RPC", "addr", httpLis.Addr())
		if err := httpSrv.Serve(httpLis); err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig)
	case runErr = <-errCh:
		logger.Error("listener stopped", "err", runErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("abnormal JSON-RPC shutdown", "err", err)
		httpSrv.Close()
	}
	grpcSrv.GracefulStop()
	if err := abciSrv.Stop(); err != nil {
		logger.Error("abnormal ABCI shutdown", "err", err)
	}
	return runErr
}
