package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	mutationtypes "github.com/datachainlab/db3/x/mutation/types"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/libs/log"
)

const (
	FlagPublicHost        = "public-host"
	FlagPublicGRPCPort    = "public-grpc-port"
	FlagPublicJSONRPCPort = "public-json-rpc-port"
	FlagABCIPort          = "abci-port"
	FlagTMPort            = "tm-port"
	FlagReadBufSize       = "read-buf-size"
	FlagVerbose           = "verbose"
	FlagQuiet             = "quiet"
	FlagDBPath            = "db-path"
	FlagTxTimeout         = "tx-timeout"
	FlagCacheSize         = "cache-size"
	FlagMaxScan           = "max-scan"
	FlagMaxKeySize        = "max-key-size"
	FlagMaxValueSize      = "max-value-size"
	FlagMaxOps            = "max-ops"

	// EnvPrefix prefixes the environment variables read by viper, e.g. DB3_DB_PATH
	EnvPrefix = "DB3"
)

// Config is the node configuration
type Config struct {
	PublicHost        string        `mapstructure:"public-host"`
	PublicGRPCPort    uint16        `mapstructure:"public-grpc-port"`
	PublicJSONRPCPort uint16        `mapstructure:"public-json-rpc-port"`
	ABCIPort          uint16        `mapstructure:"abci-port"`
	TMPort            uint16        `mapstructure:"tm-port"`
	ReadBufSize       int           `mapstructure:"read-buf-size"`
	Verbose           bool          `mapstructure:"verbose"`
	Quiet             bool          `mapstructure:"quiet"`
	DBPath            string        `mapstructure:"db-path"`
	TxTimeout         time.Duration `mapstructure:"tx-timeout"`
	CacheSize         int           `mapstructure:"cache-size"`
	MaxScan           uint32        `mapstructure:"max-scan"`

	mutationtypes.Limits `mapstructure:",squash"`
}

func DefaultConfig() Config {
	return Config{
		PublicHost:        "127.0.0.1",
		PublicGRPCPort:    26659,
		PublicJSONRPCPort: 26670,
		ABCIPort:          26658,
		TMPort:            26657,
		ReadBufSize:       1 << 20,
		DBPath:            "./db",
		TxTimeout:         5 * time.Second,
		CacheSize:         1024,
		MaxScan:           100,
		Limits:            mutationtypes.DefaultLimits(),
	}
}

// AddFlags registers the node flags with their default values
func AddFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String(FlagPublicHost, d.PublicHost, "Bind the gRPC and JSON-RPC servers to this host")
	fs.Uint16(FlagPublicGRPCPort, d.PublicGRPCPort, "Port of the gRPC API")
	fs.Uint16(FlagPublicJSONRPCPort, d.PublicJSONRPCPort, "Port of the JSON-RPC API")
	fs.Uint16(FlagABCIPort, d.ABCIPort, "Bind the ABCI server to this local port")
	fs.Uint16(FlagTMPort, d.TMPort, "RPC port of the local tendermint node")
	fs.IntP(FlagReadBufSize, "r", d.ReadBufSize, "Read buffer size, in bytes, for each ABCI connection")
	fs.BoolP(FlagVerbose, "v", false, "Increase logging verbosity to debug level")
	fs.BoolP(FlagQuiet, "q", false, "Suppress all logging (overrides --verbose)")
	fs.StringP(FlagDBPath, "d", d.DBPath, "Directory of the authenticated store")
	fs.Duration(FlagTxTimeout, d.TxTimeout, "Time budget of a single CheckTx or DeliverTx")
	fs.Int(FlagCacheSize, d.CacheSize, "Number of point reads cached at the latest height, 0 to disable")
	fs.Uint32(FlagMaxScan, d.MaxScan, "Maximum number of entries returned by one scan")
	fs.Int(FlagMaxKeySize, d.MaxKeySize, "Maximum key size in bytes, 0 for no limit")
	fs.Int(FlagMaxValueSize, d.MaxValueSize, "Maximum value size in bytes, 0 for no limit")
	fs.Int(FlagMaxOps, d.MaxOps, "Maximum number of operations in one mutation, 0 for no limit")
}

// NewViper returns a viper instance reading DB3_* environment variables
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	return v
}

// Load reads the configuration from v, on top of the defaults
func Load(v *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.PublicHost == "":
		return errors.New("public host must not be empty")
	case c.PublicGRPCPort == 0, c.PublicJSONRPCPort == 0, c.ABCIPort == 0, c.TMPort == 0:
		return errors.New("ports must not be zero")
	case c.ReadBufSize <= 0:
		return fmt.Errorf("read buffer size must be positive, got %d", c.ReadBufSize)
	case c.DBPath == "":
		return errors.New("db path must not be empty")
	case c.TxTimeout < 0:
		return fmt.Errorf("negative tx timeout %v", c.TxTimeout)
	case c.CacheSize < 0:
		return fmt.Errorf("negative cache size %d", c.CacheSize)
	case c.MaxKeySize < 0, c.MaxValueSize < 0, c.MaxOps < 0:
		return errors.New("limits must not be negative")
	}
	return nil
}

// Logger returns the node logger for the configured verbosity
func (c Config) Logger(w io.Writer) log.Logger {
	if c.Quiet {
		return log.NewNopLogger()
	}
	logger := log.NewTMLogger(log.NewSyncWriter(w))
	if c.Verbose {
		return log.NewFilter(logger, log.AllowDebug())
	}
	return log.NewFilter(logger, log.AllowInfo())
}

// ABCIAddr is always local: only the co-located tendermint node connects to it
func (c Config) ABCIAddr() string {
	return "tcp://" + hostPort("127.0.0.1", c.ABCIPort)
}

func (c Config) GRPCAddr() string {
	return hostPort(c.PublicHost, c.PublicGRPCPort)
}

func (c Config) JSONRPCAddr() string {
	return hostPort(c.PublicHost, c.PublicJSONRPCPort)
}

// TendermintAddr is the RPC endpoint transactions are broadcast to
func (c Config) TendermintAddr() string {
	return "tcp://" + hostPort("127.0.0.1", c.TMPort)
}

func hostPort(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}

var envKeyReplacer = strings.NewReplacer("-", "_")
