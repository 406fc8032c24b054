package server

import (
	nodetypes "github.com/datachainlab/db3/x/node/types"
	storetypes "github.com/datachainlab/db3/x/store/types"
)

// SubmitRequest carries an encoded signed transaction
type SubmitRequest struct {
	Tx []byte `json:"tx"`
}

// SubmitResult reports whether the transaction entered the mempool.
// A rejection is not an error: Codespace and Code name the reason. When the
// engine rejects a transaction that passed the local check, Codespace is left
// empty if a local re-check does not reproduce the engine's code.
type SubmitResult struct {
	Hash      []byte `json:"hash"`
	Accepted  bool   `json:"accepted"`
	Codespace string `json:"codespace,omitempty"`
	Code      uint32 `json:"code"`
	Log       string `json:"log,omitempty"`
}

type GetRequest struct {
	Key    []byte `json:"key"`
	Prove  bool   `json:"prove"`
	Height int64  `json:"height"`
}

// ScanRequest pages through [Start, End). Limit zero means the server default.
type ScanRequest struct {
	Start  []byte `json:"start"`
	End    []byte `json:"end"`
	Limit  uint32 `json:"limit"`
	Height int64  `json:"height"`
}

type NonceRequest struct {
	Sender []byte `json:"sender"`
}

type NonceResult struct {
	Sender []byte `json:"sender"`
	Nonce  uint64 `json:"nonce"`
}

type StatusRequest struct{}

type StatusResult struct {
	Name    string          `json:"name"`
	Version string          `json:"version"`
	State   nodetypes.State `json:"state"`
}

type (
	GetResult  = storetypes.QueryResult
	ScanResult = storetypes.ScanResult
)
