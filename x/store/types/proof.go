package types

import (
	"bytes"
	"errors"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/tendermint/tendermint/crypto/merkle"
)

// ProofOpType is the merkle.ProofOp type of a Merkle-Patricia value proof
const ProofOpType = "mpt:v"

// EmptyRoot is the root of a trie without entries
var EmptyRoot = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// Proof proves that a trie key maps to a value, or to nothing, under a given root.
// Nodes are the RLP encoded trie nodes on the path from the root to the key.
type Proof struct {
	Key   []byte   `json:"key"`
	Nodes [][]byte `json:"nodes"`
}

// Verify checks the proof against root and returns the decoded client value.
// exists is false when the proof shows the key is absent.
func (p Proof) Verify(root []byte) (value []byte, exists bool, err error) {
	rootHash := common.BytesToHash(root)
	if len(p.Nodes) == 0 {
		if rootHash == EmptyRoot {
			return nil, false, nil
		}
		return nil, false, sdkerrors.Wrap(ErrInvalidProof, "no proof nodes")
	}
	nodes := NewProofNodes()
	for _, n := range p.Nodes {
		if err := nodes.Put(crypto.Keccak256(n), n); err != nil {
			return nil, false, err
		}
	}
	bz, _, err := trie.VerifyProof(rootHash, p.Key, nodes)
	if err != nil {
		return nil, false, sdkerrors.Wrap(ErrInvalidProof, err.Error())
	}
	if bz == nil {
		return nil, false, nil
	}
	value, err = DecodeValue(bz)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// VerifyItem checks that the proof binds key to value under root
func (p Proof) VerifyItem(root, key, value []byte) error {
	if !bytes.Equal(p.Key, DataKey(key)) {
		return sdkerrors.Wrapf(ErrInvalidProof, "proof is for key %X", p.Key)
	}
	v, ok, err := p.Verify(root)
	if err != nil {
		return err
	}
	if !ok {
		return sdkerrors.Wrapf(ErrInvalidProof, "key %X is absent", key)
	}
	if !bytes.Equal(v, value) {
		return sdkerrors.Wrapf(ErrInvalidProof, "value mismatch for key %X", key)
	}
	return nil
}

// VerifyAbsence checks that the proof shows key is absent under root
func (p Proof) VerifyAbsence(root, key []byte) error {
	if !bytes.Equal(p.Key, DataKey(key)) {
		return sdkerrors.Wrapf(ErrInvalidProof, "proof is for key %X", p.Key)
	}
	_, ok, err := p.Verify(root)
	if err != nil {
		return err
	}
	if ok {
		return sdkerrors.Wrapf(ErrInvalidProof, "key %X exists", key)
	}
	return nil
}

// ProofOp wraps the proof for a tendermint ResponseQuery
func (p Proof) ProofOp() merkle.ProofOp {
	return merkle.ProofOp{
		Type: ProofOpType,
		Key:  p.Key,
		Data: ModuleCdc.MustMarshalBinaryBare(p),
	}
}

func ProofFromOp(op merkle.ProofOp) (Proof, error) {
	var p Proof
	if op.Type != ProofOpType {
		return p, sdkerrors.Wrapf(ErrInvalidProof, "unexpected proof op type %q", op.Type)
	}
	if err := ModuleCdc.UnmarshalBinaryBare(op.Data, &p); err != nil {
		return p, sdkerrors.Wrap(ErrInvalidProof, err.Error())
	}
	return p, nil
}

// ProofNodes collects trie nodes keyed by their hash. It is the proof
// database handed to trie.Prove and trie.VerifyProof.
type ProofNodes struct {
	keys  []string
	nodes map[string][]byte
}

func NewProofNodes() *ProofNodes {
	return &ProofNodes{nodes: make(map[string][]byte)}
}

func (n *ProofNodes) Put(key, value []byte) error {
	if _, ok := n.nodes[string(key)]; !ok {
		n.keys = append(n.keys, string(key))
	}
	n.nodes[string(key)] = common.CopyBytes(value)
	return nil
}

func (n *ProofNodes) Delete(key []byte) error {
	return errors.New("proof nodes are append only")
}

func (n *ProofNodes) Has(key []byte) (bool, error) {
	_, ok := n.nodes[string(key)]
	return ok, nil
}

func (n *ProofNodes) Get(key []byte) ([]byte, error) {
	if v, ok := n.nodes[string(key)]; ok {
		return v, nil
	}
	return nil, errors.New("proof node not found")
}

// List returns the nodes in insertion order, root first
func (n *ProofNodes) List() [][]byte {
	list := make([][]byte, len(n.keys))
	for i, k := range n.keys {
		list[i] = n.nodes[k]
	}
	return list
}
