package types

import (
	"bytes"
	"fmt"
)

type OpType uint32

const (
	OpTypePut OpType = iota + 1
	OpTypeDelete
)

func (t OpType) String() string {
	switch t {
	case OpTypePut:
		return "put"
	case OpTypeDelete:
		return "delete"
	default:
		return fmt.Sprintf("OpType(%d)", uint32(t))
	}
}

// Op is a single key/value mutation
type Op struct {
	Type  OpType `json:"type"`
	Key   []byte `json:"key"`
	Value []byte `json:"value,omitempty"`
}

func Put(key, value []byte) Op {
	return Op{Type: OpTypePut, Key: key, Value: value}
}

func Delete(key []byte) Op {
	return Op{Type: OpTypeDelete, Key: key}
}

func (op Op) Equal(other Op) bool {
	return op.Type == other.Type && bytes.Equal(op.Key, other.Key) && bytes.Equal(op.Value, other.Value)
}

func (op Op) String() string {
	switch op.Type {
	case OpTypePut:
		return fmt.Sprintf("Put{%X %X}", op.Key, op.Value)
	case OpTypeDelete:
		return fmt.Sprintf("Delete{%X}", op.Key)
	default:
		return fmt.Sprintf("Op{%v %X}", op.Type, op.Key)
	}
}

// Batch is an ordered list of ops staged for a single commit.
// Later ops on the same key override earlier ones.
type Batch struct {
	ops     []Op
	changes map[string]int
}

func NewBatch() *Batch {
	return &Batch{changes: make(map[string]int)}
}

func (b *Batch) Put(key, value []byte) {
	b.Append(Put(key, value))
}

func (b *Batch) Delete(key []byte) {
	b.Append(Delete(key))
}

func (b *Batch) Append(ops ...Op) {
	for _, op := range ops {
		b.ops = append(b.ops, op)
		b.changes[string(op.Key)] = len(b.ops) - 1
	}
}

// GetUpdatedValue returns the last staged op for key
func (b *Batch) GetUpdatedValue(key []byte) (value []byte, deleted bool, ok bool) {
	idx, ok := b.changes[string(key)]
	if !ok {
		return nil, false, false
	}
	op := b.ops[idx]
	return op.Value, op.Type == OpTypeDelete, true
}

func (b *Batch) Len() int {
	return len(b.ops)
}

// Ops returns the last op per key, ordered by its position in the batch
func (b *Batch) Ops() []Op {
	ops := make([]Op, 0, len(b.changes))
	for i, op := range b.ops {
		if b.changes[string(op.Key)] == i {
			ops = append(ops, op)
		}
	}
	return ops
}

func (b *Batch) Reset() {
	b.ops = nil
	b.changes = make(map[string]int)
}
