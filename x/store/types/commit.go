package types

import (
	"fmt"
	"time"
)

// CommitInfo is the record persisted at every commit boundary
type CommitInfo struct {
	Height int64     `json:"height"`
	Root   []byte    `json:"root"`
	Time   time.Time `json:"time"`
}

func (ci CommitInfo) String() string {
	return fmt.Sprintf("CommitInfo{%d %X %s}", ci.Height, ci.Root, ci.Time.UTC().Format(time.RFC3339Nano))
}

const valueTag byte = 0x01

// EncodeValue maps a client value to its trie representation. The trie treats an
// empty value as a deletion, so every stored value carries a one byte tag.
func EncodeValue(v []byte) []byte {
	bz := make([]byte, len(v)+1)
	bz[0] = valueTag
	copy(bz[1:], v)
	return bz
}

func DecodeValue(bz []byte) ([]byte, error) {
	if len(bz) == 0 || bz[0] != valueTag {
		return nil, ErrCorrupted
	}
	return bz[1:], nil
}
