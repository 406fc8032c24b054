package types

import (
	"encoding/binary"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
)

const (
	// ModuleName defines the module name
	ModuleName = "store"
)

const (
	KeyDataPrefix uint8 = iota + 1
	KeyNoncePrefix
)

// Client keys are escaped before they enter the trie: every 0x00 becomes
// 0x00 0xFF and the key ends with 0x00 0x01. Encoded keys are never a prefix
// of one another and compare in the same order as the client keys.
const (
	keyEscape     byte = 0x00
	keyEscaped    byte = 0xFF
	keyTerminator byte = 0x01
)

// DataKey returns the trie key under which a client key is stored
func DataKey(key []byte) []byte {
	k := make([]byte, 0, len(key)+3)
	k = append(k, KeyDataPrefix)
	for _, b := range key {
		if b == keyEscape {
			k = append(k, keyEscape, keyEscaped)
		} else {
			k = append(k, b)
		}
	}
	return append(k, keyEscape, keyTerminator)
}

// NonceKey returns the trie key of the last accepted nonce of sender.
// Sender addresses have a fixed length, so these keys need no escaping.
func NonceKey(sender []byte) []byte {
	return prefixed(KeyNoncePrefix, sender)
}

// ParseDataKey decodes a trie key back into the client key. ok is false for
// keys outside the data space or with a malformed encoding.
func ParseDataKey(k []byte) (key []byte, ok bool) {
	if len(k) < 3 || k[0] != KeyDataPrefix {
		return nil, false
	}
	key = make([]byte, 0, len(k)-3)
	for i := 1; i < len(k); i++ {
		if k[i] != keyEscape {
			key = append(key, k[i])
			continue
		}
		if i+1 >= len(k) {
			return nil, false
		}
		switch k[i+1] {
		case keyEscaped:
			key = append(key, keyEscape)
			i++
		case keyTerminator:
			if i+2 != len(k) {
				return nil, false
			}
			return key, true
		default:
			return nil, false
		}
	}
	return nil, false
}

// DataRange returns the trie key range [start, end) for a client range.
// A nil end means the end of the data space.
func DataRange(start, end []byte) ([]byte, []byte) {
	s := DataKey(start)
	if end == nil {
		return s, []byte{KeyDataPrefix + 1}
	}
	return s, DataKey(end)
}

func prefixed(prefix uint8, key []byte) []byte {
	k := make([]byte, len(key)+1)
	k[0] = prefix
	copy(k[1:], key)
	return k
}

func EncodeNonce(nonce uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, nonce)
	return bz
}

func DecodeNonce(bz []byte) (uint64, error) {
	if len(bz) != 8 {
		return 0, sdkerrors.Wrapf(ErrCorrupted, "nonce of %d bytes", len(bz))
	}
	return binary.BigEndian.Uint64(bz), nil
}
