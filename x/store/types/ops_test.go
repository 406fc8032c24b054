package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBatch(t *testing.T) {
	var P = func(k, v string) Op {
		return Put([]byte(k), []byte(v))
	}
	var D = func(k string) Op {
		return Delete([]byte(k))
	}

	var cases = []struct {
		inputs []Op
		ops    []Op
	}{
		{
			[]Op{},
			[]Op{},
		},
		{
			[]Op{P("k1", "v1-1")},
			[]Op{P("k1", "v1-1")},
		},
		{
			[]Op{P("k1", "v1-1"), P("k2", "v2-1")},
			[]Op{P("k1", "v1-1"), P("k2", "v2-1")},
		},
		{
			[]Op{P("k1", "v1-1"), P("k1", "v1-2")},
			[]Op{P("k1", "v1-2")},
		},
		{
			[]Op{P("k1", "v1-1"), P("k2", "v2-1"), D("k1")},
			[]Op{P("k2", "v2-1"), D("k1")},
		},
		{
			[]Op{D("k1"), P("k1", "v1-1")},
			[]Op{P("k1", "v1-1")},
		},
	}

	for i, cs := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			require := require.New(t)
			b := NewBatch()
			b.Append(cs.inputs...)
			require.Equal(len(cs.inputs), b.Len())
			ops := b.Ops()
			require.Len(ops, len(cs.ops))
			for j := range ops {
				require.True(cs.ops[j].Equal(ops[j]), "%v != %v", cs.ops[j], ops[j])
			}

			b.Reset()
			require.Equal(0, b.Len())
			require.Len(b.Ops(), 0)
		})
	}
}

func TestBatchGetUpdatedValue(t *testing.T) {
	require := require.New(t)
	b := NewBatch()

	_, _, ok := b.GetUpdatedValue([]byte("k"))
	require.False(ok)

	b.Put([]byte("k"), []byte("v"))
	v, deleted, ok := b.GetUpdatedValue([]byte("k"))
	require.True(ok)
	require.False(deleted)
	require.Equal([]byte("v"), v)

	b.Delete([]byte("k"))
	_, deleted, ok = b.GetUpdatedValue([]byte("k"))
	require.True(ok)
	require.True(deleted)
}
