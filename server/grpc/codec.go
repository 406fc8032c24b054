package grpc

import (
	"github.com/datachainlab/db3/app"
	amino "github.com/tendermint/go-amino"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype of the amino wire codec
const CodecName = "amino"

func init() {
	encoding.RegisterCodec(aminoCodec{cdc: app.MakeCodec()})
}

type aminoCodec struct {
	cdc *amino.Codec
}

func (c aminoCodec) Marshal(v interface{}) ([]byte, error) {
	return c.cdc.MarshalBinaryBare(v)
}

func (c aminoCodec) Unmarshal(data []byte, v interface{}) error {
	return c.cdc.UnmarshalBinaryBare(data, v)
}

func (aminoCodec) Name() string {
	return CodecName
}
