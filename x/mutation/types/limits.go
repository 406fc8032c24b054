package types

const (
	DefaultMaxKeySize   = 1 << 10
	DefaultMaxValueSize = 512 << 10
	DefaultMaxOps       = 1024
)

// Limits bounds the size of a single mutation. Zero disables a limit.
type Limits struct {
	MaxKeySize   int `json:"max_key_size" mapstructure:"max-key-size"`
	MaxValueSize int `json:"max_value_size" mapstructure:"max-value-size"`
	MaxOps       int `json:"max_ops" mapstructure:"max-ops"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxKeySize:   DefaultMaxKeySize,
		MaxValueSize: DefaultMaxValueSize,
		MaxOps:       DefaultMaxOps,
	}
}
