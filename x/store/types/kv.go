package types

// KV is a client key/value pair
type KV struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// QueryResult is a point read answered against a committed height
type QueryResult struct {
	Key    []byte `json:"key"`
	Value  []byte `json:"value,omitempty"`
	Exists bool   `json:"exists"`
	Proof  *Proof `json:"proof,omitempty"`
	Height int64  `json:"height"`
	Root   []byte `json:"root"`
}

// ScanResult is one page of a range scan. Next is the key to resume from,
// nil when the range is exhausted.
type ScanResult struct {
	Entries []KV   `json:"entries"`
	Next    []byte `json:"next,omitempty"`
	Height  int64  `json:"height"`
	Root    []byte `json:"root"`
}
