package app

const (
	// Name is reported to the consensus engine in Info
	Name = "db3"
	// Version is the node software version
	Version = "0.1.0"
	// AppVersion is the state machine protocol version
	AppVersion uint64 = 1
)
