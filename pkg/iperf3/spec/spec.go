// Package spec contains constants for driving the iperf3 tool.
package spec

import "time"

const (
	// Program is the name of the iperf3 binary.
	Program = "iperf3"

	// DefaultPort is the iperf3 server's default listening port.
	DefaultPort = 5201

	// CompletionMarker is printed by iperf3 (in non-JSON mode) when a test
	// ran to completion. It is used to detect a free server port.
	CompletionMarker = "iperf Done."

	// ProbeConnectTimeout is the --connect-timeout value used while probing,
	// in milliseconds.
	ProbeConnectTimeout = 500

	// ProbeDeadline bounds a single probe invocation.
	ProbeDeadline = 10 * time.Second

	// ThroughputDelay is the stagger delay applied after launching an iperf3
	// client.
	ThroughputDelay = 100 * time.Millisecond
)

// Direction is the direction of a throughput test, as seen from the client.
type Direction string

const (
	// DirectionDownstream is a reverse-mode test (server sends).
	DirectionDownstream = Direction("downstream")

	// DirectionUpstream is a normal-mode test (client sends).
	DirectionUpstream = Direction("upstream")
)

// Flags understood by the wrapper when building iperf3 commands.
const (
	FlagClient   = "-c"
	FlagPort     = "-p"
	FlagTime     = "-t"
	FlagParallel = "-P"
	FlagJSON     = "-J"
	FlagReverse  = "-R"
	FlagUDP      = "-u"
	FlagBitrate  = "-b"
)
