// Package spec contains constants for driving the ping tool.
package spec

import "time"

const (
	// Program is the name of the ping binary.
	Program = "ping"

	// FlagCount sets the number of echo requests.
	FlagCount = "-c"
	// FlagInterval sets the interval between echo requests.
	FlagInterval = "-i"
	// FlagTimestamps makes ping print a unix timestamp before each line.
	FlagTimestamps = "-D"

	// UnidirectionalExtraCount is added to the test time to get the number
	// of pings sent during a unidirectional run.
	UnidirectionalExtraCount = 4
	// UnidirectionalDelay is the stagger delay after launching ping in a
	// unidirectional run.
	UnidirectionalDelay = 2 * time.Second

	// BufferbloatExtraCount is added to the test time to get the number of
	// pings sent during a bufferbloat run.
	BufferbloatExtraCount = 10
	// BufferbloatDelay is the stagger delay after launching ping in a
	// bufferbloat run, so that an idle baseline is collected first.
	BufferbloatDelay = 5 * time.Second

	// BDPCount and BDPInterval configure the short ping used to estimate the
	// bandwidth-delay product.
	BDPCount    = 5
	BDPInterval = "0.2"
)
