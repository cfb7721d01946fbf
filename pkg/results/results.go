// Package results contains the archival format of a wrapper run.
package results

import (
	"time"

	iperf3model "github.com/m-lab/iperf3-wrapper/pkg/iperf3/model"
	pingmodel "github.com/m-lab/iperf3-wrapper/pkg/ping/model"
)

// Archive is the struct that is serialized as JSON to disk as the archival
// record of a single scenario run.
type Archive struct {
	// GitShortCommit is the Git commit (short form) of the running code.
	GitShortCommit string
	// Version is the symbolic version (if any) of the running code.
	Version string

	// ID uniquely identifies this run. It is also reported in the summary.
	ID string
	// Mode is the scenario that was run (e.g. "unidirectional").
	Mode string
	// Iteration is the zero-based iteration index within the invocation.
	Iteration int
	// Description is the free-form description given by the user.
	Description string

	// StartTime is the time when the first process was launched.
	StartTime time.Time
	// EndTime is the time when the last result was collected.
	EndTime time.Time

	// Commands lists the processes that were run and how they ended.
	Commands []CommandRecord
	// Throughput holds the parsed iperf3 reports.
	Throughput []iperf3model.Result
	// Latency holds the parsed ping outputs.
	Latency []pingmodel.Result
	// Summary is the flat list of summary metrics.
	Summary []NameValue
}

// CommandRecord describes one supervised process.
type CommandRecord struct {
	// Kind is the command kind (throughput, latency).
	Kind string
	// Command is the rendered command line.
	Command string
	// PID is the process ID, or zero if the process never started.
	PID int
	// Completed is false when the process was killed at the timeout.
	Completed bool
	// Error is the launch or parse error, if any.
	Error string `json:",omitempty"`
}
