// Package fixtures provides canned tool outputs. They are used by dry runs
// and by tests, so both see byte-identical parser inputs.
package fixtures

import (
	"embed"
)

//go:embed canned
var canned embed.FS

const (
	// UpstreamFile is a 5s, 2-stream iperf3 upload report.
	UpstreamFile = "canned/iperf3_upstream.json"
	// DownstreamFile is a 5s, 2-stream iperf3 reverse-mode report.
	DownstreamFile = "canned/iperf3_downstream.json"
	// PingFile is a 10-packet `ping -D` output.
	PingFile = "canned/ping.log"
)

// Throughput returns the canned iperf3 report for the given direction.
func Throughput(reverse bool) string {
	if reverse {
		return mustRead(DownstreamFile)
	}
	return mustRead(UpstreamFile)
}

// Ping returns the canned ping output.
func Ping() string {
	return mustRead(PingFile)
}

func mustRead(name string) string {
	b, err := canned.ReadFile(name)
	if err != nil {
		// Embedded files are always present.
		panic(err)
	}
	return string(b)
}
