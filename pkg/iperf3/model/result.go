// Package model contains the subset of the iperf3 JSON report (iperf3 -J)
// consumed by the wrapper.
package model

import "github.com/m-lab/iperf3-wrapper/pkg/iperf3/spec"

// Result is a complete iperf3 JSON report.
type Result struct {
	Start     Start      `json:"start"`
	Intervals []Interval `json:"intervals"`
	End       End        `json:"end"`
	// Error is set by iperf3 when the test failed. A Result with a non-empty
	// Error must not contribute to any aggregate.
	Error string `json:"error,omitempty"`
}

// Start describes the test setup.
type Start struct {
	Version      string       `json:"version,omitempty"`
	SystemInfo   string       `json:"system_info,omitempty"`
	Timestamp    Timestamp    `json:"timestamp"`
	ConnectingTo ConnectingTo `json:"connecting_to"`
	TestStart    TestStart    `json:"test_start"`
}

// Timestamp is the wall-clock time at which the test started.
type Timestamp struct {
	Time     string `json:"time"`
	Timesecs int64  `json:"timesecs"`
}

// ConnectingTo is the server the client connected to.
type ConnectingTo struct {
	Host string `json:"host"`
	Port int64  `json:"port"`
}

// TestStart holds the parameters the test ran with.
type TestStart struct {
	Protocol   string `json:"protocol"`
	NumStreams int64  `json:"num_streams"`
	Blksize    int64  `json:"blksize,omitempty"`
	Omit       int64  `json:"omit"`
	Duration   int64  `json:"duration"`
	Reverse    int64  `json:"reverse"`
	Bidir      int64  `json:"bidir,omitempty"`
}

// Interval is one reporting interval (one second by default).
type Interval struct {
	Streams []Stream `json:"streams"`
	Sum     Stream   `json:"sum"`
}

// Stream is a per-stream or aggregate interval sample. Optional fields are
// only reported by iperf3 on the sending side (TCP) or for UDP tests.
type Stream struct {
	Socket        int64   `json:"socket,omitempty"`
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	Seconds       float64 `json:"seconds"`
	Bytes         int64   `json:"bytes"`
	BitsPerSecond float64 `json:"bits_per_second"`
	Retransmits   int64   `json:"retransmits,omitempty"`
	SndCwnd       int64   `json:"snd_cwnd,omitempty"`
	// RTT and RTTVar are in microseconds.
	RTT         int64   `json:"rtt,omitempty"`
	RTTVar      int64   `json:"rttvar,omitempty"`
	PMTU        int64   `json:"pmtu,omitempty"`
	JitterMs    float64 `json:"jitter_ms,omitempty"`
	LostPackets int64   `json:"lost_packets,omitempty"`
	Packets     int64   `json:"packets,omitempty"`
	LostPercent float64 `json:"lost_percent,omitempty"`
	Omitted     bool    `json:"omitted"`
	Sender      bool    `json:"sender"`
}

// End holds the totals for the whole test.
type End struct {
	SumSent     Stream `json:"sum_sent"`
	SumReceived Stream `json:"sum_received"`
	// Sum is only reported for UDP tests.
	Sum                   Stream `json:"sum"`
	SenderTCPCongestion   string `json:"sender_tcp_congestion,omitempty"`
	ReceiverTCPCongestion string `json:"receiver_tcp_congestion,omitempty"`
}

// Direction returns the direction of the test. Reverse-mode tests are
// downstream.
func (r *Result) Direction() spec.Direction {
	if r.Start.TestStart.Reverse == 1 {
		return spec.DirectionDownstream
	}
	return spec.DirectionUpstream
}

// IsUDP returns whether the test used UDP.
func (r *Result) IsUDP() bool {
	return r.Start.TestStart.Protocol == "UDP"
}

// ReceivedBitsPerSecond returns the throughput measured at the receiver.
// Older iperf3 versions only report end.sum for UDP tests.
func (r *Result) ReceivedBitsPerSecond() float64 {
	if r.End.SumReceived.BitsPerSecond == 0 && r.IsUDP() {
		return r.End.Sum.BitsPerSecond
	}
	return r.End.SumReceived.BitsPerSecond
}
