// Package aggregate aligns interval samples from concurrent tools on a
// common per-second time axis.
package aggregate

import (
	"encoding/json"
	"math"

	"github.com/charmbracelet/log"
	"github.com/m-lab/iperf3-wrapper/internal/parser"
	iperf3model "github.com/m-lab/iperf3-wrapper/pkg/iperf3/model"
	"github.com/m-lab/iperf3-wrapper/pkg/iperf3/spec"
	pingmodel "github.com/m-lab/iperf3-wrapper/pkg/ping/model"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Bucket holds every sample that falls in one wall-clock second.
type Bucket struct {
	Ping    *pingmodel.Packet                             `json:"ping,omitempty"`
	Sum     map[spec.Direction]iperf3model.Stream         `json:"sum,omitempty"`
	Streams map[spec.Direction]map[int]iperf3model.Stream `json:"streams,omitempty"`
}

// Intervals accumulates samples into Buckets keyed by unix second. Adding
// the same result twice leaves the Intervals unchanged.
type Intervals struct {
	buckets map[int64]*Bucket
}

// New returns empty Intervals.
func New() *Intervals {
	return &Intervals{buckets: make(map[int64]*Bucket)}
}

func (iv *Intervals) bucket(ts int64) *Bucket {
	b, ok := iv.buckets[ts]
	if !ok {
		b = &Bucket{}
		iv.buckets[ts] = b
	}
	return b
}

// Second rounds a fractional offset or timestamp to a whole second. Halves
// round to the nearest even second.
func Second(x float64) int64 {
	return int64(math.RoundToEven(x))
}

// AddThroughput merges the intervals of an iperf3 report. Each interval
// lands in the bucket start.timestamp.timesecs + round(interval.sum.start).
// Reports carrying an error are ignored.
func (iv *Intervals) AddThroughput(r *iperf3model.Result) {
	if r == nil || r.Error != "" {
		return
	}
	dir := r.Direction()
	for _, interval := range r.Intervals {
		b := iv.bucket(r.Start.Timestamp.Timesecs + Second(interval.Sum.Start))
		if b.Sum == nil {
			b.Sum = make(map[spec.Direction]iperf3model.Stream)
		}
		b.Sum[dir] = interval.Sum
		if b.Streams == nil {
			b.Streams = make(map[spec.Direction]map[int]iperf3model.Stream)
		}
		if b.Streams[dir] == nil {
			b.Streams[dir] = make(map[int]iperf3model.Stream)
		}
		for i, s := range interval.Streams {
			b.Streams[dir][i] = s
		}
	}
}

// AddLatency merges the per-packet samples of a ping result. Each packet
// lands in the bucket round(unix_time).
func (iv *Intervals) AddLatency(r *pingmodel.Result) {
	if r == nil {
		return
	}
	for _, p := range r.Packets {
		p := p
		iv.bucket(Second(p.UnixTime)).Ping = &p
	}
}

// Add merges every output without an error.
func (iv *Intervals) Add(outputs []parser.Output) {
	for _, out := range outputs {
		if out.Err != nil {
			log.Debug("skipping output with error", "command", out.Command.String())
			continue
		}
		iv.AddThroughput(out.Throughput)
		iv.AddLatency(out.Latency)
	}
}

// Len returns the number of buckets.
func (iv *Intervals) Len() int {
	return len(iv.buckets)
}

// Timestamps returns the bucket keys in increasing order.
func (iv *Intervals) Timestamps() []int64 {
	keys := maps.Keys(iv.buckets)
	slices.Sort(keys)
	return keys
}

// Bucket returns the bucket for the given second, or nil.
func (iv *Intervals) Bucket(ts int64) *Bucket {
	return iv.buckets[ts]
}

// MarshalJSON marshals the buckets as an object keyed by unix second.
func (iv *Intervals) MarshalJSON() ([]byte, error) {
	return json.Marshal(iv.buckets)
}
