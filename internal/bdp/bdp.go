// Package bdp estimates throughput limits from TCP buffer sizes and RTT.
package bdp

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ProcDir is where the kernel exposes the TCP memory settings.
const ProcDir = "/proc/sys/net/ipv4"

// TargetBitsPerSecond is the reference rate used for buffer sizing.
const TargetBitsPerSecond = 10e9

// ReadMaxMem returns the maximum buffer size in bytes configured in
// dir/name, where name is "tcp_wmem" or "tcp_rmem". The file holds three
// whitespace-separated values (min, default, max).
func ReadMaxMem(dir, name string) (float64, error) {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(b))
	if len(fields) == 0 {
		return 0, fmt.Errorf("%s: empty file", name)
	}
	return strconv.ParseFloat(fields[len(fields)-1], 64)
}

// MaxThroughput returns the highest rate in bits per second a single TCP
// connection can reach with the given buffer (bytes) and RTT (ms).
func MaxThroughput(bufferBytes, rttMs float64) float64 {
	return bufferBytes * 8 / (rttMs / 1000)
}

// RequiredBuffer returns the buffer size in bytes needed to reach
// bitsPerSecond with the given RTT (ms).
func RequiredBuffer(rttMs, bitsPerSecond float64) float64 {
	return bitsPerSecond * (rttMs / 1000) / 8
}

// Report is the outcome of a BDP estimation.
type Report struct {
	Host string
	// RTTMin and RTTAvg are in milliseconds.
	RTTMin float64
	RTTAvg float64
	// WMem and RMem are the maximum send and receive buffers in bytes.
	WMem float64
	RMem float64
}

// NewReport reads the buffer settings from dir and returns a Report.
func NewReport(dir, host string, rttMin, rttAvg float64) (Report, error) {
	r := Report{Host: host, RTTMin: rttMin, RTTAvg: rttAvg}
	var err error
	if r.WMem, err = ReadMaxMem(dir, "tcp_wmem"); err != nil {
		return r, err
	}
	if r.RMem, err = ReadMaxMem(dir, "tcp_rmem"); err != nil {
		return r, err
	}
	return r, nil
}
