package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/m-lab/iperf3-wrapper/internal/config"
	iperf3 "github.com/m-lab/iperf3-wrapper/pkg/iperf3/spec"
	ping "github.com/m-lab/iperf3-wrapper/pkg/ping/spec"
)

// Throughput returns the iperf3 client Spec described by cfg. The port flag
// carries the first candidate port; callers replace it with a probed port.
func Throughput(cfg *config.Config) *Spec {
	s := NewSpec(KindThroughput, iperf3.Program)
	s.Delay = iperf3.ThroughputDelay
	s.Set(iperf3.FlagClient, cfg.Host)
	port := strconv.Itoa(iperf3.DefaultPort)
	if ports := ExpandPorts(cfg.Port); len(ports) > 0 {
		port = strconv.Itoa(ports[0])
	}
	s.Set(iperf3.FlagPort, port)
	s.Set(iperf3.FlagTime, strconv.Itoa(cfg.Time))
	s.Set(iperf3.FlagParallel, cfg.Parallel)
	s.Toggle(iperf3.FlagJSON)
	if cfg.Reverse {
		s.Toggle(iperf3.FlagReverse)
	}
	if cfg.UDP {
		s.Toggle(iperf3.FlagUDP)
	}
	if cfg.Bitrate != "" {
		s.Set(iperf3.FlagBitrate, cfg.Bitrate)
	}
	s.Extra = strings.Fields(cfg.ExtraArgs)
	return s
}

// Ping returns a timestamped ping of host sending count echo requests.
func Ping(host string, count int, delay time.Duration) Command {
	return Command{
		Kind:    KindLatency,
		Program: ping.Program,
		Flags: []Flag{
			{Value: host},
			{Name: ping.FlagCount, Value: strconv.Itoa(count)},
			{Name: ping.FlagTimestamps},
		},
		Delay: delay,
	}
}

// Probe returns the short iperf3 run used to check whether port is free on
// host.
func Probe(host string, port int) Command {
	return Command{
		Kind:    KindProbe,
		Program: iperf3.Program,
		Flags: []Flag{
			{Name: "-4"},
			{Name: iperf3.FlagClient, Value: host},
			{Name: iperf3.FlagTime, Value: "1"},
			{Name: iperf3.FlagParallel, Value: "1"},
			{Name: iperf3.FlagPort, Value: strconv.Itoa(port)},
			{Name: "--connect-timeout", Value: strconv.Itoa(iperf3.ProbeConnectTimeout)},
		},
	}
}
