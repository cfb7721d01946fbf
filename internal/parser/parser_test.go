package parser_test

import (
	"errors"
	"testing"

	"github.com/m-lab/go/testingx"
	"github.com/m-lab/iperf3-wrapper/internal/command"
	"github.com/m-lab/iperf3-wrapper/internal/fixtures"
	"github.com/m-lab/iperf3-wrapper/internal/parser"
	"github.com/m-lab/iperf3-wrapper/internal/supervisor"
	"github.com/m-lab/iperf3-wrapper/pkg/iperf3/spec"
)

const totalLoss = `PING 10.0.0.1 (10.0.0.1) 56(84) bytes of data.

--- 10.0.0.1 ping statistics ---
5 packets transmitted, 0 received, +5 errors, 100% packet loss, time 4087ms
`

const duplicates = `PING 10.0.0.1 (10.0.0.1) 56(84) bytes of data.
[1645533777.102614] 64 bytes from 10.0.0.1: icmp_seq=1 ttl=60 time=5.00 ms
[1645533777.103001] 64 bytes from 10.0.0.1: icmp_seq=1 ttl=60 time=5.39 ms (DUP!)
[1645533778.104112] 64 bytes from 10.0.0.1: icmp_seq=2 ttl=60 time=6.10 ms

--- 10.0.0.1 ping statistics ---
2 packets transmitted, 2 received, +1 duplicates, 0% packet loss, time 1001ms
rtt min/avg/max/mdev = 5.000/5.496/6.100/0.455 ms
`

func TestParsePing(t *testing.T) {
	res, err := parser.ParsePing(fixtures.Ping())
	testingx.Must(t, err, "cannot parse ping fixture")
	if res.Stats.PacketsTransmitted != "10" || res.Stats.PacketsReceived != "10" {
		t.Errorf("packets = %s/%s, want 10/10", res.Stats.PacketsTransmitted, res.Stats.PacketsReceived)
	}
	if res.Stats.PacketLoss != "0" {
		t.Errorf("PacketLoss = %q, want \"0\"", res.Stats.PacketLoss)
	}
	if res.Stats.RTTAvg != "8.0" || res.Stats.RTTMin != "5.0" || res.Stats.RTTMax != "12.0" {
		t.Errorf("rtt = %+v, want min 5.0, avg 8.0, max 12.0", res.Stats)
	}
	if len(res.Packets) != 10 {
		t.Fatalf("len(Packets) = %d, want 10", len(res.Packets))
	}
	p := res.Packets[4]
	if p.ICMPSeq != 5 || p.ICMPTTL != 60 || p.ICMPTime != 12.0 || p.TargetHost != "172.16.1.238" {
		t.Errorf("Packets[4] = %+v", p)
	}
	if p.UnixTime < 1645533781 || p.UnixTime > 1645533782 {
		t.Errorf("Packets[4].UnixTime = %f", p.UnixTime)
	}
	if res.Target != "172.16.1.238" {
		t.Errorf("Target = %q", res.Target)
	}

	t.Run("output without an rtt line fails", func(t *testing.T) {
		_, err := parser.ParsePing(totalLoss)
		if !errors.Is(err, parser.ErrNoRTTSummary) {
			t.Errorf("ParsePing() error = %v, want %v", err, parser.ErrNoRTTSummary)
		}
	})
	t.Run("duplicate replies are accepted", func(t *testing.T) {
		res, err := parser.ParsePing(duplicates)
		testingx.Must(t, err, "cannot parse ping output with duplicates")
		if res.Stats.PacketsReceived != "2" || res.Stats.PacketLoss != "0" {
			t.Errorf("Stats = %+v, want 2 received and 0%% loss", res.Stats)
		}
		if res.Stats.RTTAvg != "5.496" {
			t.Errorf("RTTAvg = %q, want 5.496", res.Stats.RTTAvg)
		}
		if len(res.Packets) != 3 {
			t.Errorf("len(Packets) = %d, want 3", len(res.Packets))
		}
	})
	t.Run("output without any summary fails", func(t *testing.T) {
		_, err := parser.ParsePing("ping: unknown host\n")
		if !errors.Is(err, parser.ErrNoPacketSummary) {
			t.Errorf("ParsePing() error = %v, want %v", err, parser.ErrNoPacketSummary)
		}
	})
}

func TestParseThroughput(t *testing.T) {
	res, err := parser.ParseThroughput(fixtures.Throughput(false))
	testingx.Must(t, err, "cannot parse upstream fixture")
	if res.Direction() != spec.DirectionUpstream || res.IsUDP() {
		t.Errorf("Direction() = %s, IsUDP() = %v", res.Direction(), res.IsUDP())
	}
	if len(res.Intervals) != 5 || len(res.Intervals[0].Streams) != 2 {
		t.Fatalf("unexpected intervals: %d", len(res.Intervals))
	}
	if res.Intervals[0].Streams[0].RTT != 8000 {
		t.Errorf("RTT = %d, want 8000", res.Intervals[0].Streams[0].RTT)
	}

	res, err = parser.ParseThroughput(fixtures.Throughput(true))
	testingx.Must(t, err, "cannot parse downstream fixture")
	if res.Direction() != spec.DirectionDownstream {
		t.Errorf("Direction() = %s, want downstream", res.Direction())
	}
	if int64(res.ReceivedBitsPerSecond()) != 5000000000 {
		t.Errorf("ReceivedBitsPerSecond() = %f", res.ReceivedBitsPerSecond())
	}

	t.Run("a report carrying an error is a tool error", func(t *testing.T) {
		res, err := parser.ParseThroughput(`{"start": {}, "intervals": [], "end": {}, "error": "the server is busy running a test. try again later"}`)
		var te *parser.ToolError
		if !errors.As(err, &te) {
			t.Fatalf("ParseThroughput() error = %v, want a ToolError", err)
		}
		if res == nil || res.Error == "" {
			t.Errorf("ParseThroughput() did not return the errored report")
		}
	})
	t.Run("invalid JSON is malformed", func(t *testing.T) {
		_, err := parser.ParseThroughput("iperf3: error - unable to connect")
		if !errors.Is(err, parser.ErrMalformed) {
			t.Errorf("ParseThroughput() error = %v, want %v", err, parser.ErrMalformed)
		}
	})
}

func TestParse(t *testing.T) {
	upload := command.Command{Kind: command.KindThroughput, Program: spec.Program}
	tests := []struct {
		name    string
		result  supervisor.Result
		wantErr error
	}{
		{
			name:   "throughput output is dispatched by kind",
			result: supervisor.Result{Command: upload, Stdout: fixtures.Throughput(false), Completed: true},
		},
		{
			name:   "latency output is dispatched by kind",
			result: supervisor.Result{Command: command.Ping("h", 1, 0), Stdout: fixtures.Ping(), Completed: true},
		},
		{
			name:    "abandoned commands are not parsed",
			result:  supervisor.Result{Command: upload},
			wantErr: parser.ErrNotCompleted,
		},
		{
			name:    "probe output is not parsed",
			result:  supervisor.Result{Command: command.Probe("h", 5201), Completed: true},
			wantErr: parser.ErrUnsupportedKind,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := parser.Parse(tt.result)
			if !errors.Is(out.Err, tt.wantErr) {
				t.Fatalf("Parse() error = %v, want %v", out.Err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			switch tt.result.Command.Kind {
			case command.KindThroughput:
				if out.Throughput == nil || out.Latency != nil {
					t.Errorf("Parse() = %+v, want a throughput result", out)
				}
			case command.KindLatency:
				if out.Latency == nil || out.Throughput != nil {
					t.Errorf("Parse() = %+v, want a latency result", out)
				}
			}
		})
	}
}
