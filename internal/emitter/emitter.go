// Package emitter presents run progress and results to the user.
package emitter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/m-lab/iperf3-wrapper/internal/bdp"
	"github.com/m-lab/iperf3-wrapper/internal/command"
	"github.com/m-lab/iperf3-wrapper/internal/summary"
)

// Emitter is an interface for emitting results.
type Emitter interface {
	// OnStart is called when an iteration of a scenario starts.
	OnStart(mode string, iteration, total int)
	// OnCommand is called for every command about to be launched.
	OnCommand(c command.Command)
	// OnSummary is called when the summary of a run is ready.
	OnSummary(s *summary.Summary)
	// OnGrade is called with the bufferbloat grade of a run.
	OnGrade(g summary.Grade, increase float64)
	// OnBDP is called with a bandwidth-delay product estimation.
	OnBDP(r bdp.Report)
	// OnError is called on errors that do not stop the run.
	OnError(err error)
}

var titleStyle = lipgloss.NewStyle().Bold(true)

// HumanReadable prints tables to Out.
type HumanReadable struct {
	Out io.Writer
	// Quiet suppresses all output.
	Quiet bool
}

// OnStart prints the scenario and iteration.
func (h HumanReadable) OnStart(mode string, iteration, total int) {
	if h.Quiet {
		return
	}
	fmt.Fprintf(h.Out, "Starting %s test (iteration %d/%d)\n", mode, iteration+1, total)
}

// OnCommand prints the command line.
func (h HumanReadable) OnCommand(c command.Command) {
	if h.Quiet {
		return
	}
	fmt.Fprintf(h.Out, "  %s\n", c.String())
}

func rate(s *summary.Summary, name string) string {
	v, ok := s.Get(name)
	if !ok {
		return summary.NotAvailable
	}
	bps, err := strconv.ParseFloat(v, 64)
	if err != nil || bps == 0 {
		return summary.NotAvailable
	}
	return summary.HumanReadable(bps) + "bps"
}

func withUnit(s *summary.Summary, name, unit string) string {
	v := s.Display(name)
	if v == summary.NotAvailable {
		return v
	}
	return v + unit
}

// OnSummary prints the summary as a table with one row for iperf3 and one
// for ICMP. Missing metrics are shown as N/A.
func (h HumanReadable) OnSummary(s *summary.Summary) {
	if h.Quiet {
		return
	}
	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		Headers("type", "rx", "tx", "rtt avg", "rtt min", "rtt max", "rtt mdev", "pckts_loss").
		Row("iperf3",
			rate(s, "downstream_bits_per_second"),
			rate(s, "upstream_bits_per_second"),
			withUnit(s, "tcp_rtt_avg", " ms"),
			withUnit(s, "tcp_rtt_min", " ms"),
			withUnit(s, "tcp_rtt_max", " ms"),
			withUnit(s, "tcp_rtt_mdev", " ms"),
			"").
		Row("ICMP",
			withUnit(s, "icmp_pckts_tx", " pckts"),
			withUnit(s, "icmp_pckts_rx", " pckts"),
			withUnit(s, "icmp_rtt_avg", " ms"),
			withUnit(s, "icmp_rtt_min", " ms"),
			withUnit(s, "icmp_rtt_max", " ms"),
			withUnit(s, "icmp_rtt_mdev", " ms"),
			withUnit(s, "icmp_pckts_loss_perc", "%"))
	fmt.Fprintln(h.Out, titleStyle.Render("Summary Stats (runtime: "+s.Display("timestamp")+")"))
	fmt.Fprintln(h.Out, t.Render())
	if p50, ok := s.Get("icmp_rtt_p50"); ok {
		fmt.Fprintf(h.Out, "ICMP rtt percentiles: p50 %s ms, p90 %s ms, p99 %s ms\n",
			p50, s.Display("icmp_rtt_p90"), s.Display("icmp_rtt_p99"))
	}
}

// OnGrade prints the bufferbloat grade.
func (h HumanReadable) OnGrade(g summary.Grade, increase float64) {
	if h.Quiet {
		return
	}
	fmt.Fprintf(h.Out, "bufferbloat grade: %s (latency increase %s ms)\n", g, summary.FormatFloat(increase))
}

// OnBDP prints the throughput limits implied by the TCP buffers and RTT.
func (h HumanReadable) OnBDP(r bdp.Report) {
	if h.Quiet {
		return
	}
	fmt.Fprintln(h.Out, titleStyle.Render("BDP (Bandwidth-delay Product) calculation"))
	fmt.Fprintf(h.Out, "host: %s\n", r.Host)
	fmt.Fprintf(h.Out, "rtt min: %s ms, rtt avg: %s ms\n",
		summary.FormatFloat(summary.Round(r.RTTMin, 2)), summary.FormatFloat(summary.Round(r.RTTAvg, 2)))
	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		Headers("direction", "max buffer", "tput @ rtt min", "tput @ rtt avg").
		Row("sending (upload)",
			summary.HumanReadable(r.WMem)+"bytes",
			summary.HumanReadable(bdp.MaxThroughput(r.WMem, r.RTTMin))+"bps",
			summary.HumanReadable(bdp.MaxThroughput(r.WMem, r.RTTAvg))+"bps").
		Row("receiving (download)",
			summary.HumanReadable(r.RMem)+"bytes",
			summary.HumanReadable(bdp.MaxThroughput(r.RMem, r.RTTMin))+"bps",
			summary.HumanReadable(bdp.MaxThroughput(r.RMem, r.RTTAvg))+"bps")
	fmt.Fprintln(h.Out, t.Render())
	fmt.Fprintf(h.Out, "buffer required for %sbps: %sbytes at rtt min, %sbytes at rtt avg\n",
		summary.HumanReadable(bdp.TargetBitsPerSecond),
		summary.HumanReadable(bdp.RequiredBuffer(r.RTTMin, bdp.TargetBitsPerSecond)),
		summary.HumanReadable(bdp.RequiredBuffer(r.RTTAvg, bdp.TargetBitsPerSecond)))
}

// OnError prints the error.
func (h HumanReadable) OnError(err error) {
	if h.Quiet {
		return
	}
	fmt.Fprintln(h.Out, "error:", err)
}

// Checks that HumanReadable implements Emitter.
var _ Emitter = &HumanReadable{}
