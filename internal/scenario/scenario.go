// Package scenario runs measurement scenarios: it prepares the commands,
// probes server ports, supervises the processes, and aggregates, displays
// and exports the results.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/m-lab/iperf3-wrapper/internal/aggregate"
	"github.com/m-lab/iperf3-wrapper/internal/bdp"
	"github.com/m-lab/iperf3-wrapper/internal/command"
	"github.com/m-lab/iperf3-wrapper/internal/config"
	"github.com/m-lab/iperf3-wrapper/internal/emitter"
	"github.com/m-lab/iperf3-wrapper/internal/metrics"
	"github.com/m-lab/iperf3-wrapper/internal/parser"
	"github.com/m-lab/iperf3-wrapper/internal/summary"
	"github.com/m-lab/iperf3-wrapper/internal/supervisor"
	iperf3 "github.com/m-lab/iperf3-wrapper/pkg/iperf3/spec"
	ping "github.com/m-lab/iperf3-wrapper/pkg/ping/spec"
)

// Mode selects the scenario to run.
type Mode string

const (
	// ModeUnidirectional runs ping alongside a single iperf3 test.
	ModeUnidirectional = Mode("unidirectional")
	// ModeBufferbloat runs ping alongside concurrent download and upload
	// tests and grades the latency increase.
	ModeBufferbloat = Mode("bufferbloat")
	// ModeAll runs download, upload and bufferbloat in every iteration.
	ModeAll = Mode("all")
	// ModeProbe estimates throughput limits from iperf3 stream RTTs.
	ModeProbe = Mode("probe")
	// ModeBDP estimates throughput limits from ping RTTs.
	ModeBDP = Mode("bdp")
)

// Tag returns the tag used in result file names.
func (m Mode) Tag() string {
	switch m {
	case ModeUnidirectional:
		return "ST"
	case ModeBufferbloat:
		return "BBT"
	case ModeAll:
		return "ALL"
	}
	return string(m)
}

// Subtests of a run, as reported in archives.
const (
	SubtestDownload    = "download"
	SubtestUpload      = "upload"
	SubtestBufferbloat = "bufferbloat"
)

// ErrNoRTT is returned by the probe scenario when iperf3 reported no RTT.
var ErrNoRTT = errors.New("no stream RTT reported")

// Supervisor runs a batch of commands.
type Supervisor interface {
	Run(ctx context.Context, batch []command.Command) []supervisor.Result
}

// Prober finds free server ports.
type Prober interface {
	FreePorts(ctx context.Context, host string, candidates []int, n int) ([]int, error)
}

// Run is the outcome of one scenario run.
type Run struct {
	ID        string
	Subtest   string
	Iteration int
	Start     time.Time
	End       time.Time
	Commands  []command.Command
	Results   []supervisor.Result
	Outputs   []parser.Output
	Intervals *aggregate.Intervals
	Summary   *summary.Summary
}

// Orchestrator runs scenarios as configured.
type Orchestrator struct {
	cfg        *config.Config
	supervisor Supervisor
	prober     Prober
	emitter    emitter.Emitter
	procDir    string
	now        func() time.Time
	state      State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProcDir sets where TCP memory settings are read from.
func WithProcDir(dir string) Option {
	return func(o *Orchestrator) { o.procDir = dir }
}

// WithClock sets the function used to read the current time.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New returns an Orchestrator. The prober is only used when probing is
// enabled and may be nil otherwise.
func New(cfg *config.Config, sup Supervisor, prober Prober, em emitter.Emitter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg,
		supervisor: sup,
		prober:     prober,
		emitter:    em,
		procDir:    bdp.ProcDir,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run runs the scenario selected by mode. Measurement scenarios are
// repeated cfg.Iterations times and their results exported together.
func (o *Orchestrator) Run(ctx context.Context, mode Mode) ([]*Run, error) {
	if o.cfg.TimeoutDuration() < time.Duration(o.cfg.Time)*time.Second+config.StartupOverhead {
		log.Warn("timeout may be too short for the test time",
			"timeout", o.cfg.TimeoutDuration(), "time", o.cfg.Time)
	}
	switch mode {
	case ModeProbe:
		return nil, o.Probe(ctx)
	case ModeBDP:
		return nil, o.BDP(ctx)
	case ModeUnidirectional, ModeBufferbloat, ModeAll:
		return o.iterate(ctx, mode)
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}

func (o *Orchestrator) iterate(ctx context.Context, mode Mode) ([]*Run, error) {
	start := o.now()
	variants := command.Throughput(o.cfg).Build()
	var runs []*Run
	for i := 0; i < o.cfg.Iterations; i++ {
		if i > 0 {
			log.Debug("sleeping between iterations", "sleep", o.cfg.SleepDuration())
			if err := sleep(ctx, o.cfg.SleepDuration()); err != nil {
				return runs, err
			}
		}
		o.emitter.OnStart(string(mode), i, o.cfg.Iterations)
		for _, base := range variants {
			r, err := o.scenario(ctx, mode, base, i)
			runs = append(runs, r...)
			if err != nil {
				return runs, err
			}
		}
	}
	return runs, o.Export(mode, start, runs)
}

func (o *Orchestrator) scenario(ctx context.Context, mode Mode, base command.Command, iteration int) ([]*Run, error) {
	switch mode {
	case ModeUnidirectional:
		r, err := o.Unidirectional(ctx, base, iteration)
		return nonNil(r), err
	case ModeBufferbloat:
		r, err := o.Bufferbloat(ctx, base, iteration)
		return nonNil(r), err
	}
	return o.All(ctx, base, iteration)
}

func nonNil(r *Run) []*Run {
	if r == nil {
		return nil
	}
	return []*Run{r}
}

// Unidirectional runs ping and the iperf3 command base concurrently.
func (o *Orchestrator) Unidirectional(ctx context.Context, base command.Command, iteration int) (*Run, error) {
	o.transition(CommandsPrepared)
	ports, err := o.ports(ctx, 1)
	if err != nil {
		o.transition(Idle)
		return nil, err
	}
	subtest := SubtestUpload
	if base.Has(iperf3.FlagReverse) {
		subtest = SubtestDownload
	}
	batch := []command.Command{
		command.Ping(o.cfg.Host, o.cfg.Time+ping.UnidirectionalExtraCount, ping.UnidirectionalDelay),
		base.With(iperf3.FlagPort, strconv.Itoa(ports[0])),
	}
	return o.execute(ctx, subtest, iteration, batch)
}

// Bufferbloat runs ping, then download and upload tests on two distinct
// ports. Ping starts first so that the idle latency is measured before the
// link is loaded.
func (o *Orchestrator) Bufferbloat(ctx context.Context, base command.Command, iteration int) (*Run, error) {
	o.transition(CommandsPrepared)
	ports, err := o.ports(ctx, 2)
	if err != nil {
		o.transition(Idle)
		return nil, err
	}
	batch := []command.Command{
		command.Ping(o.cfg.Host, o.cfg.Time+ping.BufferbloatExtraCount, ping.BufferbloatDelay),
		base.With(iperf3.FlagReverse, "").With(iperf3.FlagPort, strconv.Itoa(ports[0])),
		base.Without(iperf3.FlagReverse).With(iperf3.FlagPort, strconv.Itoa(ports[1])),
	}
	r, err := o.execute(ctx, SubtestBufferbloat, iteration, batch)
	if r != nil {
		g, inc, gerr := r.Summary.Grade()
		if gerr != nil {
			log.Error("cannot grade bufferbloat", "error", gerr)
		} else {
			o.emitter.OnGrade(g, inc)
		}
	}
	return r, err
}

// All runs a download, an upload and a bufferbloat test.
func (o *Orchestrator) All(ctx context.Context, base command.Command, iteration int) ([]*Run, error) {
	var runs []*Run
	for _, b := range []command.Command{
		base.With(iperf3.FlagReverse, ""),
		base.Without(iperf3.FlagReverse),
	} {
		r, err := o.Unidirectional(ctx, b, iteration)
		runs = append(runs, nonNil(r)...)
		if err != nil {
			return runs, err
		}
	}
	r, err := o.Bufferbloat(ctx, base, iteration)
	return append(runs, nonNil(r)...), err
}

// ports returns n server ports. Candidates come from the port option; when
// two ports are needed and only one is given, the next port is added.
func (o *Orchestrator) ports(ctx context.Context, n int) ([]int, error) {
	candidates := command.ExpandPorts(o.cfg.Port)
	if len(candidates) == 0 {
		candidates = []int{iperf3.DefaultPort}
	}
	if n == 2 && len(candidates) == 1 {
		candidates = append(candidates, candidates[0]+1)
		log.Warn("two ports are required, adding the next one", "ports", candidates)
	}
	if o.cfg.NoProbe || o.cfg.DryRun {
		o.transition(PortsProbed)
		return candidates[:n], nil
	}
	ports, err := o.prober.FreePorts(ctx, o.cfg.Host, candidates, n)
	if err != nil {
		return nil, err
	}
	o.transition(PortsProbed)
	return ports, nil
}

// execute runs batch and aggregates its outputs into a Run.
func (o *Orchestrator) execute(ctx context.Context, subtest string, iteration int, batch []command.Command) (*Run, error) {
	r := &Run{
		ID:        uuid.NewString(),
		Subtest:   subtest,
		Iteration: iteration,
		Start:     o.now(),
		Commands:  batch,
	}
	for _, c := range batch {
		log.Info("running command", "command", c.String())
		o.emitter.OnCommand(c)
	}
	o.transition(ProcessesRunning)
	r.Results = o.supervisor.Run(ctx, batch)
	r.End = o.now()
	o.saveRaw(r)

	o.transition(OutputsParsed)
	r.Outputs = parser.ParseAll(r.Results)

	r.Intervals = aggregate.New()
	r.Intervals.Add(r.Outputs)
	var err error
	r.Summary, err = summary.Reduce(summary.Meta{
		ID:          r.ID,
		Start:       r.Start,
		Description: o.cfg.Description,
	}, r.Outputs)
	if err != nil {
		log.Warn("summary is incomplete", "id", r.ID, "error", err)
		o.emitter.OnError(err)
	}
	o.transition(Aggregated)
	o.emitter.OnSummary(r.Summary)
	o.archive(r)
	metrics.ScenarioDuration.WithLabelValues(subtest).Observe(r.End.Sub(r.Start).Seconds())
	o.transition(Idle)
	return r, ctx.Err()
}

// Probe runs one upload test and estimates throughput limits from the RTT
// of its first stream.
func (o *Orchestrator) Probe(ctx context.Context) error {
	o.transition(CommandsPrepared)
	defer o.transition(Idle)
	base := command.Throughput(o.cfg).Build()[0]
	if base.Has(iperf3.FlagReverse) {
		log.Warn("only upstream traffic is supported, reverse mode removed")
		base = base.Without(iperf3.FlagReverse)
	}
	ports, err := o.ports(ctx, 1)
	if err != nil {
		return err
	}
	c := base.With(iperf3.FlagPort, strconv.Itoa(ports[0]))
	o.emitter.OnCommand(c)
	o.transition(ProcessesRunning)
	out := parser.Parse(o.supervisor.Run(ctx, []command.Command{c})[0])
	o.transition(OutputsParsed)
	if out.Err != nil {
		return out.Err
	}
	var rtts []float64
	for _, interval := range out.Throughput.Intervals {
		if len(interval.Streams) > 0 && interval.Streams[0].RTT > 0 {
			rtts = append(rtts, float64(interval.Streams[0].RTT)/1000)
		}
	}
	if len(rtts) == 0 {
		return ErrNoRTT
	}
	lo, _ := summary.MinMax(rtts)
	return o.report(lo, summary.Mean(rtts))
}

// BDP runs a short ping and estimates throughput limits from its RTT.
func (o *Orchestrator) BDP(ctx context.Context) error {
	o.transition(CommandsPrepared)
	defer o.transition(Idle)
	c := command.Ping(o.cfg.Host, ping.BDPCount, 0).With(ping.FlagInterval, ping.BDPInterval)
	o.emitter.OnCommand(c)
	o.transition(ProcessesRunning)
	out := parser.Parse(o.supervisor.Run(ctx, []command.Command{c})[0])
	o.transition(OutputsParsed)
	if out.Err != nil {
		return out.Err
	}
	rttMin, rttAvg, err := out.Latency.Stats.MinAvg()
	if err != nil {
		return err
	}
	return o.report(rttMin, rttAvg)
}

func (o *Orchestrator) report(rttMin, rttAvg float64) error {
	r, err := bdp.NewReport(o.procDir, o.cfg.Host, rttMin, rttAvg)
	if err != nil {
		return fmt.Errorf("cannot read TCP memory settings: %w", err)
	}
	o.transition(Aggregated)
	o.emitter.OnBDP(r)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
