package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-lab/go/rtx"
	"github.com/m-lab/iperf3-wrapper/internal/bdp"
	"github.com/m-lab/iperf3-wrapper/internal/command"
	"github.com/m-lab/iperf3-wrapper/internal/config"
	"github.com/m-lab/iperf3-wrapper/internal/probe"
	"github.com/m-lab/iperf3-wrapper/internal/summary"
	"github.com/m-lab/iperf3-wrapper/internal/supervisor"
	iperf3 "github.com/m-lab/iperf3-wrapper/pkg/iperf3/spec"
	ping "github.com/m-lab/iperf3-wrapper/pkg/ping/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an Emitter that records what it is given.
type recorder struct {
	commands  []command.Command
	summaries []*summary.Summary
	grades    []summary.Grade
	reports   []bdp.Report
	starts    int
}

func (r *recorder) OnStart(string, int, int) { r.starts++ }
func (r *recorder) OnCommand(c command.Command) { r.commands = append(r.commands, c) }
func (r *recorder) OnSummary(s *summary.Summary) { r.summaries = append(r.summaries, s) }
func (r *recorder) OnGrade(g summary.Grade, _ float64) { r.grades = append(r.grades, g) }
func (r *recorder) OnBDP(b bdp.Report) { r.reports = append(r.reports, b) }
func (r *recorder) OnError(error) {}

// cannedSupervisor records batches and answers with canned outputs.
type cannedSupervisor struct {
	batches [][]command.Command
}

func (s *cannedSupervisor) Run(ctx context.Context, batch []command.Command) []supervisor.Result {
	s.batches = append(s.batches, batch)
	return supervisor.New(time.Second, true).Run(ctx, batch)
}

type fakeProber struct {
	candidates []int
	err        error
}

func (p *fakeProber) FreePorts(_ context.Context, _ string, candidates []int, n int) ([]int, error) {
	p.candidates = candidates
	if p.err != nil {
		return nil, p.err
	}
	return candidates[:n], nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Host = "10.0.0.1"
	cfg.Time = 5
	cfg.Sleep = 0
	cfg.ResultDir = t.TempDir()
	return &cfg
}

func glob(t *testing.T, pattern string) []string {
	m, err := filepath.Glob(pattern)
	rtx.Must(err, "bad pattern")
	return m
}

func TestMode_Tag(t *testing.T) {
	tests := map[Mode]string{
		ModeUnidirectional: "ST",
		ModeBufferbloat:    "BBT",
		ModeAll:            "ALL",
		ModeProbe:          "probe",
	}
	for m, want := range tests {
		assert.Equal(t, want, m.Tag(), string(m))
	}
}

func TestOrchestrator_Unidirectional(t *testing.T) {
	cfg := testConfig(t)
	cfg.DryRun = true
	cfg.Reverse = true
	cfg.Iterations = 2
	cfg.CSV = true
	cfg.JSON = true
	em := &recorder{}
	o := New(cfg, &cannedSupervisor{}, nil, em)

	runs, err := o.Run(context.Background(), ModeUnidirectional)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 2, em.starts)
	assert.Equal(t, Idle, o.State())

	for i, r := range runs {
		assert.Equal(t, SubtestDownload, r.Subtest)
		assert.Equal(t, i, r.Iteration)
		assert.NotEmpty(t, r.ID)
		v, ok := r.Summary.Get("downstream_bits_per_second")
		assert.True(t, ok)
		assert.Equal(t, "5000000000", v)
		assert.NotZero(t, r.Intervals.Len())
	}

	assert.Len(t, glob(t, filepath.Join(cfg.ResultDir, "ST_summary_*.csv")), 1)
	assert.Len(t, glob(t, filepath.Join(cfg.ResultDir, "ST_summary_*.json")), 1)
	assert.Len(t, glob(t, filepath.Join(cfg.ResultDir, "ST_intervals_*.csv")), 2)
	assert.Len(t, glob(t, filepath.Join(cfg.ResultDir, "ST_intervals_*.json")), 2)

	b, err := os.ReadFile(glob(t, filepath.Join(cfg.ResultDir, "ST_summary_*.csv"))[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "timestamp,id,"), lines[0])
}

func TestOrchestrator_UnidirectionalCommands(t *testing.T) {
	cfg := testConfig(t)
	cfg.DryRun = true
	cfg.Port = "5210"
	sup := &cannedSupervisor{}
	o := New(cfg, sup, nil, &recorder{})

	_, err := o.Run(context.Background(), ModeUnidirectional)
	require.NoError(t, err)
	require.Len(t, sup.batches, 1)
	batch := sup.batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "ping 10.0.0.1 -c 9 -D", batch[0].String())
	assert.Equal(t, ping.UnidirectionalDelay, batch[0].Delay)
	assert.Equal(t, iperf3.ThroughputDelay, batch[1].Delay)
	assert.Equal(t, command.KindThroughput, batch[1].Kind)
	port, _ := batch[1].Value(iperf3.FlagPort)
	assert.Equal(t, "5210", port)
	assert.False(t, batch[1].Has(iperf3.FlagReverse))
}

func TestOrchestrator_Bufferbloat(t *testing.T) {
	cfg := testConfig(t)
	cfg.Port = "5201"
	sup := &cannedSupervisor{}
	prober := &fakeProber{}
	em := &recorder{}
	o := New(cfg, sup, prober, em)

	runs, err := o.Run(context.Background(), ModeBufferbloat)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, []int{5201, 5202}, prober.candidates)

	batch := sup.batches[0]
	require.Len(t, batch, 3)
	assert.Equal(t, "ping 10.0.0.1 -c 15 -D", batch[0].String())
	assert.Equal(t, ping.BufferbloatDelay, batch[0].Delay)
	assert.Equal(t, iperf3.ThroughputDelay, batch[1].Delay)
	assert.Equal(t, iperf3.ThroughputDelay, batch[2].Delay)
	assert.True(t, batch[1].Has(iperf3.FlagReverse))
	assert.False(t, batch[2].Has(iperf3.FlagReverse))
	p1, _ := batch[1].Value(iperf3.FlagPort)
	p2, _ := batch[2].Value(iperf3.FlagPort)
	assert.Equal(t, "5201", p1)
	assert.Equal(t, "5202", p2)

	s := runs[0].Summary
	for _, name := range []string{
		"downstream_bits_per_second", "upstream_bits_per_second",
		"tcp_rtt_avg", "icmp_rtt_min", "icmp_rtt_max",
	} {
		_, ok := s.Get(name)
		assert.True(t, ok, name)
	}
	require.Len(t, em.grades, 1)
	assert.Equal(t, "A", em.grades[0].Letter)
}

func TestOrchestrator_All(t *testing.T) {
	cfg := testConfig(t)
	cfg.DryRun = true
	cfg.JSON = true
	o := New(cfg, &cannedSupervisor{}, nil, &recorder{})

	runs, err := o.Run(context.Background(), ModeAll)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, SubtestDownload, runs[0].Subtest)
	assert.Equal(t, SubtestUpload, runs[1].Subtest)
	assert.Equal(t, SubtestBufferbloat, runs[2].Subtest)
	assert.Len(t, glob(t, filepath.Join(cfg.ResultDir, "ALL_intervals_*.json")), 3)
}

func TestOrchestrator_InsufficientPorts(t *testing.T) {
	cfg := testConfig(t)
	sup := &cannedSupervisor{}
	o := New(cfg, sup, &fakeProber{err: probe.ErrInsufficientPorts}, &recorder{})

	runs, err := o.Run(context.Background(), ModeBufferbloat)
	assert.True(t, errors.Is(err, probe.ErrInsufficientPorts), err)
	assert.Empty(t, runs)
	assert.Empty(t, sup.batches)
	assert.Equal(t, Idle, o.State())
}

func TestOrchestrator_Variants(t *testing.T) {
	cfg := testConfig(t)
	cfg.DryRun = true
	cfg.Parallel = "1,2"
	sup := &cannedSupervisor{}
	o := New(cfg, sup, nil, &recorder{})

	runs, err := o.Run(context.Background(), ModeUnidirectional)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	p0, _ := sup.batches[0][1].Value(iperf3.FlagParallel)
	p1, _ := sup.batches[1][1].Value(iperf3.FlagParallel)
	assert.Equal(t, "1", p0)
	assert.Equal(t, "2", p1)
}

func TestOrchestrator_ArchiveAndRaw(t *testing.T) {
	cfg := testConfig(t)
	cfg.DryRun = true
	cfg.SaveOutputs = true
	cfg.ArchiveDir = t.TempDir()
	o := New(cfg, &cannedSupervisor{}, nil, &recorder{})

	runs, err := o.Run(context.Background(), ModeUnidirectional)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Len(t, glob(t, filepath.Join(cfg.ResultDir, "iperf3*.json")), 1)
	assert.Len(t, glob(t, filepath.Join(cfg.ResultDir, "ping*.log")), 1)
	archives := glob(t, filepath.Join(cfg.ArchiveDir, Datatype, "*", "*", "*", "*"+runs[0].ID+".json.gz"))
	require.Len(t, archives, 1)
	assert.Contains(t, filepath.Base(archives[0]), Datatype+"-"+SubtestUpload+"-")
}

func writeProc(t *testing.T) string {
	dir := t.TempDir()
	rtx.Must(os.WriteFile(filepath.Join(dir, "tcp_wmem"), []byte("4096\t16384\t4194304\n"), 0o644), "cannot write tcp_wmem")
	rtx.Must(os.WriteFile(filepath.Join(dir, "tcp_rmem"), []byte("4096\t131072\t6291456\n"), 0o644), "cannot write tcp_rmem")
	return dir
}

func TestOrchestrator_Probe(t *testing.T) {
	cfg := testConfig(t)
	cfg.DryRun = true
	cfg.Reverse = true
	sup := &cannedSupervisor{}
	em := &recorder{}
	o := New(cfg, sup, nil, em, WithProcDir(writeProc(t)))

	runs, err := o.Run(context.Background(), ModeProbe)
	require.NoError(t, err)
	assert.Nil(t, runs)
	require.Len(t, sup.batches, 1)
	assert.False(t, sup.batches[0][0].Has(iperf3.FlagReverse))

	require.Len(t, em.reports, 1)
	r := em.reports[0]
	assert.InDelta(t, 8.0, r.RTTMin, 1e-9)
	assert.InDelta(t, 10.0, r.RTTAvg, 1e-9)
	assert.Equal(t, 4194304.0, r.WMem)
}

func TestOrchestrator_BDP(t *testing.T) {
	cfg := testConfig(t)
	cfg.DryRun = true
	sup := &cannedSupervisor{}
	em := &recorder{}
	o := New(cfg, sup, nil, em, WithProcDir(writeProc(t)))

	_, err := o.Run(context.Background(), ModeBDP)
	require.NoError(t, err)
	assert.Equal(t, "ping 10.0.0.1 -c 5 -D -i 0.2", sup.batches[0][0].String())
	require.Len(t, em.reports, 1)
	assert.InDelta(t, 5.0, em.reports[0].RTTMin, 1e-9)
	assert.InDelta(t, 8.0, em.reports[0].RTTAvg, 1e-9)

	o = New(cfg, sup, nil, em, WithProcDir(t.TempDir()))
	_, err = o.Run(context.Background(), ModeBDP)
	assert.Error(t, err)
}

func TestOrchestrator_UnknownMode(t *testing.T) {
	o := New(testConfig(t), &cannedSupervisor{}, nil, &recorder{})
	_, err := o.Run(context.Background(), Mode("bogus"))
	assert.Error(t, err)
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleep(context.Background(), time.Millisecond))
}
