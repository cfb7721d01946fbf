// Package supervisor runs batches of external commands with a staggered
// start and a shared timeout.
package supervisor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/iperf3-wrapper/internal/command"
	"github.com/m-lab/iperf3-wrapper/internal/fixtures"
	"github.com/m-lab/iperf3-wrapper/internal/metrics"
	iperf3 "github.com/m-lab/iperf3-wrapper/pkg/iperf3/spec"
)

// waitDelay bounds how long Wait blocks on output copying after a process
// has been killed.
const waitDelay = time.Second

// Result is the outcome of one supervised command.
type Result struct {
	Command command.Command
	// Stdout is the captured standard output. It is empty unless Completed.
	Stdout string
	// Completed is true if the process exited before the timeout.
	Completed bool
	// PID is the process ID, or zero if the process was never started.
	PID int
	// Err is the launch error, if any.
	Err error
}

// Supervisor launches a batch of commands, waits for them up to a timeout
// and makes sure none of them outlives Run.
type Supervisor struct {
	// Timeout is measured from the moment the last command was launched.
	Timeout time.Duration
	// DryRun replaces execution with canned outputs.
	DryRun bool
}

// New returns a Supervisor with the given timeout.
func New(timeout time.Duration, dryRun bool) *Supervisor {
	return &Supervisor{Timeout: timeout, DryRun: dryRun}
}

type process struct {
	index  int
	cmd    *exec.Cmd
	stdout bytes.Buffer
	exited chan struct{}
	done   bool
}

// stop kills the process if it is still running and waits until it has
// been reaped.
func (p *process) stop() {
	if p.done {
		return
	}
	err := p.cmd.Process.Kill()
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Error("failed to kill process", "pid", p.cmd.Process.Pid, "error", err)
	}
	<-p.exited
}

// Run launches every command of batch in order, sleeping each command's
// Delay after its launch, then collects outputs until all processes exit or
// the timeout expires. Processes still running at the timeout, or when ctx
// is canceled, are killed and reported as not completed. The returned
// slice has one Result per command, in batch order.
func (s *Supervisor) Run(ctx context.Context, batch []command.Command) []Result {
	results := make([]Result, len(batch))
	for i := range batch {
		results[i].Command = batch[i]
	}
	if s.DryRun {
		return s.dryRun(results)
	}

	var procs []*process
	defer func() {
		for _, p := range procs {
			p.stop()
		}
	}()

	exited := make(chan *process, len(batch))
	for i, c := range batch {
		p, err := start(i, c, exited)
		if err != nil {
			log.Error("failed to start command", "command", c.String(), "error", err)
			metrics.CommandsTotal.WithLabelValues(c.Kind.String(), "start-error").Inc()
			results[i].Err = err
			continue
		}
		procs = append(procs, p)
		results[i].PID = p.cmd.Process.Pid
		log.Debug("command started", "pid", results[i].PID, "command", c.String())
		if err := sleep(ctx, c.Delay); err != nil {
			log.Warn("canceled while launching commands", "error", err)
			return results
		}
	}

	timer := time.NewTimer(s.Timeout)
	defer timer.Stop()
	for outstanding := len(procs); outstanding > 0; outstanding-- {
		select {
		case p := <-exited:
			p.done = true
			r := &results[p.index]
			r.Stdout = p.stdout.String()
			r.Completed = true
			metrics.CommandsTotal.WithLabelValues(r.Command.Kind.String(), "completed").Inc()
			log.Debug("command completed", "pid", r.PID, "exit", p.cmd.ProcessState.ExitCode())
		case <-timer.C:
			for _, p := range procs {
				if !p.done {
					log.Warn("command timed out", "pid", results[p.index].PID,
						"command", results[p.index].Command.String(), "timeout", s.Timeout)
					metrics.CommandsTotal.WithLabelValues(results[p.index].Command.Kind.String(), "timeout").Inc()
				}
			}
			return results
		case <-ctx.Done():
			log.Warn("canceled while waiting for commands", "error", ctx.Err())
			return results
		}
	}
	return results
}

func start(index int, c command.Command, exited chan<- *process) (*process, error) {
	argv := c.Argv()
	p := &process{
		index:  index,
		cmd:    exec.Command(argv[0], argv[1:]...),
		exited: make(chan struct{}),
	}
	p.cmd.Stdout = &p.stdout
	p.cmd.WaitDelay = waitDelay
	if err := p.cmd.Start(); err != nil {
		return nil, err
	}
	go func() {
		// The exit status is not an error for the wrapper: iperf3 reports
		// failures in its JSON output.
		_ = p.cmd.Wait()
		close(p.exited)
		exited <- p
	}()
	return p, nil
}

func (s *Supervisor) dryRun(results []Result) []Result {
	for i := range results {
		r := &results[i]
		switch r.Command.Kind {
		case command.KindThroughput:
			r.Stdout = fixtures.Throughput(r.Command.Has(iperf3.FlagReverse))
		case command.KindLatency:
			r.Stdout = fixtures.Ping()
		case command.KindProbe:
			r.Stdout = iperf3.CompletionMarker + "\n"
		}
		r.Completed = true
		metrics.CommandsTotal.WithLabelValues(r.Command.Kind.String(), "dry-run").Inc()
		log.Debug("dry run", "command", r.Command.String())
	}
	return results
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
