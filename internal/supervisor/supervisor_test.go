package supervisor

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/m-lab/iperf3-wrapper/internal/command"
	"github.com/m-lab/iperf3-wrapper/internal/fixtures"
	iperf3 "github.com/m-lab/iperf3-wrapper/pkg/iperf3/spec"
)

func shell(script string, delay time.Duration) command.Command {
	return command.Command{
		Kind:    command.KindLatency,
		Program: "/bin/sh",
		Flags:   []command.Flag{{Name: "-c", Value: script}},
		Delay:   delay,
	}
}

func TestSupervisor_Run(t *testing.T) {
	t.Run("captures the output of completed commands in batch order", func(t *testing.T) {
		s := New(5*time.Second, false)
		results := s.Run(context.Background(), []command.Command{
			shell("sleep 0.2; echo first", 0),
			shell("echo second", 10*time.Millisecond),
		})
		if len(results) != 2 {
			t.Fatalf("Run() returned %d results, want 2", len(results))
		}
		for i, want := range []string{"first\n", "second\n"} {
			if !results[i].Completed {
				t.Errorf("results[%d].Completed = false, want true", i)
			}
			if results[i].Stdout != want {
				t.Errorf("results[%d].Stdout = %q, want %q", i, results[i].Stdout, want)
			}
			if results[i].PID == 0 {
				t.Errorf("results[%d].PID = 0", i)
			}
		}
	})

	t.Run("waits each command's delay before launching the next", func(t *testing.T) {
		const delay = 300 * time.Millisecond
		s := New(5*time.Second, false)
		results := s.Run(context.Background(), []command.Command{
			shell("date +%s.%N", delay),
			shell("date +%s.%N", delay),
			shell("date +%s.%N", 0),
		})
		var starts []float64
		for i, r := range results {
			v, err := strconv.ParseFloat(strings.TrimSpace(r.Stdout), 64)
			if err != nil {
				t.Fatalf("results[%d].Stdout = %q is not a timestamp", i, r.Stdout)
			}
			starts = append(starts, v)
		}
		// Allow for the time the shell takes to reach date.
		const slack = 0.1
		for i := 1; i < len(starts); i++ {
			if gap := starts[i] - starts[i-1]; gap < delay.Seconds()-slack {
				t.Errorf("command %d started %.3fs after command %d, want at least %v", i, gap, i-1, delay)
			}
		}
	})

	t.Run("abandons commands still running at the timeout", func(t *testing.T) {
		s := New(time.Second, false)
		start := time.Now()
		results := s.Run(context.Background(), []command.Command{
			shell("echo fast", 0),
			shell("sleep 30", 0),
		})
		if elapsed := time.Since(start); elapsed > 10*time.Second {
			t.Errorf("Run() took %v, want about 1s", elapsed)
		}
		if !results[0].Completed || results[0].Stdout != "fast\n" {
			t.Errorf("results[0] = %+v, want a completed result", results[0])
		}
		if results[1].Completed || results[1].Stdout != "" {
			t.Errorf("results[1] = %+v, want an abandoned result", results[1])
		}
	})

	t.Run("stops waiting when the context is canceled", func(t *testing.T) {
		s := New(time.Minute, false)
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		results := s.Run(ctx, []command.Command{shell("sleep 30", 0)})
		if results[0].Completed {
			t.Errorf("results[0].Completed = true, want false")
		}
	})

	t.Run("reports commands that cannot be started", func(t *testing.T) {
		s := New(time.Second, false)
		results := s.Run(context.Background(), []command.Command{{
			Kind:    command.KindThroughput,
			Program: "/nonexistent/iperf3",
		}})
		if results[0].Err == nil {
			t.Errorf("results[0].Err = nil, want an error")
		}
		if results[0].Completed {
			t.Errorf("results[0].Completed = true, want false")
		}
	})
}

func TestSupervisor_DryRun(t *testing.T) {
	s := New(time.Second, true)
	upload := command.Command{Kind: command.KindThroughput, Program: iperf3.Program}
	download := upload.With(iperf3.FlagReverse, "")
	ping := command.Ping("localhost", 10, 0)
	results := s.Run(context.Background(), []command.Command{ping, download, upload})

	want := []string{fixtures.Ping(), fixtures.Throughput(true), fixtures.Throughput(false)}
	for i := range want {
		if !results[i].Completed {
			t.Errorf("results[%d].Completed = false, want true", i)
		}
		if results[i].Stdout != want[i] {
			t.Errorf("results[%d].Stdout does not match the fixture", i)
		}
	}
	if !strings.Contains(results[1].Stdout, `"reverse": 1`) {
		t.Errorf("download dry run did not get the reverse-mode fixture")
	}
}
