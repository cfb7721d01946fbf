// Package probe finds iperf3 server ports that are free to run a test.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jellydator/ttlcache/v3"
	"github.com/m-lab/iperf3-wrapper/internal/command"
	"github.com/m-lab/iperf3-wrapper/internal/metrics"
	"github.com/m-lab/iperf3-wrapper/pkg/iperf3/spec"
)

// ErrInsufficientPorts is returned when fewer free ports than required were
// found.
var ErrInsufficientPorts = errors.New("insufficient free ports")

// Runner runs a short-lived command to completion and returns its output.
type Runner interface {
	Output(ctx context.Context, c command.Command) (string, error)
}

// ExecRunner runs commands as local processes.
type ExecRunner struct{}

// Output runs c and returns its standard output. The process is always
// reaped before Output returns.
func (ExecRunner) Output(ctx context.Context, c command.Command) (string, error) {
	argv := c.Argv()
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	return string(out), err
}

// Prober checks candidate ports one at a time.
type Prober struct {
	runner Runner
	// cache maps host and candidates to the free ports found, when enabled.
	cache *ttlcache.Cache[string, []int]
}

// New returns a Prober using runner. A positive ttl enables reusing the
// ports found for the same host and candidates for that long.
func New(runner Runner, ttl time.Duration) *Prober {
	p := &Prober{runner: runner}
	if ttl > 0 {
		p.cache = ttlcache.New(
			ttlcache.WithTTL[string, []int](ttl),
			ttlcache.WithDisableTouchOnHit[string, []int](),
		)
	}
	return p
}

// FreePorts returns the first n candidates on which a one-second iperf3
// test completes. Probing stops as soon as n ports are found.
func (p *Prober) FreePorts(ctx context.Context, host string, candidates []int, n int) ([]int, error) {
	key := fmt.Sprintf("%s|%v", host, candidates)
	if p.cache != nil {
		if item := p.cache.Get(key); item != nil && len(item.Value()) >= n {
			metrics.ProbesTotal.WithLabelValues("cached").Inc()
			log.Debug("using cached probe result", "host", host, "ports", item.Value())
			return item.Value()[:n], nil
		}
	}

	var free []int
	for _, port := range candidates {
		if len(free) == n {
			break
		}
		if p.available(ctx, host, port) {
			free = append(free, port)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	if len(free) < n {
		return nil, fmt.Errorf("%w: found %d of %d on %s (candidates %v)",
			ErrInsufficientPorts, len(free), n, host, candidates)
	}
	log.Info("free ports found", "host", host, "ports", free)
	if p.cache != nil {
		p.cache.Set(key, free, ttlcache.DefaultTTL)
	}
	return free, nil
}

func (p *Prober) available(ctx context.Context, host string, port int) bool {
	ctx, cancel := context.WithTimeout(ctx, spec.ProbeDeadline)
	defer cancel()
	c := command.Probe(host, port)
	out, err := p.runner.Output(ctx, c)
	if err == nil && strings.Contains(out, spec.CompletionMarker) {
		metrics.ProbesTotal.WithLabelValues("free").Inc()
		log.Debug("port is free", "host", host, "port", port)
		return true
	}
	metrics.ProbesTotal.WithLabelValues("busy").Inc()
	log.Debug("port is not available", "host", host, "port", port, "error", err)
	return false
}
