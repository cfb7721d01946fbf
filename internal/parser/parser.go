// Package parser turns captured tool output into typed results.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/m-lab/iperf3-wrapper/internal/command"
	"github.com/m-lab/iperf3-wrapper/internal/metrics"
	"github.com/m-lab/iperf3-wrapper/internal/supervisor"
	iperf3model "github.com/m-lab/iperf3-wrapper/pkg/iperf3/model"
	pingmodel "github.com/m-lab/iperf3-wrapper/pkg/ping/model"
)

var (
	// ErrNotCompleted is returned for commands killed at the timeout.
	ErrNotCompleted = errors.New("command did not complete")
	// ErrMalformed is returned when iperf3 output is not a valid report.
	ErrMalformed = errors.New("malformed iperf3 report")
	// ErrNoPacketSummary is returned when ping output lacks the
	// "packets transmitted" line.
	ErrNoPacketSummary = errors.New("ping output has no packet summary")
	// ErrNoRTTSummary is returned when ping output lacks the rtt line,
	// e.g. because every packet was lost.
	ErrNoRTTSummary = errors.New("ping output has no rtt summary")
	// ErrUnsupportedKind is returned for commands whose output is not
	// parsed.
	ErrUnsupportedKind = errors.New("unsupported command kind")
)

// ToolError is returned when iperf3 itself reported a failure.
type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return "iperf3 error: " + e.Message
}

// Output is a parsed command output. Exactly one of Throughput and Latency
// is set when Err is nil.
type Output struct {
	Command    command.Command
	Raw        string
	Throughput *iperf3model.Result
	Latency    *pingmodel.Result
	Err        error
}

// Parse parses the output of a supervised command according to its kind.
// Failures are reported in Output.Err and never affect other outputs.
func Parse(r supervisor.Result) Output {
	out := Output{Command: r.Command, Raw: r.Stdout}
	switch {
	case r.Err != nil:
		out.Err = r.Err
	case !r.Completed:
		out.Err = ErrNotCompleted
	case r.Command.Kind == command.KindThroughput:
		out.Throughput, out.Err = ParseThroughput(r.Stdout)
	case r.Command.Kind == command.KindLatency:
		out.Latency, out.Err = ParsePing(r.Stdout)
	default:
		out.Err = fmt.Errorf("%w: %s", ErrUnsupportedKind, r.Command.Kind)
	}
	if out.Err != nil {
		log.Error("discarding command output", "command", r.Command.String(), "error", out.Err)
		metrics.ParseErrorsTotal.WithLabelValues(r.Command.Kind.String(), reason(out.Err)).Inc()
	}
	return out
}

// ParseAll parses every result.
func ParseAll(results []supervisor.Result) []Output {
	outputs := make([]Output, 0, len(results))
	for _, r := range results {
		outputs = append(outputs, Parse(r))
	}
	return outputs
}

// ParseThroughput decodes an iperf3 JSON report. A report carrying an error
// is returned together with a *ToolError.
func ParseThroughput(raw string) (*iperf3model.Result, error) {
	var res iperf3model.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if res.Error != "" {
		return &res, &ToolError{Message: res.Error}
	}
	return &res, nil
}

func reason(err error) string {
	var te *ToolError
	switch {
	case errors.As(err, &te):
		return "tool-error"
	case errors.Is(err, ErrNotCompleted):
		return "not-completed"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrNoPacketSummary), errors.Is(err, ErrNoRTTSummary):
		return "no-summary"
	}
	return "other"
}
