// Package config holds the options of a wrapper invocation.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const (
	// DefaultHost is empty: there is no sensible default iperf3 server.
	DefaultHost = ""
	// DefaultPort is the default iperf3 server port specification.
	DefaultPort = "5201"
	// DefaultTime is the default test duration in seconds.
	DefaultTime = 10
	// DefaultParallel is the default number of parallel streams.
	DefaultParallel = "4"
	// DefaultTimeout is the default supervision timeout in seconds.
	DefaultTimeout = 30
	// DefaultIterations is the default number of iterations.
	DefaultIterations = 1
	// DefaultSleep is the default pause between iterations in seconds.
	DefaultSleep = 2
	// DefaultResultDir is where result files are written by default.
	DefaultResultDir = "~/"

	// StartupOverhead is the time a run needs on top of the test duration
	// before results can be collected.
	StartupOverhead = 5 * time.Second
)

var (
	// ErrNoHost is returned by Validate when no server host is configured.
	ErrNoHost = errors.New("no iperf3 server host configured")
	// ErrInvalidTime is returned by Validate for non-positive test durations.
	ErrInvalidTime = errors.New("test time must be positive")
)

// Config is the configuration of a wrapper invocation.
type Config struct {
	// Host is the iperf3 server (and ping target).
	Host string

	// Port is the server port specification. It can be a single port, a
	// comma-separated list or a range (end excluded); the list is used as
	// the set of candidates when probing for free ports.
	Port string

	// Time is the test duration in seconds.
	Time int

	// Parallel is the number of parallel streams. Lists and ranges expand
	// into one run per value.
	Parallel string

	// Reverse runs the unidirectional test in reverse mode (download).
	Reverse bool

	// UDP runs iperf3 in UDP mode.
	UDP bool

	// Bitrate is the iperf3 target bitrate. Empty means the iperf3 default.
	Bitrate string

	// ExtraArgs are additional iperf3 arguments, appended verbatim.
	ExtraArgs string

	// NoProbe disables probing for free server ports.
	NoProbe bool

	// DryRun replaces process execution with canned outputs.
	DryRun bool

	// CSV enables CSV export of summaries and intervals.
	CSV bool

	// JSON enables JSON export of summaries and intervals.
	JSON bool

	// SaveOutputs writes the raw output of each process to ResultDir.
	SaveOutputs bool

	// Timeout is the supervision timeout in seconds, measured from the
	// last launch.
	Timeout int

	// TestName is prepended to output file names.
	TestName string

	// ResultDir is the directory where result files are written. A leading
	// "~" is expanded to the user's home directory.
	ResultDir string

	// ArchiveDir, when set, enables writing one archival JSON datafile per
	// run under a dated directory hierarchy.
	ArchiveDir string

	// Description is a free-form text included in summaries and file names.
	Description string

	// Iterations is the number of times the scenario is repeated.
	Iterations int

	// Sleep is the pause between iterations in seconds.
	Sleep int

	// ProbeCacheTTL is how long probe results are reused. Zero disables
	// caching.
	ProbeCacheTTL time.Duration

	// Quiet disables the summary display.
	Quiet bool
}

// Default returns a Config holding the built-in defaults.
func Default() Config {
	return Config{
		Host:       DefaultHost,
		Port:       DefaultPort,
		Time:       DefaultTime,
		Parallel:   DefaultParallel,
		Timeout:    DefaultTimeout,
		ResultDir:  DefaultResultDir,
		Iterations: DefaultIterations,
		Sleep:      DefaultSleep,
	}
}

// RegisterFlags binds the configuration fields to flags in fs.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Host, "host", "c", c.Host, "iperf3 server to connect to")
	fs.StringVarP(&c.Port, "port", "p", c.Port, "server port, list or range (end excluded) of candidate ports")
	fs.IntVarP(&c.Time, "time", "t", c.Time, "time in seconds to transmit for")
	fs.StringVarP(&c.Parallel, "parallel", "P", c.Parallel, "number of parallel client streams to run")
	fs.BoolVarP(&c.Reverse, "reverse", "R", c.Reverse, "run in reverse mode (server sends)")
	fs.BoolVarP(&c.UDP, "udp", "u", c.UDP, "use UDP")
	fs.StringVarP(&c.Bitrate, "bitrate", "b", c.Bitrate, "target bitrate in bits/sec (0 for unlimited)")
	fs.StringVarP(&c.ExtraArgs, "iperf3-args", "A", c.ExtraArgs, "additional iperf3 arguments")
	fs.BoolVar(&c.NoProbe, "no-probe", c.NoProbe, "do not probe for free server ports")
	fs.BoolVar(&c.DryRun, "dry-run", c.DryRun, "do not run any command, use canned outputs")
	fs.BoolVar(&c.CSV, "csv", c.CSV, "write CSV files with results")
	fs.BoolVar(&c.JSON, "json", c.JSON, "write JSON files with results")
	fs.BoolVar(&c.SaveOutputs, "save-outputs", c.SaveOutputs, "save raw output from commands")
	fs.IntVar(&c.Timeout, "timeout", c.Timeout, "seconds to wait for commands to complete")
	fs.StringVar(&c.TestName, "test-name", c.TestName, "test name to be included in file names")
	fs.StringVar(&c.ResultDir, "result-dst-path", c.ResultDir, "directory to save results to")
	fs.StringVar(&c.ArchiveDir, "archive-dir", c.ArchiveDir, "directory to write archival run records to")
	fs.StringVar(&c.Description, "description", c.Description, "test description to be included in file names")
	fs.IntVar(&c.Iterations, "iterations", c.Iterations, "how many iterations to run")
	fs.IntVar(&c.Sleep, "sleep", c.Sleep, "seconds to sleep between iterations")
	fs.DurationVar(&c.ProbeCacheTTL, "probe-cache-ttl", c.ProbeCacheTTL, "reuse probe results for this long (0 disables)")
	fs.BoolVar(&c.Quiet, "quiet", c.Quiet, "do not display results")
}

// Validate reports configuration errors that prevent any run.
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrNoHost
	}
	if c.Time <= 0 {
		return ErrInvalidTime
	}
	return nil
}

// TimeoutDuration returns the supervision timeout.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// SleepDuration returns the pause between iterations.
func (c *Config) SleepDuration() time.Duration {
	return time.Duration(c.Sleep) * time.Second
}

// ResultPath returns ResultDir with a leading "~" expanded.
func (c *Config) ResultPath() string {
	return ExpandHome(c.ResultDir)
}

// ExpandHome expands a leading "~" in path to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
