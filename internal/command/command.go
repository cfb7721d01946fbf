// Package command builds the external commands run by the wrapper.
package command

import (
	"strings"
	"time"
)

// Kind identifies the tool a Command runs and selects how its output is
// parsed.
type Kind int

const (
	// KindThroughput is an iperf3 client producing a JSON report.
	KindThroughput Kind = iota
	// KindLatency is a ping producing timestamped text output.
	KindLatency
	// KindProbe is a short iperf3 run used to check a server port.
	KindProbe
)

func (k Kind) String() string {
	switch k {
	case KindThroughput:
		return "throughput"
	case KindLatency:
		return "latency"
	case KindProbe:
		return "probe"
	}
	return "unknown"
}

// Flag is a command-line flag. An empty Name makes it a positional argument
// and an empty Value makes it a toggle.
type Flag struct {
	Name  string
	Value string
}

// Command is a fully expanded command line plus the metadata needed to run
// it. Commands are values: the With* methods return modified copies.
type Command struct {
	Kind    Kind
	Program string
	Flags   []Flag
	// Extra are passthrough arguments appended verbatim.
	Extra []string
	// Delay is how long to wait after launching this command before
	// launching the next one in the same batch.
	Delay time.Duration
}

// Argv returns the program name followed by its arguments.
func (c Command) Argv() []string {
	argv := []string{c.Program}
	for _, f := range c.Flags {
		if f.Name != "" {
			argv = append(argv, f.Name)
		}
		if f.Value != "" {
			argv = append(argv, f.Value)
		}
	}
	return append(argv, c.Extra...)
}

// String renders the command line with single spaces between tokens.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Value returns the value of the named flag and whether it is present.
func (c Command) Value(name string) (string, bool) {
	for _, f := range c.Flags {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Has returns whether the named flag is present.
func (c Command) Has(name string) bool {
	_, ok := c.Value(name)
	return ok
}

// With returns a copy of c where the named flag has the given value. The
// flag keeps its position if present and is appended otherwise.
func (c Command) With(name, value string) Command {
	flags := make([]Flag, 0, len(c.Flags)+1)
	found := false
	for _, f := range c.Flags {
		if f.Name == name {
			f.Value = value
			found = true
		}
		flags = append(flags, f)
	}
	if !found {
		flags = append(flags, Flag{Name: name, Value: value})
	}
	c.Flags = flags
	c.Extra = append([]string(nil), c.Extra...)
	return c
}

// Without returns a copy of c with the named flag removed.
func (c Command) Without(name string) Command {
	flags := make([]Flag, 0, len(c.Flags))
	for _, f := range c.Flags {
		if f.Name != name {
			flags = append(flags, f)
		}
	}
	c.Flags = flags
	c.Extra = append([]string(nil), c.Extra...)
	return c
}

// WithDelay returns a copy of c with the given stagger delay.
func (c Command) WithDelay(d time.Duration) Command {
	c.Delay = d
	return c
}
