package command

import "time"

// Spec is an unexpanded command: each flag value may denote several values
// (see ExpandValue). Flags are kept in insertion order.
type Spec struct {
	Kind    Kind
	Program string
	Flags   []Flag
	Extra   []string
	Delay   time.Duration
}

// NewSpec returns an empty Spec for the given program.
func NewSpec(kind Kind, program string) *Spec {
	return &Spec{Kind: kind, Program: program}
}

// Set sets the raw value of a flag, replacing the value of an existing flag
// with the same name in place.
func (s *Spec) Set(name, value string) *Spec {
	for i := range s.Flags {
		if s.Flags[i].Name == name {
			s.Flags[i].Value = value
			return s
		}
	}
	s.Flags = append(s.Flags, Flag{Name: name, Value: value})
	return s
}

// Toggle adds a flag without a value.
func (s *Spec) Toggle(name string) *Spec {
	return s.Set(name, "")
}

// Build returns the cartesian product of the expanded flag values as a list
// of Commands. The first flag varies slowest. The number of commands is the
// product of the sizes of each flag's value set.
func (s *Spec) Build() []Command {
	combos := [][]Flag{{}}
	for _, f := range s.Flags {
		values := ExpandValue(f.Value)
		next := make([][]Flag, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, v := range values {
				flags := make([]Flag, len(combo), len(combo)+1)
				copy(flags, combo)
				next = append(next, append(flags, Flag{Name: f.Name, Value: v}))
			}
		}
		combos = next
	}
	cmds := make([]Command, 0, len(combos))
	for _, flags := range combos {
		cmds = append(cmds, Command{
			Kind:    s.Kind,
			Program: s.Program,
			Flags:   flags,
			Extra:   append([]string(nil), s.Extra...),
			Delay:   s.Delay,
		})
	}
	return cmds
}
