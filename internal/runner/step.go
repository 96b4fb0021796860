package runner

import "strings"

// Step describes one external tool invocation: the program to run, its
// arguments, an optional working directory, and extra KEY=value environment
// entries appended to the parent environment. Steps are plain values and are
// not mutated by the runner.
type Step struct {
	Prog string
	Args []string
	Dir  string
	Env  []string
}

func (s Step) String() string {
	if len(s.Args) == 0 {
		return s.Prog
	}
	return s.Prog + " " + strings.Join(s.Args, " ")
}
