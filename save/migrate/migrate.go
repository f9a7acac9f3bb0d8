package migrate

import (
	"fmt"
	"strconv"
)

// Version identifies a positional settings layout. MATLAB-era revisions are
// numbered independently of native ones.
type Version struct {
	Revision   int  `yaml:"revision"`
	FromMatlab bool `yaml:"from_matlab"`
}

func (v Version) String() string {
	if v.FromMatlab {
		return "matlab/" + strconv.Itoa(v.Revision)
	}
	return "native/" + strconv.Itoa(v.Revision)
}

// Current is the layout produced by the last migration step.
var Current = Version{Revision: 1}

// MigrationError reports a settings list that could not be upgraded.
type MigrationError struct {
	From    Version
	Message string
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("cannot upgrade settings from %s: %s", e.From, e.Message)
}

// Step upgrades a settings list from exactly one version to the next.
type Step interface {
	From() Version
	Upgrade(values []string) ([]string, Version, error)
}

// StepFunc adapts a function to the Step interface.
type StepFunc struct {
	Version Version
	Fn      func(values []string) ([]string, Version, error)
}

func (s StepFunc) From() Version { return s.Version }

func (s StepFunc) Upgrade(values []string) ([]string, Version, error) {
	return s.Fn(values)
}

// Migrator chains steps until the target version is reached.
type Migrator struct {
	target Version
	steps  map[Version]Step
}

// New returns a Migrator that upgrades to target using steps.
func New(target Version, steps ...Step) *Migrator {
	m := &Migrator{target: target, steps: make(map[Version]Step, len(steps))}
	for _, s := range steps {
		m.steps[s.From()] = s
	}
	return m
}

// Default returns the migrator for SaveImages settings.
func Default() *Migrator {
	return New(Current, matlabSteps()...)
}

// Target returns the version Upgrade converges on.
func (m *Migrator) Target() Version {
	return m.target
}

// Upgrade applies steps starting at from until the target version is
// reached. The input slice is never modified.
func (m *Migrator) Upgrade(values []string, from Version) ([]string, Version, error) {
	current := append([]string(nil), values...)
	v := from
	for applied := 0; v != m.target; applied++ {
		if applied > len(m.steps) {
			return nil, from, &MigrationError{From: from, Message: "migration steps do not converge"}
		}
		step, ok := m.steps[v]
		if !ok {
			return nil, from, &MigrationError{From: v, Message: fmt.Sprintf("no upgrade path to %s", m.target)}
		}
		next, nextVersion, err := step.Upgrade(current)
		if err != nil {
			return nil, from, err
		}
		if nextVersion == v {
			return nil, from, &MigrationError{From: v, Message: "step did not advance the version"}
		}
		current, v = next, nextVersion
	}
	return current, v, nil
}
