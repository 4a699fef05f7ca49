package residual

import (
	"regexp"
	"strings"
)

// DefaultSolverTags are the OpenFOAM linear solver names recognized in
// "<tag>:  Solving for <field>, Initial residual = <x>" lines.
var DefaultSolverTags = []string{
	"smoothSolver",
	"GAMG",
	"PCG",
	"PBiCG",
	"PBiCGStab",
	"DICPCG",
	"DILUPBiCG",
	"diagonal",
}

const number = `([0-9.eE+\-]+)`

// The time marker is anchored at the start of the line so that
// "ExecutionTime = 1.2 s" is not mistaken for a simulation time.
var timePattern = regexp.MustCompile(`^\s*Time\s*=\s*` + number)

// Patterns holds the compiled line matchers.
type Patterns struct {
	time     *regexp.Regexp
	residual *regexp.Regexp
	tags     []string
}

// NewPatterns compiles the residual matcher for the default tags plus any
// extra ones. Duplicate tags are ignored.
func NewPatterns(extraTags ...string) (*Patterns, error) {
	seen := make(map[string]bool)
	tags := make([]string, 0, len(DefaultSolverTags)+len(extraTags))
	for _, t := range append(append([]string{}, DefaultSolverTags...), extraTags...) {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, ErrEmptySolverTag
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}

	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re, err := regexp.Compile(`(?:` + strings.Join(quoted, "|") + `):\s+Solving for ([A-Za-z0-9_]+), Initial residual = ` + number)
	if err != nil {
		return nil, err
	}
	return &Patterns{time: timePattern, residual: re, tags: tags}, nil
}

// Tags returns the recognized solver tags.
func (p *Patterns) Tags() []string {
	out := make([]string, len(p.tags))
	copy(out, p.tags)
	return out
}

// MatchTime returns the raw number text of a time marker line.
func (p *Patterns) MatchTime(line string) (string, bool) {
	m := p.time.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// MatchResidual returns the field name and raw residual text of a linear
// solver line.
func (p *Patterns) MatchResidual(line string) (field, value string, ok bool) {
	m := p.residual.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
