package residual

import "fmt"

// DuplicatePolicy decides what happens when a field reports again at a
// time index that already holds a value for it. PIMPLE and PISO loops
// solve pressure several times per step, so repeats are routine.
type DuplicatePolicy int

const (
	// AppendAll appends every report. Series drift out of alignment with
	// the time axis; the tracker counts and logs each divergence.
	AppendAll DuplicatePolicy = iota
	// KeepFirst keeps the first initial residual of the time step.
	KeepFirst
	// KeepLast overwrites with the most recent residual.
	KeepLast
)

func (p DuplicatePolicy) String() string {
	switch p {
	case AppendAll:
		return "append"
	case KeepFirst:
		return "first"
	case KeepLast:
		return "last"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy maps a config name to a policy. An empty name is AppendAll.
func ParsePolicy(name string) (DuplicatePolicy, error) {
	switch name {
	case "", "append":
		return AppendAll, nil
	case "first":
		return KeepFirst, nil
	case "last":
		return KeepLast, nil
	}
	return AppendAll, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// MarshalText lets the policy round-trip through YAML.
func (p DuplicatePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *DuplicatePolicy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
