package selector

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy selects how a versioned family matches a requested version against
// the registered ones.
type Policy string

const (
	// PolicyExact requires the requested version to be registered.
	PolicyExact Policy = "exact"

	// PolicyNearestLE picks the greatest registered version not above the
	// requested one. This is the default for versioned families.
	PolicyNearestLE Policy = "nearest_le"

	// PolicyNearestGE picks the least registered version not below the
	// requested one.
	PolicyNearestGE Policy = "nearest_ge"
)

// DefaultPolicy is used by versioned families that do not name a policy.
const DefaultPolicy = PolicyNearestLE

// ParsePolicy maps a policy name or alias to its Policy.
//
//	exact, eq       -> PolicyExact
//	nearest_le, le  -> PolicyNearestLE
//	nearest_ge, ge  -> PolicyNearestGE
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact", "eq":
		return PolicyExact, nil
	case "nearest_le", "le":
		return PolicyNearestLE, nil
	case "nearest_ge", "ge":
		return PolicyNearestGE, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Validate reports whether p is one of the known policies. Aliases are not
// accepted here; use ParsePolicy for user input.
func (p Policy) Validate() error {
	switch p {
	case PolicyExact, PolicyNearestLE, PolicyNearestGE:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownPolicy, string(p))
}

func (p Policy) String() string { return string(p) }

// UnmarshalText implements encoding.TextUnmarshaler, accepting aliases.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler, accepting aliases.
func (p *Policy) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(s))
}
