package selector

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// SemverMap maps semantic versions to values and resolves version selectors
// against them under a Policy.
//
// Versions are kept in ascending precedence order, so plain selectors are
// resolved by binary search. Build metadata does not take part in
// precedence: "1.0.0+a" and "1.0.0+b" are the same key.
//
// A selector is either a strict semantic version ("1.2.0") or a
// semicolon-separated list of comparisons (">=1.0.0;<2.0.0") using the
// operators <, <=, >, >=, ==, = and !=. With comparisons, PolicyNearestLE
// returns the lowest satisfying version while PolicyNearestGE and
// PolicyExact return the highest.
//
// SemverMap is safe for concurrent use.
type SemverMap[V any] struct {
	mu     sync.RWMutex
	policy Policy
	items  []semverEntry[V]
}

type semverEntry[V any] struct {
	version *semver.Version
	value   V
}

// NewSemverMap creates an empty map resolving with policy by default. An
// empty policy means PolicyExact.
func NewSemverMap[V any](policy Policy) (*SemverMap[V], error) {
	if policy == "" {
		policy = PolicyExact
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &SemverMap[V]{policy: policy}, nil
}

// Policy returns the map's default policy.
func (m *SemverMap[V]) Policy() Policy { return m.policy }

// Set associates value with version, replacing any value already stored
// under an equal version.
func (m *SemverMap[V]) Set(version string, value V) error {
	v, err := ParseVersion(version)
	if err != nil {
		return err
	}
	m.store(v, value, true)
	return nil
}

// LoadOrStore stores value under version unless an equal version is already
// present. It returns the value now stored and whether it was already there;
// in that case the map is unchanged.
func (m *SemverMap[V]) LoadOrStore(version string, value V) (actual V, loaded bool, err error) {
	v, err := ParseVersion(version)
	if err != nil {
		var zero V
		return zero, false, err
	}
	actual, loaded = m.store(v, value, false)
	return actual, loaded, nil
}

// Update sets every version in other. It stops at the first invalid version.
func (m *SemverMap[V]) Update(other map[string]V) error {
	for version, value := range other {
		if err := m.Set(version, value); err != nil {
			return err
		}
	}
	return nil
}

func (m *SemverMap[V]) store(v *semver.Version, value V, replace bool) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, found := slices.BinarySearchFunc(m.items, v, compareEntry[V])
	if found {
		if !replace {
			return m.items[i].value, true
		}
		m.items[i].value = value
		return value, true
	}
	m.items = slices.Insert(m.items, i, semverEntry[V]{version: v, value: value})
	return value, false
}

// Get resolves selector with the map's default policy.
func (m *SemverMap[V]) Get(selector string) (V, error) {
	_, value, err := m.Lookup(selector, m.policy)
	return value, err
}

// GetWithPolicy resolves selector with the given policy.
func (m *SemverMap[V]) GetWithPolicy(selector string, policy Policy) (V, error) {
	_, value, err := m.Lookup(selector, policy)
	return value, err
}

// Lookup resolves selector under policy and returns the stored version it
// selected along with its value. Invalid selectors wrap ErrInvalidVersion
// and misses wrap ErrNoVersion.
func (m *SemverMap[V]) Lookup(selector string, policy Policy) (*semver.Version, V, error) {
	var zero V
	if err := policy.Validate(); err != nil {
		return nil, zero, err
	}
	q, err := parseQuery(selector)
	if err != nil {
		return nil, zero, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	i := findVersion(q, m.items, policy)
	if i < 0 {
		return nil, zero, fmt.Errorf("%w: %s (%s)", ErrNoVersion, strings.TrimSpace(selector), policy)
	}
	return m.items[i].version, m.items[i].value, nil
}

// Contains reports whether selector resolves under the default policy.
// Invalid selectors are reported as absent.
func (m *SemverMap[V]) Contains(selector string) bool {
	_, _, err := m.Lookup(selector, m.policy)
	return err == nil
}

// Versions returns the stored versions in ascending order.
func (m *SemverMap[V]) Versions() []*semver.Version {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*semver.Version, len(m.items))
	for i, e := range m.items {
		out[i] = e.version
	}
	return out
}

// Values returns the stored values in ascending version order.
func (m *SemverMap[V]) Values() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]V, len(m.items))
	for i, e := range m.items {
		out[i] = e.value
	}
	return out
}

// Earliest returns the lowest stored version, or nil if the map is empty.
func (m *SemverMap[V]) Earliest() *semver.Version {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.items) == 0 {
		return nil
	}
	return m.items[0].version
}

// Latest returns the highest stored version, or nil if the map is empty.
func (m *SemverMap[V]) Latest() *semver.Version {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.items) == 0 {
		return nil
	}
	return m.items[len(m.items)-1].version
}

// Len returns the number of stored versions.
func (m *SemverMap[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func compareEntry[V any](e semverEntry[V], target *semver.Version) int {
	return e.version.Compare(target)
}

// ParseVersion parses a strict semantic version (MAJOR.MINOR.PATCH with
// optional pre-release and build metadata). Failures wrap ErrInvalidVersion.
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, s, err)
	}
	return v, nil
}

// query is a parsed selector: either a single version or a conjunction of
// comparisons.
type query struct {
	version     *semver.Version
	comparisons []comparison
}

type comparison struct {
	op      string
	version *semver.Version
}

// longest operators first so "<=" is not read as "<".
var comparisonOps = []string{"<=", ">=", "==", "!=", "<", ">", "="}

func parseQuery(selector string) (query, error) {
	s := strings.TrimSpace(selector)
	if s == "" || !strings.ContainsAny(s[:1], "<>=!") {
		v, err := ParseVersion(s)
		if err != nil {
			return query{}, err
		}
		return query{version: v}, nil
	}

	var q query
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := parseComparison(part)
		if err != nil {
			return query{}, err
		}
		q.comparisons = append(q.comparisons, c)
	}
	if len(q.comparisons) == 0 {
		return query{}, fmt.Errorf("%w: empty selector %q", ErrInvalidVersion, selector)
	}
	return q, nil
}

func parseComparison(s string) (comparison, error) {
	for _, op := range comparisonOps {
		if rest, ok := strings.CutPrefix(s, op); ok {
			v, err := ParseVersion(rest)
			if err != nil {
				return comparison{}, err
			}
			return comparison{op: op, version: v}, nil
		}
	}
	return comparison{}, fmt.Errorf("%w: bad comparison %q", ErrInvalidVersion, s)
}

func (c comparison) matches(v *semver.Version) bool {
	n := v.Compare(c.version)
	switch c.op {
	case "<":
		return n < 0
	case "<=":
		return n <= 0
	case ">":
		return n > 0
	case ">=":
		return n >= 0
	case "!=":
		return n != 0
	default:
		return n == 0
	}
}

func (q query) matches(v *semver.Version) bool {
	for _, c := range q.comparisons {
		if !c.matches(v) {
			return false
		}
	}
	return true
}

// findVersion returns the index into items selected by q under policy, or -1.
func findVersion[V any](q query, items []semverEntry[V], policy Policy) int {
	if len(q.comparisons) > 0 {
		if policy == PolicyNearestLE {
			for i := range items {
				if q.matches(items[i].version) {
					return i
				}
			}
			return -1
		}
		for i := len(items) - 1; i >= 0; i-- {
			if q.matches(items[i].version) {
				return i
			}
		}
		return -1
	}

	i, found := slices.BinarySearchFunc(items, q.version, compareEntry[V])
	switch policy {
	case PolicyNearestLE:
		if found {
			return i
		}
		return i - 1
	case PolicyNearestGE:
		if i < len(items) {
			return i
		}
	default:
		if found {
			return i
		}
	}
	return -1
}
