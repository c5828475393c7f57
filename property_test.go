package selector

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/Masterminds/semver/v3"
	"pgregory.net/rapid"
)

func versionGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		return fmt.Sprintf("%d.%d.%d",
			rapid.IntRange(0, 3).Draw(t, "major"),
			rapid.IntRange(0, 3).Draw(t, "minor"),
			rapid.IntRange(0, 3).Draw(t, "patch"),
		)
	})
}

// TestNearestPoliciesMatchLinearScan checks the binary search against a
// scan of every registered version.
func TestNearestPoliciesMatchLinearScan(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		registered := rapid.SliceOfN(versionGen(), 0, 12).Draw(r, "registered")
		target := versionGen().Draw(r, "target")

		m, err := NewSemverMap[string](PolicyExact)
		if err != nil {
			r.Fatalf("NewSemverMap: %v", err)
		}
		for _, v := range registered {
			if err := m.Set(v, v); err != nil {
				r.Fatalf("Set(%s): %v", v, err)
			}
		}

		want := semver.MustParse(target)
		var le, ge *semver.Version
		for _, v := range m.Versions() {
			if !v.GreaterThan(want) && (le == nil || v.GreaterThan(le)) {
				le = v
			}
			if !v.LessThan(want) && (ge == nil || v.LessThan(ge)) {
				ge = v
			}
		}

		for policy, expected := range map[Policy]*semver.Version{PolicyNearestLE: le, PolicyNearestGE: ge} {
			got, _, err := m.Lookup(target, policy)
			if expected == nil {
				if !errors.Is(err, ErrNoVersion) {
					r.Fatalf("%s %s: expected no version, got %v (%v)", policy, target, got, err)
				}
				continue
			}
			if err != nil {
				r.Fatalf("%s %s: %v", policy, target, err)
			}
			if !got.Equal(expected) {
				r.Fatalf("%s %s: got %s, want %s", policy, target, got, expected)
			}
		}
	})
}

// TestDuplicateRegistrationNeverReplaces registers random values in random
// order and checks the first registration for every value survives.
func TestDuplicateRegistrationNeverReplaces(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		f, err := New[shape]("Shape", WithDiscriminator(Discriminator{Field: "name"}))
		if err != nil {
			r.Fatalf("New: %v", err)
		}

		first := make(map[string]string)
		n := rapid.IntRange(1, 20).Draw(r, "n")
		for range n {
			value := rapid.SampledFrom([]string{"a", "b", "c", "d"}).Draw(r, "value")

			var name string
			if rapid.Bool().Draw(r, "circle") {
				name = "selector.circle"
				err = Match[circle](f, value)
			} else {
				name = "selector.rectangle"
				err = Match[rectangle](f, value)
			}

			if _, seen := first[value]; seen {
				if !errors.Is(err, ErrDuplicateRegistration) {
					r.Fatalf("re-registering %q: expected duplicate error, got %v", value, err)
				}
				continue
			}
			if err != nil {
				r.Fatalf("registering %q: %v", value, err)
			}
			first[value] = name
		}

		for _, e := range f.Variants() {
			if first[e.Value] != e.Variant {
				r.Fatalf("value %q maps to %s, want %s", e.Value, e.Variant, first[e.Value])
			}
		}
		if len(f.Variants()) != len(first) {
			r.Fatalf("got %d variants, want %d", len(f.Variants()), len(first))
		}
	})
}

// TestMissingDiscriminatorAlwaysFails checks that payloads without the
// field never resolve when the field is required.
func TestMissingDiscriminatorAlwaysFails(t *testing.T) {
	f, err := New[shape]("Shape",
		WithDiscriminator(Discriminator{Field: "name", Default: "circle"}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := Match[circle](f, "circle"); err != nil {
		t.Fatalf("Match: %v", err)
	}

	rapid.Check(t, func(r *rapid.T) {
		payload := rapid.MapOf(
			rapid.StringMatching(`[a-m]{1,6}`),
			rapid.IntRange(-100, 100),
		).Draw(r, "payload")

		_, err := f.ResolveValue(payload)
		if !errors.Is(err, ErrMissingDiscriminator) {
			r.Fatalf("payload %v: expected missing discriminator, got %v", payload, err)
		}
	})
}

// TestResolveIsDeterministic resolves the same payload twice against an
// unchanged registry.
func TestResolveIsDeterministic(t *testing.T) {
	f, err := New[shape]("Shape", WithDiscriminator(Discriminator{Field: "name"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for value, match := range map[string]func() error{
		"circle":    func() error { return Match[circle](f, "circle") },
		"rectangle": func() error { return Match[rectangle](f, "rectangle") },
		"square":    func() error { return Match[square](f, "square") },
	} {
		if err := match(); err != nil {
			t.Fatalf("Match(%s): %v", value, err)
		}
	}

	rapid.Check(t, func(r *rapid.T) {
		payload := map[string]any{
			"name":   rapid.SampledFrom([]string{"circle", "rectangle", "square", "pentagon"}).Draw(r, "name"),
			"radius": rapid.Float64Range(-5, 5).Draw(r, "radius"),
			"side":   rapid.Float64Range(0, 5).Draw(r, "side"),
		}

		a, errA := f.ResolveValue(payload)
		b, errB := f.ResolveValue(payload)

		if (errA == nil) != (errB == nil) {
			r.Fatalf("payload %v: errors differ: %v vs %v", payload, errA, errB)
		}
		if errA != nil {
			if errA.Error() != errB.Error() {
				r.Fatalf("payload %v: errors differ: %v vs %v", payload, errA, errB)
			}
			return
		}
		if !reflect.DeepEqual(a, b) {
			r.Fatalf("payload %v: results differ: %#v vs %#v", payload, a, b)
		}
	})
}
