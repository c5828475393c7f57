package selector

import (
	"errors"
	"fmt"
)

// Definition-time errors. These are returned by New, Match, Nest and Base and
// should abort whatever is declaring the family.
var (
	// ErrNoDiscriminator is returned when a facade declares no discriminator.
	ErrNoDiscriminator = errors.New("facade must declare exactly one discriminator")

	// ErrAmbiguousDiscriminator is returned when a facade declares more than one
	// discriminator.
	ErrAmbiguousDiscriminator = errors.New("ambiguous discriminator")

	// ErrDuplicateRegistration is returned when two variants claim the same
	// discriminator value under one facade.
	ErrDuplicateRegistration = errors.New("duplicate registration")

	// ErrUnknownPolicy is returned for a version policy outside the closed set.
	ErrUnknownPolicy = errors.New("unknown version policy")

	// ErrNestingCycle is returned when nesting a facade would make it reach
	// itself.
	ErrNestingCycle = errors.New("nesting cycle")

	// ErrNotAssignable is returned when a variant type cannot be used as the
	// facade's family type.
	ErrNotAssignable = errors.New("variant not assignable to facade type")
)

// Errors that can occur both at definition time and at resolution time.
var (
	// ErrInvalidVersion is returned when a match value, default or lookup
	// token is not a valid semantic version in a versioned family.
	ErrInvalidVersion = errors.New("invalid version literal")

	// ErrNoVersion is returned by SemverMap when no stored version satisfies a
	// selector under the active policy.
	ErrNoVersion = errors.New("no matching version")
)

// Resolution-time errors.
var (
	// ErrMissingDiscriminator is returned when the payload lacks the
	// discriminator and the facade does not allow it to be missing.
	ErrMissingDiscriminator = errors.New("discriminator required")

	// ErrUnmatchedDiscriminator is returned when the discriminator is present
	// but selects no variant and the default-fallback path does not apply.
	ErrUnmatchedDiscriminator = errors.New("no matching variant")

	// ErrInvalidJSON is returned when the input is not valid JSON.
	ErrInvalidJSON = errors.New("invalid JSON")
)

// DuplicateError reports two variants competing for one discriminator value.
// The existing registration is left in place.
type DuplicateError struct {
	Facade   string
	Value    string
	Existing string
	Incoming string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate discriminator value %q for %s on %s; existing mapping points to %s",
		e.Value, e.Incoming, e.Facade, e.Existing)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateRegistration }

// ResolveError describes a failed resolution. Err is one of
// ErrMissingDiscriminator, ErrUnmatchedDiscriminator or ErrInvalidVersion.
type ResolveError struct {
	Facade string
	Field  string
	Token  string
	Err    error
}

func (e *ResolveError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMissingDiscriminator):
		return fmt.Sprintf("%s requires discriminator field %q", e.Facade, e.Field)
	case errors.Is(e.Err, ErrInvalidVersion):
		return fmt.Sprintf("%s: discriminator %q: %v", e.Facade, e.Token, e.Err)
	case e.Err != ErrUnmatchedDiscriminator:
		return fmt.Sprintf("no discriminator match for value %q on %s: %v", e.Token, e.Facade, e.Err)
	default:
		return fmt.Sprintf("no discriminator match for value %q on %s", e.Token, e.Facade)
	}
}

func (e *ResolveError) Unwrap() error { return e.Err }

// DecodeError wraps a failure of the decoder for the selected variant.
type DecodeError struct {
	Facade  string
	Variant string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s as %s: %v", e.Facade, e.Variant, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError wraps an error returned by a variant's Validate method.
type ValidationError struct {
	Facade  string
	Variant string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s as %s: %v", e.Facade, e.Variant, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
