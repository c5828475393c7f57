package selector

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"
)

// validatable is the interface for payload validation.
// Compatible with github.com/go-ozzo/ozzo-validation/v4.
type validatable interface {
	Validate() error
}

// builder constructs a family value from a raw payload. It erases the
// concrete variant type so variants of different types share one registry.
type builder[T any] func(raw []byte) (T, error)

// variant is a registry entry: a concrete type bound to one literal value.
type variant[T any] struct {
	name   string
	value  string
	build  builder[T]
	nested *Facade[T]
}

// Entry describes a registered variant.
type Entry struct {
	// Value is the literal discriminator value the variant was registered
	// under.
	Value string

	// Variant is the Go type name of the variant, or the facade name for
	// nested facades.
	Variant string
}

// Resolution describes which definition a payload selects.
type Resolution struct {
	// Facade is the name of the facade that resolved the payload.
	Facade string

	// Field is the discriminator path.
	Field string

	// Token is the discriminator value used for lookup. It is the facade
	// default when Defaulted is set.
	Token string

	// Value is the literal of the selected variant. For versioned families
	// it may differ from Token under the nearest policies. Empty on the
	// fallback path.
	Value string

	// Variant is the type name of the definition that will be constructed.
	Variant string

	// Defaulted is set when the discriminator was missing and the default
	// was substituted.
	Defaulted bool

	// Fallback is set when the facade materializes itself instead of a
	// variant.
	Fallback bool
}

// Facade is the base definition of a family of variants. It owns the
// discriminator declaration and the registry that maps discriminator values
// to concrete variant types, and it resolves raw payloads into values of the
// family type T.
//
// T is usually an interface implemented by every variant. When T is a
// concrete type the facade can materialize itself on the default-fallback
// path without a call to Base.
//
// Facade is safe for concurrent use. Registration may happen at any time
// and is serialized; resolution never mutates the registry.
type Facade[T any] struct {
	name   string
	disc   Discriminator
	cfg    *config
	index  index[T]
	base   atomic.Pointer[variant[T]]
	logger *slog.Logger
}

// New defines a facade. Exactly one discriminator must be declared with
// WithDiscriminator.
//
// Example:
//
//	shapes, err := selector.New[Shape]("Shape",
//	    selector.WithDiscriminator(selector.Discriminator{Field: "name"}),
//	)
func New[T any](name string, opts ...Option) (*Facade[T], error) {
	c, err := newConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("define %s: %w", name, err)
	}

	f := &Facade[T]{
		name:   name,
		disc:   c.discriminators[0],
		cfg:    c,
		logger: c.logger.With(slog.String("facade", name)),
	}

	if c.versioned {
		m, err := NewSemverMap[*variant[T]](c.policy)
		if err != nil {
			return nil, fmt.Errorf("define %s: %w", name, err)
		}
		f.index = versionIndex[T]{versions: m}
	} else {
		f.index = plainIndex[T]{registry: NewRegistry[*variant[T]]()}
	}

	if reflect.TypeFor[T]().Kind() != reflect.Interface {
		build, err := constructor[T](f)
		if err != nil {
			return nil, fmt.Errorf("define %s: %w", name, err)
		}
		f.base.Store(&variant[T]{name: typeName[T](), build: build})
	}

	return f, nil
}

// MustNew is like New but panics on error. Use it for package-level facade
// declarations, where a bad definition should stop the program.
func MustNew[T any](name string, opts ...Option) *Facade[T] {
	f, err := New[T](name, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Name returns the facade name.
func (f *Facade[T]) Name() string { return f.name }

// Discriminator returns the facade's discriminator declaration.
func (f *Facade[T]) Discriminator() Discriminator { return f.disc }

// Policy returns the version policy, or an empty Policy for plain families.
func (f *Facade[T]) Policy() Policy {
	if !f.cfg.versioned {
		return ""
	}
	return f.cfg.policy
}

// Match registers the concrete type V for the discriminator value. V, or *V,
// must be assignable to T.
//
// A value already claimed by another variant fails with a *DuplicateError
// and the existing registration stays in place. In versioned families value
// must be a semantic version, and versions of equal precedence collide.
//
// This is a package-level function (not a method) due to Go generics limitations:
// methods cannot have type parameters independent of the receiver.
//
// Example:
//
//	selector.Match[Circle](shapes, "circle")
//	selector.Match[Rectangle](shapes, "rectangle")
func Match[V, T any](f *Facade[T], value string) error {
	build, err := constructor[V](f)
	if err != nil {
		return fmt.Errorf("%s: match %q: %w", f.name, value, err)
	}
	return f.register(&variant[T]{name: typeName[V](), value: value, build: build})
}

// MustMatch is like Match but panics on error.
func MustMatch[V, T any](f *Facade[T], value string) {
	if err := Match[V](f, value); err != nil {
		panic(err)
	}
}

// Nest registers child as the variant for value, so a payload selecting
// value is resolved again by child using child's own discriminator. This
// builds multi-level hierarchies.
//
// Nesting a facade under itself, directly or through its descendants, fails
// with ErrNestingCycle.
func Nest[T any](parent *Facade[T], value string, child *Facade[T]) error {
	if child.reaches(parent, make(map[*Facade[T]]bool)) {
		return fmt.Errorf("%s: nest %q: %w: %s", parent.name, value, ErrNestingCycle, child.name)
	}
	return parent.register(&variant[T]{name: child.name, value: value, build: child.Resolve, nested: child})
}

// reaches reports whether target is f or is nested anywhere below f.
func (f *Facade[T]) reaches(target *Facade[T], seen map[*Facade[T]]bool) bool {
	if f == target {
		return true
	}
	if seen[f] {
		return false
	}
	seen[f] = true
	for _, v := range f.index.all() {
		if v.nested != nil && v.nested.reaches(target, seen) {
			return true
		}
	}
	return false
}

// Base declares the concrete type the facade materializes itself as on the
// default-fallback path: the token equals the facade default and no variant
// claims it. B, or *B, must be assignable to T. Base replaces any earlier
// base, including the implicit one of a concrete T.
func Base[B, T any](f *Facade[T]) error {
	build, err := constructor[B](f)
	if err != nil {
		return fmt.Errorf("%s: base: %w", f.name, err)
	}
	f.base.Store(&variant[T]{name: typeName[B](), build: build})
	return nil
}

func (f *Facade[T]) register(v *variant[T]) error {
	actual, loaded, err := f.index.store(v)
	if err != nil {
		return fmt.Errorf("%s: match %s: %w", f.name, v.name, err)
	}
	if loaded {
		return &DuplicateError{
			Facade:   f.name,
			Value:    v.value,
			Existing: actual.name,
			Incoming: v.name,
		}
	}
	f.logger.Debug("registered variant",
		slog.String("value", v.value),
		slog.String("variant", v.name),
	)
	return nil
}

// Variants returns a snapshot of the registered variants, ordered by value
// (by version precedence for versioned families).
func (f *Facade[T]) Variants() []Entry {
	all := f.index.all()
	out := make([]Entry, len(all))
	for i, v := range all {
		out[i] = Entry{Value: v.value, Variant: v.name}
	}
	return out
}

// Lookup returns the variant registered for token without reading a payload.
// Versioned families apply their policy. The default-fallback path is not
// considered.
func (f *Facade[T]) Lookup(token string) (Entry, bool, error) {
	v, found, err := f.index.find(token)
	if err != nil || !found {
		return Entry{}, false, err
	}
	return Entry{Value: v.value, Variant: v.name}, true, nil
}

// Select resolves raw to the definition that would be constructed, without
// constructing it.
//
// The resolution flow:
//  1. Read the discriminator with the inspector
//  2. If absent, fail unless AllowMissing, in which case use Default
//  3. Look the token up in the registry (by policy for versioned families)
//  4. On a miss, fall back to the facade itself if the token is the default
//  5. Otherwise fail with ErrUnmatchedDiscriminator
func (f *Facade[T]) Select(raw []byte) (Resolution, error) {
	res, _, _, _, err := f.selectVariant(raw)
	return res, err
}

// Resolve selects the variant for raw and constructs it. The discriminator
// field is rewritten to the variant's literal (or set to the substituted
// default) before the payload is decoded. In versioned families this holds
// for the nearest policies too: a "1.5.0" payload matched to the "1.0.0"
// variant decodes with "1.0.0", so the instance always carries the version
// its type was registered for. Resolution.Token keeps the requested value.
//
// Construction decodes with the facade's Decoder and then calls Validate if
// the decoded value implements it. Failures are *DecodeError and
// *ValidationError; resolution failures are *ResolveError.
func (f *Facade[T]) Resolve(raw []byte) (T, error) {
	var zero T

	res, v, view, raw, err := f.selectVariant(raw)
	if err != nil {
		f.fail(res.Token, err)
		return zero, err
	}

	if res.Fallback {
		f.cfg.hooks.callOnFallback(res)
	} else {
		f.cfg.hooks.callOnMatch(res)
	}

	payload, err := f.rewrite(view, raw, res)
	if err != nil {
		f.fail(res.Token, err)
		return zero, err
	}

	out, err := v.build(payload)
	if err != nil {
		f.fail(res.Token, err)
		return zero, err
	}
	return out, nil
}

// ResolveValue marshals payload to JSON and resolves it. Use it for payloads
// held as maps or structs.
func (f *Facade[T]) ResolveValue(payload any) (T, error) {
	switch p := payload.(type) {
	case []byte:
		return f.Resolve(p)
	case json.RawMessage:
		return f.Resolve(p)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: marshal payload: %w", f.name, err)
	}
	return f.Resolve(raw)
}

// selectVariant returns the resolution, the variant to build, the view of
// the payload and the normalized payload it was read from.
func (f *Facade[T]) selectVariant(raw []byte) (Resolution, *variant[T], View, []byte, error) {
	res := Resolution{Facade: f.name, Field: f.disc.Field}

	for _, normalize := range f.cfg.normalizers {
		out, err := normalize(raw)
		if err != nil {
			return res, nil, nil, nil, fmt.Errorf("%s: normalize: %w", f.name, err)
		}
		raw = out
	}

	view, err := f.cfg.inspector.Inspect(raw)
	if err != nil {
		return res, nil, nil, nil, fmt.Errorf("%s: %w", f.name, err)
	}

	tok, err := f.disc.extract(view)
	res.Token = tok.value
	res.Defaulted = tok.defaulted
	if err != nil {
		return res, nil, nil, nil, f.resolveError(tok.value, err)
	}

	// An empty default never names a variant; it only opens the fallback.
	if !(tok.defaulted && tok.value == "") {
		v, found, err := f.index.find(tok.value)
		if err != nil {
			return res, nil, nil, nil, f.resolveError(tok.value, err)
		}
		if found {
			res.Value = v.value
			res.Variant = v.name
			return res, v, view, raw, nil
		}
	}

	if f.isDefault(tok) {
		if base := f.base.Load(); base != nil {
			res.Variant = base.name
			res.Fallback = true
			return res, base, view, raw, nil
		}
	}

	return res, nil, nil, nil, f.resolveError(tok.value, ErrUnmatchedDiscriminator)
}

func (f *Facade[T]) resolveError(tok string, err error) error {
	return &ResolveError{Facade: f.name, Field: f.disc.Field, Token: tok, Err: err}
}

// isDefault reports whether tok is the facade default. An empty default is
// only reached by substitution; a present empty value is never the default.
// Versioned families compare by precedence.
func (f *Facade[T]) isDefault(tok token) bool {
	def := f.disc.Default
	if def == "" {
		return tok.defaulted
	}
	if tok.value == def {
		return true
	}
	if !f.cfg.versioned {
		return false
	}
	a, err := ParseVersion(tok.value)
	if err != nil {
		return false
	}
	b, err := ParseVersion(def)
	if err != nil {
		return false
	}
	return a.Equal(b)
}

// rewrite returns the payload to construct from: the discriminator carries
// the selected literal, or the substituted default on the fallback path.
func (f *Facade[T]) rewrite(view View, raw []byte, res Resolution) ([]byte, error) {
	want := res.Value
	if res.Fallback {
		want = res.Token
	}
	if res.Defaulted && want == "" {
		return raw, nil
	}
	if !res.Defaulted && want == res.Token {
		return raw, nil
	}

	w, ok := view.(Rewriter)
	if !ok {
		return raw, nil
	}
	out, err := w.SetString(f.disc.Field, want)
	if err != nil {
		return nil, fmt.Errorf("%s: rewrite %s: %w", f.name, f.disc.Field, err)
	}
	return out, nil
}

func (f *Facade[T]) fail(tok string, err error) {
	f.logger.Debug("resolution failed",
		slog.String("token", tok),
		slog.String("error", err.Error()),
	)
	f.cfg.hooks.callOnFailure(f.name, tok, err)
}

// constructor returns a builder decoding payloads as V and handing them out
// as T. *V is preferred when both V and *V are assignable to T.
func constructor[V, T any](f *Facade[T]) (builder[T], error) {
	var probe V
	_, byValue := any(probe).(T)
	_, byPointer := any(&probe).(T)
	if !byValue && !byPointer {
		return nil, fmt.Errorf("%w: %s as %s", ErrNotAssignable, typeName[V](), typeName[T]())
	}

	name := typeName[V]()
	return func(raw []byte) (T, error) {
		var zero T

		data := new(V)
		if err := f.cfg.decoder(raw, data); err != nil {
			return zero, &DecodeError{Facade: f.name, Variant: name, Err: err}
		}

		if v, ok := any(data).(validatable); ok {
			if err := v.Validate(); err != nil {
				return zero, &ValidationError{Facade: f.name, Variant: name, Err: err}
			}
		}

		if byPointer {
			return any(data).(T), nil
		}
		return any(*data).(T), nil
	}, nil
}

func typeName[V any]() string {
	return reflect.TypeFor[V]().String()
}

// index is the storage behind a facade: plain equality or version order.
type index[T any] interface {
	store(v *variant[T]) (actual *variant[T], loaded bool, err error)
	find(tok string) (*variant[T], bool, error)
	all() []*variant[T]
}

type plainIndex[T any] struct {
	registry *Registry[*variant[T]]
}

func (p plainIndex[T]) store(v *variant[T]) (*variant[T], bool, error) {
	actual, loaded := p.registry.LoadOrStore(v.value, v)
	return actual, loaded, nil
}

func (p plainIndex[T]) find(tok string) (*variant[T], bool, error) {
	v, ok := p.registry.Load(tok)
	return v, ok, nil
}

func (p plainIndex[T]) all() []*variant[T] {
	keys := p.registry.Keys()
	out := make([]*variant[T], 0, len(keys))
	for _, k := range keys {
		if v, ok := p.registry.Load(k); ok {
			out = append(out, v)
		}
	}
	return out
}

type versionIndex[T any] struct {
	versions *SemverMap[*variant[T]]
}

func (x versionIndex[T]) store(v *variant[T]) (*variant[T], bool, error) {
	return x.versions.LoadOrStore(v.value, v)
}

// find accepts only plain versions; comparison selectors are a SemverMap
// feature and are not valid discriminator values.
func (x versionIndex[T]) find(tok string) (*variant[T], bool, error) {
	if _, err := ParseVersion(tok); err != nil {
		return nil, false, err
	}
	v, err := x.versions.Get(tok)
	if errors.Is(err, ErrNoVersion) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (x versionIndex[T]) all() []*variant[T] {
	return x.versions.Values()
}
