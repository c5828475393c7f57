// Package selector resolves a raw payload to one of several registered
// concrete variants by the value of a discriminator field, then constructs a
// validated instance of the matched variant.
//
// # Quick Start
//
// Declare the family type, its variants, and a facade that owns the
// discriminator:
//
//	type Shape interface{ Area() float64 }
//
//	type Circle struct {
//	    Name   string  `json:"name"`
//	    Radius float64 `json:"radius"`
//	}
//
//	func (c *Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }
//
//	var shapes = selector.MustNew[Shape]("Shape",
//	    selector.WithDiscriminator(selector.Discriminator{Field: "name"}),
//	)
//
//	func init() {
//	    selector.MustMatch[Circle](shapes, "circle")
//	    selector.MustMatch[Rectangle](shapes, "rectangle")
//	}
//
// Resolve payloads:
//
//	s, err := shapes.Resolve([]byte(`{"name": "circle", "radius": 2}`))
//	// s is a *Circle
//
// # Facades, Variants and the Registry
//
// A Facade is the base definition of a family. It declares exactly one
// Discriminator and owns a registry mapping discriminator values to
// variants. Match binds a concrete Go type to one literal value. Registration
// fails fast: a value already claimed returns a *DuplicateError naming both
// variants, and the registry keeps the original entry.
//
// Variants may themselves be facades. Nest registers a child facade under a
// value, and the child resolves the payload again with its own
// discriminator. Nesting that would let a facade reach itself fails with
// ErrNestingCycle.
//
// # Discriminator
//
// The Discriminator names the field (a gjson path with the default
// inspector), a Default and whether the field may be missing:
//
//	selector.Discriminator{Field: "name", Default: "blob", AllowMissing: true}
//
// Resolution follows these rules:
//
//   - Field present and registered: the variant is constructed
//   - Field absent, AllowMissing false: ErrMissingDiscriminator
//   - Field absent, AllowMissing true: Default is used as the token
//   - Token equal to Default with no variant for it: the facade constructs
//     itself (see Base)
//   - Anything else: ErrUnmatchedDiscriminator
//
// Before construction the discriminator field of the payload is rewritten to
// the variant's literal, so a variant always sees its own value.
//
// # Versioned Families
//
// WithVersionPolicy turns a facade into a versioned family: match values and
// tokens are semantic versions kept in precedence order by a SemverMap, and
// lookup follows a Policy:
//
//   - PolicyExact: the token must be registered
//   - PolicyNearestLE: greatest registered version not above the token (default)
//   - PolicyNearestGE: least registered version not below the token
//
// Invalid versions fail registration, or resolution when they come from a
// payload, with ErrInvalidVersion.
//
// SemverMap can also be used on its own and additionally accepts comparison
// selectors such as ">=1.0.0;<2.0.0".
//
// # Construction
//
// The selected variant is decoded with the facade's Decoder (json.Unmarshal
// by default). Values implementing Validate() error are validated after
// decoding:
//
//	func (c *Circle) Validate() error {
//	    return validation.ValidateStruct(c,
//	        validation.Field(&c.Radius, validation.Required),
//	    )
//	}
//
// Payloads can be rewritten before selection with WithNormalizer, for example
// to map a legacy field onto the discriminator.
//
// Decode and validation failures are returned as *DecodeError and
// *ValidationError.
//
// # Hooks and Logging
//
// Hooks observe resolution without coupling to a logging or metrics system:
//
//	shapes := selector.MustNew[Shape]("Shape",
//	    selector.WithDiscriminator(selector.Discriminator{Field: "name"}),
//	    selector.WithOnMatch(func(r selector.Resolution) {
//	        metrics.Incr("shape.match", "variant:"+r.Variant)
//	    }),
//	    selector.WithOnFailure(func(facade, token string, err error) {
//	        metrics.Incr("shape.failure")
//	    }),
//	)
//
// Registration and failures are also logged at debug level with WithLogger
// (slog.Default() otherwise).
//
// # Configuration
//
// Discriminator settings can be loaded from YAML with LoadConfig and passed
// to New with Config.Options. Unknown policies are rejected at load time.
//
// # Thread Safety
//
// Facades and registries are safe for concurrent use. Registration is
// serialized and resolution never mutates state, so resolving the same
// payload against an unchanged registry always yields the same result.
package selector
