package selector

import "fmt"

// Discriminator declares which field of a payload selects the variant.
//
// Field is a path understood by the facade's Inspector; with the default
// JSON inspector that is a gjson path, so nested selectors such as
// "meta.kind" work.
//
// When the field is absent (or JSON null) and AllowMissing is false,
// resolution fails with ErrMissingDiscriminator. When AllowMissing is true,
// Default is used as the token: the variant registered for Default wins if
// there is one, otherwise the facade materializes itself.
type Discriminator struct {
	Field        string
	Default      string
	AllowMissing bool
}

func (d Discriminator) validate() error {
	if d.Field == "" {
		return fmt.Errorf("%w: empty field", ErrNoDiscriminator)
	}
	return nil
}

// token is the outcome of reading the discriminator from a view.
type token struct {
	value     string
	defaulted bool
}

// extract reads the discriminator from v. A present non-string value is
// reported as unmatched with its raw text as the token.
func (d Discriminator) extract(v View) (token, error) {
	var b []byte
	if v.HasField(d.Field) {
		b, _ = v.GetBytes(d.Field)
	}
	if len(b) == 0 || string(b) == "null" {
		if !d.AllowMissing {
			return token{}, ErrMissingDiscriminator
		}
		return token{value: d.Default, defaulted: true}, nil
	}

	s, ok := v.GetString(d.Field)
	if !ok {
		return token{value: string(b)}, fmt.Errorf("%w: not a string", ErrUnmatchedDiscriminator)
	}
	return token{value: s}, nil
}
