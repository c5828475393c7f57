package selector

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// Decoder constructs a value from a raw payload. It is the boundary with the
// validation engine: the default is encoding/json, and a value that
// implements Validate() error is validated after decoding.
type Decoder func(raw []byte, v any) error

// Normalizer rewrites a raw payload before the discriminator is read. The
// returned payload is the one the selected variant is constructed from.
type Normalizer func(raw []byte) ([]byte, error)

// config collects options before New freezes them into a Facade.
type config struct {
	discriminators []Discriminator
	versioned      bool
	policy         Policy
	inspector      Inspector
	decoder        Decoder
	normalizers    []Normalizer
	logger         *slog.Logger
	hooks          hooks
}

// Option configures a Facade.
type Option func(*config)

// WithDiscriminator declares the facade's discriminator. A facade must
// declare exactly one; New rejects zero with ErrNoDiscriminator and more
// than one with ErrAmbiguousDiscriminator.
func WithDiscriminator(d Discriminator) Option {
	return func(c *config) {
		c.discriminators = append(c.discriminators, d)
	}
}

// WithVersionPolicy makes the family versioned: match values, the default and
// payload tokens are semantic versions, and lookups follow policy. An empty
// policy means DefaultPolicy. An unknown policy fails New with
// ErrUnknownPolicy.
func WithVersionPolicy(policy Policy) Option {
	return func(c *config) {
		c.versioned = true
		c.policy = policy
	}
}

// WithInspector sets the inspector used to read the discriminator.
// The default is JSONInspector.
func WithInspector(i Inspector) Option {
	return func(c *config) {
		c.inspector = i
	}
}

// WithDecoder sets the decoder used to construct variants.
// The default is json.Unmarshal.
func WithDecoder(d Decoder) Option {
	return func(c *config) {
		c.decoder = d
	}
}

// WithNormalizer adds a normalizer applied to every payload before
// selection, for example to map a legacy field onto the discriminator.
// Multiple normalizers run in order. A normalizer error fails resolution.
//
// Example:
//
//	selector.WithNormalizer(func(raw []byte) ([]byte, error) {
//	    if !gjson.GetBytes(raw, "kind").Exists() {
//	        return sjson.SetBytes(raw, "kind", gjson.GetBytes(raw, "type").String())
//	    }
//	    return raw, nil
//	})
func WithNormalizer(n Normalizer) Option {
	return func(c *config) {
		c.normalizers = append(c.normalizers, n)
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func newConfig(opts []Option) (*config, error) {
	c := &config{
		inspector: JSONInspector(),
		decoder:   json.Unmarshal,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	switch len(c.discriminators) {
	case 0:
		return nil, ErrNoDiscriminator
	case 1:
	default:
		fields := make([]string, len(c.discriminators))
		for i, d := range c.discriminators {
			fields[i] = d.Field
		}
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousDiscriminator, fields)
	}
	if err := c.discriminators[0].validate(); err != nil {
		return nil, err
	}

	if c.versioned {
		if c.policy == "" {
			c.policy = DefaultPolicy
		}
		if err := c.policy.Validate(); err != nil {
			return nil, err
		}
		if d := c.discriminators[0].Default; d != "" {
			if _, err := ParseVersion(d); err != nil {
				return nil, fmt.Errorf("default: %w", err)
			}
		}
	}
	return c, nil
}

// Config is the file form of a facade family's discriminator settings.
//
//	field: version
//	default: 1.0.0
//	allow_missing: true
//	versioned: true
//	policy: le
type Config struct {
	Field        string `yaml:"field" json:"field"`
	Default      string `yaml:"default,omitempty" json:"default,omitempty"`
	AllowMissing bool   `yaml:"allow_missing,omitempty" json:"allow_missing,omitempty"`
	Versioned    bool   `yaml:"versioned,omitempty" json:"versioned,omitempty"`
	Policy       Policy `yaml:"policy,omitempty" json:"policy,omitempty"`
}

// LoadConfig parses a YAML family configuration. Unknown policies are
// rejected here, before any facade is defined.
func LoadConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("load selector config: %w", err)
	}
	if c.Field == "" {
		return Config{}, fmt.Errorf("load selector config: %w", ErrNoDiscriminator)
	}
	if c.Policy != "" {
		c.Versioned = true
	}
	return c, nil
}

// Options converts c into options for New.
func (c Config) Options() []Option {
	opts := []Option{
		WithDiscriminator(Discriminator{
			Field:        c.Field,
			Default:      c.Default,
			AllowMissing: c.AllowMissing,
		}),
	}
	if c.Versioned || c.Policy != "" {
		opts = append(opts, WithVersionPolicy(c.Policy))
	}
	return opts
}
