package selector

// OnMatchFunc is called after a payload resolved to a registered variant,
// before the variant is constructed.
type OnMatchFunc func(r Resolution)

// OnFallbackFunc is called when the facade is about to materialize itself
// because the token equals its default and no variant claims it.
type OnFallbackFunc func(r Resolution)

// OnFailureFunc is called when resolution or construction fails. token is
// the discriminator value read from the payload, or empty when it was
// missing.
type OnFailureFunc func(facade, token string, err error)

// hooks holds all configured hook functions.
type hooks struct {
	onMatch    []OnMatchFunc
	onFallback []OnFallbackFunc
	onFailure  []OnFailureFunc
}

// WithOnMatch adds a hook called after a variant is selected.
// Multiple hooks are called in order.
//
// Example:
//
//	selector.WithOnMatch(func(r selector.Resolution) {
//	    metrics.Incr("selector.match", "variant:"+r.Variant)
//	})
func WithOnMatch(fn OnMatchFunc) Option {
	return func(c *config) {
		c.hooks.onMatch = append(c.hooks.onMatch, fn)
	}
}

// WithOnFallback adds a hook called when the facade instantiates itself.
// Multiple hooks are called in order.
func WithOnFallback(fn OnFallbackFunc) Option {
	return func(c *config) {
		c.hooks.onFallback = append(c.hooks.onFallback, fn)
	}
}

// WithOnFailure adds a hook called when resolution fails. Hooks observe the
// failure; the error is still returned to the caller.
// Multiple hooks are called in order.
//
// Example:
//
//	selector.WithOnFailure(func(facade, token string, err error) {
//	    logger.Warn("unresolved payload", "facade", facade, "token", token, "error", err)
//	})
func WithOnFailure(fn OnFailureFunc) Option {
	return func(c *config) {
		c.hooks.onFailure = append(c.hooks.onFailure, fn)
	}
}

func (h *hooks) callOnMatch(r Resolution) {
	for _, fn := range h.onMatch {
		fn(r)
	}
}

func (h *hooks) callOnFallback(r Resolution) {
	for _, fn := range h.onFallback {
		fn(r)
	}
}

func (h *hooks) callOnFailure(facade, token string, err error) {
	for _, fn := range h.onFailure {
		fn(facade, token, err)
	}
}
