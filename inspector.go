package selector

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Inspector examines raw bytes and returns a View for field queries.
// Different inspectors handle different formats.
type Inspector interface {
	Inspect(raw []byte) (View, error)
}

// View provides format-agnostic field access for discriminator extraction.
type View interface {
	// HasField returns true if the path exists in the payload.
	HasField(path string) bool

	// GetString returns the string value at path, or false if not found
	// or not a string.
	GetString(path string) (string, bool)

	// GetBytes returns the raw bytes at path, or false if not found.
	// For JSON, this returns the raw JSON value (including quotes for strings).
	GetBytes(path string) ([]byte, bool)
}

// Rewriter is an optional interface for views that can produce a copy of the
// payload with a string field replaced. The facade uses it to write the
// substituted default or the matched variant's literal back into the payload
// before construction. Views that do not implement it are decoded as is.
type Rewriter interface {
	SetString(path, value string) ([]byte, error)
}

// JSONInspector returns an Inspector that uses gjson for field access and
// sjson for rewrites.
func JSONInspector() Inspector {
	return jsonInspector{}
}

type jsonInspector struct{}

func (jsonInspector) Inspect(raw []byte) (View, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	return jsonView{raw: raw}, nil
}

type jsonView struct {
	raw []byte
}

func (v jsonView) HasField(path string) bool {
	return gjson.GetBytes(v.raw, path).Exists()
}

func (v jsonView) GetString(path string) (string, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() {
		return "", false
	}
	if r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

func (v jsonView) GetBytes(path string) ([]byte, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() {
		return nil, false
	}
	return []byte(r.Raw), true
}

func (v jsonView) SetString(path, value string) ([]byte, error) {
	return sjson.SetBytes(v.raw, path, value)
}
