package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("plain family", func(t *testing.T) {
		cfg, err := LoadConfig([]byte("field: name\ndefault: blob\nallow_missing: true\n"))
		require.NoError(t, err)
		assert.Equal(t, Config{Field: "name", Default: "blob", AllowMissing: true}, cfg)

		f, err := New[shape]("Shape", cfg.Options()...)
		require.NoError(t, err)
		assert.Equal(t, Discriminator{Field: "name", Default: "blob", AllowMissing: true}, f.Discriminator())
		assert.Equal(t, Policy(""), f.Policy())
	})

	t.Run("versioned family with alias", func(t *testing.T) {
		cfg, err := LoadConfig([]byte("field: version\npolicy: ge\n"))
		require.NoError(t, err)
		assert.True(t, cfg.Versioned)
		assert.Equal(t, PolicyNearestGE, cfg.Policy)

		f, err := New[thing]("Thing", cfg.Options()...)
		require.NoError(t, err)
		assert.Equal(t, PolicyNearestGE, f.Policy())
	})

	t.Run("versioned family with default policy", func(t *testing.T) {
		cfg, err := LoadConfig([]byte("field: version\nversioned: true\n"))
		require.NoError(t, err)

		f, err := New[thing]("Thing", cfg.Options()...)
		require.NoError(t, err)
		assert.Equal(t, PolicyNearestLE, f.Policy())
	})

	t.Run("unknown policy fails at load", func(t *testing.T) {
		_, err := LoadConfig([]byte("field: version\npolicy: closest\n"))
		assert.ErrorIs(t, err, ErrUnknownPolicy)
	})

	t.Run("field is required", func(t *testing.T) {
		_, err := LoadConfig([]byte("default: blob\n"))
		assert.ErrorIs(t, err, ErrNoDiscriminator)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfig([]byte("field: [name"))
		assert.Error(t, err)
	})
}
