package keysource_test

import (
	"context"
	"testing"

	"github.com/ledgerline/shopauth/internal/token/domain"
	"github.com/ledgerline/shopauth/internal/token/keysource"
	"github.com/stretchr/testify/require"
)

func TestEnvSource(t *testing.T) {
	ctx := context.Background()
	src := keysource.NewEnvSource()

	t.Run("asymmetric purpose needs seed, public key, and kid", func(t *testing.T) {
		t.Setenv(keysource.EnvAccessAsymKeyID, "access-2026")
		t.Setenv(keysource.EnvAccessSigningSeed, "c2VlZA==")
		t.Setenv(keysource.EnvAccessPublicKey, "cHVibGlj")

		m, err := src.Material(ctx, domain.KeyAccessAsymmetric)
		require.NoError(t, err)
		require.Equal(t, "access-2026", m.KeyID)
		require.Equal(t, "c2VlZA==", m.Private)
		require.Equal(t, "cHVibGlj", m.Public)
	})

	t.Run("symmetric purpose has no public half", func(t *testing.T) {
		t.Setenv(keysource.EnvRefreshLocalKeyID, "refresh-2026")
		t.Setenv(keysource.EnvRefreshLocalKey, "a2V5")

		m, err := src.Material(ctx, domain.KeyRefreshSymmetric)
		require.NoError(t, err)
		require.Equal(t, "refresh-2026", m.KeyID)
		require.Equal(t, "a2V5", m.Private)
		require.Empty(t, m.Public)
	})

	t.Run("missing kid", func(t *testing.T) {
		t.Setenv(keysource.EnvAccessLocalKeyID, "")
		t.Setenv(keysource.EnvAccessLocalKey, "a2V5")

		_, err := src.Material(ctx, domain.KeyAccessSymmetric)
		require.ErrorIs(t, err, keysource.ErrMissingMaterial)
	})

	t.Run("missing private material", func(t *testing.T) {
		t.Setenv(keysource.EnvAccessLocalKeyID, "access-local-2026")
		t.Setenv(keysource.EnvAccessLocalKey, "")

		_, err := src.Material(ctx, domain.KeyAccessSymmetric)
		require.ErrorIs(t, err, keysource.ErrMissingMaterial)
	})

	t.Run("unknown purpose", func(t *testing.T) {
		_, err := src.Material(ctx, domain.KeyPurpose("bogus"))
		require.ErrorIs(t, err, keysource.ErrMissingMaterial)
	})
}

func TestStaticSource(t *testing.T) {
	src := keysource.StaticSource{
		domain.KeyAccessSymmetric: {KeyID: "k1", Private: "a2V5"},
	}

	m, err := src.Material(context.Background(), domain.KeyAccessSymmetric)
	require.NoError(t, err)
	require.Equal(t, "k1", m.KeyID)

	_, err = src.Material(context.Background(), domain.KeyRefreshSymmetric)
	require.ErrorIs(t, err, keysource.ErrMissingMaterial)
}
