package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/shopauth/internal/token/domain"
	"github.com/ledgerline/shopauth/internal/token/keysource"
	"github.com/ledgerline/shopauth/pkg/slogx"
)

// countingSource counts Material calls per purpose so tests can assert the
// once-only load behavior.
type countingSource struct {
	inner keysource.Source
	calls map[domain.KeyPurpose]*atomic.Int64
	err   error
}

func newCountingSource(inner keysource.Source, err error) *countingSource {
	return &countingSource{
		inner: inner,
		err:   err,
		calls: map[domain.KeyPurpose]*atomic.Int64{
			domain.KeyAccessAsymmetric: {},
			domain.KeyAccessSymmetric:  {},
			domain.KeyRefreshSymmetric: {},
		},
	}
}

func (s *countingSource) Material(ctx context.Context, purpose domain.KeyPurpose) (keysource.Material, error) {
	s.calls[purpose].Add(1)
	if s.err != nil {
		return keysource.Material{}, s.err
	}
	return s.inner.Material(ctx, purpose)
}

func TestKeyStoreLoadsOncePerPurpose(t *testing.T) {
	src := newCountingSource(newStaticSource(t), nil)
	keys := NewKeyStore(src, slogx.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = keys.SigningKey(ctx)
			_, _ = keys.VerificationKey(ctx)
			_, _ = keys.SymmetricKey(ctx, domain.KeyAccessSymmetric)
			_, _ = keys.SymmetricKey(ctx, domain.KeyRefreshSymmetric)
			_, _ = keys.KeyID(ctx, domain.KeyAccessAsymmetric)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, src.calls[domain.KeyAccessAsymmetric].Load())
	require.EqualValues(t, 1, src.calls[domain.KeyAccessSymmetric].Load())
	require.EqualValues(t, 1, src.calls[domain.KeyRefreshSymmetric].Load())
}

func TestKeyStoreReplaysLoadFailure(t *testing.T) {
	loadErr := errors.New("vault unreachable")
	src := newCountingSource(newStaticSource(t), loadErr)
	keys := NewKeyStore(src, slogx.Nop())
	ctx := context.Background()

	_, err1 := keys.SigningKey(ctx)
	require.Error(t, err1)
	require.True(t, IsReason(err1, ReasonKeyInit))

	// The failure is replayed, not retried.
	_, err2 := keys.VerificationKey(ctx)
	require.Error(t, err2)
	require.ErrorIs(t, err2, loadErr)
	require.EqualValues(t, 1, src.calls[domain.KeyAccessAsymmetric].Load())
}

func TestKeyStoreRejectsMismatchedKeyPair(t *testing.T) {
	a := newStaticSource(t)
	b := newStaticSource(t)

	mixed := keysource.StaticSource{}
	for purpose, material := range a {
		mixed[purpose] = material
	}
	// Public key from an unrelated pair.
	m := mixed[domain.KeyAccessAsymmetric]
	m.Public = b[domain.KeyAccessAsymmetric].Public
	mixed[domain.KeyAccessAsymmetric] = m

	keys := NewKeyStore(mixed, slogx.Nop())
	_, err := keys.SigningKey(context.Background())
	require.Error(t, err)
	require.True(t, IsReason(err, ReasonKeyMaterial))
	require.ErrorContains(t, err, "does not match")
}

func TestKeyStoreKeyIDs(t *testing.T) {
	keys := newTestKeys(t)
	ctx := context.Background()

	kid, err := keys.KeyID(ctx, domain.KeyAccessAsymmetric)
	require.NoError(t, err)
	require.Equal(t, "asym-1", kid)

	kid, err = keys.KeyID(ctx, domain.KeyAccessSymmetric)
	require.NoError(t, err)
	require.Equal(t, "access-local-1", kid)

	kid, err = keys.KeyID(ctx, domain.KeyRefreshSymmetric)
	require.NoError(t, err)
	require.Equal(t, "refresh-local-1", kid)

	_, err = keys.SymmetricKey(ctx, domain.KeyAccessAsymmetric)
	require.Error(t, err)
	require.True(t, IsReason(err, ReasonKeyMaterial))
}
