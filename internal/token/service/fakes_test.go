package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/shopauth/internal/token/domain"
	"github.com/ledgerline/shopauth/internal/token/keysource"
	"github.com/ledgerline/shopauth/internal/token/metrics"
	"github.com/ledgerline/shopauth/internal/token/store"
	"github.com/ledgerline/shopauth/pkg/slogx"
)

const (
	testIssuer   = "shopauth"
	testAudience = "shop-api"
)

func newStaticSource(t *testing.T) keysource.StaticSource {
	t.Helper()

	seed := make([]byte, ed25519.SeedSize)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	private := ed25519.NewKeyFromSeed(seed)
	public := private.Public().(ed25519.PublicKey)

	accessKey := make([]byte, 32)
	_, err = rand.Read(accessKey)
	require.NoError(t, err)
	refreshKey := make([]byte, 32)
	_, err = rand.Read(refreshKey)
	require.NoError(t, err)

	return keysource.StaticSource{
		domain.KeyAccessAsymmetric: {
			KeyID:   "asym-1",
			Private: base64.StdEncoding.EncodeToString(seed),
			Public:  base64.StdEncoding.EncodeToString(public),
		},
		domain.KeyAccessSymmetric: {
			KeyID:   "access-local-1",
			Private: base64.StdEncoding.EncodeToString(accessKey),
		},
		domain.KeyRefreshSymmetric: {
			KeyID:   "refresh-local-1",
			Private: base64.StdEncoding.EncodeToString(refreshKey),
		},
	}
}

func newTestKeys(t *testing.T) *KeyStore {
	t.Helper()
	return NewKeyStore(newStaticSource(t), slogx.Nop())
}

type fakeCaller struct {
	sid    string
	sub    string
	sidErr error
	subErr error
}

func (f *fakeCaller) SessionID(ctx context.Context) (string, error) { return f.sid, f.sidErr }
func (f *fakeCaller) Subject(ctx context.Context) (string, error)   { return f.sub, f.subErr }

type fakeUsers struct {
	mu     sync.Mutex
	users  map[string]domain.User
	getErr error
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]domain.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.User{}, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (f *fakeUsers) CreateUser(ctx context.Context, u domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; ok {
		return store.ErrAlreadyExists
	}
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return store.ErrAlreadyExists
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUsers) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = newHash
	f.users[userID] = u
	return nil
}

func (f *fakeUsers) SetEnabled(ctx context.Context, userID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.Enabled = enabled
	f.users[userID] = u
	return nil
}

func (f *fakeUsers) DeleteUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, userID)
	return nil
}

type fakeRefreshTokens struct {
	mu        sync.Mutex
	records   map[string]domain.RefreshTokenRecord
	createErr error
}

func newFakeRefreshTokens() *fakeRefreshTokens {
	return &fakeRefreshTokens{records: make(map[string]domain.RefreshTokenRecord)}
}

func (f *fakeRefreshTokens) CreateRefreshToken(ctx context.Context, rec domain.RefreshTokenRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.records[rec.TokenHash] = rec
	return nil
}

func (f *fakeRefreshTokens) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshTokenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[hash]
	if !ok {
		return domain.RefreshTokenRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRefreshTokens) RevokeRefreshToken(ctx context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[hash]
	if !ok {
		return store.ErrNotFound
	}
	rec.Revoked = true
	f.records[hash] = rec
	return nil
}

func (f *fakeRefreshTokens) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, rec := range f.records {
		if rec.UserID == userID {
			rec.Revoked = true
			f.records[hash] = rec
		}
	}
	return nil
}

func (f *fakeRefreshTokens) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for hash, rec := range f.records {
		if rec.ExpiresAt.Before(now) {
			delete(f.records, hash)
			n++
		}
	}
	return n, nil
}

type fakeRevokedTokens struct {
	mu        sync.Mutex
	records   map[string]domain.RevocationRecord
	writes    int
	reads     int
	createErr error
	getErr    error
}

func newFakeRevokedTokens() *fakeRevokedTokens {
	return &fakeRevokedTokens{records: make(map[string]domain.RevocationRecord)}
}

func (f *fakeRevokedTokens) CreateRevocation(ctx context.Context, rec domain.RevocationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.records[rec.TokenID]; ok {
		return nil // first record wins
	}
	f.records[rec.TokenID] = rec
	return nil
}

func (f *fakeRevokedTokens) GetRevocation(ctx context.Context, tokenID string) (domain.RevocationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.getErr != nil {
		return domain.RevocationRecord{}, f.getErr
	}
	rec, ok := f.records[tokenID]
	if !ok {
		return domain.RevocationRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRevokedTokens) DeleteRevocationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, rec := range f.records {
		if rec.RevokedAt.Before(cutoff) {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRevokedTokens) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *fakeRevokedTokens) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *fakeCache) Close() error { return nil }

// fakeStore satisfies store.Store over the in-memory fakes. WithTx has no
// real transactionality; fn runs against the same maps.
type fakeStore struct {
	users   *fakeUsers
	refresh *fakeRefreshTokens
	revoked *fakeRevokedTokens
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   newFakeUsers(),
		refresh: newFakeRefreshTokens(),
		revoked: newFakeRevokedTokens(),
	}
}

type fakeTx struct{ *fakeStore }

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

func (f *fakeStore) Users() store.Users                 { return f.users }
func (f *fakeStore) RefreshTokens() store.RefreshTokens { return f.refresh }
func (f *fakeStore) RevokedTokens() store.RevokedTokens { return f.revoked }
func (f *fakeStore) ApplyMigrations() error             { return nil }
func (f *fakeStore) Close() error                       { return nil }
func (f *fakeStore) Ping(ctx context.Context) error     { return nil }

func (f *fakeStore) Tx(ctx context.Context) (store.Tx, error) {
	return fakeTx{f}, nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return fn(fakeTx{f})
}

// fixture wires a full issuance+validation stack against fakes with a
// mutable clock.
type fixture struct {
	now time.Time

	keys    *KeyStore
	users   *fakeUsers
	refresh *fakeRefreshTokens
	revoked *fakeRevokedTokens
	cache   *fakeCache
	caller  *fakeCaller

	builder   *ClaimsBuilder
	codec     *TokenCodec
	ledger    *RevocationLedger
	validator *TokenValidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.keys = newTestKeys(t)
	f.users = newFakeUsers(domain.User{
		ID:       "u42",
		Username: "mjones",
		Roles:    []string{"user"},
		Enabled:  true,
	})
	f.refresh = newFakeRefreshTokens()
	f.revoked = newFakeRevokedTokens()
	f.cache = newFakeCache()
	f.caller = &fakeCaller{sid: "sess-a", sub: "u42"}

	f.builder = &ClaimsBuilder{
		Issuer:   testIssuer,
		Audience: testAudience,
		Clock:    clock,
		Caller:   f.caller,
		Scopes:   StoreScopeSource{Users: f.users},
		Keys:     f.keys,
	}
	f.codec = &TokenCodec{
		Keys:            f.keys,
		Claims:          f.builder,
		RefreshTokens:   f.refresh,
		Metrics:         metrics.Noop{},
		RefreshValidity: 30 * 24 * time.Hour,
	}
	f.ledger = &RevocationLedger{
		Store:   f.revoked,
		Cache:   f.cache,
		Metrics: metrics.Noop{},
		Clock:   clock,
		TTL:     time.Minute,
	}
	f.validator = &TokenValidator{
		Keys:          f.keys,
		Ledger:        f.ledger,
		Users:         f.users,
		RefreshTokens: f.refresh,
		Caller:        f.caller,
		Metrics:       metrics.Noop{},
		Clock:         clock,
		Issuer:        testIssuer,
		Audience:      testAudience,
		ClockSkew:     30 * time.Second,
	}
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) issuePublicAccess(t *testing.T, validity time.Duration) (string, domain.TokenClaims) {
	t.Helper()
	claims, err := f.builder.AccessClaims(context.Background(), "u42", validity)
	require.NoError(t, err)
	token, err := f.codec.IssuePublicAccess(context.Background(), claims)
	require.NoError(t, err)
	return token, claims
}

func (f *fixture) issueLocalAccess(t *testing.T, validity time.Duration) (string, domain.TokenClaims) {
	t.Helper()
	claims, err := f.builder.AccessClaims(context.Background(), "u42", validity)
	require.NoError(t, err)
	token, err := f.codec.IssueLocalAccess(context.Background(), claims)
	require.NoError(t, err)
	return token, claims
}
