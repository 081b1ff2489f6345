package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daquiver1/veefyed/internal/models"
	"github.com/Daquiver1/veefyed/internal/repository"
	"github.com/Daquiver1/veefyed/internal/security"
)

type fakeCredentialStore struct {
	mu   sync.Mutex
	rows map[string]models.Credential // keyed by prefix
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{rows: make(map[string]models.Credential)}
}

func (s *fakeCredentialStore) Create(_ context.Context, credential models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[credential.KeyPrefix] = credential
	return nil
}

func (s *fakeCredentialStore) FindByPrefix(_ context.Context, prefix string) (models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	credential, ok := s.rows[prefix]
	if !ok {
		return models.Credential{}, repository.ErrCredentialNotFound
	}
	return credential, nil
}

func (s *fakeCredentialStore) GetByID(_ context.Context, id string) (models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, credential := range s.rows {
		if credential.ID == id {
			return credential, nil
		}
	}
	return models.Credential{}, repository.ErrCredentialNotFound
}

func (s *fakeCredentialStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for prefix, credential := range s.rows {
		if credential.ID == id && !credential.IsDeleted {
			credential.IsDeleted = true
			s.rows[prefix] = credential
			return nil
		}
	}
	return repository.ErrCredentialNotFound
}

func newCredentialService(store CredentialStore) *CredentialService {
	return NewCredentialService(store, zerolog.Nop())
}

func TestIssueAndVerify(t *testing.T) {
	store := newFakeCredentialStore()
	svc := newCredentialService(store)
	ctx := context.Background()

	result, err := svc.Issue(ctx, IssueInput{
		Name:   "ingest worker",
		Scopes: []models.Scope{models.ScopeUpload, models.ScopeAnalyze},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Secret, "sk_"))
	assert.Equal(t, "ingest worker", result.Credential.Name)

	// Verification is repeatable, not single-use.
	for i := 0; i < 3; i++ {
		principal, err := svc.Verify(ctx, result.Secret, models.ScopeUpload)
		require.NoError(t, err)
		assert.Equal(t, result.Credential.ID, principal.CredentialID)
		assert.ElementsMatch(t, []models.Scope{models.ScopeUpload, models.ScopeAnalyze}, principal.Scopes)
	}
}

func TestIssueNeverStoresPlaintext(t *testing.T) {
	store := newFakeCredentialStore()
	svc := newCredentialService(store)

	result, err := svc.Issue(context.Background(), IssueInput{
		Name:   "audit",
		Scopes: []models.Scope{models.ScopeUpload},
	})
	require.NoError(t, err)

	stored := store.rows[result.Credential.KeyPrefix]
	assert.NotContains(t, string(stored.KeyHash), result.Secret)
	_, secret, splitErr := security.SplitSecret(result.Secret)
	require.NoError(t, splitErr)
	assert.NotContains(t, string(stored.KeyHash), secret)
}

func TestIssueInvalidScopes(t *testing.T) {
	svc := newCredentialService(newFakeCredentialStore())
	ctx := context.Background()

	cases := map[string][]models.Scope{
		"empty":   {},
		"unknown": {models.Scope("admin")},
		"mixed":   {models.ScopeUpload, models.Scope("root")},
	}
	for name, scopes := range cases {
		_, err := svc.Issue(ctx, IssueInput{Name: name, Scopes: scopes})
		assert.ErrorIs(t, err, ErrInvalidScope, name)
	}
}

func TestIssueDedupesScopes(t *testing.T) {
	svc := newCredentialService(newFakeCredentialStore())

	result, err := svc.Issue(context.Background(), IssueInput{
		Name:   "dupes",
		Scopes: []models.Scope{models.ScopeUpload, models.ScopeUpload},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Scope{models.ScopeUpload}, result.Credential.Scopes)
}

func TestVerifyMissingScope(t *testing.T) {
	svc := newCredentialService(newFakeCredentialStore())
	ctx := context.Background()

	result, err := svc.Issue(ctx, IssueInput{
		Name:   "upload only",
		Scopes: []models.Scope{models.ScopeUpload},
	})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, result.Secret, models.ScopeAnalyze)
	assert.ErrorIs(t, err, ErrInsufficientScope)
}

func TestVerifyMalformedHeader(t *testing.T) {
	svc := newCredentialService(newFakeCredentialStore())
	ctx := context.Background()

	for _, presented := range []string{"", "   ", "garbage", "sk_nounderscore"} {
		_, err := svc.Verify(ctx, presented, models.ScopeUpload)
		assert.ErrorIs(t, err, ErrUnauthenticated, "presented %q", presented)
	}
}

func TestVerifyUnknownAndTampered(t *testing.T) {
	store := newFakeCredentialStore()
	svc := newCredentialService(store)
	ctx := context.Background()

	result, err := svc.Issue(ctx, IssueInput{
		Name:   "victim",
		Scopes: []models.Scope{models.ScopeUpload},
	})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "sk_feedfeedfeedfeed_bm90LXRoZS1zZWNyZXQ", models.ScopeUpload)
	assert.ErrorIs(t, err, ErrInvalidCredential)

	// Right prefix, wrong secret component.
	tampered := result.Secret[:strings.LastIndex(result.Secret, "_")] + "_bm90LXRoZS1zZWNyZXQ"
	_, err = svc.Verify(ctx, tampered, models.ScopeUpload)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyAfterRevoke(t *testing.T) {
	store := newFakeCredentialStore()
	svc := newCredentialService(store)
	ctx := context.Background()

	result, err := svc.Issue(ctx, IssueInput{
		Name:   "short lived",
		Scopes: []models.Scope{models.ScopeAnalyze},
	})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, result.Secret, models.ScopeAnalyze)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, result.Credential.ID))

	for i := 0; i < 3; i++ {
		_, err = svc.Verify(ctx, result.Secret, models.ScopeAnalyze)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	}
}

func TestVerifyInactiveCredential(t *testing.T) {
	store := newFakeCredentialStore()
	svc := newCredentialService(store)
	ctx := context.Background()

	result, err := svc.Issue(ctx, IssueInput{
		Name:   "paused",
		Scopes: []models.Scope{models.ScopeUpload},
	})
	require.NoError(t, err)

	credential := store.rows[result.Credential.KeyPrefix]
	credential.IsActive = false
	store.rows[result.Credential.KeyPrefix] = credential

	_, err = svc.Verify(ctx, result.Secret, models.ScopeUpload)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestLookupIndependentOfStoreSize(t *testing.T) {
	store := newFakeCredentialStore()
	svc := newCredentialService(store)
	ctx := context.Background()

	secrets := make(map[string]string, 4)
	for _, name := range []string{"a", "b", "c", "d"} {
		result, err := svc.Issue(ctx, IssueInput{
			Name:   name,
			Scopes: []models.Scope{models.ScopeUpload},
		})
		require.NoError(t, err)
		secrets[name] = result.Secret
	}

	for name, secret := range secrets {
		principal, err := svc.Verify(ctx, secret, models.ScopeUpload)
		require.NoError(t, err)
		assert.Equal(t, name, principal.Name)
	}
}
