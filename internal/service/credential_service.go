package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Daquiver1/veefyed/internal/ids"
	"github.com/Daquiver1/veefyed/internal/models"
	"github.com/Daquiver1/veefyed/internal/repository"
	"github.com/Daquiver1/veefyed/internal/security"
)

var (
	// ErrUnauthenticated means no usable secret was presented at all.
	ErrUnauthenticated = errors.New("missing or malformed credential")
	// ErrInvalidCredential covers unknown, revoked and mismatching secrets.
	// Callers cannot tell those apart; the log carries the internal kind.
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInsufficientScope = errors.New("insufficient scope")
	ErrInvalidScope      = errors.New("invalid scope set")
)

// CredentialStore is the persistence capability the service needs.
type CredentialStore interface {
	Create(ctx context.Context, credential models.Credential) error
	FindByPrefix(ctx context.Context, prefix string) (models.Credential, error)
	GetByID(ctx context.Context, id string) (models.Credential, error)
	Revoke(ctx context.Context, id string) error
}

type CredentialService struct {
	store CredentialStore
	log   zerolog.Logger
}

func NewCredentialService(store CredentialStore, log zerolog.Logger) *CredentialService {
	return &CredentialService{
		store: store,
		log:   log,
	}
}

type IssueInput struct {
	Name   string
	Scopes []models.Scope
}

type IssueResult struct {
	// Secret is the full plaintext, returned exactly once. Only its hash
	// survives issuance.
	Secret     string
	Credential models.Credential
}

func (s *CredentialService) Issue(ctx context.Context, input IssueInput) (IssueResult, error) {
	scopes, err := normalizeScopes(input.Scopes)
	if err != nil {
		return IssueResult{}, err
	}

	plaintext, prefix, err := security.GenerateSecret()
	if err != nil {
		return IssueResult{}, err
	}

	_, secret, err := security.SplitSecret(plaintext)
	if err != nil {
		return IssueResult{}, err
	}

	hash, err := security.HashSecret(secret)
	if err != nil {
		return IssueResult{}, err
	}

	credential := models.Credential{
		ID:        ids.New(),
		Name:      strings.TrimSpace(input.Name),
		Scopes:    scopes,
		KeyPrefix: prefix,
		KeyHash:   hash,
		IsActive:  true,
	}

	if err := s.store.Create(ctx, credential); err != nil {
		return IssueResult{}, err
	}

	s.log.Info().Str("credential_id", credential.ID).Msg("credential issued")

	return IssueResult{
		Secret:     plaintext,
		Credential: credential,
	}, nil
}

// Identify resolves a presented secret to its credential without checking
// any scope. Verification is a pure read; nothing is bumped or touched.
func (s *CredentialService) Identify(ctx context.Context, presented string) (models.Principal, error) {
	if strings.TrimSpace(presented) == "" {
		return models.Principal{}, ErrUnauthenticated
	}

	prefix, secret, err := security.SplitSecret(presented)
	if err != nil {
		return models.Principal{}, ErrUnauthenticated
	}

	credential, err := s.store.FindByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			s.log.Warn().Str("reason", "unknown_prefix").Msg("credential rejected")
			return models.Principal{}, ErrInvalidCredential
		}
		return models.Principal{}, err
	}

	if credential.IsDeleted || !credential.IsActive {
		s.log.Warn().
			Str("credential_id", credential.ID).
			Str("reason", "revoked").
			Msg("credential rejected")
		return models.Principal{}, ErrInvalidCredential
	}

	ok, err := security.VerifySecret(secret, credential.KeyHash)
	if err != nil {
		return models.Principal{}, err
	}
	if !ok {
		s.log.Warn().
			Str("credential_id", credential.ID).
			Str("reason", "hash_mismatch").
			Msg("credential rejected")
		return models.Principal{}, ErrInvalidCredential
	}

	return models.Principal{
		CredentialID: credential.ID,
		Name:         credential.Name,
		Scopes:       credential.Scopes,
	}, nil
}

// Verify authenticates a presented secret and requires the given scope.
func (s *CredentialService) Verify(ctx context.Context, presented string, required models.Scope) (models.Principal, error) {
	principal, err := s.Identify(ctx, presented)
	if err != nil {
		return models.Principal{}, err
	}

	if !principal.HasScope(required) {
		s.log.Warn().
			Str("credential_id", principal.CredentialID).
			Str("required_scope", string(required)).
			Str("reason", "missing_scope").
			Msg("credential rejected")
		return models.Principal{}, ErrInsufficientScope
	}

	return principal, nil
}

func (s *CredentialService) Get(ctx context.Context, id string) (models.Credential, error) {
	return s.store.GetByID(ctx, id)
}

func (s *CredentialService) Revoke(ctx context.Context, id string) error {
	if err := s.store.Revoke(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("credential_id", id).Msg("credential revoked")
	return nil
}

func normalizeScopes(scopes []models.Scope) ([]models.Scope, error) {
	if len(scopes) == 0 {
		return nil, ErrInvalidScope
	}

	seen := make(map[models.Scope]struct{}, len(scopes))
	out := make([]models.Scope, 0, len(scopes))
	for _, scope := range scopes {
		if !models.ValidScope(scope) {
			return nil, ErrInvalidScope
		}
		if _, dup := seen[scope]; dup {
			continue
		}
		seen[scope] = struct{}{}
		out = append(out, scope)
	}
	return out, nil
}
