package models

import "time"

type Scope string

const (
	ScopeUpload  Scope = "upload"
	ScopeAnalyze Scope = "analyze"
)

// KnownScopes is the closed set of scopes a credential may hold.
var KnownScopes = []Scope{ScopeUpload, ScopeAnalyze}

func ValidScope(s Scope) bool {
	for _, known := range KnownScopes {
		if s == known {
			return true
		}
	}
	return false
}

// Credential is an issued API key as stored. KeyHash is the argon2id digest of
// the secret component; the plaintext is never persisted. KeyPrefix is the
// public lookup component embedded in the issued secret.
type Credential struct {
	ID        string
	Name      string
	Scopes    []Scope
	KeyPrefix string
	KeyHash   []byte
	IsActive  bool
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Credential) HasScope(scope Scope) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Principal is the verified identity resulting from a successful credential
// check, carried through request handling for authorization and audit.
type Principal struct {
	CredentialID string
	Name         string
	Scopes       []Scope
}

func (p Principal) HasScope(scope Scope) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
