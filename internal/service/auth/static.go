// Package auth verifies connection tokens.
package auth

import (
	"QuotePulse/internal/domain/models"
	drepo "QuotePulse/internal/domain/repository"
)

// StaticVerifier authenticates against a fixed token-to-subject table
// from configuration.
type StaticVerifier struct {
	tokens map[string]string
}

var _ drepo.TokenVerifier = (*StaticVerifier)(nil)

// NewStaticVerifier builds a verifier over the configured token table.
// An empty table rejects every token.
func NewStaticVerifier(tokens map[string]string) *StaticVerifier {
	return &StaticVerifier{tokens: tokens}
}

// Verify resolves a token to its identity or returns ErrInvalidToken.
func (v *StaticVerifier) Verify(token string) (*models.Identity, error) {
	if token == "" {
		return nil, drepo.ErrInvalidToken
	}
	subject, ok := v.tokens[token]
	if !ok {
		return nil, drepo.ErrInvalidToken
	}
	return &models.Identity{Subject: subject}, nil
}
