package domain

import "fmt"

// TokenKind discriminates the signed tokens issued by the service.
type TokenKind string

const (
	TokenKindAccess      TokenKind = "access"
	TokenKindRefresh     TokenKind = "refresh"
	TokenKindEmailVerify TokenKind = "email-verify"
)

// ParseTokenKind validates a raw kind tag.
func ParseTokenKind(raw string) (TokenKind, error) {
	switch kind := TokenKind(raw); kind {
	case TokenKindAccess, TokenKindRefresh, TokenKindEmailVerify:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown token kind %q", raw)
	}
}

// Tokens is the pair handed to a client after login or refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}
