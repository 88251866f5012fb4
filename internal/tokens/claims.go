package tokens

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	Access  TokenType = "access"
	Refresh TokenType = "refresh"
)

func ParseTokenType(s string) (TokenType, error) {
	switch TokenType(s) {
	case Access, Refresh:
		return TokenType(s), nil
	}
	return "", fmt.Errorf("unknown token type %q", s)
}

// Claims carries the identity in "sub" and the token id in "jti".
type Claims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() string { return c.Subject }

func (c *Claims) JTI() string { return c.ID }
