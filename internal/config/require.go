package config

import (
	"bytes"
	"log"
)

// MinSecretLen is the shortest HMAC secret accepted without a warning.
const MinSecretLen = 32

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

// SecretWarnings lists weaknesses in the signing secrets. Sharing one key
// between access and refresh tokens lets either be forged from the other.
func (c Config) SecretWarnings() []string {
	var out []string
	if len(c.JWTAccessSecret) < MinSecretLen {
		out = append(out, "JWT_SECRET is shorter than 32 bytes")
	}
	if len(c.JWTRefreshSecret) < MinSecretLen {
		out = append(out, "JWT_REFRESH_SECRET is shorter than 32 bytes")
	}
	if len(c.JWTAccessSecret) > 0 && bytes.Equal(c.JWTAccessSecret, c.JWTRefreshSecret) {
		out = append(out, "JWT_SECRET and JWT_REFRESH_SECRET are identical")
	}
	return out
}
