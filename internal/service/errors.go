package service

import (
	"errors"

	"github.com/Skotchmaster/jam/internal/repo"
	"github.com/Skotchmaster/jam/internal/tokens"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrConflict           = errors.New("user already exists")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrWrongTokenType     = errors.New("wrong token type")
	ErrLoginRateLimited   = errors.New("too many failed login attempts")
)

// Re-exported so callers of the service need not import repo or tokens.
var (
	ErrTokenNotFound    = repo.ErrTokenNotFound
	ErrDuplicateJTI     = repo.ErrDuplicateJTI
	ErrSignatureInvalid = tokens.ErrSignatureInvalid
	ErrTokenExpired     = tokens.ErrTokenExpired
	ErrMalformed        = tokens.ErrMalformed
)
