package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/jam/internal/logging"
	"github.com/Skotchmaster/jam/internal/metrics"
	"github.com/Skotchmaster/jam/internal/models"
	"github.com/Skotchmaster/jam/internal/repo"
	"github.com/Skotchmaster/jam/internal/tokens"
)

type TokenLookup interface {
	FindByJTI(ctx context.Context, jti string) (*models.Token, error)
}

type GateConfig struct {
	// Enforce makes protected routes reject requests without a valid token.
	Enforce bool
	// RevocationChecks lists the token types looked up in the registry.
	// A type missing here is trusted once its signature verifies.
	RevocationChecks []tokens.TokenType
}

func DefaultGateConfig() GateConfig {
	return GateConfig{
		Enforce:          true,
		RevocationChecks: []tokens.TokenType{tokens.Access, tokens.Refresh},
	}
}

// NewGateConfig builds a GateConfig from the deployment switches. With
// revocation disabled no token type is looked up in the registry.
func NewGateConfig(enforce, revocation bool, checks []string) (GateConfig, error) {
	cfg := GateConfig{Enforce: enforce}
	if !revocation {
		return cfg, nil
	}
	for _, c := range checks {
		typ, err := tokens.ParseTokenType(c)
		if err != nil {
			return GateConfig{}, fmt.Errorf("revocation checks: %w", err)
		}
		cfg.RevocationChecks = append(cfg.RevocationChecks, typ)
	}
	return cfg, nil
}

// Gate decides whether a presented token may be honored.
type Gate struct {
	signer  *tokens.Signer
	lookup  TokenLookup
	enforce bool
	checks  map[tokens.TokenType]bool
}

func NewGate(signer *tokens.Signer, lookup TokenLookup, cfg GateConfig) *Gate {
	checks := make(map[tokens.TokenType]bool, len(cfg.RevocationChecks))
	for _, t := range cfg.RevocationChecks {
		checks[t] = true
	}
	return &Gate{signer: signer, lookup: lookup, enforce: cfg.Enforce, checks: checks}
}

func (g *Gate) Enforced() bool { return g.enforce }

// Check verifies the signature first and only then touches storage.
// A jti the registry does not know is denied.
func (g *Gate) Check(ctx context.Context, raw string, want tokens.TokenType) (*tokens.Claims, error) {
	l := logging.FromContext(ctx).With("svc", "auth.gate")

	claims, err := g.signer.Verify(raw)
	if err != nil {
		deny(reasonFor(err))
		return nil, err
	}
	if claims.Type != want {
		deny("wrong_type")
		return nil, fmt.Errorf("%w: got %s, want %s", ErrWrongTokenType, claims.Type, want)
	}
	if !g.checks[claims.Type] {
		allow()
		return claims, nil
	}

	rec, err := g.lookup.FindByJTI(ctx, claims.JTI())
	if err != nil {
		if errors.Is(err, repo.ErrTokenNotFound) {
			l.Warn("unknown_jti", "jti", claims.JTI(), "identity", claims.Identity())
			deny("unknown_jti")
			return nil, fmt.Errorf("%w: unknown jti", ErrTokenRevoked)
		}
		l.Error("gate_lookup_failed", "jti", claims.JTI(), "error", err)
		deny("storage")
		return nil, fmt.Errorf("lookup jti: %w", err)
	}
	if rec.Revoked {
		deny("revoked")
		return nil, ErrTokenRevoked
	}

	allow()
	return claims, nil
}

func allow() {
	metrics.GateDecisions.WithLabelValues("allow", "ok").Inc()
}

func deny(reason string) {
	metrics.GateDecisions.WithLabelValues("deny", reason).Inc()
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, tokens.ErrTokenExpired):
		return "expired"
	case errors.Is(err, tokens.ErrSignatureInvalid):
		return "signature"
	default:
		return "malformed"
	}
}
