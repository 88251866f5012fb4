package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/jam/internal/events"
	"github.com/Skotchmaster/jam/internal/hash"
	"github.com/Skotchmaster/jam/internal/logging"
	"github.com/Skotchmaster/jam/internal/metrics"
	"github.com/Skotchmaster/jam/internal/models"
	"github.com/Skotchmaster/jam/internal/rate"
	"github.com/Skotchmaster/jam/internal/repo"
	"github.com/Skotchmaster/jam/internal/tokens"
)

type UserStore interface {
	CreateUserIfNotExists(ctx context.Context, u *models.User) error
	VerifyCredentials(ctx context.Context, username, password string) (bool, error)
}

type TokenRegistry interface {
	TokenLookup
	Insert(ctx context.Context, t *models.Token) error
	InsertAll(ctx context.Context, ts ...*models.Token) error
	FindByIDAndIdentity(ctx context.Context, id uint, identity string) (*models.Token, error)
	ListByIdentity(ctx context.Context, identity string) ([]models.Token, error)
	SetRevoked(ctx context.Context, sel repo.Selector, revoked bool) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

type LoginLimiter interface {
	CheckLogin(ctx context.Context, username string) error
	IncrementLogin(ctx context.Context, username string) error
	ResetLogin(ctx context.Context, username string) error
}

// AuthService issues, refreshes, revokes and prunes tokens.
// Events and Limiter are optional.
type AuthService struct {
	Users   UserStore
	Tokens  TokenRegistry
	Signer  *tokens.Signer
	Gate    *Gate
	Events  EventPublisher
	Limiter LoginLimiter
	Now     func() time.Time
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type AccessResult struct {
	AccessToken string
	AccessExp   time.Time
}

type TokenView struct {
	TokenID      uint      `json:"token_id"`
	JTI          string    `json:"jti"`
	TokenType    string    `json:"token_type"`
	UserIdentity string    `json:"user_identity"`
	Revoked      bool      `json:"revoked"`
	Expires      time.Time `json:"expires"`
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) Register(ctx context.Context, username, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.register", "username", username)

	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			return fmt.Errorf("%w: password is longer than 72 bytes", ErrValidation)
		}
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return err
	}
	user := models.User{Username: username, PasswordHash: pwHash}

	if err := s.Users.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Info("register_conflict")
			return ErrConflict
		}
		l.Error("register_error", "error", err)
		return err
	}

	l.Info("user_registered", "user_id", user.ID)
	s.publish(ctx, events.Event{Type: events.TypeUserRegistered, Identity: username})
	return nil
}

// Issue checks credentials and records a fresh access/refresh pair.
// Both records exist in the registry before the pair is returned.
func (s *AuthService) Issue(ctx context.Context, username, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.issue", "username", username)

	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	if s.Limiter != nil {
		if err := s.Limiter.CheckLogin(ctx, username); err != nil {
			if isRateLimited(err) {
				metrics.LoginFailures.WithLabelValues("rate_limited").Inc()
				l.Warn("issue_refused", "reason", "rate limited")
				return nil, ErrLoginRateLimited
			}
			l.Warn("limiter_unavailable", "error", err)
		}
	}

	ok, err := s.Users.VerifyCredentials(ctx, username, password)
	if err != nil {
		l.Error("issue_failed", "reason", "credential lookup", "error", err)
		return nil, err
	}
	if !ok {
		metrics.LoginFailures.WithLabelValues("invalid_credentials").Inc()
		if s.Limiter != nil {
			if err := s.Limiter.IncrementLogin(ctx, username); err != nil {
				l.Warn("limiter_unavailable", "error", err)
			}
		}
		l.Warn("issue_failed", "reason", "invalid username or password")
		return nil, ErrInvalidCredentials
	}

	access, err := s.Signer.Mint(username, tokens.Access)
	if err != nil {
		l.Error("issue_failed", "reason", "mint access", "error", err)
		return nil, err
	}
	refresh, err := s.Signer.Mint(username, tokens.Refresh)
	if err != nil {
		l.Error("issue_failed", "reason", "mint refresh", "error", err)
		return nil, err
	}

	accessRec, refreshRec := recordFor(access), recordFor(refresh)
	if err := s.Tokens.InsertAll(ctx, accessRec, refreshRec); err != nil {
		l.Error("issue_failed", "reason", "registry insert", "error", err)
		return nil, err
	}

	if s.Limiter != nil {
		if err := s.Limiter.ResetLogin(ctx, username); err != nil {
			l.Warn("limiter_unavailable", "error", err)
		}
	}

	metrics.TokensIssued.WithLabelValues(string(tokens.Access)).Inc()
	metrics.TokensIssued.WithLabelValues(string(tokens.Refresh)).Inc()
	s.publishIssued(ctx, accessRec)
	s.publishIssued(ctx, refreshRec)
	l.Info("tokens_issued", "access_jti", access.JTI, "refresh_jti", refresh.JTI)

	return &TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		AccessExp:    access.ExpiresAt,
		RefreshExp:   refresh.ExpiresAt,
	}, nil
}

// Refresh mints a new access token from a refresh token that passes the gate.
// The refresh token stays valid; it is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AccessResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Gate.Check(ctx, refreshToken, tokens.Refresh)
	if err != nil {
		l.Warn("refresh_denied", "error", err)
		return nil, err
	}
	return s.IssueAccess(ctx, claims.Identity())
}

// IssueAccess mints and records an access token for identity.
func (s *AuthService) IssueAccess(ctx context.Context, identity string) (*AccessResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh", "identity", identity)

	access, err := s.Signer.Mint(identity, tokens.Access)
	if err != nil {
		l.Error("refresh_failed", "reason", "mint access", "error", err)
		return nil, err
	}
	rec := recordFor(access)
	if err := s.Tokens.Insert(ctx, rec); err != nil {
		l.Error("refresh_failed", "reason", "registry insert", "error", err)
		return nil, err
	}

	metrics.TokensIssued.WithLabelValues(string(tokens.Access)).Inc()
	s.publishIssued(ctx, rec)
	l.Info("access_refreshed", "jti", access.JTI)

	return &AccessResult{AccessToken: access.Token, AccessExp: access.ExpiresAt}, nil
}

// Revoke marks the selected token revoked. Revoking a revoked token succeeds.
func (s *AuthService) Revoke(ctx context.Context, sel repo.Selector) error {
	return s.setRevoked(ctx, sel, true)
}

func (s *AuthService) Unrevoke(ctx context.Context, sel repo.Selector) error {
	return s.setRevoked(ctx, sel, false)
}

// Logout revokes the presented token itself.
func (s *AuthService) Logout(ctx context.Context, claims *tokens.Claims) error {
	return s.Revoke(ctx, repo.ByJTI(claims.JTI()))
}

func (s *AuthService) setRevoked(ctx context.Context, sel repo.Selector, revoked bool) error {
	action, evType := "revoke", events.TypeTokenRevoked
	if !revoked {
		action, evType = "unrevoke", events.TypeTokenUnrevoked
	}
	l := logging.FromContext(ctx).With("svc", "auth."+action, "selector", sel.String())

	if err := s.Tokens.SetRevoked(ctx, sel, revoked); err != nil {
		if errors.Is(err, repo.ErrTokenNotFound) {
			l.Info(action + "_not_found")
			return err
		}
		l.Error(action+"_failed", "error", err)
		return err
	}

	metrics.RevocationChanges.WithLabelValues(action).Inc()
	l.Info("token_" + action + "d")

	if s.Events != nil {
		ev := events.Event{Type: evType, JTI: sel.JTI, TokenID: sel.ID, Identity: sel.Identity}
		if rec, err := s.find(ctx, sel); err == nil {
			ev.JTI, ev.TokenID, ev.Identity, ev.TokenType = rec.JTI, rec.ID, rec.UserIdentity, rec.TokenType
		}
		s.publish(ctx, ev)
	}
	return nil
}

func (s *AuthService) find(ctx context.Context, sel repo.Selector) (*models.Token, error) {
	if sel.JTI != "" {
		return s.Tokens.FindByJTI(ctx, sel.JTI)
	}
	return s.Tokens.FindByIDAndIdentity(ctx, sel.ID, sel.Identity)
}

func (s *AuthService) ListTokens(ctx context.Context, identity string) ([]TokenView, error) {
	recs, err := s.Tokens.ListByIdentity(ctx, identity)
	if err != nil {
		logging.FromContext(ctx).Error("list_tokens_failed", "svc", "auth.list", "identity", identity, "error", err)
		return nil, err
	}
	out := make([]TokenView, 0, len(recs))
	for _, r := range recs {
		out = append(out, TokenView{
			TokenID:      r.ID,
			JTI:          r.JTI,
			TokenType:    r.TokenType,
			UserIdentity: r.UserIdentity,
			Revoked:      r.Revoked,
			Expires:      r.ExpiresAt.UTC(),
		})
	}
	return out, nil
}

// Prune deletes every record that expired before now.
func (s *AuthService) Prune(ctx context.Context, now time.Time) (int64, error) {
	l := logging.FromContext(ctx).With("svc", "auth.prune")

	n, err := s.Tokens.DeleteExpired(ctx, now)
	if err != nil {
		l.Error("prune_failed", "error", err)
		return 0, err
	}

	metrics.TokensPruned.Add(float64(n))
	l.Info("tokens_pruned", "count", n)
	if n > 0 {
		s.publish(ctx, events.Event{Type: events.TypeTokensPruned, Count: n})
	}
	return n, nil
}

func isRateLimited(err error) bool {
	return errors.Is(err, rate.ErrRateLimited)
}

func recordFor(m tokens.Minted) *models.Token {
	return &models.Token{
		JTI:          m.JTI,
		TokenType:    string(m.Type),
		UserIdentity: m.Identity,
		Revoked:      false,
		ExpiresAt:    m.ExpiresAt.UTC(),
	}
}

func (s *AuthService) publishIssued(ctx context.Context, rec *models.Token) {
	s.publish(ctx, events.Event{
		Type:      events.TypeTokenIssued,
		Identity:  rec.UserIdentity,
		JTI:       rec.JTI,
		TokenID:   rec.ID,
		TokenType: rec.TokenType,
	})
}

// publish never fails the caller; the registry is the source of truth.
func (s *AuthService) publish(ctx context.Context, ev events.Event) {
	if s.Events == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = s.now().UTC()
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", ev.Type, "error", err)
	}
}
