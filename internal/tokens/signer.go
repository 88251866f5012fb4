package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
	// Now overrides the wall clock; nil means time.Now.
	Now func() time.Time
}

// Minted is what the registry needs to record a freshly signed token.
type Minted struct {
	Token     string
	JTI       string
	Type      TokenType
	Identity  string
	ExpiresAt time.Time
}

type Signer struct {
	config Config
}

func NewSigner(cfg Config) (*Signer, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret is empty")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh secret is empty")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Signer{config: cfg}, nil
}

func (s *Signer) TTL(typ TokenType) time.Duration {
	if typ == Refresh {
		return s.config.RefreshTTL
	}
	return s.config.AccessTTL
}

func (s *Signer) Mint(identity string, typ TokenType) (Minted, error) {
	return s.MintTTL(identity, typ, s.TTL(typ))
}

func (s *Signer) MintTTL(identity string, typ TokenType, ttl time.Duration) (Minted, error) {
	if identity == "" {
		return Minted{}, errors.New("empty identity")
	}
	if ttl <= 0 {
		return Minted{}, fmt.Errorf("non-positive ttl %s", ttl)
	}
	key, err := s.keyFor(typ)
	if err != nil {
		return Minted{}, err
	}

	now := s.config.Now()
	exp := now.Add(ttl)
	jti := uuid.NewString()
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			ID:        jti,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return Minted{}, fmt.Errorf("sign %s token: %w", typ, err)
	}

	return Minted{
		Token:     signed,
		JTI:       jti,
		Type:      typ,
		Identity:  identity,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks signature, shape and expiry. It never looks at the registry.
func (s *Signer) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMalformed
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.config.Now),
	}
	if s.config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		c, ok := t.Claims.(*Claims)
		if !ok {
			return nil, ErrMalformed
		}
		return s.keyFor(c.Type)
	}, opts...)
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			return nil, ErrMalformed
		}
		return nil, fmt.Errorf("%w: %v", classify(err), err)
	}
	if !tkn.Valid {
		return nil, ErrSignatureInvalid
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing sub or jti", ErrMalformed)
	}
	return &claims, nil
}

func (s *Signer) keyFor(typ TokenType) ([]byte, error) {
	switch typ {
	case Access:
		return s.config.AccessSecret, nil
	case Refresh:
		return s.config.RefreshSecret, nil
	}
	return nil, fmt.Errorf("%w: unknown token type %q", ErrMalformed, typ)
}
