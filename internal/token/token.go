// Package token issues and verifies the signed session tokens callers
// present as bearer credentials.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"travelbook/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a token issued without WithExpiresIn.
const DefaultTTL = 7 * 24 * time.Hour

var ErrSecretMissing = apperr.Configuration("signing secret is not configured")

// Claims is the payload carried by a session token.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Service is immutable after construction and safe for concurrent use.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewService(cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

type issueOptions struct {
	expiresIn time.Duration
}

type IssueOption func(*issueOptions)

func WithExpiresIn(d time.Duration) IssueOption {
	return func(o *issueOptions) {
		o.expiresIn = d
	}
}

// Issue signs claims with the service secret. IssuedAt, ExpiresAt and
// Issuer are always set by the service and override caller values.
func (s *Service) Issue(claims Claims, opts ...IssueOption) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrSecretMissing
	}
	options := issueOptions{expiresIn: s.ttl}
	for _, opt := range opts {
		opt(&options)
	}

	now := s.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(options.expiresIn))
	claims.Issuer = s.issuer
	if claims.Subject == "" {
		claims.Subject = claims.UserID
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify reports whether raw is a valid, unexpired token signed with the
// current secret. Every failure is reported the same way; the cause is
// only logged.
func (s *Service) Verify(ctx context.Context, raw string) (Claims, bool) {
	if err := ctx.Err(); err != nil {
		return Claims{}, false
	}
	claims, err := s.parse(raw)
	if err != nil {
		reason := reasonOf(err)
		level := slog.LevelInfo
		if reason == ReasonSignature {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "token verification failed", "reason", string(reason), "error", err.Error())
		return Claims{}, false
	}
	return claims, true
}

func (s *Service) parse(raw string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, &VerifyError{Reason: ReasonNoSecret, Err: ErrSecretMissing}
	}
	if raw == "" {
		return Claims{}, &VerifyError{Reason: ReasonMalformed, Err: jwt.ErrTokenMalformed}
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, parserOpts...)
	if err != nil {
		return Claims{}, &VerifyError{Reason: classify(err), Err: err}
	}
	if claims.UserID == "" {
		return Claims{}, &VerifyError{Reason: ReasonClaims, Err: errors.New("token has no user id")}
	}
	return claims, nil
}
