package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eyegic/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	authorizationHeader = "authorization"
	bearerPrefix        = "bearer "
	clientKeyUnknown    = "unknown"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid bearer token")
)

// TokenAuth verifies HS256 bearer tokens. The subject claim names the caller.
type TokenAuth struct {
	secret   []byte
	issuer   string
	audience []string
}

func NewTokenAuth(cfg config.APIAuthConfig) *TokenAuth {
	return &TokenAuth{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Principal extracts the subject from an Authorization header value.
func (a *TokenAuth) Principal(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingToken
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", errInvalidToken
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return "", fmt.Errorf("%w: issuer mismatch", errInvalidToken)
	}
	if len(a.audience) > 0 && !a.audienceMatches(claims) {
		return "", fmt.Errorf("%w: audience mismatch", errInvalidToken)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", errInvalidToken)
	}
	return subject, nil
}

func (a *TokenAuth) audienceMatches(claims *jwt.RegisteredClaims) bool {
	for _, aud := range a.audience {
		if claims.VerifyAudience(aud, true) {
			return true
		}
	}
	return false
}

// Sign issues a token for subject, valid for ttl.
func (a *TokenAuth) Sign(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if len(a.audience) > 0 {
		claims.Audience = jwt.ClaimStrings(a.audience)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// AuthInterceptor checks optional bearer tokens and rate limits gRPC callers.
type AuthInterceptor struct {
	auth    *TokenAuth
	limiter *rateLimiter
}

func NewAuthInterceptor(auth *TokenAuth, limiter *rateLimiter) *AuthInterceptor {
	return &AuthInterceptor{auth: auth, limiter: limiter}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		key, err := a.clientKey(ctx)
		if err != nil {
			return nil, err
		}
		if !a.limiter.Allow(key) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

func (a *AuthInterceptor) clientKey(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	if header := first(md.Get(authorizationHeader)); header != "" {
		principal, err := a.auth.Principal(header)
		if err != nil {
			return "", status.Error(codes.Unauthenticated, err.Error())
		}
		return principal, nil
	}

	return peerAddr(ctx), nil
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
