package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"eyegic/internal/config"
	"eyegic/internal/domain"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestTokenAuthPrincipal(t *testing.T) {
	auth := NewTokenAuth(config.APIAuthConfig{JWTSecret: "s3cret", Issuer: "eyegic", Audience: []string{"web"}})
	other := NewTokenAuth(config.APIAuthConfig{JWTSecret: "other", Issuer: "eyegic", Audience: []string{"web"}})
	wrongIssuer := NewTokenAuth(config.APIAuthConfig{JWTSecret: "s3cret", Issuer: "someone", Audience: []string{"web"}})

	valid, err := auth.Sign("alice", time.Hour)
	require.NoError(t, err)
	expired, err := auth.Sign("alice", -time.Minute)
	require.NoError(t, err)
	forged, err := other.Sign("alice", time.Hour)
	require.NoError(t, err)
	foreign, err := wrongIssuer.Sign("alice", time.Hour)
	require.NoError(t, err)
	anonymous, err := auth.Sign("", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"valid", "Bearer " + valid, "alice", nil},
		{"lowercase scheme", "bearer " + valid, "alice", nil},
		{"missing", "", "", errMissingToken},
		{"basic scheme", "Basic abc", "", errInvalidToken},
		{"expired", "Bearer " + expired, "", errInvalidToken},
		{"wrong secret", "Bearer " + forged, "", errInvalidToken},
		{"wrong issuer", "Bearer " + foreign, "", errInvalidToken},
		{"empty subject", "Bearer " + anonymous, "", errInvalidToken},
		{"alg none", "Bearer " + none, "", errInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.Principal(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidPhone, http.StatusBadRequest},
		{domain.NotFound("x"), http.StatusNotFound},
		{domain.Forbidden("x"), http.StatusForbidden},
		{domain.InvalidTransition("x"), http.StatusConflict},
		{domain.Conflict("x"), http.StatusConflict},
		{domain.AlreadyRegistered("x"), http.StatusConflict},
		{domain.ProviderInactive("x"), http.StatusConflict},
		{domain.Unavailable("x"), http.StatusConflict},
		{domain.RateLimited("x"), http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		derr, ok := domain.AsError(tt.err)
		require.True(t, ok)
		assert.Equal(t, tt.want, statusFor(derr.Kind), string(derr.Kind))
	}
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	interceptor := RecoveryUnaryInterceptor(zerolog.Nop())
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("nil map")
	})
	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))

	resp, err = interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestLoggingUnaryInterceptorPassesThrough(t *testing.T) {
	interceptor := LoggingUnaryInterceptor(zerolog.Nop())
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	denied := status.Error(codes.PermissionDenied, "no")

	_, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, denied
	})
	assert.Equal(t, denied, err)
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	l := newRateLimiter(config.APIRateLimitConfig{RPS: 1, Burst: 1})
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("alice"))
	assert.False(t, l.Allow("alice"))
	assert.True(t, l.Allow("bob"))
	assert.Len(t, l.clients, 2)

	now = now.Add(clientIdleTTL)
	assert.True(t, l.Allow("bob"))
	assert.Len(t, l.clients, 1)
	assert.Contains(t, l.clients, "bob")
}

func TestRateLimiterDisabled(t *testing.T) {
	l := newRateLimiter(config.APIRateLimitConfig{})
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("alice"))
	}
	assert.Empty(t, l.clients)
}

func TestAuthInterceptor(t *testing.T) {
	auth := NewTokenAuth(config.APIAuthConfig{JWTSecret: "s3cret"})
	interceptor := NewAuthInterceptor(auth, newRateLimiter(config.APIRateLimitConfig{RPS: 0.001, Burst: 1})).Unary()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	token, err := auth.Sign("alice", time.Hour)
	require.NoError(t, err)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(authorizationHeader, "Bearer "+token))

	_, err = interceptor(ctx, nil, info, handler)
	require.NoError(t, err)

	_, err = interceptor(ctx, nil, info, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	bad := metadata.NewIncomingContext(context.Background(), metadata.Pairs(authorizationHeader, "Bearer junk"))
	_, err = interceptor(bad, nil, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(context.Context) error { return p.err }

func TestGRPCHealth(t *testing.T) {
	logger := zerolog.Nop()
	cfg := config.APIConfig{GRPC: config.APIGRPCConfig{Port: 0, Reflection: true}}
	srv, err := NewGRPCServer(cfg, &logger)
	require.NoError(t, err)

	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pinger := &stubPinger{}
	srv.CheckHealth(ctx, pinger)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	pinger.err = errors.New("disk gone")
	srv.CheckHealth(ctx, pinger)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestBuildTLSConfigRequiresFiles(t *testing.T) {
	_, err := buildTLSConfig(config.APITLSConfig{Enabled: true})
	assert.Error(t, err)

	_, err = buildTLSConfig(config.APITLSConfig{Enabled: true, CertFile: "missing.pem", KeyFile: "missing.key"})
	assert.Error(t, err)
}
