package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/satyalens/domain"
)

var testCfg = ActorConfig{Secret: "test-secret", Issuer: "https://auth.example.com", Audience: "authenticated"}

func sign(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func userClaims(expiresIn time.Duration) Claims {
	return Claims{
		Email: "u1@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    testCfg.Issuer,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
}

func run(headers map[string]string) (*fasthttp.RequestCtx, domain.Actor, bool) {
	ctx := &fasthttp.RequestCtx{}
	for k, v := range headers {
		ctx.Request.Header.Set(k, v)
	}
	var (
		seen   domain.Actor
		called bool
	)
	Actor(testCfg, nil)(func(ctx *fasthttp.RequestCtx) {
		called = true
		seen = ActorFrom(ctx)
	})(ctx)
	return ctx, seen, called
}

func TestActor_AnonymousUsesDeviceHeader(t *testing.T) {
	ctx, actor, called := run(map[string]string{HeaderDeviceID: "device-1"})
	require.True(t, called)
	assert.False(t, actor.IsIdentified())
	assert.Equal(t, "device-1", actor.DeviceID)
	assert.Equal(t, "device-1", string(ctx.Response.Header.Peek(HeaderDeviceID)))
}

func TestActor_AnonymousMintsDeviceID(t *testing.T) {
	ctx, actor, called := run(nil)
	require.True(t, called)
	assert.NotEmpty(t, actor.DeviceID)
	assert.Equal(t, actor.DeviceID, string(ctx.Response.Header.Peek(HeaderDeviceID)))
}

func TestActor_IdentifiedFromValidToken(t *testing.T) {
	token := sign(t, testCfg.Secret, userClaims(time.Hour))

	_, actor, called := run(map[string]string{"Authorization": "Bearer " + token})
	require.True(t, called)
	assert.True(t, actor.IsIdentified())
	assert.Equal(t, "u1", actor.ID)
	assert.Equal(t, "u1@example.com", actor.Email)
	assert.Equal(t, token, actor.Token)
}

func TestActor_AnonTokenIsAnonymous(t *testing.T) {
	token := sign(t, testCfg.Secret, Claims{Role: "anon", RegisteredClaims: jwt.RegisteredClaims{Issuer: testCfg.Issuer}})

	_, actor, called := run(map[string]string{"Authorization": "Bearer " + token, HeaderDeviceID: "device-2"})
	require.True(t, called)
	assert.False(t, actor.IsIdentified())
	assert.Equal(t, "device-2", actor.DeviceID)
}

func TestActor_RejectsBadTokens(t *testing.T) {
	wrongIssuer := userClaims(time.Hour)
	wrongIssuer.Issuer = "https://evil.example.com"

	cases := map[string]string{
		"garbage":      "not-a-jwt",
		"wrong secret": sign(t, "other-secret", userClaims(time.Hour)),
		"expired":      sign(t, testCfg.Secret, userClaims(-time.Minute)),
		"wrong issuer": sign(t, testCfg.Secret, wrongIssuer),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			ctx, _, called := run(map[string]string{"Authorization": "Bearer " + token})
			assert.False(t, called)
			assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
			assert.Contains(t, string(ctx.Response.Body()), string(domain.ErrCodeUnauthorized))
		})
	}
}

func TestActorFrom_WithoutMiddleware(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set(HeaderDeviceID, "device-3")
	assert.Equal(t, "device-3", ActorFrom(ctx).DeviceID)
}
