package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/satyalens/api/transport"
	"github.com/fastygo/satyalens/domain"
)

const (
	HeaderDeviceID = "X-Device-ID"

	actorUserValue = "satyalens.actor"
	anonRole       = "anon"
)

// Claims is the subset of identity-provider access token claims the service reads.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ActorConfig controls bearer token verification.
type ActorConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// Actor resolves who is calling and stores a domain.Actor on the request.
// Requests without a bearer token, or carrying the public anon token, are anonymous
// and keyed by X-Device-ID. A missing device ID is minted and echoed back.
// A token that fails verification is rejected with 401.
func Actor(cfg ActorConfig, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				ctx.SetUserValue(actorUserValue, anonymous(ctx))
				next(ctx)
				return
			}

			claims, err := ParseToken(cfg, tokenString)
			if err != nil {
				logger.Warn("invalid access token", zap.Error(err))
				reject(ctx)
				return
			}

			if claims.Subject == "" || claims.Role == anonRole {
				ctx.SetUserValue(actorUserValue, anonymous(ctx))
			} else {
				ctx.SetUserValue(actorUserValue, domain.Identified(claims.Subject, claims.Email, claims.Role, tokenString))
			}
			next(ctx)
		}
	}
}

// ActorFrom returns the actor stored by Actor, or an anonymous actor keyed by the
// request's device header when the middleware did not run.
func ActorFrom(ctx *fasthttp.RequestCtx) domain.Actor {
	if actor, ok := ctx.UserValue(actorUserValue).(domain.Actor); ok {
		return actor
	}
	return domain.Anonymous(strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderDeviceID))))
}

// ParseToken verifies an HS256 access token and its issuer and audience when configured.
func ParseToken(cfg ActorConfig, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token invalid")
	}
	if cfg.Issuer != "" && !claims.VerifyIssuer(cfg.Issuer, true) {
		return nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if cfg.Audience != "" && claims.Role != anonRole && !claims.VerifyAudience(cfg.Audience, true) {
		return nil, fmt.Errorf("unexpected audience %v", claims.Audience)
	}
	return claims, nil
}

func anonymous(ctx *fasthttp.RequestCtx) domain.Actor {
	deviceID := strings.TrimSpace(string(ctx.Request.Header.Peek(HeaderDeviceID)))
	if deviceID == "" {
		deviceID = uuid.NewString()
		ctx.Request.Header.Set(HeaderDeviceID, deviceID)
	}
	ctx.Response.Header.Set(HeaderDeviceID, deviceID)
	return domain.Anonymous(deviceID)
}

func reject(ctx *fasthttp.RequestCtx) {
	body, _ := json.Marshal(transport.NewError(string(domain.ErrCodeUnauthorized), "invalid or expired token", nil))
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(http.StatusUnauthorized)
	ctx.SetBody(body)
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization)))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
