package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"huellas/internal/config"
	"huellas/internal/models"
	"huellas/internal/observability"
)

// TokenTTL is the lifetime of issued access tokens.
const TokenTTL = 7 * 24 * time.Hour

var (
	errTokenInvalid = errors.New("invalid or expired token")
	errTokenRevoked = errors.New("token has been revoked")
)

// Claims is the validated content of an access token.
type Claims struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

// Authenticator issues and validates HS256 access tokens.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
	rdb      *redis.Client
	now      func() time.Time
}

// NewAuthenticator builds an Authenticator. rdb may be nil, which disables revocation.
func NewAuthenticator(cfg *config.Config, rdb *redis.Client) *Authenticator {
	return &Authenticator{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		rdb:      rdb,
		now:      time.Now,
	}
}

// IssueToken signs a token for userID.
func (a *Authenticator) IssueToken(userID uint) (string, Claims, error) {
	now := a.now()
	claims := Claims{UserID: userID, JTI: uuid.NewString(), ExpiresAt: now.Add(TokenTTL)}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": a.issuer,
		"aud": a.audience,
		"exp": claims.ExpiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": claims.JTI,
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse validates signature, issuer, audience, expiry and revocation.
func (a *Authenticator) Parse(ctx context.Context, tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.audience),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return Claims{}, errTokenInvalid
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errTokenInvalid
	}
	sub, err := mc.GetSubject()
	if err != nil {
		return Claims{}, errTokenInvalid
	}
	uid, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || uid == 0 {
		return Claims{}, errTokenInvalid
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, errTokenInvalid
	}
	jti, _ := mc["jti"].(string)

	claims := Claims{UserID: uint(uid), JTI: jti, ExpiresAt: exp.Time}
	if jti != "" && a.rdb != nil {
		n, err := a.rdb.Exists(ctx, blacklistKey(jti)).Result()
		if err != nil {
			observability.RedisErrorRate.WithLabelValues("blacklist_exists").Inc()
		} else if n > 0 {
			return Claims{}, errTokenRevoked
		}
	}
	return claims, nil
}

// Revoke blacklists the token id until it would have expired anyway.
func (a *Authenticator) Revoke(ctx context.Context, claims Claims) error {
	if a.rdb == nil || claims.JTI == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(a.now())
	if ttl <= 0 {
		return nil
	}
	if err := a.rdb.Set(ctx, blacklistKey(claims.JTI), "1", ttl).Err(); err != nil {
		observability.RedisErrorRate.WithLabelValues("blacklist_set").Inc()
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func blacklistKey(jti string) string { return "blacklist:" + jti }

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *fiber.Ctx) string {
	scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || scheme != "Bearer" {
		return ""
	}
	return strings.TrimSpace(token)
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := BearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		claims, err := a.Parse(c.UserContext(), tokenString)
		if err != nil {
			msg := "Invalid or expired token"
			if errors.Is(err, errTokenRevoked) {
				msg = "Token has been revoked"
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
		}
		setUser(c, claims)
		return c.Next()
	}
}

// Optional attaches the user when a valid token is present and never rejects.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenString := BearerToken(c); tokenString != "" {
			if claims, err := a.Parse(c.UserContext(), tokenString); err == nil {
				setUser(c, claims)
			}
		}
		return c.Next()
	}
}

func setUser(c *fiber.Ctx, claims Claims) {
	c.Locals("userID", claims.UserID)
	c.Locals("claims", claims)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))
}

// UserID returns the authenticated user, if any.
func UserID(c *fiber.Ctx) (uint, bool) {
	uid, ok := c.Locals("userID").(uint)
	return uid, ok && uid != 0
}

// ClaimsOf returns the validated claims of the current request.
func ClaimsOf(c *fiber.Ctx) (Claims, bool) {
	claims, ok := c.Locals("claims").(Claims)
	return claims, ok
}
