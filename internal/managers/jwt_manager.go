package managers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"github.com/verso-cms/server-verso/internal/config"
	"github.com/verso-cms/server-verso/internal/schemas"
	"github.com/verso-cms/server-verso/internal/utils"
)

const issuer = "verso-cms.tech"

// JWTMgr is the contract for issuing and validating the access/refresh
// token pair and for guarding routes with the JWT middleware.
type JWTMgr interface {
	GenerateTokenPair(userId, email, role string, verified bool) (*schemas.TokenPairDTO, error)
	ValidateAccessToken(tokenString string) (jwt.MapClaims, error)
	ValidateRefreshToken(tokenString string) (jwt.MapClaims, error)
	JWTMiddleware() gin.HandlerFunc
}

// JWTManager signs the access and refresh tokens with two distinct HMAC
// secrets and separate lifetimes.
type JWTManager struct {
	accessSecret    []byte
	refreshSecret   []byte
	accessLifetime  time.Duration
	refreshLifetime time.Duration
}

// NewJWTManager creates a new JWTManager from the resolved configuration.
func NewJWTManager(cfg *config.Config) JWTMgr {
	log.Info("Initializing JWT manager")
	return &JWTManager{
		accessSecret:    []byte(cfg.JWTAccessSecret),
		refreshSecret:   []byte(cfg.JWTRefreshSecret),
		accessLifetime:  cfg.AccessTokenLifetime,
		refreshLifetime: cfg.RefreshTokenLifetime,
	}
}

func (jm *JWTManager) claims(userId, email, role string, verified, refresh bool, lifetime time.Duration) jwt.MapClaims {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":      issuer,
		"iat":      now.Unix(),
		"exp":      now.Add(lifetime).Unix(),
		"sub":      userId,
		"email":    email,
		"role":     role,
		"verified": verified,
	}
	if refresh {
		claims["refresh"] = true
	}
	return claims
}

// GenerateTokenPair mints the access and refresh tokens for the given user.
// The two signings are independent and run concurrently; the call returns
// once both have finished.
func (jm *JWTManager) GenerateTokenPair(userId, email, role string, verified bool) (*schemas.TokenPairDTO, error) {
	type signed struct {
		token string
		err   error
	}

	accessCh := make(chan signed, 1)
	refreshCh := make(chan signed, 1)

	go func() {
		token, err := jm.sign(jm.claims(userId, email, role, verified, false, jm.accessLifetime), jm.accessSecret)
		accessCh <- signed{token, err}
	}()
	go func() {
		token, err := jm.sign(jm.claims(userId, email, role, verified, true, jm.refreshLifetime), jm.refreshSecret)
		refreshCh <- signed{token, err}
	}()

	access, refresh := <-accessCh, <-refreshCh
	if access.err != nil {
		return nil, access.err
	}
	if refresh.err != nil {
		return nil, refresh.err
	}

	return &schemas.TokenPairDTO{
		Token:        access.token,
		RefreshToken: refresh.token,
	}, nil
}

func (jm *JWTManager) sign(claims jwt.MapClaims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (jm *JWTManager) validate(tokenString string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signing method")
		}
		return secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	return claims, nil
}

// ValidateAccessToken validates signature and expiry of an access token.
// Refresh tokens are rejected here so they cannot be used as bearer tokens.
func (jm *JWTManager) ValidateAccessToken(tokenString string) (jwt.MapClaims, error) {
	claims, err := jm.validate(tokenString, jm.accessSecret)
	if err != nil {
		return nil, err
	}

	if isRefresh, _ := claims["refresh"].(bool); isRefresh {
		return nil, fmt.Errorf("refresh token used as access token")
	}

	return claims, nil
}

// ValidateRefreshToken validates signature and expiry of a refresh token
// and requires the refresh marker claim.
func (jm *JWTManager) ValidateRefreshToken(tokenString string) (jwt.MapClaims, error) {
	claims, err := jm.validate(tokenString, jm.refreshSecret)
	if err != nil {
		return nil, err
	}

	if isRefresh, _ := claims["refresh"].(bool); !isRefresh {
		return nil, fmt.Errorf("not a refresh token")
	}

	return claims, nil
}

// JWTMiddleware extracts the bearer token from the Authorization header,
// validates it as an access token and stores the claims in the gin context.
func (jm *JWTManager) JWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, &schemas.ErrorDTO{Error: *schemas.Unauthorized})
			return
		}

		claims, err := jm.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, &schemas.ErrorDTO{Error: *schemas.Unauthorized})
			return
		}

		c.Set(utils.ClaimsKey.String(), claims)
		c.Next()
	}
}
