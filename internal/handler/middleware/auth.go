package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/dwarvesf/paywatch/internal/consts"
	"github.com/dwarvesf/paywatch/internal/types/apperror"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
	"github.com/dwarvesf/paywatch/internal/view"
)

const (
	RoleOperator = "operator"

	// ContextOperatorKey holds the token subject of an authenticated operator.
	ContextOperatorKey = "operator"
)

var errUnauthorized = apperror.New(apperror.KindInvalidInput, "unauthorized")

// OperatorClaims are the claims of an operator API token.
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 operator token for subject.
func GenerateToken(subject, secret string, expiry time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is required")
	}

	now := time.Now()
	claims := &OperatorClaims{
		Role: RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    consts.ProductName,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// OperatorAuth only lets through bearer tokens signed with the configured
// secret and carrying the operator role. Without a secret every request is
// rejected.
func OperatorAuth(cfg *config.AppConfig, logger *logger.Logger) gin.HandlerFunc {
	secret := []byte(cfg.Admin.JWTSecret)

	return func(c *gin.Context) {
		if len(secret) == 0 {
			abort(c, http.StatusServiceUnavailable, "operator api is disabled")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims := &OperatorClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(consts.ProductName))
		if err != nil || !token.Valid {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token has expired"
			}
			logger.Warn("[OperatorAuth] rejected token", map[string]string{
				"path":  c.FullPath(),
				"error": msg,
			})
			abort(c, http.StatusUnauthorized, msg)
			return
		}

		if claims.Role != RoleOperator {
			abort(c, http.StatusForbidden, "insufficient permissions")
			return
		}

		c.Set(ContextOperatorKey, claims.Subject)
		c.Next()
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, view.CreateResponse[any](nil, errUnauthorized, nil, message))
}
