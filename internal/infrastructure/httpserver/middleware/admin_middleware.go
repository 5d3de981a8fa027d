package middleware

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/infrastructure/httpserver/helpers"
)

const adminRole = "admin"

// AdminClaims are the claims accepted on the admin API.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AdminMiddleware struct {
	secret []byte
	issuer string
	logger *logrus.Logger
}

func NewAdminMiddleware(secret, issuer string, logger *logrus.Logger) *AdminMiddleware {
	return &AdminMiddleware{secret: []byte(secret), issuer: issuer, logger: logger}
}

// RequireAdmin validates an HS256 bearer token carrying role=admin.
func (m *AdminMiddleware) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(m.secret) == 0 {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "admin api is not configured")
			}
			tokenString, err := helpers.GetJWTTokenFromContext(c)
			if err != nil {
				return err
			}
			claims, err := m.parse(tokenString)
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path, "error": err.Error()}).Warn("admin token rejected")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.Role != adminRole {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}
			helpers.SetAdminSubject(c, claims.Subject)
			return next(c)
		}
	}
}

func (m *AdminMiddleware) parse(tokenString string) (*AdminClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}
