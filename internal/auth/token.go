package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin = "admin"

	// AdminCookie lets the operator console authenticate without a header.
	AdminCookie  = "admin_token"
	bearerPrefix = "Bearer "
)

var ErrNoToken = errors.New("no admin token")

// AdminClaims is the payload of tokens accepted on operator endpoints.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ExtractAdminToken reads the bearer header first and falls back to the
// admin cookie.
func ExtractAdminToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimPrefix(h, bearerPrefix)
	}
	if cookie, err := r.Cookie(AdminCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// ParseAdminToken verifies an HS256 token signed with secret.
func ParseAdminToken(raw, secret string) (*AdminClaims, error) {
	if raw == "" {
		return nil, ErrNoToken
	}

	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

// SignAdminToken issues a token ParseAdminToken accepts. The role defaults
// to admin.
func SignAdminToken(secret string, claims AdminClaims) (string, error) {
	if claims.Role == "" {
		claims.Role = RoleAdmin
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return s, nil
}
