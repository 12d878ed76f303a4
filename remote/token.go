package remote

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer-token payload issued by the backend. The client
// only reads it to derive the user namespace and to stop syncing with an
// expired token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseClaims reads the token claims. With a secret the HMAC signature is
// verified; without one the claims are decoded unverified — the client
// never grants anything based on them, the backend re-checks the token on
// every request.
func ParseClaims(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	if secret == "" {
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
			return nil, err
		}
		return claims, nil
	}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// UserID returns the user identity carried by the configured token, or ""
// when no token is set or it cannot be parsed.
func (c *Client) UserID() string {
	if c.token == "" {
		return ""
	}
	claims, err := ParseClaims(c.token, c.secret)
	if err != nil {
		c.logger.Debug("token parse failed")
		return ""
	}
	return claims.UserID
}

// tokenExpired reports whether the configured token has expired. A client
// without a token syncs anonymously and is never considered expired.
func (c *Client) tokenExpired() (bool, error) {
	if c.token == "" {
		return false, nil
	}
	claims, err := ParseClaims(c.token, c.secret)
	if err != nil {
		return true, err
	}
	if claims.ExpiresAt == nil {
		return false, nil
	}
	return claims.ExpiresAt.Before(time.Now()), nil
}
