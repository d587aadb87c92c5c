package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const opsSubject = "ops"

// OpsToken signs and verifies the bearer tokens that protect the internal
// /ops endpoints. End-user authentication lives with the external auth
// provider; this only gates the sweep trigger and inspection surface.
type OpsToken struct {
	secret []byte
}

func NewOpsToken(secret string) *OpsToken {
	return &OpsToken{secret: []byte(secret)}
}

func (o *OpsToken) Sign(ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": opsSubject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(o.secret)
}

func (o *OpsToken) Verify(tokenStr string) error {
	t, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return o.secret, nil
	})
	if err != nil || !t.Valid {
		return errors.New("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid claims")
	}
	if sub, _ := claims["sub"].(string); sub != opsSubject {
		return errors.New("not an ops token")
	}
	return nil
}
