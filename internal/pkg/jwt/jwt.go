package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const adminScope = "admin"

type Claims struct {
	Scope string `json:"scope"`
	jwtlib.RegisteredClaims
}

func GenerateToken(subject string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	now := time.Now()
	claims := Claims{
		Scope: adminScope,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwtlib.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwtlib.NewNumericDate(now.Add(ttl))
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenString, &Claims{}, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Scope != adminScope {
		return nil, errors.New("token scope is not admin")
	}
	return claims, nil
}
