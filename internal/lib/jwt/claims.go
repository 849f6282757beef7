package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken токен не прошёл проверку подписи, срока или формата.
var ErrInvalidToken = errors.New("invalid token")

// ArtifactClaims содержит ссылку на сохранённый документ.
type ArtifactClaims struct {
	Ref string `json:"ref"`
	jwt.RegisteredClaims
}

// GenerateToken подписывает ссылку ref со сроком действия ttl.
func (j *MakerImpl) GenerateToken(ref string, ttl time.Duration) (string, error) {
	const op = "jwt.GenerateToken"
	if ref == "" {
		return "", fmt.Errorf("%s: empty ref", op)
	}
	now := time.Now()
	claims := ArtifactClaims{
		Ref: ref,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок, возвращает claims.
func (j *MakerImpl) ParseToken(tokenStr string) (*ArtifactClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &ArtifactClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*ArtifactClaims)
	if !ok || !token.Valid || claims.Ref == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims, nil
}
