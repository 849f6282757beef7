// Package jwt подписывает и проверяет короткоживущие токены ссылок на документы пропусков.
package jwt

import (
	"time"
)

// Maker создаёт и разбирает токены доступа к документу.
type Maker interface {
	GenerateToken(ref string, ttl time.Duration) (string, error)
	ParseToken(tokenStr string) (*ArtifactClaims, error)
}

// MakerImpl реализует Maker на HMAC-SHA256 с общим секретом.
type MakerImpl struct {
	secretKey string
}

// NewJWTMaker создаёт MakerImpl.
func NewJWTMaker(secretKey string) *MakerImpl {
	return &MakerImpl{secretKey: secretKey}
}
