// Package jwt реализует генерацию и разбор JWT токенов сессии.
//
// Токен несёт идентификатор пользователя и его роль; из них middleware
// собирает явный models.Session для каждой операции.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// Claims описывает данные, хранящиеся в JWT.
type Claims struct {
	UserID string      `json:"uid"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Maker создаёт и проверяет токены, подписанные общим секретом (HS256).
type Maker struct {
	secretKey []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт Maker на основе секретного ключа и времени жизни токена.
func NewJWTMaker(secretKey string, ttl time.Duration) *Maker {
	return &Maker{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// GenerateToken создаёт токен для сессии пользователя.
func (m *Maker) GenerateToken(session models.Session) (string, error) {
	const op = "jwt.GenerateToken"
	if session.UserID == "" || !session.Role.Valid() {
		return "", fmt.Errorf("%s: incomplete session", op)
	}
	now := m.now()
	claims := Claims{
		UserID: session.UserID,
		Role:   session.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// ParseToken проверяет подпись и срок действия токена и возвращает сессию.
func (m *Maker) ParseToken(tokenStr string) (models.Session, error) {
	const op = "jwt.ParseToken"
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return models.Session{}, fmt.Errorf("%s: %w", op, errors.New("invalid token claims"))
	}
	return models.Session{UserID: claims.UserID, Role: claims.Role}, nil
}
