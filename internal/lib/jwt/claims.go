package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issue создаёт токен {sub, iat, exp, jti}, подписанный секретом Maker.
func (j *MakerImpl) Issue(subject string, ttl time.Duration) (string, error) {
	const op = "jwt.Issue"
	if subject == "" {
		return "", fmt.Errorf("%s: empty subject", op)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%s: ttl must be positive", op)
	}

	now := j.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(j.method, claims).SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// Validate проверяет подпись, алгоритм и срок действия токена и возвращает subject.
func (j *MakerImpl) Validate(tokenStr string) (string, error) {
	const op = "jwt.Validate"

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, errors.New("missing subject"))
	}
	return claims.Subject, nil
}
