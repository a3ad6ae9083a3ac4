// Package jwt реализует выпуск и проверку подписанных bearer-токенов.
//
// Токен несёт subject (имя пользователя) и срок действия. Серверных сессий нет:
// выпущенный токен действителен до истечения срока.
// Секрет и алгоритм подписи передаются явно при создании Maker.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken возвращается при любой ошибке проверки токена:
// неверная подпись, битый формат, чужой алгоритм, пустой subject, истёкший срок.
var ErrInvalidToken = errors.New("invalid token")

// Maker описывает интерфейс для выпуска и проверки токенов.
type Maker interface {
	// Issue выпускает токен для subject со сроком жизни ttl.
	Issue(subject string, ttl time.Duration) (string, error)
	// Validate проверяет токен и возвращает subject.
	Validate(token string) (string, error)
}

// MakerImpl реализует Maker на HMAC-подписи.
type MakerImpl struct {
	secretKey []byte
	method    *jwt.SigningMethodHMAC
	now       func() time.Time
}

// Option настраивает MakerImpl.
type Option func(*MakerImpl)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(m *MakerImpl) {
		m.now = now
	}
}

// NewJWTMaker создаёт Maker с секретом и алгоритмом из конфигурации.
// Поддерживаются HS256, HS384 и HS512; пустой алгоритм означает HS256.
func NewJWTMaker(secretKey, algorithm string, opts ...Option) (*MakerImpl, error) {
	const op = "jwt.NewJWTMaker"
	if secretKey == "" {
		return nil, fmt.Errorf("%s: empty secret key", op)
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported algorithm %q", op, algorithm)
	}

	m := &MakerImpl{
		secretKey: []byte(secretKey),
		method:    method,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Algorithm возвращает имя алгоритма подписи.
func (j *MakerImpl) Algorithm() string {
	return j.method.Alg()
}
