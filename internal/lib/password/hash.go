// Package password реализует одностороннее хеширование и проверку паролей.
//
// Hash создаёт bcrypt-хеш с новой солью на каждый вызов, поэтому два хеша
// одного пароля различаются, но оба проходят проверку.
// Verify никогда не возвращает ошибку: некорректный хеш просто не совпадает.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrTooLong возвращается, если пароль длиннее, чем bcrypt способен учесть.
var ErrTooLong = errors.New("password is longer than 72 bytes")

const maxPasswordBytes = 72

// Hasher описывает хеширование и проверку паролей.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// BcryptHasher реализует Hasher на основе bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher создаёт хешер с заданной стоимостью.
// Значения вне допустимого диапазона bcrypt заменяются на bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash принимает пароль пользователя и возвращает его bcrypt‑хэш.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	const op = "password.Hash"
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Verify сравнивает пароль с bcrypt‑хэшем.
// bcrypt учитывает только первые 72 байта, поэтому более длинный пароль отклоняется сразу.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	if len(plaintext) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
