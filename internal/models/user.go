// Package models содержит доменные структуры сервиса записи на приём:
// пользователя, запись (appointment) и её представление с именем владельца.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
// Запись создаётся при регистрации и дальше не меняется.
type User struct {
	ID           int64     `json:"id"`       // Идентификатор, выдаётся базой при создании
	Username     string    `json:"username"` // Имя пользователя (уникальное, регистр учитывается)
	PasswordHash string    `json:"-"`        // bcrypt-хэш пароля, никогда не сериализуется
	IsAdmin      bool      `json:"is_admin"` // Признак администратора
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Identity возвращает копию пользователя без хэша пароля.
// Такая копия кладётся в кэш и в контекст запроса.
func (u User) Identity() User {
	u.PasswordHash = ""
	return u
}
