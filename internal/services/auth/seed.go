package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/magabrotheeeer/appointment-booking/internal/models"
	"github.com/magabrotheeeer/appointment-booking/internal/storage/repository"
)

// SeedUser описывает пользователя в файле начальных данных.
type SeedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	IsAdmin  bool   `yaml:"is_admin"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

// SeedFromFile создаёт отсутствующих пользователей из YAML-файла вида
//
//	users:
//	  - username: admin
//	    password: secret
//	    is_admin: true
//
// Существующие пользователи не меняются. Возвращает число созданных.
func (s *AuthService) SeedFromFile(ctx context.Context, path string) (int, error) {
	const op = "services.auth.SeedFromFile"
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	var sf seedFile
	if err = yaml.Unmarshal(data, &sf); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return s.Seed(ctx, sf.Users)
}

// Seed создаёт отсутствующих пользователей. Флаг администратора здесь
// учитывается всегда: это способ завести администраторов при закрытой регистрации.
func (s *AuthService) Seed(ctx context.Context, users []SeedUser) (int, error) {
	const op = "services.auth.Seed"
	created := 0
	for _, u := range users {
		if u.Username == "" || u.Password == "" {
			continue
		}
		if _, err := s.users.GetUserByUsername(ctx, u.Username); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return created, fmt.Errorf("%s: %w", op, err)
		}

		hashed, err := s.hasher.Hash(u.Password)
		if err != nil {
			return created, fmt.Errorf("%s: %w", op, err)
		}
		user := models.User{Username: u.Username, PasswordHash: hashed, IsAdmin: u.IsAdmin}
		if _, err = s.users.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrUserExists) {
				continue
			}
			return created, fmt.Errorf("%s: %w", op, err)
		}
		created++
		s.log.Info("seeded user", slog.String("username", u.Username), slog.Bool("is_admin", u.IsAdmin))
	}
	return created, nil
}
