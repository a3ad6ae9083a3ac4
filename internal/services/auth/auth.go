// Package services содержит логику регистрации, входа и установления личности по bearer-токену.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/appointment-booking/internal/lib/jwt"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/password"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/sl"
	"github.com/magabrotheeeer/appointment-booking/internal/models"
	"github.com/magabrotheeeer/appointment-booking/internal/storage/repository"
)

var (
	// ErrDuplicateUsername возвращается при регистрации с занятым username.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль,
	// а также для недействительного, истёкшего или бесхозного токена.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TokenType — тип выдаваемого токена.
const TokenType = "bearer"

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его ID.
	CreateUser(ctx context.Context, user models.User) (int64, error)
	// GetUserByUsername возвращает пользователя по имени.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Options настройки AuthService.
type Options struct {
	TokenTTL         time.Duration
	AllowAdminSignup bool
}

// Token — результат успешного входа.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
}

// AuthService отвечает за регистрацию, вход и установление личности по токену.
type AuthService struct {
	users  UserRepository
	hasher password.Hasher
	tokens jwt.Maker
	log    *slog.Logger
	opts   Options
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, hasher password.Hasher, tokens jwt.Maker, log *slog.Logger, opts Options) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
		opts:   opts,
	}
}

// Signup создаёт пользователя с хэшированным паролем.
// Флаг isAdmin учитывается только при включённой AllowAdminSignup.
func (s *AuthService) Signup(ctx context.Context, username, rawPassword string, isAdmin bool) (*models.User, error) {
	const op = "services.auth.Signup"

	// быстрый отказ; уникальность гарантирует ограничение в БД
	_, err := s.users.GetUserByUsername(ctx, username)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrDuplicateUsername)
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if isAdmin && !s.opts.AllowAdminSignup {
		s.log.Warn("admin flag ignored on signup", slog.String("username", username))
		isAdmin = false
	}

	hashed, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: hashed,
		IsAdmin:      isAdmin,
	}
	id, err := s.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateUsername)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.ID = id

	s.log.Info("user signed up", slog.Int64("id", id), slog.String("username", username), slog.Bool("is_admin", isAdmin))
	identity := user.Identity()
	return &identity, nil
}

// Signin проверяет пароль и выпускает токен.
// Неизвестный username и неверный пароль неразличимы для вызывающего.
func (s *AuthService) Signin(ctx context.Context, username, rawPassword string) (*Token, error) {
	const op = "services.auth.Signin"

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !s.hasher.Verify(rawPassword, user.PasswordHash) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.Username, s.opts.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Token{
		AccessToken: token,
		TokenType:   TokenType,
		ExpiresIn:   s.opts.TokenTTL,
	}, nil
}

// Resolve проверяет токен и возвращает пользователя, которому он выдан.
// Пользователь каждый раз читается из хранилища, чтобы удалённая учётная запись
// или снятый флаг администратора действовали сразу. Хэш пароля в результат не попадает.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.User, error) {
	const op = "services.auth.Resolve"

	username, err := s.tokens.Validate(token)
	if err != nil {
		s.log.Debug("token rejected", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	identity := user.Identity()
	return &identity, nil
}
