package authrpc

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/magabrotheeeer/appointment-booking/internal/models"
)

// MsgPasswordTooLong — текст статуса InvalidArgument для слишком длинного пароля.
const MsgPasswordTooLong = "password too long"

// ErrMalformed возвращается, если в сообщении нет обязательного поля.
var ErrMalformed = errors.New("malformed message")

// SignupRequest — запрос регистрации.
type SignupRequest struct {
	Username string
	Password string
	IsAdmin  bool
}

// SigninRequest — запрос входа.
type SigninRequest struct {
	Username string
	Password string
}

// TokenReply — ответ на вход.
type TokenReply struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
}

func stringField(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrMalformed, name)
	}
	if _, isString := v.GetKind().(*structpb.Value_StringValue); !isString {
		return "", fmt.Errorf("%w: %q is not a string", ErrMalformed, name)
	}
	return v.GetStringValue(), nil
}

func (r SignupRequest) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"username": r.Username,
		"password": r.Password,
		"is_admin": r.IsAdmin,
	})
}

func ParseSignupRequest(s *structpb.Struct) (SignupRequest, error) {
	var (
		r   SignupRequest
		err error
	)
	if r.Username, err = stringField(s, "username"); err != nil {
		return r, err
	}
	if r.Password, err = stringField(s, "password"); err != nil {
		return r, err
	}
	r.IsAdmin = s.GetFields()["is_admin"].GetBoolValue()
	return r, nil
}

func (r SigninRequest) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"username": r.Username,
		"password": r.Password,
	})
}

func ParseSigninRequest(s *structpb.Struct) (SigninRequest, error) {
	var (
		r   SigninRequest
		err error
	)
	if r.Username, err = stringField(s, "username"); err != nil {
		return r, err
	}
	if r.Password, err = stringField(s, "password"); err != nil {
		return r, err
	}
	return r, nil
}

// TokenStruct кодирует запрос ResolveToken.
func TokenStruct(token string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"token": token})
}

func ParseToken(s *structpb.Struct) (string, error) {
	return stringField(s, "token")
}

// UserStruct кодирует пользователя без хэша пароля.
// ID передаётся десятичной строкой: число в Struct — float64 и теряет точность после 2^53.
func UserStruct(u models.User) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":       strconv.FormatInt(u.ID, 10),
		"username": u.Username,
		"is_admin": u.IsAdmin,
	})
}

func ParseUser(s *structpb.Struct) (*models.User, error) {
	username, err := stringField(s, "username")
	if err != nil {
		return nil, err
	}
	rawID, err := stringField(s, "id")
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: id %q", ErrMalformed, rawID)
	}
	f := s.GetFields()
	return &models.User{
		ID:       id,
		Username: username,
		IsAdmin:  f["is_admin"].GetBoolValue(),
	}, nil
}

func (t TokenReply) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"access_token": t.AccessToken,
		"token_type":   t.TokenType,
		"expires_in":   int64(t.ExpiresIn / time.Second),
	})
}

func ParseTokenReply(s *structpb.Struct) (TokenReply, error) {
	var (
		t   TokenReply
		err error
	)
	if t.AccessToken, err = stringField(s, "access_token"); err != nil {
		return t, err
	}
	if t.TokenType, err = stringField(s, "token_type"); err != nil {
		return t, err
	}
	t.ExpiresIn = time.Duration(s.GetFields()["expires_in"].GetNumberValue()) * time.Second
	return t, nil
}
