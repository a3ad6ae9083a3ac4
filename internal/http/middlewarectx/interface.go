package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/appointment-booking/internal/models"
)

// Resolver устанавливает пользователя по bearer-токену.
// Реализуется локальным сервисом аутентификации и gRPC-клиентом.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}
