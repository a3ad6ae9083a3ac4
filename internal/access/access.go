// Package access решает, какие операции над записями доступны пользователю.
//
// Решение зависит только от (пользователь, владелец записи, операция) и не
// имеет побочных эффектов. Администратор может всё; обычный пользователь видит
// и меняет только свои записи, а создаёт записи только на себя.
package access

import (
	"errors"

	"github.com/magabrotheeeer/appointment-booking/internal/models"
)

// ErrForbidden возвращается, если пользователь аутентифицирован, но не имеет прав на запись.
var ErrForbidden = errors.New("not enough permissions")

// Operation — операция над записями.
type Operation int

const (
	// OpReadAll чтение всех записей
	OpReadAll Operation = iota
	// OpReadOwn чтение своих записей
	OpReadOwn
	// OpCreate создание записи
	OpCreate
	// OpUpdate изменение записи
	OpUpdate
)

func (o Operation) String() string {
	switch o {
	case OpReadAll:
		return "read-all"
	case OpReadOwn:
		return "read-own"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Capability — отдельное право пользователя.
type Capability uint8

const (
	CapReadOwn Capability = 1 << iota
	CapWriteOwn
	CapReadAny
	CapWriteAny
)

// Capabilities — набор прав.
type Capabilities Capability

// Has сообщает, входит ли право c в набор.
func (s Capabilities) Has(c Capability) bool {
	return Capability(s)&c != 0
}

// CapabilitiesOf возвращает набор прав пользователя.
func CapabilitiesOf(u models.User) Capabilities {
	caps := CapReadOwn | CapWriteOwn
	if u.IsAdmin {
		caps |= CapReadAny | CapWriteAny
	}
	return Capabilities(caps)
}

// Authorize проверяет, может ли requester выполнить op над записью владельца ownerID.
// Для OpCreate ownerID не учитывается: запись всегда создаётся на requester.
func Authorize(requester models.User, ownerID int64, op Operation) error {
	caps := CapabilitiesOf(requester)
	own := requester.ID == ownerID

	var ok bool
	switch op {
	case OpReadAll:
		ok = caps.Has(CapReadAny)
	case OpReadOwn:
		ok = caps.Has(CapReadAny) || (own && caps.Has(CapReadOwn))
	case OpCreate:
		ok = caps.Has(CapWriteOwn)
	case OpUpdate:
		ok = caps.Has(CapWriteAny) || (own && caps.Has(CapWriteOwn))
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// ListScope возвращает фильтр выборки. При all=true выбираются все записи,
// иначе только записи владельца ownerID.
func ListScope(requester models.User) (ownerID int64, all bool) {
	if CapabilitiesOf(requester).Has(CapReadAny) {
		return 0, true
	}
	return requester.ID, false
}

// CreateOwner возвращает владельца создаваемой записи. Это всегда сам requester.
func CreateOwner(requester models.User) int64 {
	return requester.ID
}
