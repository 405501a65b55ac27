// Package storage описывает хранилище сущностей: пользователей, заявок
// и запросов на активацию плана. Реализации: PostgreSQL (repository)
// и in-memory (memory).
//
// Каждая запись заменяется целиком. Обновление с устаревшей версией
// отклоняется с models.ErrConflict.
package storage

import (
	"context"

	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// FormFilter ограничивает выборку заявок. Пустые поля не фильтруют.
type FormFilter struct {
	OwnerID        string
	StudentID      string
	IncludeDeleted bool
}

// Store: операции над тремя коллекциями.
type Store interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string, role models.Role) (models.User, error)
	// UpdateUser заменяет запись, если версия совпадает, и возвращает её с новой версией.
	UpdateUser(ctx context.Context, user models.User) (models.User, error)

	CreateForm(ctx context.Context, form models.Form) error
	GetForm(ctx context.Context, id string) (models.Form, error)
	UpdateForm(ctx context.Context, form models.Form) (models.Form, error)
	// ListForms возвращает заявки в порядке создания.
	ListForms(ctx context.Context, filter FormFilter) ([]models.Form, error)

	CreateAdminNotification(ctx context.Context, n models.AdminNotification) error
	GetAdminNotification(ctx context.Context, id string) (models.AdminNotification, error)
	UpdateAdminNotification(ctx context.Context, n models.AdminNotification) (models.AdminNotification, error)
	// ListAdminNotifications возвращает запросы от новых к старым.
	ListAdminNotifications(ctx context.Context, onlyOpen bool) ([]models.AdminNotification, error)
}

// TxStore: хранилище, умеющее выполнять группу операций атомарно.
type TxStore interface {
	Store
	// Atomic выполняет fn в транзакции. Ошибка fn откатывает все изменения.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	// Wipe удаляет все данные. Только для разработки.
	Wipe(ctx context.Context) error
}
