// Package memory: хранилище сущностей в памяти процесса.
// Используется в тестах и при локальном запуске с storage.driver=memory.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/magabrotheeeer/audit-coordinator/internal/models"
	"github.com/magabrotheeeer/audit-coordinator/internal/storage"
)

// Store реализует storage.TxStore.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ storage.TxStore = (*Store)(nil)

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{st: newState()}
}

type state struct {
	users     map[string]models.User
	userOrder []string
	forms     map[string]models.Form
	formOrder []string
	notes     map[string]models.AdminNotification
	noteOrder []string
}

func newState() *state {
	return &state{
		users: map[string]models.User{},
		forms: map[string]models.Form{},
		notes: map[string]models.AdminNotification{},
	}
}

func (s *state) clone() *state {
	cp := &state{
		users:     make(map[string]models.User, len(s.users)),
		userOrder: slices.Clone(s.userOrder),
		forms:     make(map[string]models.Form, len(s.forms)),
		formOrder: slices.Clone(s.formOrder),
		notes:     make(map[string]models.AdminNotification, len(s.notes)),
		noteOrder: slices.Clone(s.noteOrder),
	}
	for k, v := range s.users {
		cp.users[k] = copyUser(v)
	}
	for k, v := range s.forms {
		cp.forms[k] = v.Clone()
	}
	for k, v := range s.notes {
		cp.notes[k] = copyNote(v)
	}
	return cp
}

func copyUser(u models.User) models.User {
	u.Notifications = slices.Clone(u.Notifications)
	return u
}

func copyNote(n models.AdminNotification) models.AdminNotification {
	if n.HandledAt != nil {
		t := *n.HandledAt
		n.HandledAt = &t
	}
	if n.Approved != nil {
		a := *n.Approved
		n.Approved = &a
	}
	return n
}

// Atomic выполняет fn над копией состояния и применяет её только при успехе.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(ctx, &view{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Wipe удаляет все данные.
func (s *Store) Wipe(_ context.Context) error {
	s.mu.Lock()
	s.st = newState()
	s.mu.Unlock()
	return nil
}

func (s *Store) locked(fn func(v *view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&view{st: s.st})
}

func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	return s.locked(func(v *view) error { return v.CreateUser(ctx, user) })
}

func (s *Store) GetUser(ctx context.Context, id string) (u models.User, err error) {
	err = s.locked(func(v *view) error { u, err = v.GetUser(ctx, id); return err })
	return u, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string, role models.Role) (u models.User, err error) {
	err = s.locked(func(v *view) error { u, err = v.GetUserByEmail(ctx, email, role); return err })
	return u, err
}

func (s *Store) UpdateUser(ctx context.Context, user models.User) (u models.User, err error) {
	err = s.locked(func(v *view) error { u, err = v.UpdateUser(ctx, user); return err })
	return u, err
}

func (s *Store) CreateForm(ctx context.Context, form models.Form) error {
	return s.locked(func(v *view) error { return v.CreateForm(ctx, form) })
}

func (s *Store) GetForm(ctx context.Context, id string) (f models.Form, err error) {
	err = s.locked(func(v *view) error { f, err = v.GetForm(ctx, id); return err })
	return f, err
}

func (s *Store) UpdateForm(ctx context.Context, form models.Form) (f models.Form, err error) {
	err = s.locked(func(v *view) error { f, err = v.UpdateForm(ctx, form); return err })
	return f, err
}

func (s *Store) ListForms(ctx context.Context, filter storage.FormFilter) (out []models.Form, err error) {
	err = s.locked(func(v *view) error { out, err = v.ListForms(ctx, filter); return err })
	return out, err
}

func (s *Store) CreateAdminNotification(ctx context.Context, n models.AdminNotification) error {
	return s.locked(func(v *view) error { return v.CreateAdminNotification(ctx, n) })
}

func (s *Store) GetAdminNotification(ctx context.Context, id string) (n models.AdminNotification, err error) {
	err = s.locked(func(v *view) error { n, err = v.GetAdminNotification(ctx, id); return err })
	return n, err
}

func (s *Store) UpdateAdminNotification(ctx context.Context, note models.AdminNotification) (n models.AdminNotification, err error) {
	err = s.locked(func(v *view) error { n, err = v.UpdateAdminNotification(ctx, note); return err })
	return n, err
}

func (s *Store) ListAdminNotifications(ctx context.Context, onlyOpen bool) (out []models.AdminNotification, err error) {
	err = s.locked(func(v *view) error { out, err = v.ListAdminNotifications(ctx, onlyOpen); return err })
	return out, err
}

// view работает с состоянием без блокировок; блокировку держит вызывающий.
type view struct {
	st *state
}

func (v *view) CreateUser(_ context.Context, user models.User) error {
	const op = "memory.CreateUser"
	if _, ok := v.st.users[user.ID]; ok {
		return fmt.Errorf("%s: %w", op, models.ErrDuplicateAccount)
	}
	for _, u := range v.st.users {
		if u.Email == user.Email && u.Role == user.Role {
			return fmt.Errorf("%s: %w", op, models.ErrDuplicateAccount)
		}
	}
	user = copyUser(user)
	user.Version = 1
	v.st.users[user.ID] = user
	v.st.userOrder = append(v.st.userOrder, user.ID)
	return nil
}

func (v *view) GetUser(_ context.Context, id string) (models.User, error) {
	u, ok := v.st.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("memory.GetUser: user %s: %w", id, models.ErrNotFound)
	}
	return copyUser(u), nil
}

func (v *view) GetUserByEmail(_ context.Context, email string, role models.Role) (models.User, error) {
	for _, id := range v.st.userOrder {
		if u := v.st.users[id]; u.Email == email && u.Role == role {
			return copyUser(u), nil
		}
	}
	return models.User{}, fmt.Errorf("memory.GetUserByEmail: %w", models.ErrNotFound)
}

func (v *view) UpdateUser(_ context.Context, user models.User) (models.User, error) {
	const op = "memory.UpdateUser"
	stored, ok := v.st.users[user.ID]
	if !ok {
		return models.User{}, fmt.Errorf("%s: user %s: %w", op, user.ID, models.ErrNotFound)
	}
	if stored.Version != user.Version {
		return models.User{}, fmt.Errorf("%s: user %s: %w", op, user.ID, models.ErrConflict)
	}
	user = copyUser(user)
	user.Version++
	v.st.users[user.ID] = user
	return copyUser(user), nil
}

func (v *view) CreateForm(_ context.Context, form models.Form) error {
	const op = "memory.CreateForm"
	if _, ok := v.st.forms[form.ID]; ok {
		return fmt.Errorf("%s: form %s already exists", op, form.ID)
	}
	form = form.Clone()
	form.Version = 1
	v.st.forms[form.ID] = form
	v.st.formOrder = append(v.st.formOrder, form.ID)
	return nil
}

func (v *view) GetForm(_ context.Context, id string) (models.Form, error) {
	f, ok := v.st.forms[id]
	if !ok {
		return models.Form{}, fmt.Errorf("memory.GetForm: form %s: %w", id, models.ErrNotFound)
	}
	return f.Clone(), nil
}

func (v *view) UpdateForm(_ context.Context, form models.Form) (models.Form, error) {
	const op = "memory.UpdateForm"
	stored, ok := v.st.forms[form.ID]
	if !ok {
		return models.Form{}, fmt.Errorf("%s: form %s: %w", op, form.ID, models.ErrNotFound)
	}
	if stored.Version != form.Version {
		return models.Form{}, fmt.Errorf("%s: form %s: %w", op, form.ID, models.ErrConflict)
	}
	form = form.Clone()
	form.Version++
	v.st.forms[form.ID] = form
	return form.Clone(), nil
}

func (v *view) ListForms(_ context.Context, filter storage.FormFilter) ([]models.Form, error) {
	var out []models.Form
	for _, id := range v.st.formOrder {
		f := v.st.forms[id]
		if f.Deleted && !filter.IncludeDeleted {
			continue
		}
		if filter.OwnerID != "" && f.CreatedByUserID != filter.OwnerID {
			continue
		}
		if filter.StudentID != "" && (f.StudentSubmission == nil || f.StudentSubmission.StudentID != filter.StudentID) {
			continue
		}
		out = append(out, f.Clone())
	}
	return out, nil
}

func (v *view) CreateAdminNotification(_ context.Context, n models.AdminNotification) error {
	const op = "memory.CreateAdminNotification"
	if _, ok := v.st.notes[n.ID]; ok {
		return fmt.Errorf("%s: notification %s already exists", op, n.ID)
	}
	n = copyNote(n)
	n.Version = 1
	v.st.notes[n.ID] = n
	v.st.noteOrder = append(v.st.noteOrder, n.ID)
	return nil
}

func (v *view) GetAdminNotification(_ context.Context, id string) (models.AdminNotification, error) {
	n, ok := v.st.notes[id]
	if !ok {
		return models.AdminNotification{}, fmt.Errorf("memory.GetAdminNotification: %s: %w", id, models.ErrNotFound)
	}
	return copyNote(n), nil
}

func (v *view) UpdateAdminNotification(_ context.Context, n models.AdminNotification) (models.AdminNotification, error) {
	const op = "memory.UpdateAdminNotification"
	stored, ok := v.st.notes[n.ID]
	if !ok {
		return models.AdminNotification{}, fmt.Errorf("%s: %s: %w", op, n.ID, models.ErrNotFound)
	}
	if stored.Version != n.Version {
		return models.AdminNotification{}, fmt.Errorf("%s: %s: %w", op, n.ID, models.ErrConflict)
	}
	n = copyNote(n)
	n.Version++
	v.st.notes[n.ID] = n
	return copyNote(n), nil
}

func (v *view) ListAdminNotifications(_ context.Context, onlyOpen bool) ([]models.AdminNotification, error) {
	var out []models.AdminNotification
	for i := len(v.st.noteOrder) - 1; i >= 0; i-- {
		n := v.st.notes[v.st.noteOrder[i]]
		if onlyOpen && n.Handled {
			continue
		}
		out = append(out, copyNote(n))
	}
	return out, nil
}
