package directory

import (
	"context"
	"fmt"
	"sync"

	greenauth "github.com/verdantio/greenauth"
	"github.com/verdantio/greenauth/permission"
)

type memoryRole struct {
	name   string
	active bool
	keys   []string
}

// Memory is an in-process directory fake with the same contracts as
// [Postgres]. Safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	users     map[int64]greenauth.User
	emails    map[string]int64
	roles     map[int64]*memoryRole
	roleNames map[string]int64
	userRoles map[int64][]int64
	nextUser  int64
	nextRole  int64
}

// NewMemory returns an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{
		users:     make(map[int64]greenauth.User),
		emails:    make(map[string]int64),
		roles:     make(map[int64]*memoryRole),
		roleNames: make(map[string]int64),
		userRoles: make(map[int64][]int64),
	}
}

// AddUser seeds a user and returns its id.
func (m *Memory) AddUser(email, passwordHash string, active bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextUser++
	id := m.nextUser
	m.users[id] = greenauth.User{ID: id, Email: email, PasswordHash: passwordHash, Active: active}
	m.emails[email] = id
	return id
}

// SetUserActive flips a seeded user's active flag.
func (m *Memory) SetUserActive(id int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.users[id]; ok {
		user.Active = active
		m.users[id] = user
	}
}

// AssignRole adds a role membership.
func (m *Memory) AssignRole(_ context.Context, userID, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.userRoles[userID] {
		if existing == roleID {
			return nil
		}
	}
	m.userRoles[userID] = append(m.userRoles[userID], roleID)
	return nil
}

// UnassignRole removes a role membership.
func (m *Memory) UnassignRole(userID, roleID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := m.userRoles[userID]
	for i, existing := range members {
		if existing == roleID {
			m.userRoles[userID] = append(members[:i], members[i+1:]...)
			return
		}
	}
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*greenauth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[email]
	if !ok {
		return nil, greenauth.ErrUserNotFound
	}
	user := m.users[id]
	return &user, nil
}

func (m *Memory) FindByID(_ context.Context, id int64) (*greenauth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, greenauth.ErrUserNotFound
	}
	return &user, nil
}

func (m *Memory) RolesForUser(_ context.Context, userID int64) ([]permission.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []permission.Role
	for _, roleID := range m.userRoles[userID] {
		role, ok := m.roles[roleID]
		if !ok {
			continue
		}
		out = append(out, permission.Role{
			Name:   role.name,
			Active: role.active,
			Keys:   append([]string(nil), role.keys...),
		})
	}
	return out, nil
}

// CreateRole mirrors the Postgres contract, including the conflict error on
// a duplicate name.
func (m *Memory) CreateRole(_ context.Context, name string, active bool, keys []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.roleNames[name]; exists {
		return 0, greenauth.ErrConflict
	}

	m.nextRole++
	id := m.nextRole
	m.roles[id] = &memoryRole{name: name, active: active, keys: append([]string(nil), keys...)}
	m.roleNames[name] = id
	return id, nil
}

// UpdateRolePermissions replaces a role's permission set.
func (m *Memory) UpdateRolePermissions(_ context.Context, roleID int64, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	role, ok := m.roles[roleID]
	if !ok {
		return &greenauth.Error{
			Kind:        greenauth.KindNotFound,
			Message:     "Role Not Found",
			Description: fmt.Sprintf("No role found with ID %d", roleID),
		}
	}
	role.keys = append([]string(nil), keys...)
	return nil
}

// RoleKeys reports a role's current permission set. Test helper.
func (m *Memory) RoleKeys(roleID int64) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	role, ok := m.roles[roleID]
	if !ok {
		return nil
	}
	return append([]string(nil), role.keys...)
}
