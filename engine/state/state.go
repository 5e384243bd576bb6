// Package state holds the session's role registries.
// Each registry guards its own map; callers that read-modify-write a role
// use Update so the mutation happens under the write lock.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nathoo/keepercore/types"
)

var (
	// ErrNotFound is returned when no role has the requested name.
	ErrNotFound = errors.New("role not found")
	// ErrDuplicate is returned by Add when the name is already registered.
	ErrDuplicate = errors.New("role already exists")
)

// Registry maps role names to roles, preserving registration order.
type Registry struct {
	mu    sync.RWMutex
	roles map[string]*types.Role
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{roles: map[string]*types.Role{}}
}

// Add registers a role. A name that is already taken is rejected.
func (r *Registry) Add(role *types.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[role.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, role.Name)
	}
	r.roles[role.Name] = role
	r.order = append(r.order, role.Name)
	return nil
}

// Put registers a role, replacing any role with the same name.
func (r *Registry) Put(role *types.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[role.Name]; !ok {
		r.order = append(r.order, role.Name)
	}
	r.roles[role.Name] = role
}

// Get returns a copy of the named role.
func (r *Registry) Get(name string) (types.Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[name]
	if !ok {
		return types.Role{}, false
	}
	return Clone(role), true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roles[name]
	return ok
}

// Update runs fn on the named role while holding the write lock.
func (r *Registry) Update(name string, fn func(*types.Role)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	fn(role)
	return nil
}

// Remove deletes the named role.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(r.roles, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// All returns copies of every role in registration order.
func (r *Registry) All() []types.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Role, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, Clone(r.roles[name]))
	}
	return out
}

// Len returns the number of registered roles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roles)
}

// Clone deep-copies a role so callers never alias registry storage.
func Clone(role *types.Role) types.Role {
	c := *role
	c.Skills = make(map[string]int, len(role.Skills))
	for k, v := range role.Skills {
		c.Skills[k] = v
	}
	return c
}
