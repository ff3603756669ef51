package site

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process copy of the site. It implements Users, Terms,
// Options and Directory.
type Memory struct {
	mu      sync.RWMutex
	users   map[int64]User
	posts   map[int64]Post
	terms   map[int64]string
	options map[string]interface{}
}

// NewMemory creates an empty site
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[int64]User),
		posts:   make(map[int64]Post),
		terms:   make(map[int64]string),
		options: make(map[string]interface{}),
	}
}

// PutUser adds or replaces a user
func (m *Memory) PutUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Roles = append([]string(nil), u.Roles...)
	m.users[u.ID] = u
}

// DeleteUser removes a user
func (m *Memory) DeleteUser(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

// PutPost adds or replaces a post
func (m *Memory) PutPost(p Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[p.ID] = p
}

// DeletePost removes a post
func (m *Memory) DeletePost(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
}

// PutCategory adds or renames a category term
func (m *Memory) PutCategory(id int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms[id] = name
}

// User returns a copy of the user
func (m *Memory) User(ctx context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	u.Roles = append([]string(nil), u.Roles...)
	return &u, nil
}

// Can reports whether the user's roles grant capability. Unknown users can't do anything.
func (m *Memory) Can(ctx context.Context, id int64, capability string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	return RolesCan(u.Roles, capability), nil
}

// ListWithCapability returns the IDs of users holding capability, ascending
func (m *Memory) ListWithCapability(ctx context.Context, capability string) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for id, u := range m.users {
		if RolesCan(u.Roles, capability) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// CategoryName returns the name of a category term
func (m *Memory) CategoryName(ctx context.Context, id int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.terms[id]
	if !ok {
		return "", fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return name, nil
}

// Get returns an option value
func (m *Memory) Get(ctx context.Context, key string) (interface{}, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.options[key]
	return v, ok, nil
}

// Set stores an option value
func (m *Memory) Set(ctx context.Context, key string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options[key] = value
	return nil
}

// DisplayNames resolves user display names
func (m *Memory) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u.Name()
		}
	}
	return out, nil
}

// Logins resolves user logins
func (m *Memory) Logins(ctx context.Context, ids []int64) (map[int64]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u.Login
		}
	}
	return out, nil
}

// PostTitles resolves post and page titles
func (m *Memory) PostTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if p, ok := m.posts[id]; ok {
			out[id] = p.Title
		}
	}
	return out, nil
}
