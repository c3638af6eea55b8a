package session

import (
	"context"
	"sync"

	"github.com/veldtlang/pluginhost/config"
)

// Manager holds the process's one native session. The zero Manager is
// ready to use.
type Manager struct {
	mu  sync.Mutex
	env *Environment
}

// NewManager returns an empty manager
func NewManager() *Manager {
	return &Manager{}
}

// Ensure returns the cached session, constructing it on first call: the
// native-root marker is read (a ConfigMissing error if it is absent or
// unreadable), cfg is sanitized against it, the native settings are
// loaded and version-checked, the package databases are opened, and a
// fresh wazero runtime is created. Every subsequent call returns the
// identical pointer regardless of its arguments. A failed construction
// caches nothing; the next call starts over.
func (m *Manager) Ensure(ctx context.Context, st *config.Settings, cfg *config.Config) (*Environment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.env != nil {
		return m.env, nil
	}
	env, err := newEnvironment(ctx, st, cfg)
	if err != nil {
		return nil, err
	}
	m.env = env
	return env, nil
}
