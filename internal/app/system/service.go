package system

import (
	"context"
	"fmt"
	"sync"
)

// Service represents a lifecycle-managed component. All application modules
// must implement this interface so the system manager can start and stop them
// deterministically.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager starts registered services in registration order and stops them in
// reverse.
type Manager struct {
	mu       sync.Mutex
	services []Service
	names    map[string]struct{}
	started  bool
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{names: make(map[string]struct{})}
}

// Register adds a service. Names must be unique and registration must happen
// before Start.
func (m *Manager) Register(s Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("manager already started")
	}
	name := s.Name()
	if _, dup := m.names[name]; dup {
		return fmt.Errorf("service %q already registered", name)
	}
	m.names[name] = struct{}{}
	m.services = append(m.services, s)
	return nil
}

// Start starts every registered service. On failure the services already
// started are stopped in reverse before the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.services {
		if err := s.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m.services[j].Stop(ctx)
			}
			return fmt.Errorf("start %s: %w", s.Name(), err)
		}
	}
	m.started = true
	return nil
}

// Stop stops services in reverse registration order, returning the first
// error after attempting every stop.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for i := len(m.services) - 1; i >= 0; i-- {
		s := m.services[i]
		if err := s.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop %s: %w", s.Name(), err)
		}
	}
	m.started = false
	return firstErr
}
