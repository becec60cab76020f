package feature

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryProvider keeps flags in memory. Flags are usually declared at startup
// from configuration.
type MemoryProvider struct {
	mu    sync.RWMutex
	flags map[string]*Flag
}

var _ Provider = (*MemoryProvider)(nil)

// NewMemoryProvider creates a provider holding copies of flags.
func NewMemoryProvider(flags ...*Flag) (*MemoryProvider, error) {
	m := &MemoryProvider{flags: make(map[string]*Flag, len(flags))}
	for _, f := range flags {
		if f == nil {
			continue
		}
		if err := m.Set(f); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// IsEnabled evaluates the named flag for ctx.
func (m *MemoryProvider) IsEnabled(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	f, ok := m.flags[name]
	m.mu.RUnlock()

	if !ok {
		return false, ErrFlagNotFound
	}
	if !f.Enabled {
		return false, nil
	}
	if f.Strategy == nil {
		return true, nil
	}
	return f.Strategy.Evaluate(ctx)
}

// GetFlag returns a copy of the named flag.
func (m *MemoryProvider) GetFlag(_ context.Context, name string) (*Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.flags[name]
	if !ok {
		return nil, ErrFlagNotFound
	}
	c := *f
	return &c, nil
}

// ListFlags returns copies of all flags sorted by name.
func (m *MemoryProvider) ListFlags(context.Context) ([]*Flag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Flag, 0, len(m.flags))
	for _, f := range m.flags {
		c := *f
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Set creates or replaces a flag.
func (m *MemoryProvider) Set(f *Flag) error {
	if f == nil || f.Name == "" {
		return errors.Join(ErrInvalidFlag, errors.New("flag name cannot be empty"))
	}
	c := *f
	m.mu.Lock()
	m.flags[f.Name] = &c
	m.mu.Unlock()
	return nil
}

// Delete removes a flag.
func (m *MemoryProvider) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.flags[name]; !ok {
		return ErrFlagNotFound
	}
	delete(m.flags, name)
	return nil
}
