package config

import "sync"

// Store holds the process-wide configuration. Reads take a snapshot pointer;
// all mutation goes through Update, which also persists the file. Callers must
// not modify the *Config returned by Get.
type Store struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

func NewStore(cfg *Config, path string) *Store {
	return &Store{cfg: cfg, path: path}
}

func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// clone copies the config deeply enough that mutating the copy's slices can
// never write through into a snapshot an earlier Get caller still holds.
func (c *Config) clone() *Config {
	next := *c
	next.Access.StaffRoles = append([]string(nil), c.Access.StaffRoles...)
	next.Tickets.Categories = make([]TicketCategory, len(c.Tickets.Categories))
	for i, cat := range c.Tickets.Categories {
		cat.Fields = append([]FieldSpec(nil), cat.Fields...)
		next.Tickets.Categories[i] = cat
	}
	return &next
}

// Update applies fn to a private copy of the current config, swaps it in and
// writes it back to disk. The save happens inside the critical section so
// concurrent updates cannot persist an older snapshot last. The save error is
// returned but the in-memory update always takes effect.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.clone()
	fn(next)
	s.cfg = next

	if s.path == "" {
		return nil
	}
	return SaveConfig(next, s.path)
}
