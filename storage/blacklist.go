package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Blacklist is the flat set of actor ids forbidden from opening tickets. It
// is loaded once at startup and rewritten in full on every mutation. Writes
// go through a temp file plus rename so a crash cannot truncate the store.
type Blacklist struct {
	mu   sync.Mutex
	path string
	ids  map[string]struct{}
	log  *zap.Logger
}

// LoadBlacklist reads the store from disk. A missing or corrupt file degrades
// to an empty set; it never fails startup.
func LoadBlacklist(path string, log *zap.Logger) *Blacklist {
	b := &Blacklist{path: path, ids: make(map[string]struct{}), log: log}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("blacklist read failed; starting empty", zap.Error(err))
		}
		return b
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		log.Warn("blacklist file corrupt; starting empty", zap.String("path", path), zap.Error(err))
		return b
	}
	for _, id := range list {
		b.ids[id] = struct{}{}
	}
	return b
}

func (b *Blacklist) IsBlacklisted(actorID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.ids[actorID]
	return ok
}

func (b *Blacklist) Add(actorID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids[actorID] = struct{}{}
	return b.flushLocked()
}

func (b *Blacklist) Remove(actorID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ids, actorID)
	return b.flushLocked()
}

// List returns the banned ids in sorted order.
func (b *Blacklist) List() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedLocked()
}

func (b *Blacklist) sortedLocked() []string {
	out := make([]string, 0, len(b.ids))
	for id := range b.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// flushLocked rewrites the whole set: a single JSON array of actor ids.
func (b *Blacklist) flushLocked() error {
	_ = os.MkdirAll(filepath.Dir(b.path), 0755)

	data, err := json.MarshalIndent(b.sortedLocked(), "", "  ")
	if err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}
