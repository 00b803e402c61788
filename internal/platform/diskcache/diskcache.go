// Package diskcache persists remote responses as a directory of JSON
// files, one per key, each invalidated by age rather than explicit
// eviction. Writes are whole-file overwrites of independent entry files, so
// concurrent writers for the same key race benignly (a wasted write, never
// corruption).
package diskcache

import (
	"encoding/json"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"wayrake/internal/platform/logx"
)

// DefaultTTL is the freshness window applied when none is configured.
const DefaultTTL = 24 * time.Hour

// entry is the on-disk representation of one cached response.
type entry struct {
	FetchedAt int64           `json:"fetched_at"` // epoch milliseconds
	Payload   json.RawMessage `json:"payload"`
}

// Store is a TTL-bound cache keyed by arbitrary strings (normalized URLs).
type Store struct {
	dir    string
	ttl    time.Duration
	now    func() time.Time
	logger logx.Logger
}

// New creates a store rooted at dir, creating it if needed. A non-positive
// ttl falls back to DefaultTTL.
func New(dir string, ttl time.Duration, logger logx.Logger) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		dir:    dir,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With("component", "diskcache"),
	}, nil
}

// SetClock replaces the time source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Get returns the cached payload for key when a fresh entry exists.
// Unreadable or stale entries count as misses.
func (s *Store) Get(key string) ([]byte, bool) {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		s.logger.Warn("unreadable cache entry, treating as miss", "key", key, "error", err.Error())
		return nil, false
	}

	age := s.now().UnixMilli() - e.FetchedAt
	if age > s.ttl.Milliseconds() {
		s.logger.Debug("cache entry expired", "key", key, "age_ms", age)
		return nil, false
	}
	return e.Payload, true
}

// Put stores payload for key, stamped with the current time. The payload
// must be valid JSON.
func (s *Store) Put(key string, payload []byte) error {
	e := entry{
		FetchedAt: s.now().UnixMilli(),
		Payload:   json.RawMessage(payload),
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(key), b, 0o644)
}

// Delete removes the entry for key, ignoring missing files.
func (s *Store) Delete(key string) {
	_ = os.Remove(s.path(key))
}

// path maps a key to its entry file. The readable prefix helps debugging;
// the hash suffix keeps distinct keys from colliding after sanitization.
func (s *Store) path(key string) string {
	h := fnv.New32a()
	h.Write([]byte(key))

	name := sanitizeKey(key)
	if len(name) > 80 {
		name = name[:80]
	}
	return filepath.Join(s.dir, name+"_"+strconv.FormatUint(uint64(h.Sum32()), 16)+".json")
}

// sanitizeKey keeps alphanumerics, dash and underscore; everything else
// becomes an underscore.
func sanitizeKey(key string) string {
	out := []byte(key)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
