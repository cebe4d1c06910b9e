package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// Store persists raw provider responses keyed by request signature.
// Entries expire after the configured TTL. A Store is safe for concurrent use.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) a disk-backed store in dir.
// A non-positive ttl disables caching: every lookup is a miss.
func Open(dir string, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		return &Store{}, nil
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening response cache at %s: %w", dir, err)
	}
	return &Store{db: db, ttl: ttl}, nil
}

// OpenInMemory opens a store that lives only for the process lifetime
func OpenInMemory(ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		return &Store{}, nil
	}
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory response cache: %w", err)
	}
	return &Store{db: db, ttl: ttl}, nil
}

// Enabled reports whether lookups can ever hit
func (s *Store) Enabled() bool {
	return s.db != nil
}

// Get returns the cached value for key and whether it was present and fresh
func (s *Store) Get(key string) ([]byte, bool, error) {
	if s.db == nil {
		return nil, false, nil
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return value, true, nil
}

// Set stores value under key until the TTL elapses
func (s *Store) Set(key string, value []byte) error {
	if s.db == nil {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(s.ttl))
	})
}

// Close releases the underlying database
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Key builds the request signature for a GET on path with the given query
func Key(method, path string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(' ')
	b.WriteString(path)
	for _, name := range names {
		b.WriteByte('&')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "response:" + hex.EncodeToString(sum[:])
}
