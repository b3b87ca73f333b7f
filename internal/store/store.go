// Package store provides a SQLite-backed reactive document store: JSON
// documents addressed by string keys, structural merge writes, and push
// subscriptions that fire on the initial value and on every subsequent
// change. It is the local half of the app's eventually-consistent state
// layer; notification delivery is asynchronous and serialized in write
// order.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Veraticus/miles-to-go/internal/common"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// subscriber is a single registered callback. Exact-key subscribers have
// key set; collection subscribers have prefix set.
type subscriber struct {
	fn     func(key string, value any)
	key    string
	prefix string
	id     int
}

// event is one pending notification. subID > 0 restricts delivery to a
// single subscriber (the initial-value callback after Connect). A non-nil
// barrier marks a Flush checkpoint instead of a notification.
type event struct {
	value   any
	barrier chan struct{}
	key     string
	subID   int
}

// Store implements service.Store on top of SQLite. All documents are also
// held in memory; the database is the durable copy loaded at startup.
type Store struct {
	db     *sql.DB
	dbPath string

	mu          sync.Mutex
	documents   map[string]any
	subscribers map[int]*subscriber
	nextSubID   int
	closed      bool

	qmu      sync.Mutex
	qcond    *sync.Cond
	queue    []event
	draining bool

	dispatcherDone chan struct{}
}

// New opens (creating if needed) the store database at dbPath and starts
// the notification dispatcher. Call Migrate before first use.
func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: dbPath cannot be empty", common.ErrInvalidConfig)
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:             db,
		dbPath:         dbPath,
		documents:      make(map[string]any),
		subscribers:    make(map[int]*subscriber),
		dispatcherDone: make(chan struct{}),
	}
	s.qcond = sync.NewCond(&s.qmu)

	go s.dispatch()

	return s, nil
}

// Close stops the dispatcher after draining pending notifications and
// closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.qmu.Lock()
	s.draining = true
	s.qcond.Broadcast()
	s.qmu.Unlock()

	<-s.dispatcherDone

	return s.db.Close()
}

// Connect subscribes to a single key. The callback fires once with the
// current value (nil if absent) and again after every subsequent write.
func (s *Store) Connect(key string, fn func(value any)) func() {
	return s.subscribe(&subscriber{
		key: key,
		fn: func(_ string, value any) {
			fn(value)
		},
	})
}

// ConnectCollection subscribes to every key sharing a prefix. The callback
// fires per matching key, first for existing keys and then after every
// subsequent write to a matching key.
func (s *Store) ConnectCollection(prefix string, fn func(key string, value any)) func() {
	return s.subscribe(&subscriber{
		prefix: prefix,
		fn:     fn,
	})
}

func (s *Store) subscribe(sub *subscriber) func() {
	s.mu.Lock()
	s.nextSubID++
	sub.id = s.nextSubID
	s.subscribers[sub.id] = sub

	// Queue the initial values before releasing the lock so no write can
	// slip in between snapshot and subscription.
	var initial []event
	if sub.prefix != "" {
		for key, value := range s.documents {
			if strings.HasPrefix(key, sub.prefix) {
				initial = append(initial, event{key: key, value: value, subID: sub.id})
			}
		}
	} else {
		initial = append(initial, event{key: sub.key, value: s.documents[sub.key], subID: sub.id})
	}
	s.mu.Unlock()

	s.enqueue(initial...)

	id := sub.id
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Merge deep-merges a partial value into the document at key. A nil leaf in
// the patch removes the corresponding key.
func (s *Store) Merge(key string, patch map[string]any) error {
	normalized, err := normalize(patch)
	if err != nil {
		return err
	}
	patchMap, ok := normalized.(map[string]any)
	if !ok {
		return fmt.Errorf("merge patch for %s is not an object", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrStoreClosed
	}

	current, ok := s.documents[key]
	if !ok {
		current = map[string]any{}
	}
	next := deepMerge(current, patchMap)

	if err := s.persist(key, next); err != nil {
		return err
	}
	s.documents[key] = next
	s.enqueue(event{key: key, value: next})

	return nil
}

// Set replaces the whole document at key. A nil value removes the document.
func (s *Store) Set(key string, value any) error {
	normalized, err := normalize(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.ErrStoreClosed
	}

	if normalized == nil {
		if _, execErr := s.db.Exec(`DELETE FROM documents WHERE key = ?`, key); execErr != nil {
			return fmt.Errorf("failed to delete document %s: %w", key, execErr)
		}
		delete(s.documents, key)
		s.enqueue(event{key: key, value: nil})
		return nil
	}

	if err := s.persist(key, normalized); err != nil {
		return err
	}
	s.documents[key] = normalized
	s.enqueue(event{key: key, value: normalized})

	return nil
}

// Get returns the current document at key, or false if absent. The result
// is a copy; callers may mutate it freely.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.documents[key]
	if !ok {
		return nil, false
	}
	return cloneValue(value), true
}

// Keys returns all document keys sharing the given prefix, in no particular
// order.
func (s *Store) Keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.documents {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Flush blocks until every notification queued before the call has been
// delivered. Tests and short-lived CLI commands use it to observe a settled
// mirror; long-lived subscribers never need it.
func (s *Store) Flush() {
	barrier := make(chan struct{})
	s.enqueue(event{barrier: barrier})
	<-barrier
}

func (s *Store) persist(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", key, err)
	}
	_, err = s.db.Exec(`INSERT INTO documents (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, string(raw))
	if err != nil {
		return fmt.Errorf("failed to persist document %s: %w", key, err)
	}
	return nil
}

func (s *Store) loadDocuments(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM documents`)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return fmt.Errorf("failed to scan document row: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return fmt.Errorf("failed to decode document %s: %w", key, err)
		}
		s.documents[key] = value
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate documents: %w", err)
	}
	return nil
}

func (s *Store) enqueue(events ...event) {
	if len(events) == 0 {
		return
	}
	s.qmu.Lock()
	if s.draining {
		s.qmu.Unlock()
		// The dispatcher is shutting down; release any waiters.
		for _, ev := range events {
			if ev.barrier != nil {
				close(ev.barrier)
			}
		}
		return
	}
	s.queue = append(s.queue, events...)
	s.qcond.Signal()
	s.qmu.Unlock()
}

// dispatch delivers queued notifications one at a time, in enqueue order.
// Callbacks run without any store lock held, so they may call back into the
// store freely.
func (s *Store) dispatch() {
	defer close(s.dispatcherDone)
	for {
		s.qmu.Lock()
		for len(s.queue) == 0 && !s.draining {
			s.qcond.Wait()
		}
		if len(s.queue) == 0 && s.draining {
			s.qmu.Unlock()
			return
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		s.deliver(ev)
	}
}

func (s *Store) deliver(ev event) {
	if ev.barrier != nil {
		close(ev.barrier)
		return
	}

	s.mu.Lock()
	targets := make([]*subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		if ev.subID != 0 && sub.id != ev.subID {
			continue
		}
		if sub.prefix != "" {
			if strings.HasPrefix(ev.key, sub.prefix) {
				targets = append(targets, sub)
			}
		} else if sub.key == ev.key {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		sub.fn(ev.key, ev.value)
	}
}
