package store

import (
	"errors"
	"io"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"threaddb/pkg/logger"
)

var (
	db     *pebble.DB
	dbPath string
)

// seq breaks ordering-key ties when multiple interactions share the same
// nanosecond timestamp.
var seq uint64

var (
	// ErrNotOpen is returned when the store is used before Open.
	ErrNotOpen = errors.New("store not opened; call store.Open first")
	// ErrThreadNotFound is returned when a thread record does not exist.
	ErrThreadNotFound = errors.New("thread not found")
)

// Open opens (or creates) a Pebble database at the given path and keeps a
// package-level handle for the rest of the process.
func Open(path string) error {
	var err error
	logger.Log.Info("opening_pebble_db", zap.String("path", path))
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Log.Error("pebble_open_failed", zap.String("path", path), zap.Error(err))
		return err
	}
	dbPath = path
	logger.Log.Info("pebble_opened", zap.String("path", path))
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Log.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// Reader is the read surface shared by write transactions and snapshots.
// Queries written against Reader run unchanged inside Update and View.
type Reader interface {
	Get(key []byte) (value []byte, closer io.Closer, err error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

// Tx is a read-write transaction backed by an indexed batch: reads observe
// the transaction's own writes, and nothing reaches the DB until Update
// commits the whole batch.
type Tx struct {
	b        *pebble.Batch
	onCommit []func()
}

// OnCommit defers fn until the transaction commits. Discarded transactions
// never run their hooks, so observers only ever see applied state.
func (tx *Tx) OnCommit(fn func()) {
	tx.onCommit = append(tx.onCommit, fn)
}

func (tx *Tx) Get(key []byte) ([]byte, io.Closer, error) {
	return tx.b.Get(key)
}

func (tx *Tx) NewIter(o *pebble.IterOptions) (*pebble.Iterator, error) {
	return tx.b.NewIter(o)
}

func (tx *Tx) set(key, value []byte) error {
	return tx.b.Set(key, value, nil)
}

func (tx *Tx) delete(key []byte) error {
	return tx.b.Delete(key, nil)
}

func (tx *Tx) deleteRange(start, end []byte) error {
	return tx.b.DeleteRange(start, end, nil)
}

// Snap is a read-only view of the DB at a single instant.
type Snap struct {
	s *pebble.Snapshot
}

func (s *Snap) Get(key []byte) ([]byte, io.Closer, error) {
	return s.s.Get(key)
}

func (s *Snap) NewIter(o *pebble.IterOptions) (*pebble.Iterator, error) {
	return s.s.NewIter(o)
}

// Update runs fn inside a read-write transaction. A nil return commits every
// write as one durable batch; any error discards the batch wholesale, so no
// partial state is ever observable.
func Update(fn func(tx *Tx) error) error {
	if db == nil {
		return ErrNotOpen
	}
	b := db.NewIndexedBatch()
	tx := &Tx{b: b}
	if err := fn(tx); err != nil {
		_ = b.Close()
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Log.Error("txn_commit_failed", zap.Error(err))
		_ = b.Close()
		return err
	}
	for _, fn := range tx.onCommit {
		fn()
	}
	return nil
}

// View runs fn against a consistent snapshot. Reads here may trail
// concurrent Updates; callers that need read-your-writes run inside Update.
func View(fn func(s *Snap) error) error {
	if db == nil {
		return ErrNotOpen
	}
	s := db.NewSnapshot()
	defer func() { _ = s.Close() }()
	return fn(&Snap{s: s})
}

func nextSeq() uint64 {
	return atomic.AddUint64(&seq, 1)
}

// Key layout:
//   thread:<id>:meta            thread record JSON
//   thread:<id>:msg:<ts>-<seq>  interaction JSON, zero-padded sortable suffix
//   thread:<id>:dm              disappearing-messages configuration JSON
func threadMetaKey(threadID string) []byte {
	return []byte("thread:" + threadID + ":meta")
}

func interactionPrefix(threadID string) []byte {
	return []byte("thread:" + threadID + ":msg:")
}

func interactionKey(threadID, sortKey string) []byte {
	return []byte("thread:" + threadID + ":msg:" + sortKey)
}

func dmConfigKey(threadID string) []byte {
	return []byte("thread:" + threadID + ":dm")
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, for bounded iterators and range deletes.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
