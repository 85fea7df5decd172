// Package audit keeps an append-only JSONL journal of applied record
// changes: handshake transitions, archival flips and deletions. Emission is
// asynchronous and lossy under pressure; mutations are never blocked on the
// journal.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"

	"threaddb/pkg/logger"
	"threaddb/pkg/models"
)

// Event is one journal line.
type Event struct {
	TS     int64  `json:"ts"`
	Kind   string `json:"kind"`
	Thread string `json:"thread"`
	Event  string `json:"event,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Note   string `json:"note,omitempty"`
}

var (
	mu      sync.RWMutex
	ch      chan Event
	f       *os.File
	done    chan struct{}
	dropped uint64
)

// Init opens (or creates) the journal under dir and starts the writer.
func Init(dir string) error {
	if dir == "" {
		return fmt.Errorf("empty audit dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}
	path := filepath.Join(dir, "journal.jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open audit journal: %w", err)
	}
	mu.Lock()
	f = file
	ch = make(chan Event, 1024)
	done = make(chan struct{})
	mu.Unlock()
	go run(ch, file, done)
	logger.Log.Info("audit_journal_started", zap.String("path", path))
	return nil
}

func run(in <-chan Event, out *os.File, stopped chan<- struct{}) {
	for ev := range in {
		line, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		buf := bytebufferpool.Get()
		buf.B = append(buf.B, line...)
		buf.B = append(buf.B, '\n')
		if _, err := out.Write(buf.B); err != nil {
			logger.Log.Error("audit_write_failed", zap.Error(err))
		}
		bytebufferpool.Put(buf)
	}
	close(stopped)
}

// Emit queues an event. With no journal configured, or with the queue full,
// the event is dropped.
func Emit(ev Event) {
	mu.RLock()
	defer mu.RUnlock()
	if ch == nil {
		return
	}
	if ev.TS == 0 {
		ev.TS = time.Now().UTC().UnixNano()
	}
	select {
	case ch <- ev:
	default:
		atomic.AddUint64(&dropped, 1)
	}
}

// Transition journals an applied handshake transition.
func Transition(threadID string, tr models.Transition) {
	Emit(Event{
		Kind:   "transition",
		Thread: threadID,
		Event:  string(tr.Event),
		From:   string(tr.From),
		To:     string(tr.To),
	})
}

// Archival journals an archive or unarchive.
func Archival(threadID string, archived bool) {
	note := "archived"
	if !archived {
		note = "unarchived"
	}
	Emit(Event{Kind: "archival", Thread: threadID, Note: note})
}

// Deletion journals a cascade deletion.
func Deletion(threadID string) {
	Emit(Event{Kind: "deletion", Thread: threadID})
}

// Dropped reports how many events the full queue discarded.
func Dropped() uint64 {
	return atomic.LoadUint64(&dropped)
}

// Close drains queued events and closes the journal.
func Close() error {
	mu.Lock()
	c, file, stopped := ch, f, done
	ch, f, done = nil, nil, nil
	mu.Unlock()
	if c == nil {
		return nil
	}
	close(c)
	<-stopped
	if d := atomic.LoadUint64(&dropped); d > 0 {
		logger.Log.Warn("audit_events_dropped", zap.Uint64("count", d))
	}
	return file.Close()
}
