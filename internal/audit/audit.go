// Package audit records user-visible inventory actions and answers queries
// over them. Entries can also be appended to a compressed on-disk archive.
package audit

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Action classifies an audit entry.
type Action string

const (
	ActionPlacement  Action = "placement"
	ActionRetrieval  Action = "retrieval"
	ActionSearch     Action = "search"
	ActionDisposal   Action = "disposal"
	ActionImport     Action = "import"
	ActionUndocking  Action = "undocking"
	ActionSimulation Action = "simulation"
	ActionPlace      Action = "place"
)

// Entry is one recorded action.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"userId"`
	Action    Action         `json:"actionType"`
	ItemID    string         `json:"itemId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Filter selects entries. Zero fields match everything; the time range is
// inclusive on both ends.
type Filter struct {
	From   time.Time
	To     time.Time
	ItemID string
	UserID string
	Action Action
}

func (f Filter) match(e Entry) bool {
	switch {
	case !f.From.IsZero() && e.Timestamp.Before(f.From):
		return false
	case !f.To.IsZero() && e.Timestamp.After(f.To):
		return false
	case f.ItemID != "" && e.ItemID != f.ItemID:
		return false
	case f.UserID != "" && e.UserID != f.UserID:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	}
	return true
}

// Sink persists entries outside the process.
type Sink interface {
	Write(v any) error
}

// Log is an append-only, concurrency-safe audit trail.
type Log struct {
	mu      sync.RWMutex
	entries []Entry

	clock  func() time.Time
	sink   Sink
	logger *zap.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithSink mirrors every recorded entry to s.
func WithSink(s Sink) Option {
	return func(l *Log) { l.sink = s }
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(l *Log) { l.clock = clock }
}

// WithLogger sets the logger used to report sink failures.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// New creates an empty audit log.
func New(opts ...Option) *Log {
	l := &Log{
		clock:  func() time.Time { return time.Now().UTC() },
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends an entry, filling in its id and timestamp, and returns it.
// Archive failures are logged and do not fail the caller.
func (l *Log) Record(userID string, action Action, itemID string, details map[string]any) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: l.clock(),
		UserID:    userID,
		Action:    action,
		ItemID:    itemID,
		Details:   details,
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	if l.sink != nil {
		if err := l.sink.Write(e); err != nil {
			l.logger.Warn("audit archive write failed", zap.String("entry_id", e.ID), zap.Error(err))
		}
	}
	return e
}

// Query returns matching entries, oldest first.
func (l *Log) Query(f Filter) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []Entry{}
	for _, e := range l.entries {
		if f.match(e) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b Entry) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
