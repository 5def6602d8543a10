package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/macrology/internal/engine"
)

// DefaultJournalBuffer is the number of pending events a Journal holds before
// it starts discarding.
const DefaultJournalBuffer = 1024

type journalKind int

const (
	eventRunStarted journalKind = iota
	eventRunFinished
	eventDelivered
	eventDropped
)

type journalEvent struct {
	kind journalKind
	info engine.RunInfo
	d    engine.Dispatch
	at   time.Time
}

// Journal records engine notifications in a Store.
//
// It implements engine.Observer. Notifications are handed to a single writer
// goroutine through a buffered channel and never block the caller: when the
// buffer is full the event is discarded and counted in Lost. This keeps the
// tick path off the disk.
type Journal struct {
	store  *Store
	events chan journalEvent
	lost   atomic.Int64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

var _ engine.Observer = (*Journal)(nil)

// NewJournal starts a journal writing to s. buffer <= 0 uses DefaultJournalBuffer.
// Close must be called to flush pending events.
func NewJournal(s *Store, buffer int) *Journal {
	if buffer <= 0 {
		buffer = DefaultJournalBuffer
	}

	j := &Journal{
		store:  s,
		events: make(chan journalEvent, buffer),
		done:   make(chan struct{}),
	}
	go j.writeLoop()
	return j
}

// RunStarted implements engine.Observer.
func (j *Journal) RunStarted(info engine.RunInfo) {
	j.submit(journalEvent{kind: eventRunStarted, info: info})
}

// RunFinished implements engine.Observer.
func (j *Journal) RunFinished(info engine.RunInfo) {
	j.submit(journalEvent{kind: eventRunFinished, info: info, at: time.Now()})
}

// Delivered implements engine.Observer.
func (j *Journal) Delivered(d engine.Dispatch) {
	j.submit(journalEvent{kind: eventDelivered, d: d})
}

// Dropped implements engine.Observer.
func (j *Journal) Dropped(d engine.Dispatch) {
	j.submit(journalEvent{kind: eventDropped, d: d})
}

// Lost returns how many events were discarded because the buffer was full
// or the journal was closed.
func (j *Journal) Lost() int64 {
	return j.lost.Load()
}

// Close stops accepting events, writes everything already buffered and
// waits for the writer to finish. Safe to call more than once.
func (j *Journal) Close() {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.events)
	}
	j.mu.Unlock()

	<-j.done
}

func (j *Journal) submit(ev journalEvent) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.lost.Add(1)
		return
	}

	select {
	case j.events <- ev:
	default:
		j.lost.Add(1)
	}
}

func (j *Journal) writeLoop() {
	defer close(j.done)

	ctx := context.Background()
	for ev := range j.events {
		if err := j.write(ctx, ev); err != nil {
			slog.Warn("journal write failed", "error", err)
		}
	}
}

func (j *Journal) write(ctx context.Context, ev journalEvent) error {
	switch ev.kind {
	case eventRunStarted:
		return j.store.WriteRunStarted(ctx, ev.info)
	case eventRunFinished:
		return j.store.WriteRunFinished(ctx, ev.info, ev.at)
	case eventDelivered:
		return j.store.WriteDispatch(ctx, ev.d, OutcomeDelivered)
	case eventDropped:
		return j.store.WriteDispatch(ctx, ev.d, OutcomeDropped)
	}
	return nil
}
