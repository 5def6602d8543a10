package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/roach88/macrology/internal/macro"
)

// recordingSink collects every command it receives.
type recordingSink struct {
	mu       sync.Mutex
	commands []string
}

func (s *recordingSink) Send(command string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, command)
}

func (s *recordingSink) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// recordingObserver collects lifecycle notifications.
type recordingObserver struct {
	mu        sync.Mutex
	started   []RunInfo
	finished  []RunInfo
	delivered []Dispatch
	dropped   []Dispatch
}

func (o *recordingObserver) RunStarted(info RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, info)
}

func (o *recordingObserver) RunFinished(info RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, info)
}

func (o *recordingObserver) Delivered(d Dispatch) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delivered = append(o.delivered, d)
}

func (o *recordingObserver) Dropped(d Dispatch) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped = append(o.dropped, d)
}

func (o *recordingObserver) Finished() []RunInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]RunInfo(nil), o.finished...)
}

// newTestEngine creates a logged-in engine with a recording sink. The engine
// is closed when the test ends.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	e := New(sink, opts...)
	e.OnLogin()
	t.Cleanup(e.Close)
	return e, sink
}

// startDriver ticks the engine every millisecond until the test ends.
func startDriver(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Drive(ctx, time.Millisecond)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func testMacro(id, contents string) macro.Macro {
	return macro.Macro{ID: id, Name: id, Contents: contents}
}
