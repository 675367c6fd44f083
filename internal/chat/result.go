// ABOUTME: Result type and single-producer broadcast stream for sync operations
// ABOUTME: Guards the producing side effect so it runs exactly once per stream

package chat

import (
	"context"
	"sync"
	"sync/atomic"
)

// ResultKind discriminates the states a sync operation moves through.
type ResultKind int

const (
	// KindLoading is emitted once when the operation starts.
	KindLoading ResultKind = iota
	// KindSuccess reports a completed page. More is true while the loop
	// continues; a final Success with More=false means "no more data".
	KindSuccess
	// KindError is terminal and carries the failure message.
	KindError
)

// Result is one observable step of a sync operation.
type Result struct {
	Kind    ResultKind
	More    bool
	Message string
}

// Stream is a single-producer, multi-consumer result stream. The producer
// is activated by the first subscriber and runs exactly once regardless
// of how many consumers attach; late subscribers receive the terminal
// result immediately.
type Stream struct {
	started atomic.Bool
	run     func(ctx context.Context, emit func(Result))
	ctx     context.Context

	mu       sync.Mutex
	subs     map[int]chan Result
	nextSub  int
	done     bool
	terminal *Result
}

// newStream wires a producer function to a stream without starting it.
func newStream(ctx context.Context, run func(ctx context.Context, emit func(Result))) *Stream {
	return &Stream{
		run:  run,
		ctx:  ctx,
		subs: make(map[int]chan Result),
	}
}

// Subscribe attaches an observer and starts the producer if it has not
// started yet. The returned channel is closed when the operation reaches
// a terminal state. If the stream already finished, the channel yields
// the terminal result and closes.
func (s *Stream) Subscribe() <-chan Result {
	// Buffer enough for a full Loading + per-page progression so the
	// producer never blocks on an abandoned observer.
	ch := make(chan Result, 64)

	s.mu.Lock()
	if s.done {
		if s.terminal != nil {
			ch <- *s.terminal
		}
		close(ch)
		s.mu.Unlock()
		return ch
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	if s.started.CompareAndSwap(false, true) {
		go func() {
			s.run(s.ctx, s.emit)
			s.finish()
		}()
	}

	return ch
}

// emit fans one result out to all subscribers, dropping it for observers
// whose buffers are full.
func (s *Stream) emit(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return
	}
	if r.Kind != KindLoading {
		s.terminal = &r
	}
	for _, ch := range s.subs {
		select {
		case ch <- r:
		default:
		}
	}
}

// finish marks the stream done and closes all subscriber channels.
func (s *Stream) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// Collect drains a subscription into a slice, blocking until the stream
// terminates. Intended for CLI callers and tests.
func Collect(ch <-chan Result) []Result {
	var results []Result
	for r := range ch {
		results = append(results, r)
	}
	return results
}
