package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
	err    error
}

func (s *memorySink) Record(_ context.Context, ev Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *memorySink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestAsyncRecorderDeliversInOrder(t *testing.T) {
	sink := &memorySink{}
	rec := NewAsyncRecorder(sink, 16, nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, rec.Record(ctx, Event{Type: EventCrossBranchDenied, Detail: string(rune('a' + i))}))
	}
	rec.Close()

	events := sink.all()
	require.Len(t, events, 5)
	for i, ev := range events {
		require.Equal(t, string(rune('a'+i)), ev.Detail)
		require.False(t, ev.At.IsZero(), "At must be stamped on enqueue")
	}
	require.Zero(t, rec.Dropped())
}

func TestAsyncRecorderNeverBlocksCaller(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	rec := NewAsyncRecorder(sink, 1, nil)

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = rec.Record(ctx, Event{Type: EventRateLimitBlocked})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a stalled sink")
	}
	require.Positive(t, rec.Dropped())

	close(sink.block)
	rec.Close()
}

func TestAsyncRecorderRecordAfterClose(t *testing.T) {
	sink := &memorySink{}
	rec := NewAsyncRecorder(sink, 4, nil)
	rec.Close()

	require.NoError(t, rec.Record(context.Background(), Event{Type: EventCrossBranchDenied}))
	require.Equal(t, int64(1), rec.Dropped())
	require.Empty(t, sink.all())
	rec.Close()
}

func TestAsyncRecorderSinkErrorsAreIsolated(t *testing.T) {
	sink := &memorySink{err: errors.New("sink down")}
	rec := NewAsyncRecorder(sink, 4, nil)

	require.NoError(t, rec.Record(context.Background(), Event{Type: EventRoleEscalationDenied}))
	rec.Close()
}
