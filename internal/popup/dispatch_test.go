package popup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLoopRunsInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop := NewLoop(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	var got []int
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		i := i
		loop.Dispatch(func() { got = append(got, i) })
	}
	loop.Dispatch(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not drain")
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)

	loop.Stop()
	require.NoError(t, <-errCh)
}

func TestLoopSerializesConcurrentDispatch(t *testing.T) {
	loop := NewLoop(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop.Dispatch(func() { counter++ })
		}()
	}
	wg.Wait()

	done := make(chan int)
	loop.Dispatch(func() { done <- counter })
	select {
	case n := <-done:
		assert.Equal(t, 50, n)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not drain")
	}
}

func TestLoopContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop := NewLoop(0)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	cancel()

	assert.ErrorIs(t, <-errCh, context.Canceled)
	select {
	case <-loop.Done():
	default:
		t.Fatal("loop should be stopped")
	}

	// Dispatch after stop must not block.
	loop.Dispatch(func() { t.Error("must not run") })
}

func TestStateFor(t *testing.T) {
	assert.Equal(t, UIState{ConnectVisible: true}, StateFor(false))
	assert.Equal(t, UIState{InputVisible: true, SendVisible: true}, StateFor(true))
	assert.True(t, StateFor(true).Connected())
	assert.False(t, StateFor(false).Connected())
}

func TestLogEntriesIsCopy(t *testing.T) {
	var l Log
	l.Append(Entry{Kind: EntryStatus, Prefix: "a ", Value: "b"})

	entries := l.Entries()
	entries[0].Value = "changed"

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, "b", last.Value)
	assert.Equal(t, "a b", last.String())
}
