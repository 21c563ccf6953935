package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type batchLog struct {
	mu      sync.Mutex
	batches []Batch
}

func (l *batchLog) add(b Batch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batches = append(l.batches, b)
}

func (l *batchLog) snapshot() []Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Batch(nil), l.batches...)
}

func TestNewDebouncer_Validates(t *testing.T) {
	_, err := NewDebouncer(0, time.Second)
	require.Error(t, err)
	_, err = NewDebouncer(time.Second, time.Millisecond)
	require.Error(t, err)
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d, err := NewDebouncer(50*time.Millisecond, time.Second)
	require.NoError(t, err)
	log := &batchLog{}
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go d.Run(ctx, func(_ context.Context, b Batch) { log.add(b) })

	d.Trigger("a.md")
	d.Trigger("b.md")
	d.Trigger("c.md")

	require.Eventually(t, func() bool { return len(log.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	got := log.snapshot()
	require.Len(t, got, 1)
	require.Equal(t, 3, got[0].Count)
	require.Equal(t, "a.md", got[0].FirstReason)
	require.Equal(t, "c.md", got[0].LastReason)
	require.Equal(t, "quiet", got[0].Cause)
}

func TestDebouncer_MaxDelayBoundsSteadyStream(t *testing.T) {
	d, err := NewDebouncer(80*time.Millisecond, 200*time.Millisecond)
	require.NoError(t, err)
	log := &batchLog{}
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go d.Run(ctx, func(_ context.Context, b Batch) { log.add(b) })

	stop := time.After(600 * time.Millisecond)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
loop:
	for {
		select {
		case <-stop:
			break loop
		case <-tick.C:
			d.Trigger("edit")
		}
	}

	got := log.snapshot()
	require.NotEmpty(t, got)
	require.Equal(t, "max_delay", got[0].Cause)
}

func TestDebouncer_OneFollowUpAfterRunningBuild(t *testing.T) {
	d, err := NewDebouncer(20*time.Millisecond, time.Second)
	require.NoError(t, err)
	log := &batchLog{}
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go d.Run(ctx, func(_ context.Context, b Batch) {
		started <- struct{}{}
		log.add(b)
		if len(log.snapshot()) == 1 {
			<-release
		}
	})

	d.Trigger("first")
	<-started
	for range 5 {
		d.Trigger("during")
	}
	close(release)

	require.Eventually(t, func() bool { return len(log.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	got := log.snapshot()
	require.Len(t, got, 2)
	require.Equal(t, 5, got[1].Count)
}
