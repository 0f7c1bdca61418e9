package router

import (
	"bytes"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, sub *Subscriber, timeout time.Duration) [][]byte {
	t.Helper()
	var got [][]byte
	deadline := time.After(timeout)
	for {
		select {
		case chunk, ok := <-sub.Chunks():
			if !ok {
				return got
			}
			got = append(got, chunk)
		case <-deadline:
			t.Fatal("timed out draining subscriber")
		}
	}
}

func TestRouter_DeliversInUpstreamOrder(t *testing.T) {
	r := New(nil, 64, 4)
	sub, err := r.Subscribe("viewer-1")
	require.NoError(t, err)

	var upstream bytes.Buffer
	for i := 0; i < 10; i++ {
		upstream.WriteString(fmt.Sprintf("ck%d!", i))
	}

	done := make(chan error, 1)
	go func() { done <- r.Serve(&upstream) }()
	require.NoError(t, <-done)

	got := drain(t, sub, time.Second)
	require.Len(t, got, 10)
	for i, chunk := range got {
		assert.Equal(t, fmt.Sprintf("ck%d!", i), string(chunk))
	}
	assert.Equal(t, int64(0), sub.Dropped())
	assert.Equal(t, int64(40), r.BytesIn())
}

func TestRouter_SlowViewerDropsHealthyViewerUnaffected(t *testing.T) {
	const depth = 4
	r := New(nil, depth, 4)

	slow, err := r.Subscribe("slow")
	require.NoError(t, err)
	healthy, err := r.Subscribe("healthy")
	require.NoError(t, err)

	// The healthy viewer keeps up chunk for chunk; the slow one never
	// reads until the end.
	var got [][]byte
	for i := 0; i < 20; i++ {
		r.deliver([]byte(fmt.Sprintf("%04d", i)))
		got = append(got, <-healthy.Chunks())
	}
	r.Stop()
	assert.Len(t, got, 20, "healthy viewer sees every chunk")

	// Slow viewer kept only a queue's worth; the rest were dropped.
	queued := drain(t, slow, time.Second)
	assert.Len(t, queued, depth)
	assert.Equal(t, int64(20-depth), slow.Dropped())
	assert.Equal(t, int64(20-depth), r.DroppedTotal())

	// The chunks it did get are in upstream order.
	for i, chunk := range queued {
		assert.Equal(t, fmt.Sprintf("%04d", i), string(chunk))
	}
}

func TestRouter_StopClosesAfterDrain(t *testing.T) {
	r := New(nil, 64, 4)
	sub, err := r.Subscribe("viewer-1")
	require.NoError(t, err)

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- r.Serve(pr) }()

	_, err = pw.Write([]byte("data"))
	require.NoError(t, err)
	pw.Close()
	require.NoError(t, <-done)

	got := drain(t, sub, time.Second)
	require.Len(t, got, 1)
	assert.Equal(t, "data", string(got[0]))

	// Stop after EOF is a no-op; Subscribe now fails.
	r.Stop()
	_, err = r.Subscribe("viewer-2")
	assert.ErrorIs(t, err, ErrStopped)
}

func TestRouter_Unsubscribe(t *testing.T) {
	r := New(nil, 64, 4)
	sub, err := r.Subscribe("viewer-1")
	require.NoError(t, err)
	assert.Equal(t, 1, r.SubscriberCount())

	r.Unsubscribe("viewer-1")
	assert.Equal(t, 0, r.SubscriberCount())

	_, ok := <-sub.Chunks()
	assert.False(t, ok, "queue closes on unsubscribe")

	// Unknown id is a no-op.
	r.Unsubscribe("ghost")
}

func TestRouter_OnDropCallback(t *testing.T) {
	r := New(nil, 1, 4)
	var dropsFor []string
	r.OnDrop = func(id string) { dropsFor = append(dropsFor, id) }

	_, err := r.Subscribe("viewer-1")
	require.NoError(t, err)

	upstream := bytes.NewBufferString("aaaabbbbcccc")
	require.NoError(t, r.Serve(upstream))

	require.Len(t, dropsFor, 2)
	assert.Equal(t, "viewer-1", dropsFor[0])
}
