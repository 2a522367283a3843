package realtime_test

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mpiangona/core/event"
	"github.com/trezcool/mpiangona/services/realtime"
	"github.com/trezcool/mpiangona/testutil"
)

// stream is an in-process stand-in for a redis stream shared by several relays.
type stream struct {
	mu       sync.Mutex
	messages []redis.XMessage
	added    chan struct{}
}

func newStream() *stream { return &stream{added: make(chan struct{}, 64)} }

func (s *stream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	s.mu.Lock()
	id := strconv.Itoa(len(s.messages)+1) + "-0"
	s.messages = append(s.messages, redis.XMessage{ID: id, Values: a.Values.(map[string]interface{})})
	s.mu.Unlock()
	s.added <- struct{}{}
	return redis.NewStringResult(id, nil)
}

// reader returns a Streamer reading `s` from the start of the stream.
func (s *stream) reader() realtime.Streamer { return &streamReader{stream: s} }

type streamReader struct {
	*stream
	next int
}

func (r *streamReader) XRead(ctx context.Context, _ *redis.XReadArgs) *redis.XStreamSliceCmd {
	for {
		r.mu.Lock()
		if r.next < len(r.messages) {
			msgs := append([]redis.XMessage(nil), r.messages[r.next:]...)
			r.next = len(r.messages)
			r.mu.Unlock()
			return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: "changes", Messages: msgs}}, nil)
		}
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return redis.NewXStreamSliceCmdResult(nil, ctx.Err())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func collect(bus *event.Bus) func() []event.Change {
	var mu sync.Mutex
	var got []event.Change
	bus.Subscribe(nil, func(c event.Change) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})
	return func() []event.Change {
		mu.Lock()
		defer mu.Unlock()
		return append([]event.Change(nil), got...)
	}
}

func TestRelay(t *testing.T) {
	s := newStream()
	logger := new(testutil.Logger)

	busA, busB := event.NewBus(), event.NewBus()
	relayA := realtime.NewRelay(s.reader(), "changes", "api-a", busA, logger)
	relayB := realtime.NewRelay(s.reader(), "changes", "api-b", busB, logger)
	relayA.Start(context.Background())
	relayB.Start(context.Background())
	defer relayA.Stop()
	defer relayB.Stop()

	gotA, gotB := collect(busA), collect(busB)

	busA.Publish(event.Change{Table: event.TableMembers, Action: event.Insert, ID: "m1", Label: "Rakoto Jean"})

	select {
	case <-s.added:
	case <-time.After(time.Second):
		t.Fatal("change was not published to the stream")
	}

	var msg map[string]interface{}
	s.mu.Lock()
	msg = s.messages[0].Values
	s.mu.Unlock()
	assert.Equal(t, "api-a", msg["origin"])
	var published event.Change
	require.NoError(t, json.Unmarshal([]byte(msg["change"].(string)), &published))
	assert.Equal(t, "api-a", published.Origin)

	require.Eventually(t, func() bool { return len(gotB()) == 1 }, time.Second, 5*time.Millisecond)
	replayed := gotB()[0]
	assert.Equal(t, "m1", replayed.ID)
	assert.Equal(t, "api-a", replayed.Origin)

	// A skips its own message and B does not publish the replayed change back
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, gotA(), 1)
	s.mu.Lock()
	assert.Len(t, s.messages, 1)
	s.mu.Unlock()
	assert.Empty(t, logger.Entries)
}

func TestRelay_StartStop(t *testing.T) {
	s := newStream()
	bus := event.NewBus()
	relay := realtime.NewRelay(s.reader(), "changes", "api-a", bus, new(testutil.Logger))

	relay.Start(context.Background())
	relay.Start(context.Background())
	assert.Equal(t, 1, bus.Len())

	relay.Stop()
	relay.Stop()
	assert.Equal(t, 0, bus.Len())

	bus.Publish(event.Change{Table: event.TableGroups, Action: event.Delete, ID: "g1"})
	s.mu.Lock()
	assert.Empty(t, s.messages)
	s.mu.Unlock()
}
