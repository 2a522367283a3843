// Package realtime relays change events between API instances through a Redis stream.
package realtime

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/core/event"
)

const (
	readBlock   = 5 * time.Second
	retryDelay  = time.Second
	maxStreamed = 10000 // approximate stream length cap
)

// Streamer is the part of the redis client the relay uses.
type Streamer interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRead(ctx context.Context, a *redis.XReadArgs) *redis.XStreamSliceCmd
}

// NewClient connects to redis and checks the connection.
func NewClient(ctx context.Context, conf core.RedisConfig, useTLS bool) (*redis.Client, error) {
	opts := &redis.Options{Addr: conf.Addr, Password: conf.Password, DB: conf.DB}
	if useTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return rdb, nil
}

// Relay publishes the local changes to the stream and replays the changes of
// the other instances on the local bus. Changes are tagged with the instance origin.
type Relay struct {
	client Streamer
	stream string
	origin string
	bus    *event.Bus
	logger core.Logger

	mu     sync.Mutex
	sub    *event.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRelay(client Streamer, stream, origin string, bus *event.Bus, logger core.Logger) *Relay {
	return &Relay{client: client, stream: stream, origin: origin, bus: bus, logger: logger}
}

// Start subscribes to the bus and starts reading the stream. It does nothing if already started.
func (r *Relay) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.sub = r.bus.Subscribe(r.isLocal, func(c event.Change) { r.publish(ctx, c) })
	go r.read(ctx)
}

// Stop unsubscribes and waits for the reader to return.
func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return
	}
	r.sub.Unsubscribe()
	r.cancel()
	<-r.done
	r.done = nil
}

func (r *Relay) isLocal(c event.Change) bool {
	return c.Origin == "" || c.Origin == r.origin
}

func (r *Relay) publish(ctx context.Context, c event.Change) {
	c.Origin = r.origin
	data, err := json.Marshal(c)
	if err != nil {
		r.logger.Error("encoding change", errors.WithStack(err))
		return
	}
	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: maxStreamed,
		Approx: true,
		Values: map[string]interface{}{"origin": r.origin, "change": string(data)},
	}).Err()
	if err != nil && ctx.Err() == nil {
		r.logger.Error("publishing change", errors.Wrap(err, "XADD "+r.stream))
	}
}

func (r *Relay) read(ctx context.Context) {
	defer close(r.done)
	lastID := "$" // only changes published from now on
	for ctx.Err() == nil {
		streams, err := r.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{r.stream, lastID},
			Block:   readBlock,
			Count:   100,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			r.logger.Warn("reading changes", errors.Wrap(err, "XREAD "+r.stream))
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}
		for _, s := range streams {
			for _, msg := range s.Messages {
				lastID = msg.ID
				r.replay(msg)
			}
		}
	}
}

func (r *Relay) replay(msg redis.XMessage) {
	if origin, _ := msg.Values["origin"].(string); origin == r.origin {
		return
	}
	raw, _ := msg.Values["change"].(string)
	var c event.Change
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		r.logger.Warn("decoding change "+msg.ID, errors.WithStack(err))
		return
	}
	if c.Origin == "" || c.Origin == r.origin {
		return
	}
	r.bus.Publish(c)
}
