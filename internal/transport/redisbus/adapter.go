// Package redisbus implements transport.Adapter over Redis: Streams with
// consumer groups give direct/roundrobin single-delivery semantics, and
// Pub/Sub gives fanout independent-copy semantics (and backs the agent's
// own always-direct keepalives/results pipes, which have at most one
// subscriber each).
package redisbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sentryd/sentryd/internal/events"
	"github.com/sentryd/sentryd/internal/transport"
)

const payloadField = "payload"

// Adapter is a transport.Adapter backed by a single *redis.Client.
type Adapter struct {
	client *redis.Client
	log    *events.Logger

	mu   sync.Mutex
	subs map[string]*subscription // keyed by pipe name
}

type subscription struct {
	cancel context.CancelFunc
	pubsub *redis.PubSub // nil for stream-backed subscriptions
}

var _ transport.Adapter = (*Adapter)(nil)

// New dials addr and returns an Adapter once the connection is confirmed
// live. log may be nil.
func New(ctx context.Context, addr string, log *events.Logger) (*Adapter, error) {
	if log == nil {
		log = events.Noop()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &Adapter{client: client, log: log, subs: make(map[string]*subscription)}, nil
}

// Publish writes payload to the Redis Stream or Pub/Sub channel that pipe
// and pattern resolve to.
func (a *Adapter) Publish(ctx context.Context, pipe string, pattern transport.DeliveryPattern, payload []byte) error {
	useStream, key := resolve(pipe, pattern)
	if useStream {
		return a.client.XAdd(ctx, &redis.XAddArgs{
			Stream: key,
			Values: map[string]interface{}{payloadField: string(payload)},
		}).Err()
	}
	return a.client.Publish(ctx, key, payload).Err()
}

// Subscribe binds handler to the stream/channel pipe and pattern resolve
// to. For stream-backed pipes, funnel names the consumer group — every
// subscriber sharing a funnel competes for the same messages
// (roundrobin); an empty funnel uses the fixed group "sentryd", shared by
// every subscriber that also passes an empty funnel. Subscribe starts a
// background goroutine and
// returns immediately.
func (a *Adapter) Subscribe(ctx context.Context, pipe string, pattern transport.DeliveryPattern, funnel string, handler func([]byte)) error {
	useStream, key := resolve(pipe, pattern)
	subCtx, cancel := context.WithCancel(ctx)

	if useStream {
		group := groupName(funnel)
		if err := a.client.XGroupCreateMkStream(ctx, key, group, "$").Err(); err != nil && !isBusyGroupErr(err) {
			cancel()
			return fmt.Errorf("create consumer group %s on %s: %w", group, key, err)
		}
		consumer := uuid.NewString()
		go a.readStream(subCtx, key, group, consumer, handler)
		a.storeSub(pipe, &subscription{cancel: cancel})
		return nil
	}

	pubsub := a.client.Subscribe(ctx, key)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return fmt.Errorf("subscribe to %s: %w", key, err)
	}
	go a.readPubSub(subCtx, pubsub, handler)
	a.storeSub(pipe, &subscription{cancel: cancel, pubsub: pubsub})
	return nil
}

func (a *Adapter) storeSub(pipe string, sub *subscription) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs[pipe] = sub
}

func (a *Adapter) readStream(ctx context.Context, key, group, consumer string, handler func([]byte)) {
	for {
		streams, err := a.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{key, ">"},
			Count:    32,
			Block:    0,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.log.Warn("redisbus.stream_read_error", "stream", key, "error", err)
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if raw, ok := msg.Values[payloadField].(string); ok {
					handler([]byte(raw))
				}
				a.client.XAck(ctx, key, group, msg.ID)
			}
		}
	}
}

func (a *Adapter) readPubSub(ctx context.Context, pubsub *redis.PubSub, handler func([]byte)) {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			handler([]byte(msg.Payload))
		}
	}
}

// Unsubscribe stops delivering to pipe's handler and releases its
// resources. It is a no-op if pipe has no active subscription.
func (a *Adapter) Unsubscribe(pipe string) error {
	a.mu.Lock()
	sub, ok := a.subs[pipe]
	delete(a.subs, pipe)
	a.mu.Unlock()
	if !ok {
		return nil
	}
	sub.cancel()
	if sub.pubsub != nil {
		return sub.pubsub.Close()
	}
	return nil
}

// Connected reports whether the underlying Redis connection is currently
// reachable.
func (a *Adapter) Connected() bool {
	return a.client.Ping(context.Background()).Err() == nil
}

// Close tears down every subscription and the underlying client.
func (a *Adapter) Close() error {
	a.mu.Lock()
	subs := a.subs
	a.subs = make(map[string]*subscription)
	a.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		if sub.pubsub != nil {
			sub.pubsub.Close()
		}
	}
	return a.client.Close()
}

func isBusyGroupErr(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}
