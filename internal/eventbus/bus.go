// Package eventbus carries the Agent Engine's outward notifications:
// state changes, plan changes, streamed assistant text, checkpoint
// creation, and review/debate/synthesis results (spec §5 "Ordering
// guarantees": "Callbacks ... fire in program order; the core does not
// coalesce or reorder").
//
// Directly adapted from the teacher's internal/event/bus.go (watermill
// gochannel + direct-subscriber dual tracking), renamed from the
// teacher's session/message/permission event surface to the Engine's
// callback surface, and extended with an optional Persistent mode that
// turns on watermill's own Persistent gochannel option (see
// Options.Persistent for what it does and does not cover).
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Type identifies one kind of outward Engine notification (spec §5/§6).
type Type string

const (
	StateChanged      Type = "engine.state_changed"
	PlanChanged        Type = "engine.plan_changed"
	Message            Type = "engine.message"
	StreamStart        Type = "engine.stream_start"
	StreamChunk        Type = "engine.stream_chunk"
	StreamEnd          Type = "engine.stream_end"
	CheckpointCreated  Type = "engine.checkpoint_created"
	ReviewComplete     Type = "engine.review_complete"
	DebateComplete     Type = "engine.debate_complete"
	SynthesisComplete  Type = "engine.synthesis_complete"
)

// Event is one notification flowing out to the UI boundary.
type Event struct {
	Type      Type `json:"type"`
	SessionID string `json:"sessionId"`
	Data      any    `json:"data"`
}

// Subscriber receives events. Per spec, callbacks are fire-and-forget and
// must fire in program order — Bus.Publish (the synchronous variant,
// used throughout the Engine) guarantees this by calling subscribers
// in-line rather than fanning them out to goroutines.
type Subscriber func(Event)

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus is the Engine's notification bus.
type Bus struct {
	mu sync.RWMutex

	pubsub *gochannel.GoChannel

	subscribers map[Type][]subscriberEntry
	global      []subscriberEntry

	nextID uint64
	closed bool
}

// Options configures a new Bus.
type Options struct {
	// Persistent turns on the Persistent option of the underlying
	// watermill GoChannel. It affects only messages sent with
	// PublishWatermill and read through PubSub(); events delivered by
	// Publish to Subscribe/SubscribeAll callbacks are not buffered, and a
	// callback registered later does not receive earlier events.
	Persistent bool
}

// New returns a Bus.
func New(opts Options) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 256,
				Persistent:          opts.Persistent,
			},
			watermill.NopLogger{},
		),
		subscribers: make(map[Type][]subscriberEntry),
	}
}

func (b *Bus) newID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

// Subscribe registers fn for events of the given type. Returns an
// unsubscribe function.
func (b *Bus) Subscribe(t Type, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	id := b.newID()
	b.subscribers[t] = append(b.subscribers[t], subscriberEntry{id: id, fn: fn})
	return func() { b.unsubscribe(t, id) }
}

// SubscribeAll registers fn for every event type.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	id := b.newID()
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})
	return func() { b.unsubscribeGlobal(id) }
}

func (b *Bus) unsubscribe(t Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[t]
	for i, e := range subs {
		if e.id == id {
			b.subscribers[t] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.global {
		if e.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			return
		}
	}
}

// Publish delivers event to every matching subscriber synchronously, in
// registration order, before returning — the Engine's single run-loop
// relies on this to preserve program order across callbacks (spec §5).
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]Subscriber, 0, len(b.subscribers[event.Type])+len(b.global))
	for _, e := range b.subscribers[event.Type] {
		subs = append(subs, e.fn)
	}
	for _, e := range b.global {
		subs = append(subs, e.fn)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub(event)
	}
}

// Reset unsubscribes everyone and clears bus state, without closing the
// underlying pubsub. Engine.Reset does not call it.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[Type][]subscriberEntry)
	b.global = nil
}

// Close shuts the bus down permanently.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[Type][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()
	return b.pubsub.Close()
}

// PubSub exposes the underlying watermill GoChannel, e.g. for a server
// transport that wants to bridge events onto an SSE stream via
// watermill's own Subscribe(ctx, topic) API rather than this package's
// in-process Subscriber callbacks.
func (b *Bus) PubSub() *gochannel.GoChannel {
	return b.pubsub
}

// PublishWatermill additionally publishes event onto the watermill topic
// matching its Type, JSON-encoded, for consumers using the PubSub()
// escape hatch. Kept separate from Publish so the hot, synchronous,
// in-process callback path never pays watermill's marshaling cost unless
// a consumer actually asked for it.
func (b *Bus) PublishWatermill(ctx context.Context, topic string, payload []byte) error {
	msg := watermillMessage(payload)
	return b.pubsub.Publish(topic, msg)
}
