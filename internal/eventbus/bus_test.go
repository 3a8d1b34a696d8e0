package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_DeliversToMatchingTypeSubscriber(t *testing.T) {
	b := New(Options{})
	defer b.Close()

	var received []Event
	b.Subscribe(StateChanged, func(e Event) { received = append(received, e) })
	b.Subscribe(PlanChanged, func(e Event) { t.Fatal("should not receive StateChanged on PlanChanged subscriber") })

	b.Publish(Event{Type: StateChanged, SessionID: "s1", Data: "Planning"})

	require.Len(t, received, 1)
	assert.Equal(t, "Planning", received[0].Data)
}

func TestPublish_GlobalSubscriberReceivesEverything(t *testing.T) {
	b := New(Options{})
	defer b.Close()

	var types []Type
	b.SubscribeAll(func(e Event) { types = append(types, e.Type) })

	b.Publish(Event{Type: StateChanged})
	b.Publish(Event{Type: PlanChanged})

	assert.Equal(t, []Type{StateChanged, PlanChanged}, types)
}

func TestPublish_PreservesProgramOrder(t *testing.T) {
	b := New(Options{})
	defer b.Close()

	var order []int
	b.Subscribe(Message, func(e Event) { order = append(order, e.Data.(int)) })

	for i := 0; i < 10; i++ {
		b.Publish(Event{Type: Message, Data: i})
	}

	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := New(Options{})
	defer b.Close()

	count := 0
	unsub := b.Subscribe(StateChanged, func(e Event) { count++ })
	b.Publish(Event{Type: StateChanged})
	unsub()
	b.Publish(Event{Type: StateChanged})

	assert.Equal(t, 1, count)
}

func TestReset_ClearsSubscribersButKeepsBusUsable(t *testing.T) {
	b := New(Options{})
	defer b.Close()

	count := 0
	b.Subscribe(StateChanged, func(e Event) { count++ })
	b.Reset()
	b.Publish(Event{Type: StateChanged})
	assert.Equal(t, 0, count)

	b.Subscribe(StateChanged, func(e Event) { count++ })
	b.Publish(Event{Type: StateChanged})
	assert.Equal(t, 1, count)
}

func TestClose_StopsAllDelivery(t *testing.T) {
	b := New(Options{})
	count := 0
	b.Subscribe(StateChanged, func(e Event) { count++ })
	require.NoError(t, b.Close())
	b.Publish(Event{Type: StateChanged})
	assert.Equal(t, 0, count)
}

func TestPublishWatermill_RoundTripsThroughPubSub(t *testing.T) {
	b := New(Options{Persistent: true})
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := b.PubSub().Subscribe(ctx, "engine.test")
	require.NoError(t, err)

	require.NoError(t, b.PublishWatermill(ctx, "engine.test", []byte(`{"hello":"world"}`)))

	msg := <-messages
	assert.Equal(t, `{"hello":"world"}`, string(msg.Payload))
	msg.Ack()
}
