package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopic_PublishReachesAllSubscribers(t *testing.T) {
	topic := NewTopic[int]()

	var a, b []int
	topic.Subscribe(func(v int) { a = append(a, v) })
	topic.Subscribe(func(v int) { b = append(b, v) })

	topic.Publish(1)
	topic.Publish(2)

	assert.Equal(t, []int{1, 2}, a)
	assert.Equal(t, []int{1, 2}, b)
}

func TestTopic_UnsubscribeDetaches(t *testing.T) {
	topic := NewTopic[string]()

	var got []string
	unsub := topic.Subscribe(func(v string) { got = append(got, v) })

	topic.Publish("before")
	unsub()
	topic.Publish("after")

	assert.Equal(t, []string{"before"}, got)
}

func TestTopic_SubscribeDuringDelivery(t *testing.T) {
	topic := NewTopic[int]()

	var late []int
	topic.Subscribe(func(v int) {
		topic.Subscribe(func(v int) { late = append(late, v) })
	})

	topic.Publish(1) // must not deadlock
	topic.Publish(2)
	assert.NotEmpty(t, late)
}
