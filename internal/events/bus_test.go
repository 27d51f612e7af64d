package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishAndUnsubscribe(t *testing.T) {
	b := NewBus()
	var got []Event
	unsub := b.Subscribe(TopicProgress, func(e Event) { got = append(got, e) })
	b.Subscribe(TopicCatalog, func(Event) { t.Fatal("wrong topic") })

	b.Publish(Event{Topic: TopicProgress, UserID: 7})
	unsub()
	b.Publish(Event{Topic: TopicProgress, UserID: 8})

	assert.Equal(t, []Event{{Topic: TopicProgress, UserID: 7}}, got)
}

func TestBus_NilIsNoop(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() { b.Publish(Event{Topic: TopicCatalog}) })
}
