package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishToRoom(t *testing.T) {
	hub := NewHub(4)
	a := hub.Subscribe(EventRoom("e1"))
	b := hub.Subscribe(EventRoom("e2"))
	defer a.Close()
	defer b.Close()

	hub.Publish(EventRoom("e1"), EventNewScan, map[string]string{"bib": "101"})

	select {
	case msg := <-a.C:
		assert.Equal(t, "event:e1", msg.Room)
		assert.Equal(t, EventNewScan, msg.Event)
		assert.False(t, msg.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected message")
	}

	select {
	case <-b.C:
		t.Fatal("other room must not receive")
	default:
	}
}

func TestHub_DropsWhenFull(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("event:e1")
	defer sub.Close()

	hub.Publish("event:e1", EventRunnerUpdate, 1)
	hub.Publish("event:e1", EventRunnerUpdate, 2)

	assert.Equal(t, int64(1), hub.Dropped())
	msg := <-sub.C
	assert.Equal(t, 1, msg.Payload)
}

func TestSubscription_Close(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("event:e1")
	require.Equal(t, 1, hub.Subscribers("event:e1"))

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, hub.Subscribers("event:e1"))
	_, open := <-sub.C
	assert.False(t, open)

	// Publishing to an empty room is a no-op
	hub.Publish("event:e1", EventStatus, nil)
}

func TestHub_ConcurrentPublish(t *testing.T) {
	hub := NewHub(1000)
	sub := hub.Subscribe("event:e1")
	defer sub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hub.Publish("event:e1", EventNewScan, i)
		}(i)
	}
	wg.Wait()

	assert.Len(t, sub.C, 50)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	p.Publish("event:e1", EventStatus, nil)
}
