package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment_research/internal/domain"
)

func TestPublishFansOut(t *testing.T) {
	bus := NewBus()
	a, cancelA := bus.Subscribe()
	b, cancelB := bus.Subscribe()
	defer cancelB()

	bus.Publish(JobEvent{JobID: "j1", Status: domain.StatusProcessing})
	assert.Equal(t, "j1", (<-a).JobID)
	assert.Equal(t, domain.StatusProcessing, (<-b).Status)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)

	bus.Publish(JobEvent{JobID: "j2"})
	assert.Equal(t, "j2", (<-b).JobID)
}

func TestPublishDropsWhenFull(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()
	for i := 0; i < 40; i++ {
		bus.Publish(JobEvent{JobID: "j"})
	}
	require.Len(t, ch, cap(ch))
}
