package fanout

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/thoughtflow/pkg/events"
)

func TestDropAgentOutputRemovesOnlyThatField(t *testing.T) {
	env := events.NewAgentCompleted("evt-1", time.Now(), "t1", "u1", "classification", 1, 5, 20,
		map[string]any{"type": "task", "detail": "a very long string"})
	payload, err := events.Marshal(env)
	assert.NoError(t, err)

	truncated := dropAgentOutput(payload)

	var m map[string]any
	assert.NoError(t, json.Unmarshal(truncated, &m))
	_, hasOutput := m["agent_output"]
	assert.False(t, hasOutput)
	assert.Equal(t, "classification", m["agent_name"])
	assert.Equal(t, "t1", m["thought_id"])
}

func TestDropAgentOutputResultStillDecodesAsEnvelope(t *testing.T) {
	env := events.NewAgentCompleted("evt-1", time.Now(), "t1", "u1", "analysis", 2, 5, 40,
		map[string]any{"goal_alignment": "high"})
	payload, err := events.Marshal(env)
	assert.NoError(t, err)

	truncated := dropAgentOutput(payload)
	decoded, err := events.Unmarshal(truncated)
	assert.NoError(t, err)
	assert.Equal(t, events.TypeAgentCompleted, decoded.EventType)
	assert.Nil(t, decoded.AgentCompleted.AgentOutput)
}

func TestDropAgentOutputOnUndecodablePayloadReturnsInputUnchanged(t *testing.T) {
	bad := []byte("not json")
	assert.Equal(t, bad, dropAgentOutput(bad))
}

func TestBusSubscribeAndUnsubscribeTrackBookkeeping(t *testing.T) {
	b := &Bus{
		prefix:      "updates",
		subscribers: make(map[string]map[string]*subscriber),
	}

	channel := events.UpdatesChannel(b.prefix, "u1")
	sub := &subscriber{id: "s1", ch: make(chan *events.Envelope, 1)}
	b.subscribers[channel] = map[string]*subscriber{"s1": sub}

	assert.Len(t, b.subscribers[channel], 1)
	b.unsubscribe(channel, "s1")
	_, exists := b.subscribers[channel]
	assert.False(t, exists)
}

func TestBusDispatchFansOutToAllLocalSubscribers(t *testing.T) {
	b := &Bus{
		prefix:      "updates",
		subscribers: make(map[string]map[string]*subscriber),
	}
	channel := events.UpdatesChannel(b.prefix, "u1")
	sub1 := &subscriber{id: "s1", ch: make(chan *events.Envelope, 1)}
	sub2 := &subscriber{id: "s2", ch: make(chan *events.Envelope, 1)}
	b.subscribers[channel] = map[string]*subscriber{"s1": sub1, "s2": sub2}

	env := events.NewProcessing("evt-1", time.Now(), "t1", "u1")
	payload, err := events.Marshal(env)
	assert.NoError(t, err)

	b.dispatch(channel, payload)

	got1 := <-sub1.ch
	got2 := <-sub2.ch
	assert.Equal(t, "t1", got1.ThoughtID)
	assert.Equal(t, "t1", got2.ThoughtID)
}

func TestBusDispatchDropsUndecodablePayloadSilently(t *testing.T) {
	b := &Bus{
		prefix:      "updates",
		subscribers: make(map[string]map[string]*subscriber),
	}
	channel := events.UpdatesChannel(b.prefix, "u1")
	sub := &subscriber{id: "s1", ch: make(chan *events.Envelope, 1)}
	b.subscribers[channel] = map[string]*subscriber{"s1": sub}

	assert.NotPanics(t, func() { b.dispatch(channel, []byte("garbage")) })
	assert.Len(t, sub.ch, 0)
}
