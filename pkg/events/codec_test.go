package events

import (
	"testing"
	"time"

	"github.com/codeready-toolchain/thoughtflow/pkg/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRoundTripsEachVariant(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)

	envelopes := []*Envelope{
		NewCreated("e1", now, "t1", "u1", "why is the sky blue", "low"),
		NewProcessing("e2", now, "t1", "u1"),
		NewAgentCompleted("e3", now, "t1", "u1", "classification", 1, 5, 20, map[string]any{"category": "curiosity"}),
		NewCompleted("e4", now, "t1", "u1", 12.5, false),
		NewFailed("e5", now, "t1", "u1", "permanent/unknown_user", "user not found", 0),
	}

	for _, want := range envelopes {
		data, err := Marshal(want)
		require.NoError(t, err)

		got, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestUnmarshalRejectsUnrecognizedSchemaVersion(t *testing.T) {
	_, err := Unmarshal([]byte(`{"event_id":"e1","event_type":"thought_processing","schema_version":2,"occurred_at":"2026-07-29T12:00:00Z","thought_id":"t1","user_id":"u1"}`))
	require.Error(t, err)
	kind, ok := taxonomy.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, taxonomy.KindInvalidPayload, kind)
}

func TestUnmarshalRejectsUnrecognizedEventType(t *testing.T) {
	_, err := Unmarshal([]byte(`{"event_id":"e1","event_type":"thought_teleported","schema_version":1,"occurred_at":"2026-07-29T12:00:00Z","thought_id":"t1","user_id":"u1"}`))
	require.Error(t, err)
	kind, ok := taxonomy.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, taxonomy.KindInvalidPayload, kind)
}

func TestUnmarshalRejectsMalformedJSON(t *testing.T) {
	_, err := Unmarshal([]byte(`not json`))
	require.Error(t, err)
	kind, ok := taxonomy.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, taxonomy.KindInvalidPayload, kind)
}

func TestUpdatesChannelFormatsPerUserChannel(t *testing.T) {
	assert.Equal(t, "updates:u1", UpdatesChannel("updates", "u1"))
}
