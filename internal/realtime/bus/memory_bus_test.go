package bus

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tray-validation-backend/internal/realtime"
)

func TestMemoryBusForwardsAndRecords(t *testing.T) {
	b := NewMemoryBus()
	var got []realtime.WorkEvent
	require.NoError(t, b.StartForwarder(context.Background(), func(ev realtime.WorkEvent) {
		got = append(got, ev)
	}))

	rec := uuid.New()
	require.NoError(t, b.Publish(context.Background(), realtime.WorkEvent{Type: realtime.EventWorkClaimed, RecognitionID: rec}))
	require.NoError(t, b.Publish(context.Background(), realtime.WorkEvent{Type: realtime.EventWorkAbandoned, RecognitionID: rec}))

	assert.Len(t, got, 2)
	assert.Equal(t, []realtime.EventType{realtime.EventWorkClaimed, realtime.EventWorkAbandoned}, b.Types())
}

func TestNoopBus(t *testing.T) {
	b := NewNoopBus()
	assert.NoError(t, b.Publish(context.Background(), realtime.WorkEvent{}))
	assert.NoError(t, b.Close())
}
