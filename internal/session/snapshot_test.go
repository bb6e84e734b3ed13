package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmewes/devtools/internal/timeline"
	"github.com/jmewes/devtools/pkg/traceevent"
	"github.com/jmewes/devtools/pkg/xlog"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	data := timeline.BuildSession(ctx, recordedBatch(), 90.0, xlog.NewNop())
	data.SelectedFrame = data.Frames[0]
	data.SelectedEvent = data.Forest.FindPreOrder(func(node *timeline.Node) bool {
		return node.Name == "build"
	})

	snap := TakeSnapshot(data)
	buf, err := snap.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalSnapshot(buf)
	require.NoError(t, err)
	require.Equal(t, 90.0, decoded.DisplayRefreshRate)
	require.Len(t, decoded.RawLog, len(recordedBatch()))

	require.NotNil(t, decoded.SelectedFrameID)
	require.Equal(t, int64(1), *decoded.SelectedFrameID)

	require.NotNil(t, decoded.SelectedEvent)
	require.Equal(t, "build", decoded.SelectedEvent.Name)
	require.Equal(t, int64(2000), decoded.SelectedEvent.StartMicros)
	require.NotNil(t, decoded.SelectedEvent.DurationMicros)
	require.Equal(t, int64(10000), *decoded.SelectedEvent.DurationMicros)
}

func TestSnapshot_OpenSelection(t *testing.T) {
	ctx := context.Background()
	// The selected event never closes, so its duration is exported as null.
	batch := []traceevent.Record{
		{Event: traceevent.Event{Name: "layout", Phase: traceevent.DurationBegin, TimestampMicros: 500, ThreadID: 7, ProcessID: 1}},
	}
	data := timeline.BuildSession(ctx, batch, 60.0, xlog.NewNop())
	data.SelectedEvent = data.Forest.Roots()[0]

	buf, err := TakeSnapshot(data).Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalSnapshot(buf)
	require.NoError(t, err)
	require.NotNil(t, decoded.SelectedEvent)
	require.Equal(t, "layout", decoded.SelectedEvent.Name)
	require.Nil(t, decoded.SelectedEvent.DurationMicros)

	key, ok := decoded.selectionKey()
	require.True(t, ok)
	require.False(t, key.HasDuration)
}

func TestSnapshot_NoSelection(t *testing.T) {
	ctx := context.Background()
	data := timeline.BuildSession(ctx, recordedBatch(), 60.0, xlog.NewNop())

	snap := TakeSnapshot(data)
	require.Nil(t, snap.SelectedFrameID)
	require.Nil(t, snap.SelectedEvent)

	_, ok := snap.selectionKey()
	require.False(t, ok)
}

func TestDecodeSnapshot_Malformed(t *testing.T) {
	_, err := UnmarshalSnapshot([]byte("{not json"))
	require.Error(t, err)
}
