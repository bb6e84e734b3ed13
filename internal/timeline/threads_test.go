package timeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmewes/devtools/pkg/traceevent"
	"github.com/jmewes/devtools/pkg/xlog"
)

func threadNameRecord(tid int64, name string) traceevent.Record {
	return traceevent.Record{Event: traceevent.Event{
		Name:     "thread_name",
		Phase:    traceevent.Metadata,
		ThreadID: tid,
		Args:     map[string]any{"name": name},
	}}
}

func TestResolveThreads(t *testing.T) {
	ctx := context.Background()

	t.Run("ui and raster", func(t *testing.T) {
		threads := ResolveThreads(ctx, []traceevent.Record{
			threadNameRecord(123, "io.flutter.1.ui (123)"),
			threadNameRecord(124, "io.flutter.raster (124)"),
			threadNameRecord(125, "io.flutter.platform (125)"),
			threadNameRecord(200, "DartWorker"),
		}, xlog.NewNop())

		ui, ok := threads.UIThread()
		require.True(t, ok)
		require.Equal(t, int64(123), ui)

		render, ok := threads.RenderThread()
		require.True(t, ok)
		require.Equal(t, int64(124), render)

		// The platform thread stays unclassified when a raster thread exists.
		require.Equal(t, RoleUnknown, threads.RoleOf(125))
		require.Equal(t, RoleUnknown, threads.RoleOf(200))
		require.Equal(t, CategoryUI, threads.CategoryOf(123))
		require.Equal(t, CategoryRender, threads.CategoryOf(124))
		require.Equal(t, CategoryOther, threads.CategoryOf(200))
	})

	t.Run("platform fallback", func(t *testing.T) {
		threads := ResolveThreads(ctx, []traceevent.Record{
			threadNameRecord(125, "io.flutter.platform (125)"),
			threadNameRecord(123, "io.flutter.1.ui (123)"),
		}, xlog.NewNop())

		render, ok := threads.RenderThread()
		require.True(t, ok)
		require.Equal(t, int64(125), render)
		require.Equal(t, RoleRender, threads.RoleOf(125))
	})

	t.Run("legacy gpu marker", func(t *testing.T) {
		threads := ResolveThreads(ctx, []traceevent.Record{
			threadNameRecord(99, "io.flutter.GPU (99)"),
		}, xlog.NewNop())

		render, ok := threads.RenderThread()
		require.True(t, ok)
		require.Equal(t, int64(99), render)
	})

	t.Run("missing roles tolerated", func(t *testing.T) {
		threads := ResolveThreads(ctx, []traceevent.Record{
			threadNameRecord(200, "DartWorker"),
		}, xlog.NewNop())

		_, ok := threads.UIThread()
		require.False(t, ok)
		_, ok = threads.RenderThread()
		require.False(t, ok)
	})

	t.Run("name fallback", func(t *testing.T) {
		threads := ResolveThreads(ctx, nil, xlog.NewNop())
		require.Equal(t, "4242", threads.Name(4242))
	})
}
