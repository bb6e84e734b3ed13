package tracesource_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmewes/devtools/internal/tracesource"
	"github.com/jmewes/devtools/pkg/traceevent"
)

func writeTrace(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()
	path := writeTrace(t, `{"traceEvents": [
		{"name": "build", "ph": "B", "ts": 100, "pid": 1, "tid": 2},
		{"name": "build", "ph": "E", "ts": 150, "pid": 1, "tid": 2}
	]}`)

	source := tracesource.NewFileSource(path)

	records, err := source.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "build", records[0].Name)
	require.Equal(t, traceevent.DurationBegin, records[0].Phase)
	require.False(t, records[0].ReceivedAt.IsZero())

	// Repeated fetches replay the same batch until the source is cleared.
	again, err := source.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, again, 2)

	require.NoError(t, source.Clear(ctx))
	records, err = source.Fetch(ctx)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestFileSource_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := tracesource.NewFileSource("/does/not/exist.json").Fetch(ctx)
	require.Error(t, err)

	path := writeTrace(t, `{"traceEvents": "nope"}`)
	_, err = tracesource.NewFileSource(path).Fetch(ctx)
	require.Error(t, err)
}
