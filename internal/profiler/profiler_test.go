package profiler_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmewes/devtools/internal/profiler"
)

func TestNewRequest(t *testing.T) {
	req, err := profiler.NewRequest(1000, 250)
	require.NoError(t, err)
	require.Equal(t, int64(1000), req.StartMicros)
	require.Equal(t, int64(250), req.ExtentMicros)
	require.NotEmpty(t, req.CorrelationID)

	other, err := profiler.NewRequest(1000, 250)
	require.NoError(t, err)
	require.NotEqual(t, req.CorrelationID, other.CorrelationID)
}

func TestFileSampler(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profile.collapsed")
	require.NoError(t, os.WriteFile(path, []byte("main;build 5\nmain;paint 2\n"), 0o644))

	req, err := profiler.NewRequest(0, 1000)
	require.NoError(t, err)

	prof, err := profiler.NewFileSampler(path).Sample(ctx, req)
	require.NoError(t, err)
	require.Len(t, prof.Samples, 2)
	require.Equal(t, int64(7), prof.TotalWeight())

	_, err = profiler.NewFileSampler("/does/not/exist").Sample(ctx, req)
	require.Error(t, err)
}
