package profiler

import (
	"context"
	"fmt"
	"os"

	"github.com/jmewes/devtools/pkg/cpuprofile"
)

// FileSampler replays a collapsed-stacks file as the sampling subsystem's
// response, regardless of the requested window. Used by the CLI to inspect
// recorded profiles offline.
type FileSampler struct {
	path string
}

var _ Sampler = (*FileSampler)(nil)

func NewFileSampler(path string) *FileSampler {
	return &FileSampler{path: path}
}

func (s *FileSampler) Sample(ctx context.Context, req Request) (*cpuprofile.Profile, error) {
	buf, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("profiler: failed to read %q: %w", s.path, err)
	}
	prof, err := cpuprofile.Unmarshal(buf)
	if err != nil {
		return nil, fmt.Errorf("profiler: failed to parse %q: %w", s.path, err)
	}
	return prof, nil
}
