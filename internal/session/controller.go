package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jmewes/devtools/internal/profiler"
	"github.com/jmewes/devtools/internal/timeline"
	"github.com/jmewes/devtools/internal/tracesource"
	"github.com/jmewes/devtools/pkg/pubsub"
	"github.com/jmewes/devtools/pkg/searchindex"
	"github.com/jmewes/devtools/pkg/xlog"
)

var (
	// ErrEmptySession signals a fetch that returned no events. It is a
	// distinct condition, not a processing error.
	ErrEmptySession = errors.New("session: recording contains no trace events")

	// ErrSuperseded signals that a cycle's or selection's result arrived
	// after a newer one replaced it and was discarded.
	ErrSuperseded = errors.New("session: superseded by a newer cycle")
)

// RefreshRateSource reports the display's frames-per-second.
type RefreshRateSource interface {
	DisplayRefreshRate(ctx context.Context) (float64, error)
}

// StaticRefreshRate is a fixed-rate source.
type StaticRefreshRate float64

func (r StaticRefreshRate) DisplayRefreshRate(ctx context.Context) (float64, error) {
	return float64(r), nil
}

// Deps are the controller's external collaborators. Source is required;
// everything else is optional.
type Deps struct {
	Source      tracesource.Source
	Sampler     profiler.Sampler
	RefreshRate RefreshRateSource
	Logger      xlog.Logger
	Metrics     prometheus.Registerer
}

// Controller owns one logical session: it orchestrates refresh cycles
// (fetch, build, correlate), selection and selection profiling, snapshot
// replay, and event-name search over the reconstructed forest.
//
// A refresh cycle is one uninterrupted unit of work relative to other
// refreshes: a newer cycle supersedes an in-flight one, whose results are
// discarded once stale, never merged.
type Controller struct {
	cfg    *Config
	logger xlog.Logger
	tracer trace.Tracer

	source      tracesource.Source
	sampler     profiler.Sampler
	refreshRate RefreshRateSource
	metrics     *metrics

	states *pubsub.PubSub[StateChange]

	mu           sync.Mutex
	state        State
	data         *timeline.Session
	cycle        uint64
	selectionSeq uint64
	search       *searchindex.Index[timeline.NodeID]
}

func NewController(cfg *Config, deps Deps) (*Controller, error) {
	if deps.Source == nil {
		return nil, errors.New("session: trace source is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.fillDefault()

	logger := deps.Logger
	if logger == nil {
		logger = xlog.NewNop()
	}

	c := &Controller{
		cfg:         cfg,
		logger:      logger.WithName("SessionController"),
		tracer:      otel.Tracer("devtools/session"),
		source:      deps.Source,
		sampler:     deps.Sampler,
		refreshRate: deps.RefreshRate,
		metrics:     newMetrics(deps.Metrics),
		states:      pubsub.NewPubSub[StateChange](),
		state:       StateIdle,
		data:        timeline.NewSession(cfg.FallbackRefreshRate),
	}
	c.search = searchindex.New(
		func(yield func(timeline.NodeID)) {
			c.data.Forest.BreadthFirst(func(id timeline.NodeID, _ *timeline.Node) {
				yield(id)
			})
		},
		func(id timeline.NodeID, query string) bool {
			node := c.data.Forest.Node(id)
			return node != nil && strings.Contains(strings.ToLower(node.Name), query)
		},
	)
	return c, nil
}

// Data is the active session aggregate. Callers must treat it as read-only;
// it is superseded wholesale by the next refresh or replay.
func (c *Controller) Data() *timeline.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe delivers every state transition. Slow subscribers lose the
// oldest buffered transition rather than blocking the controller.
func (c *Controller) Subscribe() *pubsub.Subscription[StateChange] {
	return c.states.Subscribe(c.cfg.StateBufferSize)
}

func (c *Controller) Close() {
	c.states.CloseAll()
}

////////////////////////////////////////////////////////////////////////////////

// Refresh runs one full cycle: reset shared state, fetch the raw batch,
// rebuild trees and frames, swap in the new aggregate. The prior aggregate
// is superseded, not mutated. A Refresh issued while another is in flight
// supersedes it; the stale cycle returns ErrSuperseded.
func (c *Controller) Refresh(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "session.Refresh")
	defer span.End()

	rate := c.resolveRefreshRate(ctx)

	c.mu.Lock()
	c.cycle++
	cycle := c.cycle
	// Shared mutable state is fully reset before awaiting the fetch, so a
	// caller observing transitions never sees two cycles mixed together.
	c.data = timeline.NewSession(rate)
	c.selectionSeq++
	c.search.Reset()
	c.setStateLocked(StateFetching, cycle, nil)
	c.mu.Unlock()

	c.metrics.refreshCycles.Inc()
	c.logger.Debug(ctx, "Refresh cycle started", zap.Uint64("cycle", cycle))

	records, err := c.source.Fetch(ctx)
	if err != nil {
		err = fmt.Errorf("session: fetch failed: %w", err)
		c.endCycle(cycle, err)
		return err
	}
	if len(records) == 0 {
		c.metrics.emptySessions.Inc()
		c.endCycle(cycle, ErrEmptySession)
		return ErrEmptySession
	}

	if !c.advanceCycle(cycle, StateBuilding) {
		c.metrics.supersededCycles.Inc()
		return ErrSuperseded
	}

	built := timeline.BuildSession(ctx, records, rate, c.logger)

	c.mu.Lock()
	if c.cycle != cycle {
		c.mu.Unlock()
		c.metrics.supersededCycles.Inc()
		return ErrSuperseded
	}
	c.data = built
	c.setStateLocked(StateIdle, cycle, nil)
	c.mu.Unlock()

	c.countSession(built, len(records))
	c.logger.Info(ctx, "Refresh cycle complete",
		zap.Uint64("cycle", cycle),
		zap.Int("events", len(records)),
		zap.Int("nodes", built.Forest.Len()),
		zap.Int("frames", len(built.Frames)))
	return nil
}

// Clear drops the source's buffered state and resets the session.
func (c *Controller) Clear(ctx context.Context) error {
	if err := c.source.Clear(ctx); err != nil {
		return fmt.Errorf("session: clear failed: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cycle++
	c.selectionSeq++
	c.data = timeline.NewSession(c.data.DisplayRefreshRate)
	c.search.Reset()
	c.setStateLocked(StateIdle, c.cycle, nil)
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// SelectEvent updates the selection. Re-selecting the current event is a
// no-op. Selecting a closed UI-category event with profiling enabled issues
// a sampling request for the event's window; the response is attached only
// if the selection is still current when it arrives.
func (c *Controller) SelectEvent(ctx context.Context, id timeline.NodeID) error {
	c.mu.Lock()
	if c.data.SelectedEvent == id {
		c.mu.Unlock()
		return nil
	}
	c.data.SelectedEvent = id
	c.data.CPUProfile = nil
	c.selectionSeq++
	seq := c.selectionSeq
	cycle := c.cycle

	var startMicros, extentMicros int64
	shouldProfile := false
	if node := c.data.Forest.Node(id); node != nil {
		duration, closed := node.Duration()
		startMicros = node.StartMicros
		extentMicros = duration
		shouldProfile = c.sampler != nil && c.cfg.ProfileUISelections &&
			node.Category == timeline.CategoryUI && closed
	}

	if shouldProfile {
		c.setStateLocked(StateProfilingSelection, 0, nil)
	} else if c.state == StateProfilingSelection {
		// The previous selection's request is now superseded; its owner
		// will see the stale sequence and leave the state alone.
		c.setStateLocked(StateIdle, 0, nil)
	}
	c.mu.Unlock()

	if !shouldProfile {
		return nil
	}
	return c.profileSelection(ctx, seq, cycle, startMicros, extentMicros)
}

func (c *Controller) profileSelection(ctx context.Context, seq, cycle uint64, startMicros, extentMicros int64) error {
	ctx, span := c.tracer.Start(ctx, "session.ProfileSelection")
	defer span.End()

	req, err := profiler.NewRequest(startMicros, extentMicros)
	if err != nil {
		c.endProfiling(seq, cycle, err)
		return err
	}

	c.logger.Debug(ctx, "Requesting selection profile",
		zap.String("correlation.id", req.CorrelationID),
		zap.Int64("start.us", startMicros),
		zap.Int64("extent.us", extentMicros))

	prof, err := c.sampler.Sample(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectionSeq != seq || c.cycle != cycle {
		c.metrics.profilesDropped.Inc()
		return ErrSuperseded
	}
	if err != nil {
		// Recoverable: the selection stays, the profile remains unset.
		err = fmt.Errorf("session: sampling request failed: %w", err)
		c.setStateLocked(StateIdle, 0, err)
		return err
	}
	c.data.CPUProfile = prof
	c.metrics.profilesAttached.Inc()
	c.setStateLocked(StateIdle, 0, nil)
	return nil
}

func (c *Controller) endProfiling(seq, cycle uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectionSeq != seq || c.cycle != cycle {
		return
	}
	c.setStateLocked(StateIdle, 0, err)
}

// SelectFrame toggles off when re-selecting the current frame; otherwise it
// selects the frame and cascades into selecting its UI flow root.
func (c *Controller) SelectFrame(ctx context.Context, frame *timeline.RenderFrame) error {
	c.mu.Lock()
	if frame != nil && c.data.SelectedFrame == frame {
		c.data.SelectedFrame = nil
		c.mu.Unlock()
		return nil
	}
	c.data.SelectedFrame = frame
	c.mu.Unlock()

	if frame == nil || frame.UIRoot == timeline.NoNode {
		return nil
	}
	return c.SelectEvent(ctx, frame.UIRoot)
}

////////////////////////////////////////////////////////////////////////////////

// LoadSnapshot replays a persisted session: trees, frames and groups are
// rebuilt fresh from the snapshot's raw log, the log itself is taken
// verbatim, and the original selection is re-located structurally. A
// selection with no structural match is cleared, not defaulted.
func (c *Controller) LoadSnapshot(ctx context.Context, snap *Snapshot) error {
	ctx, span := c.tracer.Start(ctx, "session.LoadSnapshot")
	defer span.End()

	rate := snap.DisplayRefreshRate
	if rate <= 0 {
		rate = c.cfg.FallbackRefreshRate
	}

	c.mu.Lock()
	c.cycle++
	cycle := c.cycle
	c.setStateLocked(StateBuilding, cycle, nil)
	c.mu.Unlock()

	rebuilt := timeline.BuildSession(ctx, snap.RawLog, rate, c.logger)

	if snap.SelectedFrameID != nil {
		rebuilt.SelectedFrame = timeline.ReselectFrame(rebuilt.Frames, *snap.SelectedFrameID)
	}
	if key, ok := snap.selectionKey(); ok {
		rebuilt.SelectedEvent = timeline.ReselectEvent(rebuilt.Forest, key)
	}

	c.mu.Lock()
	if c.cycle != cycle {
		c.mu.Unlock()
		c.metrics.supersededCycles.Inc()
		return ErrSuperseded
	}
	c.data = rebuilt
	c.selectionSeq++
	c.search.Reset()
	c.setStateLocked(StateIdle, cycle, nil)
	c.mu.Unlock()

	c.countSession(rebuilt, len(snap.RawLog))
	c.logger.Info(ctx, "Snapshot replayed",
		zap.Int("events", len(snap.RawLog)),
		zap.Bool("event.reselected", rebuilt.SelectedEvent != timeline.NoNode),
		zap.Bool("frame.reselected", rebuilt.SelectedFrame != nil))
	return nil
}

////////////////////////////////////////////////////////////////////////////////

// SearchEvents recomputes the match list for query over the current forest,
// breadth-first left to right. Matching is a case-insensitive substring
// test on event names.
func (c *Controller) SearchEvents(query string) []timeline.NodeID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search.SetQuery(query)
	return c.search.Matches()
}

func (c *Controller) NextMatch() (timeline.NodeID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search.NextMatch()
}

func (c *Controller) PreviousMatch() (timeline.NodeID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search.PreviousMatch()
}

func (c *Controller) ActiveMatch() (timeline.NodeID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search.ActiveMatch()
}

func (c *Controller) MatchIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search.MatchIndex()
}

////////////////////////////////////////////////////////////////////////////////

func (c *Controller) resolveRefreshRate(ctx context.Context) float64 {
	if c.refreshRate == nil {
		return c.cfg.FallbackRefreshRate
	}
	rate, err := c.refreshRate.DisplayRefreshRate(ctx)
	if err != nil || rate <= 0 {
		c.logger.Warn(ctx, "Display refresh rate unavailable, using fallback",
			zap.Float64("fallback", c.cfg.FallbackRefreshRate),
			zap.Error(err))
		return c.cfg.FallbackRefreshRate
	}
	return rate
}

// setStateLocked requires c.mu held.
func (c *Controller) setStateLocked(state State, cycle uint64, err error) {
	c.state = state
	c.states.Publish(StateChange{State: state, Cycle: cycle, Err: err})
}

// endCycle returns the controller to Idle unless a newer cycle took over.
func (c *Controller) endCycle(cycle uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cycle != cycle {
		return
	}
	c.setStateLocked(StateIdle, cycle, err)
}

// advanceCycle moves a still-current cycle to the given state.
func (c *Controller) advanceCycle(cycle uint64, state State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cycle != cycle {
		return false
	}
	c.setStateLocked(state, cycle, nil)
	return true
}

func (c *Controller) countSession(data *timeline.Session, eventCount int) {
	c.metrics.eventsIngested.Add(float64(eventCount))
	c.metrics.eventDiagnostics.Add(float64(len(data.Diagnostics)))
	c.metrics.framesCorrelated.Add(float64(len(data.Frames)))
	janky := 0
	for _, frame := range data.Frames {
		if frame.Janky() {
			janky++
		}
	}
	c.metrics.jankyFrames.Add(float64(janky))
}
