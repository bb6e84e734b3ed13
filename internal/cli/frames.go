package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmewes/devtools/internal/timeline"
)

var framesCmd = &cobra.Command{
	Use:   "frames",
	Short: "Correlate render frames and report jank",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFrames(cmd.Context())
	},
}

func setupFramesCmd() *cobra.Command {
	addTraceFlag(framesCmd)
	return framesCmd
}

func runFrames(ctx context.Context) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	c, err := makeController(logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	data, err := refreshSession(ctx, c, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FRAME\tUI\tRASTER\tJANK")
	for _, frame := range data.Frames {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			frame.ID,
			flowDuration(data.Forest, frame.UIRoot),
			flowDuration(data.Forest, frame.RenderRoot),
			jankLabel(frame),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats := timeline.ComputeFrameStats(data.Forest, data.Frames)
	budget := time.Duration(timeline.FrameBudgetMicros(data.DisplayRefreshRate)) * time.Microsecond
	fmt.Printf("\n%s frames (%d complete), budget %v: %d janky on ui, %d janky on raster\n",
		humanize.Comma(int64(stats.Total)), stats.Complete, budget, stats.JankyUI, stats.JankyRender)
	if stats.WorstUIMicros > 0 {
		fmt.Printf("worst ui flow: frame %d at %v\n",
			stats.WorstFrameID, time.Duration(stats.WorstUIMicros)*time.Microsecond)
	}
	return nil
}

func flowDuration(forest *timeline.Forest, id timeline.NodeID) string {
	if id == timeline.NoNode {
		return "-"
	}
	duration, ok := forest.Node(id).Duration()
	if !ok {
		return "open"
	}
	return (time.Duration(duration) * time.Microsecond).String()
}

func jankLabel(frame *timeline.RenderFrame) string {
	switch {
	case frame.UIJanky && frame.RenderJanky:
		return "ui+raster"
	case frame.UIJanky:
		return "ui"
	case frame.RenderJanky:
		return "raster"
	default:
		return "-"
	}
}
