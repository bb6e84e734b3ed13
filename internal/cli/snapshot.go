package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmewes/devtools/internal/session"
	"github.com/jmewes/devtools/internal/timeline"
)

var (
	snapshotOutput string

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export the reconstructed session as a snapshot file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd.Context())
		},
	}

	replayCmd = &cobra.Command{
		Use:   "replay [snapshot]",
		Short: "Rebuild a session from an exported snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), args[0])
		},
	}
)

func setupExportCmd() *cobra.Command {
	addTraceFlag(exportCmd)
	exportCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "", "snapshot output path")
	must(exportCmd.MarkFlagFilename("output"))
	must(exportCmd.MarkFlagRequired("output"))
	return exportCmd
}

func setupReplayCmd() *cobra.Command {
	return replayCmd
}

func runExport(ctx context.Context) error {
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

	file, err := os.Create(snapshotOutput)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := session.TakeSnapshot(data).Encode(file); err != nil {
		return err
	}
	fmt.Printf("exported %s events to %s\n", humanize.Comma(int64(len(data.RawLog))), snapshotOutput)
	return nil
}

func runReplay(ctx context.Context, path string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	snap, err := session.DecodeSnapshot(file)
	file.Close()
	if err != nil {
		return err
	}

	// Replay never fetches; the source only satisfies the controller's
	// dependency contract.
	tracePath = path
	c, err := makeController(logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.LoadSnapshot(ctx, snap); err != nil {
		return err
	}

	data := c.Data()
	stats := timeline.ComputeFrameStats(data.Forest, data.Frames)
	fmt.Printf("replayed %s events: %d nodes across %d threads, %d frames (%d janky on ui)\n",
		humanize.Comma(int64(len(data.RawLog))),
		data.Forest.Len(), len(data.GroupNames),
		stats.Total, stats.JankyUI)

	if node := data.Forest.Node(data.SelectedEvent); node != nil {
		fmt.Printf("reselected event: %s\n", node.Name)
	}
	if data.SelectedFrame != nil {
		fmt.Printf("reselected frame: %d\n", data.SelectedFrame.ID)
	}
	return nil
}
