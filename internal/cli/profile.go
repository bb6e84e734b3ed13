package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmewes/devtools/internal/profiler"
)

var (
	stacksPath    string
	eventQuery    string
	profileOutput string

	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Attach a sampling profile to a selected ui event and export it as pprof",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProfile(cmd.Context())
		},
	}
)

func setupProfileCmd() *cobra.Command {
	addTraceFlag(profileCmd)
	profileCmd.Flags().StringVar(&stacksPath, "stacks", "", "path to collapsed-stacks samples covering the recording")
	profileCmd.Flags().StringVarP(&eventQuery, "event", "e", "", "name of the event to select, first breadth-first match wins")
	profileCmd.Flags().StringVarP(&profileOutput, "output", "o", "", "pprof output path")
	must(profileCmd.MarkFlagFilename("stacks"))
	must(profileCmd.MarkFlagFilename("output"))
	must(profileCmd.MarkFlagRequired("stacks"))
	must(profileCmd.MarkFlagRequired("event"))
	must(profileCmd.MarkFlagRequired("output"))
	return profileCmd
}

func runProfile(ctx context.Context) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	c, err := makeController(logger, profiler.NewFileSampler(stacksPath))
	if err != nil {
		return err
	}
	defer c.Close()

	data, err := refreshSession(ctx, c, logger)
	if err != nil {
		return err
	}

	matches := c.SearchEvents(eventQuery)
	if len(matches) == 0 {
		return fmt.Errorf("no events matching %q", eventQuery)
	}
	if err := c.SelectEvent(ctx, matches[0]); err != nil {
		return err
	}

	data = c.Data()
	if data.CPUProfile == nil {
		return errors.New("no profile attached: the selection is not a closed ui event")
	}

	prof, err := data.CPUProfile.ToPProf()
	if err != nil {
		return err
	}

	out, err := os.Create(profileOutput)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := prof.Write(out); err != nil {
		return err
	}

	node := data.Forest.Node(data.SelectedEvent)
	fmt.Printf("profiled %q (%v): %s samples written to %s\n",
		node.Name,
		time.Duration(node.StartMicros)*time.Microsecond,
		humanize.Comma(data.CPUProfile.TotalWeight()),
		profileOutput)
	return nil
}
