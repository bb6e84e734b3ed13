package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search reconstructed events by name",
	Long:  "Case-insensitive substring search over reconstructed event names, breadth-first left to right.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd.Context(), args[0])
	},
}

func setupSearchCmd() *cobra.Command {
	addTraceFlag(searchCmd)
	return searchCmd
}

func runSearch(ctx context.Context, query string) error {
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

	matches := c.SearchEvents(query)
	if len(matches) == 0 {
		fmt.Printf("no events matching %q\n", query)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MATCH\tNAME\tTHREAD\tSTART\tDURATION")
	for i, id := range matches {
		node := data.Forest.Node(id)
		fmt.Fprintf(w, "%d/%d\t%s\t%s\t%v\t%s\n",
			i+1, len(matches),
			node.Name,
			data.Threads.Name(node.ThreadID),
			time.Duration(node.StartMicros)*time.Microsecond,
			flowDuration(data.Forest, id),
		)
	}
	return w.Flush()
}
