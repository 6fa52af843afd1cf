package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/campfirenet/meshsim/datarecording"
	"github.com/campfirenet/meshsim/instrumentation"
	"github.com/spf13/cobra"
)

type eventsOptions struct {
	link    string
	outcome string
	limit   int
	offset  int
}

var eventsCmd = &cobra.Command{
	Use:   "events [database]",
	Short: "Print the link events recorded by a run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts eventsOptions

		flags := cmd.Flags()
		opts.link, _ = flags.GetString("link")
		opts.outcome, _ = flags.GetString("outcome")
		opts.limit, _ = flags.GetInt("limit")
		opts.offset, _ = flags.GetInt("offset")

		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		return printEvents(cmd.Context(), reader, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	flags := eventsCmd.Flags()
	flags.String("link", "", "Only show events of this link.")
	flags.String("outcome", "", "Only show events with this outcome.")
	flags.Int("limit", 100, "Maximum number of events. Zero for all.")
	flags.Int("offset", 0, "Number of events to skip.")
}

func (o eventsOptions) queryParams() datarecording.QueryParams {
	params := datarecording.QueryParams{
		Limit:   o.limit,
		Offset:  o.offset,
		OrderBy: "Release",
	}

	var conditions []string
	if o.link != "" {
		conditions = append(conditions, "Link = ?")
		params.Args = append(params.Args, o.link)
	}

	if o.outcome != "" {
		conditions = append(conditions, "Outcome = ?")
		params.Args = append(params.Args, o.outcome)
	}

	params.Where = strings.Join(conditions, " AND ")

	return params
}

// printEvents writes the matching link events as JSON lines followed by a
// count line.
func printEvents(
	ctx context.Context,
	reader datarecording.DataReader,
	opts eventsOptions,
	out io.Writer,
) error {
	reader.MapTable(instrumentation.LinkEventsTable,
		instrumentation.LinkEventEntry{})

	rows, total, err := reader.Query(ctx, instrumentation.LinkEventsTable,
		opts.queryParams())
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(out)
	for _, row := range rows {
		if err := encoder.Encode(row); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "%d of %d events\n", len(rows), total)

	return nil
}
