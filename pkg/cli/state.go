package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/kbase/pkg/cli/internal/output"
	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/persistence"
)

var (
	stateVia     string
	stateSummary bool
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the server's knowledge base",
	Long: `Print the current state as a YAML document in snapshot format, so the output
can be fed back to 'kbase save' or 'kbase serve -f'. Use --json for the
broadcast form or --summary for record counts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), stateVia, func(ctx context.Context, c KBaseClient) error {
			state, err := c.State(ctx)
			if err != nil {
				return err
			}
			return printState(state)
		})
	},
}

func printState(state entity.State) error {
	switch {
	case jsonOutput:
		return output.JSON(state)
	case stateSummary:
		tw := output.Table()
		fmt.Fprintln(tw, "KIND\tRECORDS")
		fmt.Fprintf(tw, "%s\t%d\n", entity.KindLocation, len(state.Locations))
		fmt.Fprintf(tw, "%s\t%d\n", entity.KindViewpoint, len(state.Viewpoints))
		fmt.Fprintf(tw, "%s\t%d\n", entity.KindObject, len(state.Objects))
		fmt.Fprintf(tw, "%s\t%d\n", entity.KindPerson, len(state.Persons))
		return tw.Flush()
	default:
		data, err := persistence.Encode(state.Collections())
		if err != nil {
			return err
		}
		output.Printf("%s", data)
		return nil
	}
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.Flags().StringVar(&stateVia, "via", ViaHTTP, "Transport (http, grpc)")
	stateCmd.Flags().BoolVar(&stateSummary, "summary", false, "Print record counts only")
}
