package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	deleteRecords recordFlags
	deleteVia     string
)

var deleteCmd = &cobra.Command{
	Use:     "delete [FILE]",
	Aliases: []string{"rm"},
	Short:   "Delete records by name",
	Long: `Delete records by kind and name. Unknown names are ignored. Deleting a
location leaves records that refer to it in place.`,
	Example: `  kbase delete --location kitchen
  kbase delete --object mug --person ann
  kbase delete stale.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, err := deleteBatch(args, &deleteRecords)
		if err != nil {
			return err
		}
		return withClient(cmd.Context(), deleteVia, func(ctx context.Context, c KBaseClient) error {
			resp, err := c.Delete(ctx, batch)
			if err != nil {
				return err
			}
			return reportStatus(resp)
		})
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	f := &deleteRecords
	deleteCmd.Flags().StringArrayVar(&f.locations, "location", nil, "Location name (repeatable)")
	deleteCmd.Flags().StringArrayVar(&f.viewpoints, "viewpoint", nil, "Viewpoint name (repeatable)")
	deleteCmd.Flags().StringArrayVar(&f.objects, "object", nil, "Object name (repeatable)")
	deleteCmd.Flags().StringArrayVar(&f.persons, "person", nil, "Person name (repeatable)")
	deleteCmd.Flags().StringVar(&deleteVia, "via", ViaHTTP, "Transport (http, grpc)")
}
