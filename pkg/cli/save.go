package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	saveRecords recordFlags
	saveVia     string
)

var saveCmd = &cobra.Command{
	Use:   "save [FILE]",
	Short: "Upsert records into the knowledge base",
	Long: `Upsert records. Records come from a YAML document in snapshot format, from
flags, or both. A record replaces any existing record of the same kind and name.

References to unknown locations are reported as warnings; the records are
saved anyway.`,
	Example: `  kbase save house.yaml
  kbase save --location kitchen --location hall
  kbase save --viewpoint v1 --parent kitchen
  kbase save --object mug --default-loc kitchen --category dishware --attr color=red
  kbase save --person ann --via grpc`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, err := saveBatch(args, &saveRecords)
		if err != nil {
			return err
		}
		return withClient(cmd.Context(), saveVia, func(ctx context.Context, c KBaseClient) error {
			resp, err := c.Save(ctx, batch)
			if err != nil {
				return err
			}
			return reportStatus(resp)
		})
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)

	f := &saveRecords
	saveCmd.Flags().StringArrayVar(&f.locations, "location", nil, "Location name (repeatable)")
	saveCmd.Flags().StringArrayVar(&f.viewpoints, "viewpoint", nil, "Viewpoint name (repeatable, needs --parent)")
	saveCmd.Flags().StringVar(&f.parent, "parent", "", "Parent location of --viewpoint records")
	saveCmd.Flags().StringArrayVar(&f.objects, "object", nil, "Object name (repeatable, needs --default-loc)")
	saveCmd.Flags().StringVar(&f.defaultLoc, "default-loc", "", "Default location of --object records")
	saveCmd.Flags().StringVar(&f.category, "category", "", "Category of --object records")
	saveCmd.Flags().StringArrayVar(&f.persons, "person", nil, "Person name (repeatable)")
	saveCmd.Flags().StringArrayVar(&f.attrs, "attr", nil, "Attribute key=value for flag records (repeatable)")
	saveCmd.Flags().StringVar(&saveVia, "via", ViaHTTP, "Transport (http, grpc)")
}
