package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var dumpVia string

var dumpCmd = &cobra.Command{
	Use:   "dump PATH",
	Short: "Write the server's knowledge base to a file",
	Long: `Ask the server to write its current state to PATH, which is resolved on the
server. The directory must already exist. With S3 enabled on the server, PATH
may also be s3://bucket/key.

The automatic snapshot is not touched.`,
	Example: `  kbase dump /var/backups/kb.yaml
  kbase dump s3://backups/kb.yaml --via grpc`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), dumpVia, func(ctx context.Context, c KBaseClient) error {
			resp, err := c.Dump(ctx, args[0])
			if err != nil {
				return err
			}
			return reportStatus(resp)
		})
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringVar(&dumpVia, "via", ViaHTTP, "Transport (http, grpc)")
}
