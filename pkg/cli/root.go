package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/kbase/pkg/admin"
	"github.com/getmockd/kbase/pkg/cli/internal/output"
	"github.com/getmockd/kbase/pkg/rpc"
)

var (
	// Persistent flags available to all subcommands
	adminURL   string
	grpcAddr   string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kbase",
	Short: "kbase is an in-memory knowledge base of locations, viewpoints, objects and persons",
	Long: `kbase keeps a named collection of locations, viewpoints, objects and persons
in memory, snapshots it after every change and broadcasts the full state over
MQTT and WebSocket.

Configuration can be provided via flags, KBASE_* environment variables, or a
configuration file (.kbaserc.yaml or ~/.config/kbase/config.yaml).`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	os.Exit(Run())
}

// Run runs the root command and returns the process exit code.
func Run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(output.Stderr, "Error:", err)
		return ExitCode(err)
	}
	return 0
}

// ExitCode returns the process exit code for an error returned by a command.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&adminURL, "admin-url", fmt.Sprintf("http://localhost:%d", admin.DefaultPort), "HTTP API base URL")
	rootCmd.PersistentFlags().StringVar(&grpcAddr, "grpc-addr", fmt.Sprintf("localhost:%d", rpc.DefaultPort), "gRPC API address, used with --via grpc")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}
