package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func getVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

var rootCmd = &cobra.Command{
	Use:   "dittodav",
	Short: "DittoDAV - WebDAV server over pluggable document stores",
	Long: `DittoDAV serves a hierarchical document store over WebDAV (class 1).

The store can live in memory, on the local filesystem, in an embedded
BadgerDB database or in an S3 bucket. Start with "dittodav init" to write a
sample configuration file, then "dittodav start".`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(newStartCmd(), newInitCmd(), newConfigCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the DittoDAV version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dittodav %s\n", getVersion())
		},
	}
}
