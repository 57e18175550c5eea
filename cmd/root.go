package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fvrstore/fvrstore/cmd/kv"
	"github.com/fvrstore/fvrstore/cmd/serve"
	"github.com/fvrstore/fvrstore/cmd/util"
	"github.com/fvrstore/fvrstore/internal/config"
)

const Version = "0.1.0"

// longDescription is reflowed through util.WrapString rather than hardcoded
// with manual line breaks, so editing it doesn't require re-wrapping by hand.
const longDescription = `An embedded, multi-tenant, versioned key-value store. Each logical database is a sequence of immutable, whole-snapshot versions published under a shared data root and coordinated across processes with a fixed-layout memory-mapped version record.`

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dkvfvr",
		Short: "embedded multi-tenant versioned key-value store",
		Long:  fmt.Sprintf("dkvfvr (v%s)\n\n%s", Version, util.WrapString(longDescription)),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dkvfvr",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dkvfvr v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	config.BindFlags(RootCmd)
	cobra.OnInitialize(config.Init)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
