// Command dkvfvrd is the single-purpose maintenance daemon: it runs the
// periodic version-reclamation loop against a data root and nothing else.
// dkvfvr (cmd/dkvfvr) additionally exposes ad-hoc put/get/clear/info
// commands against the same data root; dkvfvrd only serves.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fvrstore/fvrstore/cmd/serve"
	"github.com/fvrstore/fvrstore/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:   "dkvfvrd",
		Short: "dkvfvr maintenance daemon",
		RunE:  serve.ServeCmd.RunE,
	}
	config.BindFlags(root)
	cobra.OnInitialize(config.Init)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
