package kv

import (
	"github.com/spf13/cobra"

	"github.com/fvrstore/fvrstore/engine/snapshot"
	"github.com/fvrstore/fvrstore/internal/config"
	"github.com/fvrstore/fvrstore/internal/logging"
	"github.com/fvrstore/fvrstore/mdm"
	"github.com/fvrstore/fvrstore/serde"
)

var store *mdm.MDM[string, string]

// KeyValueCommands represents the KV command group. Every subcommand takes
// a database name as its first argument and operates against a local MDM
// rooted at the data-dir flag.
var KeyValueCommands = &cobra.Command{
	Use:               "kv",
	Short:             "Inspect and publish versions of a database under data-dir",
	PersistentPreRunE: openStore,
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		if store != nil {
			return store.Close()
		}
		return nil
	},
}

func init() {
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(clearCmd)
	KeyValueCommands.AddCommand(infoCmd)
}

func openStore(cmd *cobra.Command, _ []string) error {
	cfg, logLevel, err := config.Load(cmd)
	if err != nil {
		return err
	}
	logging.SetLevel(logging.ParseLevel(logLevel))

	eng := snapshot.New(&snapshot.Options{})
	store, err = mdm.New[string, string](cfg, eng, serde.NewStringSerde(), serde.NewStringSerde())
	return err
}
