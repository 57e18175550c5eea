package kv

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fvrstore/fvrstore/vsm"
)

var putCmd = &cobra.Command{
	Use:   "put [db] [key=value]...",
	Short: "Publishes a new version of db from the given key=value pairs",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := args[0]
		data := make(map[string]string, len(args)-1)
		for _, pair := range args[1:] {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("invalid key=value pair: %q", pair)
			}
			data[k] = v
		}

		v, ok := store.GetDB(db)
		if !ok {
			return fmt.Errorf("could not open database %s", db)
		}
		if err := v.WriteOnce(context.Background(), vsm.NewMapProducer(data)); err != nil {
			return err
		}
		fmt.Printf("published version %d of %s\n", v.Version(), db)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [db] [key]",
	Short: "Reads a key from the current version of db",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, key := args[0], args[1]
		v, ok := store.GetDB(db)
		if !ok {
			return fmt.Errorf("could not open database %s", db)
		}
		val, found := v.Get(context.Background(), key)
		fmt.Printf("key=%s found=%v value=%s\n", key, found, val)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear [db]",
	Short: "Reclaims expired non-current versions of db",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := args[0]
		v, ok := store.GetDB(db)
		if !ok {
			return fmt.Errorf("could not open database %s", db)
		}
		if err := v.Clear(); err != nil {
			return err
		}
		fmt.Println("clear complete")
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info [db]",
	Short: "Prints the current version, open handle count, and size of db",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := args[0]
		v, ok := store.GetDB(db)
		if !ok {
			return fmt.Errorf("could not open database %s", db)
		}
		info := v.Info()
		fmt.Printf("name=%s version=%d open_handles=%d size_bytes=%d\n",
			info.Name, info.CurrentVersion, info.OpenHandles, info.SizeBytes)
		return nil
	},
}
