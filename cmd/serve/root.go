package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fvrstore/fvrstore/engine/snapshot"
	"github.com/fvrstore/fvrstore/internal/config"
	"github.com/fvrstore/fvrstore/internal/logging"
	"github.com/fvrstore/fvrstore/mdm"
	"github.com/fvrstore/fvrstore/serde"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dkvfvr maintenance daemon against a data root",
	Long: `Run the dkvfvr maintenance daemon against a data root. On startup the
daemon opens every existing database directory under data-dir so its
resident cache covers the whole root, then keeps the periodic
version-reclamation task running against them for as long as it stays up.
Configuration can be set via command line flags or environment variables.
The format of the environment variables is DKVFVR_<flag> (e.g.
DKVFVR_DATA_DIR=/var/lib/dkvfvr).`,
	RunE: run,
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, logLevel, err := config.Load(cmd)
	if err != nil {
		return err
	}
	logging.SetLevel(logging.ParseLevel(logLevel))
	log := logging.Get("serve")

	eng := snapshot.New(&snapshot.Options{})
	m, err := mdm.New[string, string](cfg, eng, serde.NewStringSerde(), serde.NewStringSerde())
	if err != nil {
		return fmt.Errorf("starting mdm: %w", err)
	}
	defer m.Close()

	opened := preopenDatabases(m, cfg.DataDir, log)
	log.Infof("dkvfvr serving data-dir=%s max-open-db=%d opened=%d", cfg.DataDir, cfg.MaxOpenDB, opened)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Infof("shutting down")
	return nil
}

// preopenDatabases loads every immediate subdirectory of dataDir into m's
// resident cache, so the maintenance loop's VSM.clear() sweep reaches
// everything already on disk instead of only databases this process
// happens to be asked to read or write.
func preopenDatabases(m *mdm.MDM[string, string], dataDir string, log logging.Logger) int {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		log.Warningf("listing data-dir %s: %v", dataDir, err)
		return 0
	}

	opened := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, ok := m.GetDB(e.Name()); ok {
			opened++
		}
	}
	return opened
}
