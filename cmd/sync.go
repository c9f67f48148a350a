package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncForce bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the game catalog",
	Long: `Download the catalog metadata archive and parse the game list.
A cached catalog younger than catalog.max_age is reused unless --force is set.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "Ignore the cached catalog")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Println("Syncing catalog...")
	summary, err := s.app.SyncCatalog(cmd.Context(), syncForce)
	if err != nil {
		return fmt.Errorf("failed to sync catalog: %w", err)
	}

	source := "network"
	if summary.UsedCache {
		source = "cache"
	}
	fmt.Printf("\nSync complete:\n")
	fmt.Printf("  Titles: %d\n", summary.GamesCount)
	fmt.Printf("  Source: %s\n", source)
	fmt.Printf("  Synced at: %s\n", summary.LastSync.Format("2006-01-02 15:04:05"))
	return nil
}
