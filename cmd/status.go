package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show install readiness and the last catalog sync",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Data directory: %s\n", s.cfg.DataDir)
	fmt.Printf("Installer backend: %s\n", s.cfg.Installer.Backend)

	if last, ok := s.app.LastSync(); ok {
		fmt.Printf("Last sync: %s (%s, %d titles)\n",
			last.LastSync.Format("2006-01-02 15:04:05"), humanize.Time(last.LastSync), last.GamesCount)
	} else {
		fmt.Println("Last sync: never")
	}

	status := s.app.PermissionStatus(cmd.Context())
	fmt.Println()
	fmt.Printf("Installer reachable: %v\n", status.CanInstallPackages)
	fmt.Printf("Storage access:      %v\n", status.HasAllFilesAccess)
	fmt.Printf("Local free space:    %s (need %s)\n",
		humanize.IBytes(uint64(status.FreeBytes)), humanize.IBytes(uint64(status.MinRequiredBytes)))
	if status.DeviceFreeBytes >= 0 {
		fmt.Printf("Device free space:   %s\n", humanize.IBytes(uint64(status.DeviceFreeBytes)))
	}

	if status.Ready() {
		fmt.Println("\nReady to install")
		return nil
	}
	fmt.Println("\nNot ready:")
	for _, r := range status.Reasons() {
		fmt.Printf("  - %s\n", r)
	}
	return nil
}
