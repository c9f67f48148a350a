package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	cleanPattern string
	forceClean   bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove leftover downloads",
	Long: `Remove downloaded chunks and extracted releases from the downloads
directory. Nothing is removed while an operation is running.
Use --pattern to only remove directories whose name matches a regex.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanPattern, "pattern", "P", "", "Regex pattern to match download directories")
	cleanCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Clean without confirmation")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if !forceClean {
		target := "everything"
		if cleanPattern != "" {
			target = fmt.Sprintf("directories matching '%s'", cleanPattern)
		}
		fmt.Printf("Remove %s under %s? [y/N]: ", target, s.cfg.DownloadsDir())
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Clean cancelled")
			return nil
		}
	}

	result, err := s.app.Clean(cleanPattern)
	if err != nil {
		return fmt.Errorf("failed to clean downloads: %w", err)
	}

	for _, name := range result.Removed {
		fmt.Printf("  Removed: %s\n", name)
	}
	for _, name := range result.Kept {
		fmt.Printf("  Kept: %s\n", name)
	}
	fmt.Printf("\nFreed %s\n", humanize.IBytes(uint64(result.FreedBytes)))
	return nil
}
