package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var chunksCmd = &cobra.Command{
	Use:   "chunks <package-or-release>",
	Short: "Show the archive volumes of a release",
	Long: `Resolve a package or release name, list its archive volumes on the
mirror and probe each one for size and range support.`,
	Args: cobra.ExactArgs(1),
	RunE: runChunks,
}

func init() {
	rootCmd.AddCommand(chunksCmd)
}

func runChunks(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if _, err := s.app.SyncCatalog(ctx, false); err != nil {
		return fmt.Errorf("failed to sync catalog: %w", err)
	}

	game, chunks, err := s.app.ChunkPlan(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to plan chunks: %w", err)
	}

	fmt.Printf("%s (%s)\n\n", game.ReleaseName, game.PackageName)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tRANGES")
	fmt.Fprintln(w, "----\t----\t------")
	var total int64
	for _, c := range chunks {
		ranges := "no"
		if c.AcceptRanges {
			ranges = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, humanize.IBytes(uint64(c.ContentLength)), ranges)
		total += c.ContentLength
	}
	w.Flush()

	fmt.Printf("\n%d volumes, %s total\n", len(chunks), humanize.IBytes(uint64(total)))
	return nil
}
