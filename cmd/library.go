package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mol-cyberwhip/veteranVR/internal/catalog"
)

var (
	librarySearch string
	libraryFilter string
	librarySort   string
	libraryAsc    bool
	libraryLimit  int
	libraryLong   bool
)

var libraryCmd = &cobra.Command{
	Use:     "library",
	Aliases: []string{"list"},
	Short:   "Search and list the synced catalog",
	Long: `List games from the synced catalog.

Search matches game, release and package names. Prefix the search with
release: or pkg: to match against every version instead of the latest.

Examples:
  veteranvr library --search beat
  veteranvr library --search pkg:com.example --sort date
  veteranvr library --filter new --limit 20`,
	RunE: runLibrary,
}

func init() {
	libraryCmd.Flags().StringVarP(&librarySearch, "search", "q", "", "Search text")
	libraryCmd.Flags().StringVar(&libraryFilter, "filter", "all", "Filter: all, favorites, new, popular or non_mods")
	libraryCmd.Flags().StringVar(&librarySort, "sort", "popularity", "Sort by: name, date, size or popularity")
	libraryCmd.Flags().BoolVar(&libraryAsc, "asc", false, "Keep the natural sort order instead of reversing it")
	libraryCmd.Flags().IntVarP(&libraryLimit, "limit", "n", 50, "Maximum number of games to show (0 for all)")
	libraryCmd.Flags().BoolVarP(&libraryLong, "long", "l", false, "Show release and version details")
	rootCmd.AddCommand(libraryCmd)
}

func runLibrary(cmd *cobra.Command, args []string) error {
	q := catalog.DefaultQuery()
	q.Search = librarySearch
	q.Ascending = libraryAsc

	sortBy, ok := catalog.ParseSortBy(librarySort)
	if !ok {
		return fmt.Errorf("unknown sort: %s (must be name, date, size or popularity)", librarySort)
	}
	q.SortBy = sortBy
	filter, ok := catalog.ParseFilter(libraryFilter)
	if !ok {
		return fmt.Errorf("unknown filter: %s (must be all, favorites, new, popular or non_mods)", libraryFilter)
	}
	q.Filter = filter

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.app.SyncCatalog(cmd.Context(), false); err != nil {
		return fmt.Errorf("failed to sync catalog: %w", err)
	}
	games, err := s.app.Library(q)
	if err != nil {
		return err
	}

	if len(games) == 0 {
		fmt.Println("No games found")
		return nil
	}
	total := len(games)
	if libraryLimit > 0 && len(games) > libraryLimit {
		games = games[:libraryLimit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if libraryLong {
		fmt.Fprintln(w, "RANK\tNAME\tPACKAGE\tRELEASE\tVERSION\tSIZE\tUPDATED")
		fmt.Fprintln(w, "----\t----\t-------\t-------\t-------\t----\t-------")
	} else {
		fmt.Fprintln(w, "RANK\tNAME\tPACKAGE\tSIZE")
		fmt.Fprintln(w, "----\t----\t-------\t----")
	}
	for _, g := range games {
		rank := "-"
		if g.PopularityRank > 0 {
			rank = fmt.Sprintf("%d", g.PopularityRank)
		}
		name := g.GameName
		if g.IsNew {
			name += " [new]"
		}
		size := humanize.IBytes(uint64(catalog.SizeMB(g.Size) * 1024 * 1024))
		if libraryLong {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				rank, name, g.PackageName, g.ReleaseName, g.VersionCode, size, g.LastUpdated)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rank, name, g.PackageName, size)
		}
	}
	w.Flush()

	fmt.Printf("\nShowing %d of %d games\n", len(games), total)
	return nil
}
