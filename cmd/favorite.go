package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var favoriteCmd = &cobra.Command{
	Use:   "favorite",
	Short: "Manage favorite packages",
	RunE:  runFavoriteList,
}

var favoriteAddCmd = &cobra.Command{
	Use:   "add <package>...",
	Short: "Add packages to favorites",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFavoriteAdd,
}

var favoriteRemoveCmd = &cobra.Command{
	Use:     "remove <package>...",
	Aliases: []string{"rm"},
	Short:   "Remove packages from favorites",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runFavoriteRemove,
}

func init() {
	favoriteCmd.AddCommand(favoriteAddCmd)
	favoriteCmd.AddCommand(favoriteRemoveCmd)
	rootCmd.AddCommand(favoriteCmd)
}

func runFavoriteList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	favorites := s.app.Favorites()
	if len(favorites) == 0 {
		fmt.Println("No favorites")
		return nil
	}
	for _, f := range favorites {
		fmt.Printf("  %s (added %s)\n", f.PackageName, humanize.Time(f.AddedAt))
	}
	return nil
}

func runFavoriteAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, pkg := range args {
		added, err := s.app.AddFavorite(pkg)
		if err != nil {
			return fmt.Errorf("failed to save favorites: %w", err)
		}
		if added {
			fmt.Printf("Added %s\n", pkg)
		} else {
			fmt.Printf("%s is already a favorite\n", pkg)
		}
	}
	return nil
}

func runFavoriteRemove(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, pkg := range args {
		removed, err := s.app.RemoveFavorite(pkg)
		if err != nil {
			return fmt.Errorf("failed to save favorites: %w", err)
		}
		if removed {
			fmt.Printf("Removed %s\n", pkg)
		} else {
			fmt.Printf("%s is not a favorite\n", pkg)
		}
	}
	return nil
}
