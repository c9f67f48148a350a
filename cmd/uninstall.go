package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mol-cyberwhip/veteranVR/internal/installer"
)

var (
	uninstallKeepObb  bool
	uninstallKeepData bool
	forceUninstall    bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <package>",
	Short: "Uninstall a package from the headset",
	Long: `Uninstall a package and remove its OBB and data folders.
Use --keep-obb or --keep-data to leave those folders in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallKeepObb, "keep-obb", false, "Keep /sdcard/Android/obb/<package>")
	uninstallCmd.Flags().BoolVar(&uninstallKeepData, "keep-data", false, "Keep /sdcard/Android/data/<package>")
	uninstallCmd.Flags().BoolVarP(&forceUninstall, "force", "f", false, "Uninstall without confirmation")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	pkg := args[0]
	if !installer.ValidPackageName(pkg) {
		return fmt.Errorf("invalid package name: %s", pkg)
	}

	if !forceUninstall {
		fmt.Printf("Uninstall %s", pkg)
		if !uninstallKeepObb || !uninstallKeepData {
			fmt.Print(" and remove its")
			if !uninstallKeepObb {
				fmt.Print(" OBB")
			}
			if !uninstallKeepData {
				fmt.Print(" data")
			}
			fmt.Print(" files")
		}
		fmt.Print("? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Uninstall cancelled")
			return nil
		}
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.app.Uninstall(cmd.Context(), pkg, installer.UninstallOptions{
		KeepObb:  uninstallKeepObb,
		KeepData: uninstallKeepData,
	})
	if err != nil {
		return fmt.Errorf("failed to uninstall %s (see logs for %s): %w", pkg, id, err)
	}

	fmt.Printf("Uninstalled %s\n", pkg)
	return nil
}
