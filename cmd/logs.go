package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	logsOperation string
	logsLimit     int
	logsJSON      bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the operation log",
	Long:  `Show the newest operation log entries, optionally for a single operation.`,
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().StringVarP(&logsOperation, "operation", "o", "", "Only show entries for this operation id")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 100, "Maximum number of entries (0 for all)")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "Print entries as JSON")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	entries := s.app.Logs(logsOperation, logsLimit)

	if logsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No log entries")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tLEVEL\tOPERATION\tSTAGE\tMESSAGE")
	fmt.Fprintln(w, "----\t-----\t---------\t-----\t-------")
	for _, e := range entries {
		msg := e.Message
		if e.Details != "" {
			msg += ": " + e.Details
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Time().Format("2006-01-02 15:04:05"), e.Level, e.OperationID, e.Stage, msg)
	}
	w.Flush()
	return nil
}
