package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mol-cyberwhip/veteranVR/internal/queue"
)

var installCmd = &cobra.Command{
	Use:   "install <package-or-release>",
	Short: "Download and install a release",
	Long: `Download a release in resumable chunks, extract it and install it
on the headset.

Press Ctrl-C to pause. Downloaded chunks are kept, so running the same
install again resumes where it stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if _, err := s.app.SyncCatalog(ctx, false); err != nil {
		return fmt.Errorf("failed to sync catalog: %w", err)
	}

	updates, unsubscribe := s.app.Subscribe(64)
	defer unsubscribe()

	op, err := s.app.Enqueue(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to queue install: %w", err)
	}
	fmt.Printf("Installing %s (%s)\n", op.ReleaseName, op.PackageName)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- s.app.Run(runCtx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	final, err := waitForOperation(op.ID, updates, sigChan, s.app, time.Second)
	cancel()
	<-done
	fmt.Println()
	if err != nil {
		return err
	}

	switch final.State {
	case queue.StateCompleted:
		fmt.Printf("Installed %s\n", final.ReleaseName)
		return nil
	case queue.StatePaused:
		fmt.Printf("Paused at %s of %s. Run the same command to resume.\n",
			humanize.IBytes(uint64(final.BytesDone)), humanize.IBytes(uint64(final.BytesTotal)))
		return nil
	default:
		return fmt.Errorf("install %s: %s", final.State, final.Message)
	}
}

type operationControl interface {
	Operation(id string) (queue.Operation, error)
	Pause(id string) error
}

// waitForOperation prints progress for id until it ends or pauses. A signal
// pauses the download first, or stops waiting when the operation is not
// downloading. Snapshots dropped by a full subscriber are caught by polling.
func waitForOperation(id string, updates <-chan queue.Operation, sigChan <-chan os.Signal, ctl operationControl, poll time.Duration) (queue.Operation, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var last queue.Operation
	settled := func(op queue.Operation) bool {
		return op.Terminal() || (op.State == queue.StatePaused && op.Message != "Pause requested")
	}
	for {
		select {
		case op, ok := <-updates:
			if !ok {
				return last, fmt.Errorf("update stream closed")
			}
			if op.ID != id {
				continue
			}
			last = op
			printProgress(op)
			if settled(op) {
				return op, nil
			}
		case <-ticker.C:
			op, err := ctl.Operation(id)
			if err != nil {
				return last, err
			}
			if op.StateVersion > last.StateVersion {
				last = op
				printProgress(op)
			}
			if settled(op) {
				return op, nil
			}
		case <-sigChan:
			if last.State != queue.StateDownloading {
				return last, fmt.Errorf("interrupted while %s", last.State)
			}
			fmt.Fprintln(os.Stderr, "\nPausing...")
			if err := ctl.Pause(id); err != nil {
				return last, err
			}
		}
	}
}

func printProgress(op queue.Operation) {
	switch op.State {
	case queue.StateDownloading:
		eta := "-"
		if op.EtaSeconds > 0 {
			eta = fmt.Sprintf("%ds", op.EtaSeconds)
		}
		fmt.Printf("\r%-11s %5.1f%%  %s / %s  %s/s  eta %s   ",
			op.State, op.ProgressPercent,
			humanize.IBytes(uint64(op.BytesDone)), humanize.IBytes(uint64(op.BytesTotal)),
			humanize.IBytes(uint64(op.SpeedBps)), eta)
	default:
		fmt.Printf("\r%-11s %5.1f%%  %-40s", op.State, op.ProgressPercent, op.Message)
	}
}
