// gdbmi-shell launches gdb in MI mode, feeds it the commands given on the
// command line and prints every decoded record as one JSON object per
// line. It exists both as a smoke-test harness and as an example of
// driving the gdbmi package.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/trapito/gdbmi/pkg/gdbmi"
	"github.com/trapito/gdbmi/pkg/logger"
)

const (
	errCommand = 1
	errSetup   = 2
)

func main() {
	log := logger.New("gdbmi-shell")

	root, err := newRootCmd(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errSetup)
	}
	log.AddLevelFlag(root.PersistentFlags())

	err = root.Execute()
	log.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errCommand)
	}
}

type shellOptions struct {
	gdbPath  string
	commands []string
	timeout  time.Duration
	verbose  bool
}

func newRootCmd(log *logger.Logger) (*cobra.Command, error) {
	opts := &shellOptions{}

	rootCmd := &cobra.Command{
		Use:   "gdbmi-shell [flags] [-- gdb-args...]",
		Short: "Runs gdb MI commands and prints decoded records as JSON lines.",
		Long: `Launches gdb with a machine-interface pipe, sends each --cmd in order and
prints every decoded output record as one JSON object per line. With no
--cmd flags, commands are read interactively from stdin, one per line.
Arguments after "--" replace the default gdb argument list.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(log, opts, args)
		},
	}

	rootCmd.Flags().StringVar(&opts.gdbPath, "gdb", "gdb", "gdb executable name or path")
	rootCmd.Flags().StringArrayVar(&opts.commands, "cmd", nil, "MI command to send (repeatable, sent in order)")
	rootCmd.Flags().DurationVar(&opts.timeout, "timeout", gdbmi.DefaultTimeout, "per-command response deadline")
	rootCmd.Flags().BoolVar(&opts.verbose, "verbose", false, "trace written commands and decoded records")

	return rootCmd, nil
}

func runShell(log *logger.Logger, opts *shellOptions, gdbArgs []string) error {
	ctrlOpts := []gdbmi.Option{gdbmi.WithLogger(log.Logger)}
	if opts.verbose {
		ctrlOpts = append(ctrlOpts, gdbmi.WithVerbose())
	}

	var args []string
	if len(gdbArgs) > 0 {
		args = gdbArgs
	}

	ctrl, err := gdbmi.New(opts.gdbPath, args, ctrlOpts...)
	if err != nil {
		return err
	}
	defer func() {
		_ = ctrl.Exit()
	}()
	log.V(1).Info("gdb launched", "command", ctrl.CommandLine())

	if len(opts.commands) > 0 {
		return runCommands(ctrl, opts.commands, opts.timeout)
	}
	return runInteractive(ctrl, opts.timeout)
}

func runCommands(ctrl *gdbmi.Controller, commands []string, timeout time.Duration) error {
	for _, command := range commands {
		if _, err := ctrl.Write(gdbmi.NewCommand(command), &gdbmi.WriteOptions{Timeout: timeout}); err != nil {
			return fmt.Errorf("could not send %q: %w", command, err)
		}
		if err := drainUntilResult(ctrl, timeout); err != nil {
			return fmt.Errorf("no result for %q: %w", command, err)
		}
	}
	return nil
}

// runInteractive reads MI commands from stdin, one per line, until EOF.
// Blank lines are skipped; responses are printed as they arrive.
func runInteractive(ctrl *gdbmi.Controller, timeout time.Duration) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		command := strings.TrimSpace(scanner.Text())
		if command == "" {
			continue
		}
		if _, err := ctrl.Write(gdbmi.NewCommand(command), &gdbmi.WriteOptions{Timeout: timeout}); err != nil {
			return fmt.Errorf("could not send %q: %w", command, err)
		}
		if err := drainUntilResult(ctrl, timeout); err != nil && !errors.Is(err, errNoResultYet) {
			return fmt.Errorf("no result for %q: %w", command, err)
		}
	}
	return scanner.Err()
}

var errNoResultYet = errors.New("no result record yet")

// drainUntilResult polls the controller for output until a result-kind
// record arrives or the deadline budget is spent, printing every record it
// sees. gdb can take a while to answer commands that touch the target, so
// the polls back off exponentially instead of hammering the pipe.
func drainUntilResult(ctrl *gdbmi.Controller, budget time.Duration) error {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(20*time.Millisecond),
		backoff.WithMaxInterval(250*time.Millisecond),
		backoff.WithMaxElapsedTime(budget),
	)

	return backoff.Retry(func() error {
		records, err := ctrl.ReadResponse(&gdbmi.WriteOptions{Timeout: 50 * time.Millisecond})
		if err != nil {
			return backoff.Permanent(err)
		}
		sawResult := false
		for _, rec := range records {
			printRecord(rec)
			if rec.Kind == gdbmi.KindResult {
				sawResult = true
			}
		}
		if !sawResult {
			return errNoResultYet
		}
		return nil
	}, b)
}

func printRecord(rec gdbmi.Record) {
	line, err := json.Marshal(rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not serialize record: %v\n", err)
		return
	}
	fmt.Println(string(line))
}
