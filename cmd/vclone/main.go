package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwaldron/vclone/internal/config"
	"github.com/mwaldron/vclone/internal/engine"
	"github.com/mwaldron/vclone/internal/event"
	"github.com/mwaldron/vclone/internal/stats"
	"github.com/mwaldron/vclone/internal/ui"
)

var version = "dev"

// Exit codes: 1 for transfer failures, 2 for validation failures, 3 for a
// verification mismatch on an otherwise-complete copy.
const (
	exitOK = iota
	exitFailed
	exitInvalid
	exitVerifyMismatch
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		overwrite   bool
		noSnapshot  bool
		bufferSpec  string
		verify      bool
		quiet       bool
		verbose     bool
		showVersion bool
	)

	rc := exitOK
	root := &cobra.Command{
		Use:   "vclone SOURCE DEST",
		Short: "clone a file by raw extent reads from its volume",
		Long: `vclone duplicates a single file byte-for-byte by walking its extent map
and reading the underlying volume at cluster level, bypassing the normal
file-read path. On platforms with a snapshot service the source volume is
frozen for the duration, so locked or in-use files copy consistently.
Sparse regions are carried over as zero-cost holes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Printf("vclone %s\n", version)
				return nil
			}
			if len(args) != 2 {
				rc = exitInvalid
				return fmt.Errorf("expected SOURCE and DEST, got %d arguments", len(args))
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			// Config file supplies defaults for flags the user didn't set.
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("config file ignored", "path", config.Path(), "error", err)
			}
			if !cmd.Flags().Changed("buffer") && cfg.Defaults.Buffer != nil {
				bufferSpec = *cfg.Defaults.Buffer
			}
			if !cmd.Flags().Changed("verify") && cfg.Defaults.Verify != nil {
				verify = *cfg.Defaults.Verify
			}
			if !cmd.Flags().Changed("no-snapshot") && cfg.Defaults.Snapshot != nil {
				noSnapshot = !*cfg.Defaults.Snapshot
			}
			if !cmd.Flags().Changed("quiet") && cfg.Defaults.Quiet != nil {
				quiet = *cfg.Defaults.Quiet
			}

			bufferSize, err := config.ParseSize(bufferSpec)
			if err != nil {
				rc = exitInvalid
				return fmt.Errorf("--buffer: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)
			presenter := &ui.Presenter{W: os.Stderr, Stats: collector, Quiet: quiet}

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				presenter.Run(events)
			}()

			sum, err := engine.Copy(ctx, args[0], args[1], engine.Options{
				Overwrite:   overwrite,
				UseSnapshot: !noSnapshot,
				BufferSize:  bufferSize,
				Verify:      verify,
				Events:      events,
				Stats:       collector,
			})

			close(events)
			wg.Wait()

			if sum.TeardownErr != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", sum.TeardownErr)
			}
			if err != nil {
				rc = exitFor(err)
				return err
			}
			if !quiet {
				fmt.Fprintln(os.Stderr, presenter.Summary())
			}
			return nil
		},
	}

	flags := root.Flags()
	flags.BoolVarP(&overwrite, "overwrite", "f", false, "replace the destination if it exists")
	flags.BoolVar(&noSnapshot, "no-snapshot", false, "read the live volume instead of a snapshot")
	flags.StringVarP(&bufferSpec, "buffer", "b", "64K", "read buffer size (multiple of the sector size)")
	flags.BoolVar(&verify, "verify", false, "compare destination and source digests afterwards")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vclone: %v\n", err)
		if rc == exitOK {
			rc = exitFailed
		}
	}
	return rc
}

func exitFor(err error) int {
	var verr *engine.ValidationError
	if errors.As(err, &verr) {
		return exitInvalid
	}
	var merr *engine.VerifyError
	if errors.As(err, &merr) {
		return exitVerifyMismatch
	}
	return exitFailed
}
