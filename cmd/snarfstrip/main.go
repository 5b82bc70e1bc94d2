// Command snarfstrip is a batch driver: it reads a text-ingest file of
// patches, applies them in order to a single weave, and prints the scoured
// text. It is the thin, literal Go rendition of the original's
// snarfstrip.c, upgraded from a two-argument C binary to a small cobra
// command so verbosity and the output destination are ordinary flags
// instead of compile-time constants.
package main

import (
	"errors"
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mbrt/weave/weave"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbose bool
		output  string
	)
	cmd := &cobra.Command{
		Use:           "snarfstrip <file>",
		Short:         "Apply a batch of weave patches and print the scoured text",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], output, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log per-patch application diagnostics")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the scoured text here instead of stdout")
	return cmd
}

func run(path, output string, verbose bool) error {
	logger, err := newLogger(verbose)
	if err != nil {
		return pkgerrors.Wrap(err, "snarfstrip: building logger")
	}
	defer logger.Sync()

	f, err := os.Open(path)
	if err != nil {
		return pkgerrors.Wrapf(err, "snarfstrip: opening %s", path)
	}
	defer f.Close()

	patches, err := ParsePatches(f)
	if err != nil {
		return pkgerrors.Wrap(err, "snarfstrip: parsing patch stream")
	}

	w := weave.New()
	logger.Info("new weave", zap.String("weave_id", w.ID.String()), zap.Int("patches", len(patches)))

	for i, p := range patches {
		logDisposition(logger, i, p.BlockingID(w.Weft))
		if err := w.Apply(p); err != nil {
			if errors.Is(err, weave.ErrDuplicatePatch) {
				continue
			}
			return pkgerrors.Wrapf(err, "snarfstrip: applying patch %d", i)
		}
	}

	return writeOutput(output, w.Scour())
}

func logDisposition(logger *zap.Logger, i int, d weave.Disposition) {
	switch d.Status {
	case weave.Ready:
		logger.Debug("patch ready", zap.Int("patch", i))
	case weave.Blocked:
		logger.Info("patch blocked", zap.Int("patch", i), zap.Stringer("blocking_id", d.BlockingID))
	case weave.Duplicate:
		logger.Info("patch duplicate", zap.Int("patch", i))
	}
}

func writeOutput(path, text string) error {
	if path == "" {
		_, err := fmt.Println(text)
		return err
	}
	return pkgerrors.Wrap(os.WriteFile(path, []byte(text+"\n"), 0o644), "snarfstrip: writing output")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
