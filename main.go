package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/jonjohnsonjr/inflate/internal/gzip"
)

var (
	flagList      bool
	flagProgress  bool
	flagVerbose   bool
	flagOutputDir string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inflate [files...]",
		Short: "decompress gzip files written from scratch against RFC 1951/1952",
		Long: "inflate decodes one or more gzip files using an independent DEFLATE\n" +
			"implementation (not compress/flate). With a single file and no\n" +
			"--output-dir, the decompressed bytes go to stdout; with more than one\n" +
			"file, each is written alongside the input with its .gz suffix removed.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args)
		},
	}
	cmd.Flags().BoolVarP(&flagList, "list", "l", false, "list each member's header instead of decompressing")
	cmd.Flags().BoolVarP(&flagProgress, "progress", "p", false, "display a progress bar per file")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log each file as it is processed")
	cmd.Flags().StringVarP(&flagOutputDir, "output-dir", "o", "", "write decompressed files here instead of beside the input")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	logger := newLogger(flagVerbose)

	if len(args) == 0 {
		return runOne(cmd.Context(), logger, "", os.Stdin, os.Stdout, -1)
	}

	// Sorting gives deterministic, reviewable output order when a shell glob
	// hands us files out of its own listing order.
	names := slices.Clone(args)
	slices.Sort(names)

	if len(names) == 1 && flagOutputDir == "" && !flagList {
		f, err := os.Open(names[0])
		if err != nil {
			return err
		}
		defer f.Close()
		size := fileSize(f)
		return runOne(cmd.Context(), logger, names[0], f, os.Stdout, size)
	}

	if flagList {
		// Listed one at a time so the printed lines follow the sorted order.
		for _, name := range names {
			if err := runNamed(cmd.Context(), logger, name); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	for _, name := range names {
		name := name
		g.Go(func() error {
			return runNamed(ctx, logger, name)
		})
	}
	return g.Wait()
}

func runNamed(ctx context.Context, logger *slog.Logger, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if flagList {
		return listHeader(logger, name, f)
	}

	out, cleanup, err := destFor(name)
	if err != nil {
		return err
	}
	defer cleanup()

	return runOne(ctx, logger, name, f, out, fileSize(f))
}

func destFor(name string) (io.Writer, func() error, error) {
	base := strings.TrimSuffix(filepath.Base(name), ".gz")
	dir := flagOutputDir
	if dir == "" {
		dir = filepath.Dir(name)
	}
	path := filepath.Join(dir, base)
	if path == filepath.Clean(name) {
		return nil, nil, fmt.Errorf("%s: output path would overwrite the input", name)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func listHeader(logger *slog.Logger, name string, r io.Reader) error {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer zr.Close()

	fmt.Printf("%s\tname=%q\tcomment=%q\tmtime=%s\tos=%d\n",
		name, zr.Name, zr.Comment, zr.ModTime, zr.OS)
	logger.Debug("listed header", "file", name)
	return nil
}

func runOne(ctx context.Context, logger *slog.Logger, name string, r io.Reader, w io.Writer, size int64) error {
	logger.Debug("decompressing", "file", name)

	if flagProgress && size > 0 {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetBytes64(size),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetPredictTime(true))
		bar.RenderBlank()
		r = io.TeeReader(r, &progressWriter{bar: bar})
	}

	zr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer zr.Close()

	n, err := io.Copy(w, zr)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Debug("decompressed", "file", name, "bytes", n)
	return nil
}

// progressWriter adapts a progressbar.ProgressBar, which reports progress
// via Add(n), to io.Writer so an io.TeeReader can feed it the compressed
// bytes as they are read from the input.
type progressWriter struct {
	bar *progressbar.ProgressBar
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.bar.Add(len(b))
	return len(b), nil
}

func fileSize(f *os.File) int64 {
	info, err := f.Stat()
	if err != nil {
		return -1
	}
	return info.Size()
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
