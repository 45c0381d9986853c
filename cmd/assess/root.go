package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"repoassess/internal/assess"
	"repoassess/internal/types"
	"repoassess/internal/util/jsonutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	pretty  bool
	summary bool
	verbose bool
	workers int
	workdir string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "assess",
		Short: "Deterministic repository assessment",
		Long: `assess scans a repository, detects its projects and technologies, and
prints a deterministic JSON dependency graph with modernization signals.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if !opts.verbose {
				log.SetOutput(io.Discard)
			}
		},
	}
	pf := root.PersistentFlags()
	pf.BoolVar(&opts.pretty, "pretty", false, "indent JSON output")
	pf.BoolVar(&opts.summary, "summary", false, "print a one-line summary to stderr")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	pf.IntVar(&opts.workers, "workers", 0, "concurrent file reads (0 = number of CPUs)")
	pf.StringVar(&opts.workdir, "workdir", filepath.Join(os.TempDir(), "repoassess"), "directory for remote clones")

	root.AddCommand(
		newScanCmd(opts),
		newGraphCmd(opts),
		newRemoteCmd(opts),
		newClassifyCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "assess %s\n", version)
			},
		},
	)
	return root
}

func (o *options) writeJSON(w io.Writer, v any) error {
	var (
		data []byte
		err  error
	)
	if o.pretty {
		data, err = jsonutil.MarshalNoEscapeIndent(v, "", "  ")
	} else {
		data, err = jsonutil.MarshalNoEscape(v)
	}
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// writeResult prints r and, when requested, a summary line on stderr.
func (o *options) writeResult(cmd *cobra.Command, r *types.RepoAssessmentResult) error {
	if err := o.writeJSON(cmd.OutOrStdout(), r); err != nil {
		return err
	}
	if o.summary {
		fmt.Fprintln(cmd.ErrOrStderr(), summaryLine(r))
	}
	return nil
}

func summaryLine(r *types.RepoAssessmentResult) string {
	m := r.Graph.Metrics
	primary := "none"
	if r.Summary.PrimaryLanguage != nil {
		primary = *r.Summary.PrimaryLanguage
	}
	return fmt.Sprintf("%s: %s files, %s lines, %s, %d projects (primary %s, %d eol, %d near eol), %d warnings",
		r.Graph.Metadata.Name,
		humanize.Comma(int64(m.FileCount)),
		humanize.Comma(int64(m.TotalLines)),
		humanize.Bytes(uint64(m.TotalBytes)),
		len(r.Graph.Projects),
		primary,
		r.Summary.EolProjectCount,
		r.Summary.NearEolProjectCount,
		len(r.Warnings),
	)
}

// wrapKind prefixes err with its assessment kind so scripted callers can
// tell usage errors apart from failures.
func wrapKind(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", assess.Kind(err), err)
}
