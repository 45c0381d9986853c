package main

import (
	"strings"

	"github.com/spf13/cobra"

	"repoassess/internal/assess"
	"repoassess/internal/classifier"
	"repoassess/internal/clone"
	"repoassess/internal/scan"
	"repoassess/internal/types"
)

func newScanCmd(opts *options) *cobra.Command {
	var content bool
	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "List every file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := scan.New(nil).Scan(cmd.Context(), args[0], scan.Options{
				IncludeContent: content,
				Workers:        opts.workers,
			})
			if err != nil {
				return wrapKind(err)
			}
			return opts.writeJSON(cmd.OutOrStdout(), files)
		},
	}
	cmd.Flags().BoolVar(&content, "content", false, "include text file contents")
	return cmd
}

func newGraphCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "graph <path>",
		Short: "Assess a local repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := assess.New(assess.WithWorkers(opts.workers), assess.WithCache(0, 0))
			r, err := svc.AssessLocal(cmd.Context(), args[0])
			if err != nil {
				return wrapKind(err)
			}
			return opts.writeResult(cmd, r)
		},
	}
}

func newRemoteCmd(opts *options) *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "remote <url>",
		Short: "Clone and assess a remote repository",
		Example: `  assess remote https://github.com/go-chi/chi
  assess remote git@github.com:go-chi/chi.git --branch master --summary`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := assess.New(
				assess.WithCloner(clone.New(opts.workdir)),
				assess.WithWorkers(opts.workers),
				assess.WithCache(0, 0),
			)
			r, err := svc.AssessRemote(cmd.Context(), args[0], branch)
			if err != nil {
				return wrapKind(err)
			}
			return opts.writeResult(cmd, r)
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "branch to clone (default: remote HEAD)")
	return cmd
}

func newClassifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <project-type> [framework]",
		Short: "Print modernization signals for a project type and framework token",
		Example: `  assess classify dotnet net48
  assess classify node 18.17.0`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := classifier.Project{
				ID:          "cli",
				ProjectType: types.ProjectType(strings.ToLower(strings.TrimSpace(args[0]))),
			}
			if len(args) == 2 {
				fw := args[1]
				p.Framework = &fw
			}
			return opts.writeJSON(cmd.OutOrStdout(), classifier.NewRegistry().Classify(p))
		},
	}
}
