package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"repoassess/internal/safeio"
	"repoassess/internal/types"
)

// VCSDir is the metadata directory that is never descended into.
const VCSDir = ".git"

var (
	// ErrInvalidArgument is returned for an empty or whitespace root path.
	ErrInvalidArgument = errors.New("scan: invalid argument")
	// ErrNotFound is returned when the root path is not an existing directory.
	ErrNotFound = errors.New("scan: directory not found")
)

// ProgressFunc is invoked after each file is read with the number of files
// read so far and the total number of files to read.
type ProgressFunc func(done, total int)

// Options tune a scan.
type Options struct {
	// IncludeContent populates ScannedFile.Content for text files.
	IncludeContent bool
	// Workers bounds concurrent file reads; <= 0 means runtime.NumCPU().
	Workers int
	// Progress is optional and may be called from multiple goroutines.
	Progress ProgressFunc
}

// Scanner walks a directory tree and reads every regular file in it.
type Scanner struct {
	logger *log.Logger
}

// New returns a Scanner. A nil logger falls back to log.Default().
func New(logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{logger: logger}
}

// Scan is shorthand for New(nil).Scan with only IncludeContent set.
func Scan(ctx context.Context, root string, includeContent bool) ([]types.ScannedFile, error) {
	return New(nil).Scan(ctx, root, Options{IncludeContent: includeContent})
}

// Scan returns every regular file under root, skipping .git at traversal time,
// ordered ascending by relative path (ordinal, case-insensitive). An empty
// directory yields an empty, non-nil slice. Unreadable files are reported in
// ScannedFile.ReadError rather than failing the scan; cancellation fails it.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) ([]types.ScannedFile, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: root path is required", ErrInvalidArgument)
	}
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
		}
		return nil, fmt.Errorf("scan: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, root)
	}
	fsys, err := safeio.NewSafeFS(root)
	if err != nil {
		return nil, fmt.Errorf("scan: bind root: %w", err)
	}

	paths, err := s.collect(ctx, fsys)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make([]types.ScannedFile, len(paths))
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.readFile(fsys, rel, opts.IncludeContent)
			if opts.Progress != nil {
				opts.Progress(int(done.Add(1)), len(paths))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	SortFiles(out)
	return out, nil
}

// collect lists regular files under the root. Directories or files named .git
// are pruned here so the walk never enters VCS metadata.
func (s *Scanner) collect(ctx context.Context, fsys *safeio.SafeFS) ([]string, error) {
	paths := make([]string, 0, 256)
	err := fsys.WalkDir(func(rel string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if rel == "." {
				return walkErr
			}
			// Unreadable subtrees are reported and skipped.
			s.logger.Printf("scan: walk %s: %v", rel, walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if rel == "." {
			return nil
		}
		if d.Name() == VCSDir {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("scan: walk %s: %w", fsys.Root(), err)
	}
	return paths, nil
}

func (s *Scanner) readFile(fsys *safeio.SafeFS, rel string, includeContent bool) types.ScannedFile {
	data, err := fsys.SafeReadFile(rel)
	if err != nil {
		s.logger.Printf("scan: read %s: %v", rel, err)
		return types.ScannedFile{
			RelativePath: rel,
			IsText:       false,
			ReadError:    err.Error(),
			Raw:          []byte{},
		}
	}
	f := types.ScannedFile{
		RelativePath: rel,
		IsText:       !IsBinary(rel, data),
		SizeBytes:    int64(len(data)),
		Raw:          data,
	}
	if includeContent && f.IsText {
		text := string(data)
		f.Content = &text
	}
	return f
}
