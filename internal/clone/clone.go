// Package clone fetches remote git repositories into a scratch work directory.
package clone

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Runner executes git with args inside dir and returns combined output.
type Runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// ExecRunner runs the git binary found on PATH.
func ExecRunner(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	return cmd.CombinedOutput()
}

// OperationError reports a failed git invocation. Output holds whatever git
// printed before failing.
type OperationError struct {
	Op     string
	Output string
	Err    error
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("clone: %s: %v", e.Op, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *OperationError) Unwrap() error { return e.Err }

var (
	// ErrInvalidURL is returned for empty or unsupported remote URLs.
	ErrInvalidURL = errors.New("clone: invalid remote url")
	// ErrOutsideWorkdir is returned by Remove for paths it did not create.
	ErrOutsideWorkdir = errors.New("clone: path is outside the work directory")

	errBadSHA = errors.New("unexpected commit sha")
	shaRe     = regexp.MustCompile(`^[0-9a-f]{40}([0-9a-f]{24})?$`)
)

// Result locates a finished clone.
type Result struct {
	LocalPath string
	CommitSHA string
}

// Cloner clones into subdirectories of Workdir.
type Cloner struct {
	workdir string
	run     Runner
	logger  *log.Logger
}

// Option configures a Cloner.
type Option func(*Cloner)

// WithRunner replaces the git invocation, mainly for tests.
func WithRunner(r Runner) Option {
	return func(c *Cloner) {
		if r != nil {
			c.run = r
		}
	}
}

// WithLogger sets the logger; nil keeps log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Cloner) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Cloner rooted at workdir. An empty workdir means
// os.TempDir()/repoassess.
func New(workdir string, opts ...Option) *Cloner {
	if strings.TrimSpace(workdir) == "" {
		workdir = filepath.Join(os.TempDir(), "repoassess")
	}
	if abs, err := filepath.Abs(workdir); err == nil {
		workdir = abs
	}
	c := &Cloner{workdir: filepath.Clean(workdir), run: ExecRunner, logger: log.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Workdir returns the absolute directory clones are created in.
func (c *Cloner) Workdir() string { return c.workdir }

// Clone makes a shallow clone of remoteURL (optionally a single branch) and
// reports the checked-out commit. On failure the partial clone is removed.
func (c *Cloner) Clone(ctx context.Context, remoteURL, branch string) (Result, error) {
	cloneURL, name, err := Normalize(remoteURL)
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(c.workdir, 0o755); err != nil {
		return Result{}, fmt.Errorf("clone: mkdir workdir: %w", err)
	}
	target := filepath.Join(c.workdir, name+"-"+uuid.NewString()[:8])

	args := []string{"clone", "--depth", "1"}
	if b := strings.TrimSpace(branch); b != "" {
		args = append(args, "--branch", b, "--single-branch")
	}
	args = append(args, "--", cloneURL, target)
	if _, err := c.git(ctx, "clone", c.workdir, args...); err != nil {
		_ = os.RemoveAll(target)
		return Result{}, err
	}

	out, err := c.git(ctx, "rev-parse", target, "rev-parse", "HEAD")
	if err != nil {
		_ = os.RemoveAll(target)
		return Result{}, err
	}
	sha := strings.TrimSpace(string(out))
	if !shaRe.MatchString(sha) {
		_ = os.RemoveAll(target)
		return Result{}, &OperationError{Op: "rev-parse", Output: string(out), Err: errBadSHA}
	}
	c.logger.Printf("clone: %s@%s -> %s", cloneURL, sha[:12], target)
	return Result{LocalPath: target, CommitSHA: sha}, nil
}

// ResolveRef asks the remote which commit branch (or HEAD when empty) points
// at, without fetching objects.
func (c *Cloner) ResolveRef(ctx context.Context, remoteURL, branch string) (string, error) {
	cloneURL, _, err := Normalize(remoteURL)
	if err != nil {
		return "", err
	}
	ref := "HEAD"
	if b := strings.TrimSpace(branch); b != "" {
		ref = "refs/heads/" + b
	}
	out, err := c.git(ctx, "ls-remote", "", "ls-remote", "--", cloneURL, ref)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == ref && shaRe.MatchString(fields[0]) {
			return fields[0], nil
		}
	}
	return "", &OperationError{Op: "ls-remote", Output: string(out), Err: fmt.Errorf("ref %s not found", ref)}
}

// Remove deletes a clone directory. Only direct children of the work
// directory are accepted.
func (c *Cloner) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("clone: remove %s: %w", path, err)
	}
	if filepath.Dir(abs) != c.workdir {
		return fmt.Errorf("%w: %s", ErrOutsideWorkdir, path)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("clone: remove %s: %w", path, err)
	}
	return nil
}

func (c *Cloner) git(ctx context.Context, op, dir string, args ...string) ([]byte, error) {
	out, err := c.run(ctx, dir, args...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &OperationError{Op: op, Output: string(out), Err: ctxErr}
	}
	if err != nil {
		return nil, &OperationError{Op: op, Output: string(out), Err: err}
	}
	return out, nil
}
