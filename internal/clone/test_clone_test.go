package clone

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSHA = "0123456789abcdef0123456789abcdef01234567"

type call struct {
	dir  string
	args []string
}

// fakeGit records invocations and simulates clone/rev-parse/ls-remote.
type fakeGit struct {
	calls   []call
	failOn  string
	output  string
	revSHA  string
	remotes string
}

func (f *fakeGit) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{dir: dir, args: args})
	if args[0] == f.failOn {
		return []byte(f.output), errors.New("exit status 128")
	}
	switch args[0] {
	case "clone":
		target := args[len(args)-1]
		if err := os.MkdirAll(filepath.Join(target, ".git"), 0o755); err != nil {
			return nil, err
		}
		return []byte("Cloning into...\n"), nil
	case "rev-parse":
		return []byte(f.revSHA + "\n"), nil
	case "ls-remote":
		return []byte(f.remotes), nil
	}
	return nil, nil
}

func newTestCloner(t *testing.T, f *fakeGit) *Cloner {
	t.Helper()
	return New(t.TempDir(), WithRunner(f.run), WithLogger(log.New(io.Discard, "", 0)))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		name string
		ok   bool
	}{
		{"https://github.com/acme/widgets.git", "widgets", true},
		{"  https://gitlab.com/group/sub/tool  ", "tool", true},
		{"ssh://git@host:2222/acme/svc.git", "svc", true},
		{"git@github.com:acme/api.git", "api", true},
		{"file:///srv/repos/local", "local", true},
		{"git://example.org/x", "x", true},
		{"", "", false},
		{"   ", "", false},
		{"ftp://example.org/x", "", false},
		{"https:///nohost", "", false},
		{"https://github.com/", "", false},
		{"--upload-pack=evil", "", false},
		{"not a url", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			remote, name, err := Normalize(tt.raw)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.raw), remote)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestClone_Success(t *testing.T) {
	f := &fakeGit{revSHA: testSHA}
	c := newTestCloner(t, f)

	res, err := c.Clone(context.Background(), "https://github.com/acme/widgets.git", "main")
	require.NoError(t, err)
	assert.Equal(t, testSHA, res.CommitSHA)
	assert.Equal(t, c.Workdir(), filepath.Dir(res.LocalPath))
	assert.True(t, strings.HasPrefix(filepath.Base(res.LocalPath), "widgets-"))
	assert.DirExists(t, res.LocalPath)

	require.Len(t, f.calls, 2)
	assert.Equal(t, []string{"clone", "--depth", "1", "--branch", "main", "--single-branch", "--", "https://github.com/acme/widgets.git", res.LocalPath}, f.calls[0].args)
	assert.Equal(t, res.LocalPath, f.calls[1].dir)
	assert.Equal(t, []string{"rev-parse", "HEAD"}, f.calls[1].args)
}

func TestClone_DistinctDirectories(t *testing.T) {
	f := &fakeGit{revSHA: testSHA}
	c := newTestCloner(t, f)
	a, err := c.Clone(context.Background(), "https://example.org/r", "")
	require.NoError(t, err)
	b, err := c.Clone(context.Background(), "https://example.org/r", "")
	require.NoError(t, err)
	assert.NotEqual(t, a.LocalPath, b.LocalPath)
	assert.NotContains(t, f.calls[0].args, "--branch")
}

func TestClone_FailureCarriesOutput(t *testing.T) {
	f := &fakeGit{failOn: "clone", output: "fatal: repository 'https://example.org/missing/' not found"}
	c := newTestCloner(t, f)

	_, err := c.Clone(context.Background(), "https://example.org/missing", "")
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "clone", opErr.Op)
	assert.Contains(t, err.Error(), "repository 'https://example.org/missing/' not found")

	entries, rerr := os.ReadDir(c.Workdir())
	require.NoError(t, rerr)
	assert.Empty(t, entries)
}

func TestClone_InvalidSHARemovesClone(t *testing.T) {
	f := &fakeGit{revSHA: "not-a-sha"}
	c := newTestCloner(t, f)

	_, err := c.Clone(context.Background(), "https://example.org/r", "")
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "rev-parse", opErr.Op)
	entries, _ := os.ReadDir(c.Workdir())
	assert.Empty(t, entries)
}

func TestClone_InvalidURLNeverRunsGit(t *testing.T) {
	f := &fakeGit{}
	c := newTestCloner(t, f)
	_, err := c.Clone(context.Background(), " ", "")
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.Empty(t, f.calls)
}

func TestClone_Canceled(t *testing.T) {
	f := &fakeGit{revSHA: testSHA}
	c := newTestCloner(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Clone(ctx, "https://example.org/r", "")
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveRef(t *testing.T) {
	other := strings.Repeat("f", 40)
	f := &fakeGit{remotes: other + "\trefs/heads/mainline\n" + testSHA + "\trefs/heads/main\n"}
	c := newTestCloner(t, f)

	sha, err := c.ResolveRef(context.Background(), "https://example.org/r", "main")
	require.NoError(t, err)
	assert.Equal(t, testSHA, sha)
	assert.Equal(t, []string{"ls-remote", "--", "https://example.org/r", "refs/heads/main"}, f.calls[0].args)

	f.remotes = testSHA + "\tHEAD\n"
	sha, err = c.ResolveRef(context.Background(), "https://example.org/r", "")
	require.NoError(t, err)
	assert.Equal(t, testSHA, sha)
}

func TestResolveRef_Missing(t *testing.T) {
	f := &fakeGit{remotes: ""}
	c := newTestCloner(t, f)
	_, err := c.ResolveRef(context.Background(), "https://example.org/r", "nope")
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "ls-remote", opErr.Op)
}

func TestRemove(t *testing.T) {
	f := &fakeGit{revSHA: testSHA}
	c := newTestCloner(t, f)
	res, err := c.Clone(context.Background(), "https://example.org/r", "")
	require.NoError(t, err)

	require.NoError(t, c.Remove(res.LocalPath))
	assert.NoDirExists(t, res.LocalPath)

	outside := t.TempDir()
	assert.ErrorIs(t, c.Remove(outside), ErrOutsideWorkdir)
	assert.DirExists(t, outside)
	assert.ErrorIs(t, c.Remove(c.Workdir()), ErrOutsideWorkdir)
}

func TestClone_RealGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	src := t.TempDir()
	gitIn := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-c", "user.name=test", "-c", "user.email=test@example.com"}, args...)...)
		cmd.Dir = src
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	require.NoError(t, os.WriteFile(filepath.Join(src, "README.md"), []byte("hello\n"), 0o644))
	gitIn("init", "-q")
	gitIn("add", ".")
	gitIn("commit", "-q", "-m", "init")

	c := New(t.TempDir(), WithLogger(log.New(io.Discard, "", 0)))
	url := "file://" + filepath.ToSlash(src)
	sha, err := c.ResolveRef(context.Background(), url, "")
	require.NoError(t, err)

	res, err := c.Clone(context.Background(), url, "")
	require.NoError(t, err)
	assert.Equal(t, sha, res.CommitSHA)
	assert.FileExists(t, filepath.Join(res.LocalPath, "README.md"))
	require.NoError(t, c.Remove(res.LocalPath))
}
