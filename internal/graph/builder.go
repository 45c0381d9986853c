// Package graph turns a scanned file list into a RepositoryGraph: file nodes,
// manifest-anchored projects, metrics, signals and modernization posture.
package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"repoassess/internal/classifier"
	"repoassess/internal/manifest"
	"repoassess/internal/scan"
	"repoassess/internal/types"
)

// Builder builds repository graphs. It holds no per-build state and is safe
// for concurrent use.
type Builder struct {
	logger      *log.Logger
	manifests   *manifest.Registry
	classifiers *classifier.Registry
	now         func() time.Time
	workers     int
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger; nil keeps log.Default().
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the time source used for GraphMetadata.GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithWorkers bounds per-file parallelism; <= 0 means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(b *Builder) { b.workers = n }
}

// WithManifestRegistry replaces the default manifest parsers.
func WithManifestRegistry(r *manifest.Registry) Option {
	return func(b *Builder) {
		if r != nil {
			b.manifests = r
		}
	}
}

// WithClassifierRegistry replaces the default runtime classifiers.
func WithClassifierRegistry(r *classifier.Registry) Option {
	return func(b *Builder) {
		if r != nil {
			b.classifiers = r
		}
	}
}

// NewBuilder returns a Builder with default registries.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		logger:      log.Default(),
		manifests:   manifest.NewRegistry(),
		classifiers: classifier.NewRegistry(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers <= 0 {
		b.workers = runtime.NumCPU()
	}
	return b
}

// Build assembles the graph for files scanned under root. Recoverable
// problems (unreadable files, broken manifests) come back as warnings; only
// an invalid root or cancellation fail the build, and then nothing partial is
// returned.
func (b *Builder) Build(ctx context.Context, root string, files []types.ScannedFile) (*types.RepositoryGraph, []types.Warning, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, fmt.Errorf("%w: root path is required", scan.ErrInvalidArgument)
	}
	started := time.Now()

	sorted := slices.Clone(files)
	scan.SortFiles(sorted)

	nodes, err := b.fileNodes(ctx, sorted)
	if err != nil {
		return nil, nil, err
	}
	warnings := make([]types.Warning, 0)
	raw := make(map[string][]byte, len(sorted))
	for _, f := range sorted {
		if f.ReadError != "" {
			warnings = append(warnings, types.Warning{Path: f.RelativePath, Kind: types.WarningFileRead, Message: f.ReadError})
			continue
		}
		raw[f.RelativePath] = rawBytes(f)
	}

	in := buildInput{repoName: repoName(root), nodes: nodes, raw: raw}
	projects, projectWarnings, err := b.projects(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, projectWarnings...)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	allPaths := make([]string, len(nodes))
	for i, n := range nodes {
		allPaths[i] = n.RelativePath
	}
	repoMetrics := computeMetrics(nodes)
	repoDeps := make([]types.ProjectDependency, 0)
	modernization := make([]types.ModernizationSignals, 0, len(projects))
	for _, p := range projects {
		repoDeps = append(repoDeps, p.Dependencies...)
		modernization = append(modernization, p.ModernizationSignals)
	}
	repoSummary := summarizeDependencies(repoDeps, repoMetrics.TotalLines)

	g := &types.RepositoryGraph{
		Metadata: types.GraphMetadata{
			RootPath:       absRoot(root),
			Name:           repoName(root),
			GeneratedAt:    b.now().UTC(),
			RepositoryHash: RepositoryHash(nodes),
			FileCount:      len(nodes),
		},
		Metrics:           repoMetrics,
		Files:             nodes,
		Projects:          projects,
		DependencySummary: repoSummary,
		Modernization:     modernization,
	}
	g.StructuralSignals = repositoryStructural(projects, repoMetrics, repoSummary)
	repoFacts := collectFacts(allPaths, ".", in.raw)
	g.ArchitectureSignals = repositoryArchitecture(projects, repoFacts)
	g.Technologies = detectTechnologies(projects, repoFacts, allPaths)

	sortWarnings(warnings)
	b.logger.Printf("graph: built %s: %d files, %d projects, %d warnings in %s",
		g.Metadata.Name, len(nodes), len(projects), len(warnings), time.Since(started).Round(time.Millisecond))
	return g, warnings, nil
}

// RepositoryHash digests paths and content hashes in file order. It depends
// only on repository content.
func RepositoryHash(nodes []types.RepositoryFileNode) string {
	h := sha256.New()
	for _, n := range nodes {
		h.Write([]byte(n.RelativePath))
		h.Write([]byte{0})
		h.Write([]byte(n.SHA256))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func absRoot(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.ToSlash(root)
	}
	return filepath.ToSlash(abs)
}

func repoName(root string) string {
	base := filepath.Base(absRoot(root))
	if base == "" || base == "." || base == "/" {
		return "repository"
	}
	return base
}

func sortWarnings(ws []types.Warning) {
	slices.SortStableFunc(ws, func(a, b types.Warning) int {
		if c := scan.CompareOrdinalIgnoreCase(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Kind, b.Kind)
	})
}
