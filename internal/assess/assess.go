// Package assess ties scanning, graph building, cloning and persistence into
// the repository assessment operations.
package assess

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"repoassess/internal/clone"
	"repoassess/internal/graph"
	"repoassess/internal/jobs"
	"repoassess/internal/scan"
	"repoassess/internal/store"
	"repoassess/internal/types"
	"repoassess/internal/util/jsonutil"
)

const (
	DefaultCacheSize = 128
	DefaultCacheTTL  = 15 * time.Minute
)

// Cloner is the subset of clone.Cloner the service needs.
type Cloner interface {
	Clone(ctx context.Context, remoteURL, branch string) (clone.Result, error)
	ResolveRef(ctx context.Context, remoteURL, branch string) (string, error)
	Remove(path string) error
}

// Service runs assessments. It is safe for concurrent use.
type Service struct {
	scanner *scan.Scanner
	builder *graph.Builder
	cloner  Cloner
	store   store.Store
	cache   *expirable.LRU[string, *types.RepoAssessmentResult]
	workers int
	logger  *log.Logger
}

type Option func(*Service)

func WithCloner(c Cloner) Option { return func(s *Service) { s.cloner = c } }

// WithStore persists every successful result keyed by repository hash.
func WithStore(st store.Store) Option { return func(s *Service) { s.store = st } }

func WithBuilder(b *graph.Builder) Option {
	return func(s *Service) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithWorkers bounds scan read parallelism; <= 0 means runtime.NumCPU().
func WithWorkers(n int) Option { return func(s *Service) { s.workers = n } }

// WithCache sizes the remote result cache. size <= 0 disables it.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		if size <= 0 {
			s.cache = nil
			return
		}
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		s.cache = expirable.NewLRU[string, *types.RepoAssessmentResult](size, nil, ttl)
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(opts ...Option) *Service {
	s := &Service{
		cache:  expirable.NewLRU[string, *types.RepoAssessmentResult](DefaultCacheSize, nil, DefaultCacheTTL),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scanner = scan.New(s.logger)
	if s.builder == nil {
		s.builder = graph.NewBuilder(graph.WithLogger(s.logger), graph.WithWorkers(s.workers))
	}
	return s
}

// AssessLocal scans rootPath and builds its assessment.
func (s *Service) AssessLocal(ctx context.Context, rootPath string) (*types.RepoAssessmentResult, error) {
	return s.assess(ctx, rootPath, nil)
}

// AssessRemote clones remoteURL at branch and assesses the checkout. Results
// are cached per remote commit, so re-assessing an unchanged branch skips the
// clone entirely.
func (s *Service) AssessRemote(ctx context.Context, remoteURL, branch string) (*types.RepoAssessmentResult, error) {
	if s.cloner == nil {
		return nil, errors.New("assess: remote assessment is not configured")
	}
	remote, name, err := clone.Normalize(remoteURL)
	if err != nil {
		return nil, err
	}

	sha, err := s.cloner.ResolveRef(ctx, remote, branch)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Some servers refuse ls-remote but still allow cloning.
		s.logger.Printf("assess: resolve %s: %v", remote, err)
	} else if cached, ok := s.cacheGet(remote, sha); ok {
		s.logger.Printf("assess: cache hit %s@%s", remote, sha)
		return cached, nil
	}

	report(ctx, "cloning "+remote)
	res, err := s.cloner.Clone(ctx, remote, branch)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.cloner.Remove(res.LocalPath); err != nil {
			s.logger.Printf("assess: cleanup %s: %v", res.LocalPath, err)
		}
	}()

	result, err := s.assess(ctx, res.LocalPath, func(m *types.GraphMetadata) {
		// The checkout directory is random; identify the graph by its remote.
		m.RootPath = remote
		m.Name = name
		m.RemoteURL = &remote
		commit := res.CommitSHA
		m.CommitSHA = &commit
	})
	if err != nil {
		return nil, err
	}
	s.cacheAdd(remote, res.CommitSHA, result)
	return result, nil
}

func (s *Service) assess(ctx context.Context, root string, annotate func(*types.GraphMetadata)) (*types.RepoAssessmentResult, error) {
	report(ctx, "scanning")
	files, err := s.scanner.Scan(ctx, root, scan.Options{Workers: s.workers})
	if err != nil {
		return nil, err
	}
	report(ctx, fmt.Sprintf("building graph for %d files", len(files)))
	g, warnings, err := s.builder.Build(ctx, root, files)
	if err != nil {
		return nil, err
	}
	if annotate != nil {
		annotate(&g.Metadata)
	}
	result := &types.RepoAssessmentResult{
		Graph:    g,
		Summary:  Summarize(g),
		Warnings: warnings,
	}
	s.persist(ctx, result)
	return result, nil
}

// persist failures are logged, never returned.
func (s *Service) persist(ctx context.Context, r *types.RepoAssessmentResult) {
	if s.store == nil {
		return
	}
	data, err := jsonutil.MarshalNoEscape(r)
	if err != nil {
		s.logger.Printf("assess: encode %s: %v", r.Graph.Metadata.RepositoryHash, err)
		return
	}
	if err := s.store.Put(ctx, r.Graph.Metadata.RepositoryHash, data); err != nil {
		s.logger.Printf("assess: persist %s: %v", r.Graph.Metadata.RepositoryHash, err)
	}
}

func cacheKey(remote, sha string) string {
	return strings.ToLower(remote) + "@" + sha
}

func (s *Service) cacheGet(remote, sha string) (*types.RepoAssessmentResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(cacheKey(remote, sha))
}

func (s *Service) cacheAdd(remote, sha string, r *types.RepoAssessmentResult) {
	if s.cache == nil {
		return
	}
	s.cache.Add(cacheKey(remote, sha), r)
}

// RunJob adapts the service to jobs.RunFunc: a request with a URL is assessed
// remotely, otherwise its Path is assessed locally.
func (s *Service) RunJob(ctx context.Context, req jobs.Request, progress func(msg string)) (*types.RepoAssessmentResult, error) {
	ctx = WithProgress(ctx, progress)
	if strings.TrimSpace(req.URL) != "" {
		return s.AssessRemote(ctx, req.URL, req.Branch)
	}
	return s.AssessLocal(ctx, req.Path)
}
