package graph

import (
	"cmp"
	"context"
	"errors"
	"path"
	"slices"
	"strings"

	"repoassess/internal/classifier"
	"repoassess/internal/manifest"
	"repoassess/internal/scan"
	"repoassess/internal/types"
	"repoassess/internal/utils"
)

// ignoredDirs hold third-party or generated trees whose manifests are never
// project roots.
var ignoredDirs = map[string]struct{}{
	"node_modules":      {},
	"bower_components":  {},
	"vendor":            {},
	".terraform":        {},
	"obj":               {},
	".venv":             {},
	"venv":              {},
	"site-packages":     {},
	"__pycache__":       {},
	".gradle":           {},
	"jspm_packages":     {},
	".serverless":       {},
	".aws-sam":          {},
	".terragrunt-cache": {},
}

var errUnreadable = errors.New("graph: manifest could not be read")

type buildInput struct {
	repoName string
	nodes    []types.RepositoryFileNode
	raw      map[string][]byte
}

type manifestRef struct {
	path   string
	parser manifest.Parser
	rank   int
}

// draft is a claimed project root before its node is computed.
type draft struct {
	root      string
	primary   manifestRef
	siblings  []manifestRef // same directory, same project type
	absorbed  []manifestRef // nested manifests swallowed by outermost-wins
	filePaths []string
}

// discover picks project roots. Directories are visited shallowest first so
// that a directory nested under an already claimed root is absorbed instead
// of becoming a project of its own.
func (b *Builder) discover(nodes []types.RepositoryFileNode) []*draft {
	byDir := map[string][]manifestRef{}
	for _, n := range nodes {
		if inIgnoredDir(n.RelativePath) {
			continue
		}
		p, rank, ok := b.manifests.ForFile(path.Base(n.RelativePath))
		if !ok {
			continue
		}
		dir := utils.Dir(n.RelativePath)
		byDir[dir] = append(byDir[dir], manifestRef{path: n.RelativePath, parser: p, rank: rank})
	}

	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	slices.SortFunc(dirs, func(a, b string) int {
		return cmp.Or(cmp.Compare(utils.Depth(a), utils.Depth(b)), scan.CompareOrdinalIgnoreCase(a, b))
	})

	claimed := map[string]*draft{}
	var drafts []*draft
	for _, dir := range dirs {
		refs := byDir[dir]
		slices.SortFunc(refs, func(a, b manifestRef) int {
			return cmp.Or(cmp.Compare(a.rank, b.rank), scan.CompareOrdinalIgnoreCase(a.path, b.path))
		})
		if owner := owningDraft(claimed, dir); owner != nil {
			owner.absorbed = append(owner.absorbed, refs...)
			continue
		}
		d := &draft{root: dir, primary: refs[0]}
		for _, r := range refs[1:] {
			if r.parser.ProjectType() == d.primary.parser.ProjectType() {
				d.siblings = append(d.siblings, r)
			}
		}
		claimed[dir] = d
		drafts = append(drafts, d)
	}

	for _, n := range nodes {
		if owner := owningDraft(claimed, utils.Dir(n.RelativePath)); owner != nil {
			owner.filePaths = append(owner.filePaths, n.RelativePath)
		}
	}
	slices.SortFunc(drafts, func(a, b *draft) int { return scan.CompareOrdinalIgnoreCase(a.root, b.root) })
	return drafts
}

func owningDraft(claimed map[string]*draft, dir string) *draft {
	for _, anc := range utils.Ancestors(dir) {
		if d, ok := claimed[anc]; ok {
			return d
		}
	}
	return nil
}

func inIgnoredDir(rel string) bool {
	segs := strings.Split(rel, "/")
	for _, s := range segs[:len(segs)-1] {
		if _, ok := ignoredDirs[strings.ToLower(s)]; ok {
			return true
		}
	}
	return false
}

// projects builds every project node and links files back to it.
func (b *Builder) projects(ctx context.Context, in buildInput) ([]types.RepositoryProjectNode, []types.Warning, error) {
	drafts := b.discover(in.nodes)
	out := make([]types.RepositoryProjectNode, 0, len(drafts))
	var warnings []types.Warning

	nodeByPath := make(map[string]*types.RepositoryFileNode, len(in.nodes))
	for i := range in.nodes {
		nodeByPath[in.nodes[i].RelativePath] = &in.nodes[i]
	}

	for _, d := range drafts {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		node, ws := b.project(d, in, nodeByPath)
		warnings = append(warnings, ws...)
		out = append(out, node)
		for _, fp := range d.filePaths {
			root := d.root
			nodeByPath[fp].ProjectID = &root
		}
	}

	utils.AssignProjectIDs(utils.NewUIDGenerator("project"), out, in.nodes)
	return out, warnings, nil
}

// mergeSet lists the manifests whose dependencies make up a project. A
// solution absorbs the dotnet manifests nested below it.
func (d *draft) mergeSet() []manifestRef {
	set := append([]manifestRef{d.primary}, d.siblings...)
	if strings.EqualFold(path.Ext(d.primary.path), ".sln") {
		for _, r := range d.absorbed {
			if r.parser.ProjectType() == types.ProjectTypeDotNet {
				set = append(set, r)
			}
		}
	}
	return set
}

func (b *Builder) project(d *draft, in buildInput, nodeByPath map[string]*types.RepositoryFileNode) (types.RepositoryProjectNode, []types.Warning) {
	var (
		warnings    []types.Warning
		deps        []types.ProjectDependency
		framework   *string
		name        *string
		entrypoints []string
		isApp       *bool
		isWeb       bool
		parseErr    *string
	)
	for i, ref := range d.mergeSet() {
		data, ok := in.raw[ref.path]
		var res manifest.Result
		var err error
		if !ok {
			err = errUnreadable
		} else {
			res, err = b.manifests.Parse(ref.path, data)
		}
		if err != nil {
			msg := err.Error()
			b.logger.Printf("graph: manifest %s: %v", ref.path, err)
			warnings = append(warnings, types.Warning{Path: ref.path, Kind: types.WarningManifestParse, Message: msg})
			if parseErr == nil {
				parseErr = &msg
			}
			continue
		}
		deps = append(deps, res.Dependencies...)
		if framework == nil {
			framework = res.Framework
		}
		if i == 0 {
			name = res.Name
		}
		entrypoints = append(entrypoints, res.Entrypoints...)
		if res.IsApplication != nil && (isApp == nil || *res.IsApplication) {
			v := *res.IsApplication
			isApp = &v
		}
		isWeb = isWeb || res.IsWeb
	}
	deps = manifest.Normalize(deps)

	pt := d.primary.parser.ProjectType()
	files := make([]types.RepositoryFileNode, 0, len(d.filePaths))
	for _, fp := range d.filePaths {
		files = append(files, *nodeByPath[fp])
	}
	entrypoints = append(entrypoints, entrypointsFor(pt, d.root, d.filePaths)...)
	entrypoints = uniqueSorted(existing(entrypoints, nodeByPath))

	node := types.RepositoryProjectNode{
		Name:         projectName(name, d.root, in.repoName),
		RelativePath: d.root,
		ProjectType:  pt,
		Framework:    framework,
		ManifestPath: d.primary.path,
		FilePaths:    append([]string{}, d.filePaths...),
		Metrics:      computeMetrics(files),
		Dependencies: deps,
	}
	node.DependencySummary = summarizeDependencies(deps, node.Metrics.TotalLines)
	node.ModernizationSignals = b.classifiers.Classify(classifier.Project{
		ID:          d.root,
		ProjectType: pt,
		Framework:   framework,
	})
	node.StructuralSignals = structural(node.Metrics, node.DependencySummary, node.ModernizationSignals, parseErr)
	facts := collectFacts(d.filePaths, d.root, in.raw)
	node.ArchitectureSignals = architecture(facts, deps, isApp, isWeb, entrypoints)
	return node, warnings
}

// projectName prefers the manifest-declared name, then the directory name,
// then the repository name for a root-level project.
func projectName(declared *string, root, repo string) string {
	if declared != nil && strings.TrimSpace(*declared) != "" {
		return strings.TrimSpace(*declared)
	}
	if root == "." {
		return repo
	}
	return path.Base(root)
}

// existing drops declared entrypoints that are not files in the repository.
func existing(paths []string, nodes map[string]*types.RepositoryFileNode) []string {
	out := paths[:0]
	for _, p := range paths {
		if _, ok := nodes[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func uniqueSorted(in []string) []string {
	out := slices.Clone(in)
	scan.SortPaths(out)
	out = slices.Compact(out)
	if out == nil {
		out = []string{}
	}
	return out
}
