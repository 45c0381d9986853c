package graph

import (
	"cmp"
	"math"
	"slices"

	"repoassess/internal/types"
)

// Fixed thresholds for size and density flags.
const (
	LargeProjectLines      = 50_000
	LargeProjectFiles      = 1_000
	SmallProjectLines      = 1_000
	HighDensityPerKLoc     = 20.0
	HighDensityMinimumDeps = 10
)

const unspecifiedScope = "unspecified"

func computeMetrics(files []types.RepositoryFileNode) types.ProjectMetrics {
	m := types.ProjectMetrics{Languages: []types.LanguageBreakdown{}}
	byLang := map[string]*types.LanguageBreakdown{}
	for _, f := range files {
		m.FileCount++
		m.TotalBytes += f.SizeBytes
		if f.IsBinary {
			m.BinaryFileCount++
		} else {
			m.TextFileCount++
		}
		lines := 0
		if f.LineCount != nil {
			lines = *f.LineCount
		}
		m.TotalLines += lines
		if f.Language == nil {
			continue
		}
		lb, ok := byLang[*f.Language]
		if !ok {
			lb = &types.LanguageBreakdown{Language: *f.Language}
			byLang[*f.Language] = lb
		}
		lb.FileCount++
		lb.Lines += lines
	}
	for _, lb := range byLang {
		m.Languages = append(m.Languages, *lb)
	}
	slices.SortFunc(m.Languages, func(a, b types.LanguageBreakdown) int {
		return cmp.Or(
			cmp.Compare(b.Lines, a.Lines),
			cmp.Compare(b.FileCount, a.FileCount),
			cmp.Compare(a.Language, b.Language),
		)
	})
	return m
}

func summarizeDependencies(deps []types.ProjectDependency, totalLines int) types.DependencySummary {
	s := types.DependencySummary{Total: len(deps)}
	scopes := map[string]int{}
	ecosystems := map[string]int{}
	for _, d := range deps {
		scope := unspecifiedScope
		if d.Scope != nil {
			scope = *d.Scope
		}
		scopes[scope]++
		ecosystems[d.Ecosystem]++
		switch {
		case d.Version != nil:
			s.ExactVersions++
		case d.VersionSpec != nil:
			s.RangeVersions++
		default:
			s.UnspecifiedVersions++
		}
	}
	s.ByScope = sortedCounts(scopes)
	s.Ecosystems = sortedCounts(ecosystems)
	if totalLines > 0 {
		s.DependenciesPerKLoc = round2(float64(len(deps)) / (float64(totalLines) / 1000))
	}
	return s
}

func sortedCounts(m map[string]int) []types.CountByKey {
	out := make([]types.CountByKey, 0, len(m))
	for k, v := range m {
		out = append(out, types.CountByKey{Key: k, Count: v})
	}
	slices.SortFunc(out, func(a, b types.CountByKey) int { return cmp.Compare(a.Key, b.Key) })
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func isLegacy(m types.ModernizationSignals) bool {
	return m.RuntimeGeneration == types.GenerationLegacyFramework || m.SupportStatus == types.SupportEol
}

func structural(m types.ProjectMetrics, deps types.DependencySummary, mod types.ModernizationSignals, parseErr *string) types.StructuralSignals {
	return types.StructuralSignals{
		IsLegacyRuntime:         isLegacy(mod),
		UsesVersionRanges:       deps.RangeVersions > 0,
		HasNoDependencies:       deps.Total == 0,
		IsHighDependencyDensity: deps.DependenciesPerKLoc > HighDensityPerKLoc && deps.Total >= HighDensityMinimumDeps,
		IsLargeProject:          m.TotalLines >= LargeProjectLines || m.FileCount >= LargeProjectFiles,
		IsSmallProject:          m.TotalLines < SmallProjectLines,
		ManifestParseFailed:     parseErr != nil,
		ManifestParseError:      parseErr,
	}
}

func repositoryStructural(projects []types.RepositoryProjectNode, m types.ProjectMetrics, deps types.DependencySummary) types.RepositoryStructuralSignals {
	out := types.RepositoryStructuralSignals{
		StructuralSignals: structural(m, deps, types.ModernizationSignals{}, nil),
		ProjectCount:      len(projects),
		IsMonorepo:        len(projects) >= 2,
	}
	for _, p := range projects {
		if p.StructuralSignals.IsLegacyRuntime {
			out.LegacyRuntimeProjectCount++
			out.IsLegacyRuntime = true
		}
		if p.StructuralSignals.ManifestParseFailed {
			out.FailedManifestCount++
			out.ManifestParseFailed = true
			if out.ManifestParseError == nil {
				out.ManifestParseError = p.StructuralSignals.ManifestParseError
			}
		}
	}
	return out
}
