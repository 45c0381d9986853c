package assess

import "repoassess/internal/types"

// Summarize derives the coarse rollup from the graph alone.
func Summarize(g *types.RepositoryGraph) types.AssessmentSummary {
	s := types.AssessmentSummary{ProjectTypes: []types.ProjectType{}}
	if g == nil {
		return s
	}
	if langs := g.Metrics.Languages; len(langs) > 0 {
		primary := langs[0].Language
		s.PrimaryLanguage = &primary
	}
	s.ProjectTypes = append(s.ProjectTypes, g.ArchitectureSignals.DistinctProjectTypes...)
	for _, m := range g.Modernization {
		switch m.SupportStatus {
		case types.SupportEol:
			s.EolProjectCount++
		case types.SupportNearEol:
			s.NearEolProjectCount++
		case types.SupportSupported:
			s.SupportedProjectCount++
		default:
			s.UnknownSupportProjectCount++
		}
	}
	return s
}
