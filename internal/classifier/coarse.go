package classifier

import (
	"regexp"
	"strings"

	"repoassess/internal/types"
)

// coarseClassifier knows the platform but carries no support table, so the
// support status is always SupportUnknown.
type coarseClassifier struct {
	projectType types.ProjectType
	platform    types.RuntimePlatform
}

func coarse(pt types.ProjectType, platform types.RuntimePlatform) coarseClassifier {
	return coarseClassifier{projectType: pt, platform: platform}
}

func (c coarseClassifier) Name() string { return string(c.projectType) }

func (c coarseClassifier) CanClassify(p Project) bool { return p.ProjectType == c.projectType }

func (c coarseClassifier) Classify(p Project) types.ModernizationSignals {
	token := frameworkToken(p)
	gen := types.GenerationUnknown
	if token != "" {
		gen = types.GenerationCurrent
	}
	return types.ModernizationSignals{
		ProjectID:           p.ID,
		RuntimePlatform:     c.platform,
		RuntimeGeneration:   gen,
		FrameworkIdentifier: identifier(token, c.platform),
		FrameworkVersion:    strPtr(NormalizeVersion(token)),
		SupportStatus:       types.SupportUnknown,
	}
}

var firstVersion = regexp.MustCompile(`\d+(\.\d+)*`)

// NormalizeVersion pulls the first dotted number out of a framework token:
// ">=18" => "18", "go1.22" => "1.22", "^3.10" => "3.10". Tokens without a
// number yield "".
func NormalizeVersion(token string) string {
	return firstVersion.FindString(strings.TrimSpace(token))
}

type unknownClassifier struct{}

func (unknownClassifier) Name() string { return "unknown" }

func (unknownClassifier) CanClassify(Project) bool { return true }

func (unknownClassifier) Classify(p Project) types.ModernizationSignals {
	id := string(p.ProjectType)
	if id == "" {
		id = string(types.ProjectTypeUnknown)
	}
	return types.ModernizationSignals{
		ProjectID:           p.ID,
		RuntimePlatform:     types.PlatformUnknown,
		RuntimeGeneration:   types.GenerationUnknown,
		FrameworkIdentifier: id,
		FrameworkVersion:    nil,
		SupportStatus:       types.SupportUnknown,
	}
}
