// Package classifier maps a project's type and framework token to
// modernization signals. Lookups are pure: the same project always yields the
// same signals and the input is never modified.
package classifier

import (
	"strings"

	"repoassess/internal/types"
)

// Project is the subset of a project node a classifier looks at.
type Project struct {
	ID          string
	ProjectType types.ProjectType
	Framework   *string
}

// Classifier produces modernization signals for the projects it accepts.
type Classifier interface {
	Name() string
	CanClassify(p Project) bool
	Classify(p Project) types.ModernizationSignals
}

// Registry is an ordered, immutable list of classifiers ending in a catch-all.
type Registry struct {
	classifiers []Classifier
}

// NewRegistry returns the default registry.
func NewRegistry() *Registry {
	return &Registry{classifiers: []Classifier{
		dotnetClassifier{},
		coarse(types.ProjectTypeNode, types.PlatformNode),
		coarse(types.ProjectTypePython, types.PlatformPython),
		coarse(types.ProjectTypeJava, types.PlatformJava),
		coarse(types.ProjectTypeGo, types.PlatformGo),
		coarse(types.ProjectTypeRust, types.PlatformRust),
		coarse(types.ProjectTypeRuby, types.PlatformRuby),
		coarse(types.ProjectTypePHP, types.PlatformPHP),
		coarse(types.ProjectTypeTerraform, types.PlatformTerraform),
		unknownClassifier{},
	}}
}

// Classifiers returns the registered classifiers in lookup order.
func (r *Registry) Classifiers() []Classifier {
	out := make([]Classifier, len(r.classifiers))
	copy(out, r.classifiers)
	return out
}

// GetClassifier returns the first classifier that accepts p. The catch-all
// guarantees a result for every project.
func (r *Registry) GetClassifier(p Project) Classifier {
	for _, c := range r.classifiers {
		if c.CanClassify(p) {
			return c
		}
	}
	return unknownClassifier{}
}

// Classify is shorthand for GetClassifier(p).Classify(p).
func (r *Registry) Classify(p Project) types.ModernizationSignals {
	return r.GetClassifier(p).Classify(p)
}

func frameworkToken(p Project) string {
	if p.Framework == nil {
		return ""
	}
	return strings.TrimSpace(*p.Framework)
}

func identifier(token string, platform types.RuntimePlatform) string {
	if token != "" {
		return token
	}
	return strings.ToLower(platform.String())
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
