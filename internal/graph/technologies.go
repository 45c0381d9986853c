package graph

import (
	"cmp"
	"path"
	"slices"
	"strings"

	"repoassess/internal/types"
)

var runtimeNames = map[types.ProjectType]string{
	types.ProjectTypeDotNet:    ".NET",
	types.ProjectTypeNode:      "Node.js",
	types.ProjectTypePython:    "Python",
	types.ProjectTypeJava:      "Java",
	types.ProjectTypeGo:        "Go",
	types.ProjectTypeRust:      "Rust",
	types.ProjectTypeRuby:      "Ruby",
	types.ProjectTypePHP:       "PHP",
	types.ProjectTypeTerraform: "Terraform",
}

// detectTechnologies lists each technology once with the first path proving
// it. Projects and paths arrive sorted, so evidence is deterministic.
func detectTechnologies(projects []types.RepositoryProjectNode, repo facts, paths []string) []types.DetectedTechnology {
	seen := map[string]struct{}{}
	out := make([]types.DetectedTechnology, 0)
	add := func(name, category, evidence string) {
		k := category + "\x00" + name
		if _, dup := seen[k]; dup || name == "" {
			return
		}
		seen[k] = struct{}{}
		out = append(out, types.DetectedTechnology{Name: name, Category: category, Evidence: evidence})
	}

	for _, p := range projects {
		if name, ok := runtimeNames[p.ProjectType]; ok {
			add(name, types.TechRuntime, p.ManifestPath)
		}
		for _, w := range p.ArchitectureSignals.WebFrameworks {
			add(w, types.TechFramework, p.ManifestPath)
		}
		for _, t := range p.ArchitectureSignals.TestFrameworks {
			add(t, types.TechTooling, p.ManifestPath)
		}
	}

	if len(repo.dockerfiles) > 0 {
		add("Docker", types.TechInfrastructure, repo.dockerfiles[0])
	}
	if len(repo.composeFiles) > 0 {
		add("Docker Compose", types.TechInfrastructure, repo.composeFiles[0])
	}
	for _, name := range sortedKeys(repo.ci) {
		add(name, types.TechTooling, repo.ci[name])
	}
	for _, name := range sortedKeys(repo.iac) {
		add(name, types.TechInfrastructure, repo.iac[name])
	}
	for _, p := range paths {
		if strings.EqualFold(path.Base(p), "Makefile") {
			add("Make", types.TechTooling, p)
			break
		}
	}

	slices.SortFunc(out, func(a, b types.DetectedTechnology) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Name, b.Name))
	})
	return out
}
