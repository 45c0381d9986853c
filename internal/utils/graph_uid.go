package utils

import (
	"repoassess/internal/types"
)

// AssignProjectIDs gives every project a UID derived from its relative path
// and rewrites file back-references accordingly. Before the call, a file's
// ProjectID holds the relative path of the project that claimed it. Projects
// must already be in their final order. It returns relPath -> UID.
func AssignProjectIDs(gen *UIDGenerator, projects []types.RepositoryProjectNode, files []types.RepositoryFileNode) map[string]string {
	if gen == nil {
		gen = NewUIDGenerator("project")
	}
	byPath := make(map[string]string, len(projects))
	for i := range projects {
		uid := gen.Generate(projects[i].RelativePath)
		projects[i].ID = uid
		projects[i].ModernizationSignals.ProjectID = uid
		byPath[projects[i].RelativePath] = uid
	}
	for i := range files {
		if files[i].ProjectID == nil {
			continue
		}
		if uid, ok := byPath[*files[i].ProjectID]; ok {
			files[i].ProjectID = &uid
		} else {
			files[i].ProjectID = nil
		}
	}
	return byPath
}
