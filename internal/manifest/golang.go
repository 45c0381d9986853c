package manifest

import (
	"golang.org/x/mod/modfile"

	"repoassess/internal/types"
)

type goModParser struct{}

func (goModParser) ProjectType() types.ProjectType { return types.ProjectTypeGo }
func (goModParser) Ecosystem() string              { return "go" }
func (goModParser) Match(name string) bool         { return name == "go.mod" }

func (p goModParser) Parse(relPath string, data []byte) (Result, error) {
	f, err := modfile.ParseLax(relPath, data, nil)
	if err != nil {
		return Result{}, parseError(relPath, err)
	}
	var res Result
	if f.Module != nil {
		res.Name = optional(f.Module.Mod.Path)
	}
	if f.Go != nil && f.Go.Version != "" {
		res.Framework = optional("go" + f.Go.Version)
	}
	replaced := make(map[string]string, len(f.Replace))
	for _, r := range f.Replace {
		if r.New.Version != "" {
			replaced[r.Old.Path] = r.New.Version
		}
	}
	for _, r := range f.Require {
		scope := ScopeRuntime
		if r.Indirect {
			scope = ScopeIndirect
		}
		version := r.Mod.Version
		if v, ok := replaced[r.Mod.Path]; ok {
			version = v
		}
		res.Dependencies = append(res.Dependencies, dep(p.Ecosystem(), r.Mod.Path, version, "", scope, relPath))
	}
	return res, nil
}
