package manifest

import (
	"strings"

	"repoassess/internal/types"
	"repoassess/internal/util/jsonutil"
)

type composerParser struct{}

func (composerParser) ProjectType() types.ProjectType { return types.ProjectTypePHP }
func (composerParser) Ecosystem() string              { return "packagist" }
func (composerParser) Match(name string) bool         { return name == "composer.json" }

func (p composerParser) Parse(relPath string, data []byte) (Result, error) {
	var doc struct {
		Name       string            `json:"name"`
		Type       string            `json:"type"`
		Require    map[string]string `json:"require"`
		RequireDev map[string]string `json:"require-dev"`
		Bin        []string          `json:"bin"`
	}
	if err := jsonutil.Unmarshal(data, &doc); err != nil {
		return Result{}, parseError(relPath, err)
	}
	res := Result{Name: optional(doc.Name)}
	switch strings.ToLower(doc.Type) {
	case "project":
		res.IsApplication = boolPtr(true)
	case "library":
		res.IsApplication = boolPtr(false)
	}
	for _, b := range doc.Bin {
		res.Entrypoints = append(res.Entrypoints, joinRel(relPath, b))
	}
	add := func(m map[string]string, scope string) {
		for _, name := range sortedKeys(m) {
			lower := strings.ToLower(name)
			switch {
			case lower == "php":
				if res.Framework == nil {
					res.Framework = optional(m[name])
				}
				continue
			case strings.HasPrefix(lower, "ext-"), strings.HasPrefix(lower, "lib-"):
				continue
			}
			vendor := ""
			if i := strings.IndexByte(name, '/'); i > 0 {
				vendor = name[:i]
			}
			res.Dependencies = append(res.Dependencies, dep(p.Ecosystem(), name, m[name], vendor, scope, relPath))
		}
	}
	add(doc.Require, ScopeRuntime)
	add(doc.RequireDev, ScopeDev)
	return res, nil
}
