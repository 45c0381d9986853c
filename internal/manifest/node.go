package manifest

import (
	"encoding/json"
	"sort"
	"strings"

	"repoassess/internal/types"
	"repoassess/internal/util/jsonutil"
)

type packageJSONParser struct{}

func (packageJSONParser) ProjectType() types.ProjectType { return types.ProjectTypeNode }
func (packageJSONParser) Ecosystem() string              { return "npm" }
func (packageJSONParser) Match(name string) bool         { return name == "package.json" }

type packageJSON struct {
	Name                 string            `json:"name"`
	Main                 string            `json:"main"`
	Bin                  json.RawMessage   `json:"bin"`
	Scripts              map[string]string `json:"scripts"`
	Engines              map[string]string `json:"engines"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

func (p packageJSONParser) Parse(relPath string, data []byte) (Result, error) {
	var pkg packageJSON
	if err := jsonutil.Unmarshal(data, &pkg); err != nil {
		return Result{}, parseError(relPath, err)
	}
	res := Result{
		Name: optional(pkg.Name),
	}
	if node, ok := pkg.Engines["node"]; ok {
		res.Framework = optional(node)
	}
	if pkg.Main != "" {
		res.Entrypoints = append(res.Entrypoints, joinRel(relPath, pkg.Main))
	}
	res.Entrypoints = append(res.Entrypoints, binEntrypoints(relPath, pkg.Bin)...)
	if _, ok := pkg.Scripts["start"]; ok {
		res.IsApplication = boolPtr(true)
	}

	groups := []struct {
		deps  map[string]string
		scope string
	}{
		{pkg.Dependencies, ScopeRuntime},
		{pkg.DevDependencies, ScopeDev},
		{pkg.PeerDependencies, ScopePeer},
		{pkg.OptionalDependencies, ScopeOptional},
	}
	for _, g := range groups {
		for _, name := range sortedKeys(g.deps) {
			res.Dependencies = append(res.Dependencies, npmDep(name, g.deps[name], g.scope, relPath))
		}
	}
	return res, nil
}

// npmDep splits scoped package names (@scope/name) into group and name.
func npmDep(name, version, scope, source string) types.ProjectDependency {
	group := ""
	if strings.HasPrefix(name, "@") {
		if i := strings.IndexByte(name, '/'); i > 0 {
			group = name[:i]
		}
	}
	return dep("npm", name, version, group, scope, source)
}

// binEntrypoints accepts both "bin": "cli.js" and "bin": {"x": "cli.js"}.
func binEntrypoints(relPath string, raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{joinRel(relPath, single)}
	}
	var many map[string]string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil
	}
	out := make([]string, 0, len(many))
	for _, k := range sortedKeys(many) {
		if many[k] != "" {
			out = append(out, joinRel(relPath, many[k]))
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
