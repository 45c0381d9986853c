package manifest

import (
	"bufio"
	"bytes"
	"path"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"repoassess/internal/types"
)

const ecosystemPyPI = "pypi"

var pep508 = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(\[[^\]]*\])?\s*(.*)$`)

// parseRequirement splits a PEP 508 requirement into name and version spec.
// Environment markers after ';' are dropped.
func parseRequirement(line string) (name, version string, ok bool) {
	line = strings.TrimSpace(line)
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	m := pep508.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	version = strings.TrimSpace(m[3])
	version = strings.TrimSuffix(strings.TrimPrefix(version, "("), ")")
	return m[1], strings.TrimSpace(version), true
}

type pyprojectParser struct{}

func (pyprojectParser) ProjectType() types.ProjectType { return types.ProjectTypePython }
func (pyprojectParser) Ecosystem() string              { return ecosystemPyPI }
func (pyprojectParser) Match(name string) bool         { return name == "pyproject.toml" }

type pyproject struct {
	Project struct {
		Name                 string              `toml:"name"`
		RequiresPython       string              `toml:"requires-python"`
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
		Scripts              map[string]string   `toml:"scripts"`
	} `toml:"project"`
	DependencyGroups map[string][]any `toml:"dependency-groups"`
	Tool             struct {
		Poetry struct {
			Name            string                    `toml:"name"`
			Dependencies    map[string]any            `toml:"dependencies"`
			DevDependencies map[string]any            `toml:"dev-dependencies"`
			Scripts         map[string]any            `toml:"scripts"`
			Group           map[string]poetryDepGroup `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type poetryDepGroup struct {
	Dependencies map[string]any `toml:"dependencies"`
}

func (p pyprojectParser) Parse(relPath string, data []byte) (Result, error) {
	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Result{}, parseError(relPath, err)
	}
	res := Result{
		Name:      optional(cmpOr(doc.Project.Name, doc.Tool.Poetry.Name)),
		Framework: optional(doc.Project.RequiresPython),
	}
	if len(doc.Project.Scripts) > 0 || len(doc.Tool.Poetry.Scripts) > 0 {
		res.IsApplication = boolPtr(true)
	}

	addReq := func(req, scope string) {
		if name, version, ok := parseRequirement(req); ok {
			res.Dependencies = append(res.Dependencies, dep(ecosystemPyPI, name, version, "", scope, relPath))
		}
	}
	for _, req := range doc.Project.Dependencies {
		addReq(req, ScopeRuntime)
	}
	for _, extra := range sortedKeys(doc.Project.OptionalDependencies) {
		for _, req := range doc.Project.OptionalDependencies[extra] {
			addReq(req, ScopeOptional)
		}
	}
	for _, group := range sortedKeys(doc.DependencyGroups) {
		for _, entry := range doc.DependencyGroups[group] {
			// {include-group = "..."} tables are references, not requirements.
			if req, ok := entry.(string); ok {
				addReq(req, groupScope(group))
			}
		}
	}

	addPoetry := func(deps map[string]any, scope string) {
		for _, name := range sortedKeys(deps) {
			version, optionalDep := poetryVersion(deps[name])
			if strings.EqualFold(name, "python") {
				if res.Framework == nil {
					res.Framework = optional(version)
				}
				continue
			}
			s := scope
			if optionalDep && scope == ScopeRuntime {
				s = ScopeOptional
			}
			res.Dependencies = append(res.Dependencies, dep(ecosystemPyPI, name, version, "", s, relPath))
		}
	}
	addPoetry(doc.Tool.Poetry.Dependencies, ScopeRuntime)
	addPoetry(doc.Tool.Poetry.DevDependencies, ScopeDev)
	for _, group := range sortedKeys(doc.Tool.Poetry.Group) {
		addPoetry(doc.Tool.Poetry.Group[group].Dependencies, groupScope(group))
	}
	return res, nil
}

// poetryVersion reads "^1.2" or {version = "^1.2", optional = true}.
func poetryVersion(v any) (version string, optionalDep bool) {
	switch x := v.(type) {
	case string:
		return x, false
	case map[string]any:
		s, _ := x["version"].(string)
		o, _ := x["optional"].(bool)
		return s, o
	}
	return "", false
}

func groupScope(group string) string {
	g := strings.ToLower(group)
	switch {
	case strings.Contains(g, "test"):
		return ScopeTest
	case g == "main" || g == "default":
		return ScopeRuntime
	}
	return ScopeDev
}

type requirementsParser struct{}

func (requirementsParser) ProjectType() types.ProjectType { return types.ProjectTypePython }
func (requirementsParser) Ecosystem() string              { return ecosystemPyPI }
func (requirementsParser) Match(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "requirements") && path.Ext(lower) == ".txt"
}

func (p requirementsParser) Parse(relPath string, data []byte) (Result, error) {
	scope := ScopeRuntime
	lower := strings.ToLower(path.Base(relPath))
	switch {
	case strings.Contains(lower, "test"):
		scope = ScopeTest
	case strings.Contains(lower, "dev"):
		scope = ScopeDev
	}

	var res Result
	var pending strings.Builder
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasSuffix(line, "\\") {
			pending.WriteString(strings.TrimSuffix(line, "\\"))
			pending.WriteByte(' ')
			continue
		}
		if pending.Len() > 0 {
			pending.WriteString(line)
			line = pending.String()
			pending.Reset()
		}
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if strings.Contains(line, "://") && !strings.Contains(line, "@") {
			continue
		}
		// --hash and other per-requirement options.
		if i := strings.Index(line, " --"); i >= 0 {
			line = line[:i]
		}
		name, version, ok := parseRequirement(line)
		if !ok {
			continue
		}
		res.Dependencies = append(res.Dependencies, dep(ecosystemPyPI, name, version, "", scope, relPath))
	}
	if err := sc.Err(); err != nil {
		return Result{}, parseError(relPath, err)
	}
	return res, nil
}

type setupPyParser struct{}

func (setupPyParser) ProjectType() types.ProjectType { return types.ProjectTypePython }
func (setupPyParser) Ecosystem() string              { return ecosystemPyPI }
func (setupPyParser) Match(name string) bool         { return name == "setup.py" }

var (
	setupList   = regexp.MustCompile(`(?s)\b(install_requires|tests_require|setup_requires)\s*=\s*\[(.*?)\]`)
	setupKwarg  = regexp.MustCompile(`\b(name|python_requires)\s*=\s*['"]([^'"]+)['"]`)
	quotedValue = regexp.MustCompile(`['"]([^'"]+)['"]`)
)

func (p setupPyParser) Parse(relPath string, data []byte) (Result, error) {
	var res Result
	for _, m := range setupKwarg.FindAllSubmatch(data, -1) {
		switch string(m[1]) {
		case "name":
			if res.Name == nil {
				res.Name = optional(string(m[2]))
			}
		case "python_requires":
			if res.Framework == nil {
				res.Framework = optional(string(m[2]))
			}
		}
	}
	for _, m := range setupList.FindAllSubmatch(data, -1) {
		scope := ScopeRuntime
		switch string(m[1]) {
		case "tests_require":
			scope = ScopeTest
		case "setup_requires":
			scope = ScopeBuild
		}
		for _, q := range quotedValue.FindAllSubmatch(m[2], -1) {
			if name, version, ok := parseRequirement(string(q[1])); ok {
				res.Dependencies = append(res.Dependencies, dep(ecosystemPyPI, name, version, "", scope, relPath))
			}
		}
	}
	return res, nil
}

type pipfileParser struct{}

func (pipfileParser) ProjectType() types.ProjectType { return types.ProjectTypePython }
func (pipfileParser) Ecosystem() string              { return ecosystemPyPI }
func (pipfileParser) Match(name string) bool         { return name == "Pipfile" }

func (p pipfileParser) Parse(relPath string, data []byte) (Result, error) {
	var doc struct {
		Packages    map[string]any `toml:"packages"`
		DevPackages map[string]any `toml:"dev-packages"`
		Requires    struct {
			PythonVersion     string `toml:"python_version"`
			PythonFullVersion string `toml:"python_full_version"`
		} `toml:"requires"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Result{}, parseError(relPath, err)
	}
	res := Result{Framework: optional(cmpOr(doc.Requires.PythonVersion, doc.Requires.PythonFullVersion))}
	for _, g := range []struct {
		deps  map[string]any
		scope string
	}{{doc.Packages, ScopeRuntime}, {doc.DevPackages, ScopeDev}} {
		for _, name := range sortedKeys(g.deps) {
			version, _ := poetryVersion(g.deps[name])
			res.Dependencies = append(res.Dependencies, dep(ecosystemPyPI, name, version, "", g.scope, relPath))
		}
	}
	return res, nil
}
