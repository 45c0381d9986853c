package graph

import (
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"repoassess/internal/scan"
	"repoassess/internal/types"
	"repoassess/internal/utils"
)

type pattern struct {
	name  string
	globs []string
}

// Globs are matched against lowercase paths relative to the project root.
var ciProviders = []pattern{
	{"github-actions", []string{".github/workflows/*.yml", ".github/workflows/*.yaml"}},
	{"gitlab-ci", []string{".gitlab-ci.yml", ".gitlab-ci.yaml"}},
	{"azure-pipelines", []string{"azure-pipelines.yml", "azure-pipelines.yaml", ".azure-pipelines/**/*.{yml,yaml}"}},
	{"jenkins", []string{"jenkinsfile", "**/jenkinsfile"}},
	{"circleci", []string{".circleci/config.yml", ".circleci/config.yaml"}},
	{"bitbucket-pipelines", []string{"bitbucket-pipelines.yml"}},
	{"travis-ci", []string{".travis.yml"}},
}

var iacTools = []pattern{
	{"Terraform", []string{"**/*.tf", "**/*.tf.json"}},
	{"Bicep", []string{"**/*.bicep"}},
	{"Helm", []string{"**/chart.yaml"}},
	{"Kubernetes", []string{"**/{k8s,kubernetes,manifests}/**/*.{yml,yaml}", "**/kustomization.{yml,yaml}"}},
	{"Pulumi", []string{"**/pulumi.yaml", "**/pulumi.yml"}},
	{"CloudFormation", []string{"**/*.{template,cfn}.{yml,yaml,json}", "**/cloudformation/**/*.{yml,yaml,json}", "**/template.{yml,yaml}"}},
	{"Ansible", []string{"**/ansible.cfg", "**/playbooks/**/*.{yml,yaml}"}},
}

var composeNames = []string{"docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml", "docker-compose.*.yml", "docker-compose.*.yaml"}

// facts are file-presence observations over one set of paths.
type facts struct {
	testFiles      int
	dockerfiles    []string
	composeFiles   []string
	composeService int
	ci             map[string]string // provider -> first evidence path
	iac            map[string]string // tool -> first evidence path
}

// collectFacts inspects paths (sorted, repo-relative) lying under root.
func collectFacts(paths []string, root string, raw map[string][]byte) facts {
	f := facts{ci: map[string]string{}, iac: map[string]string{}}
	services := map[string]struct{}{}
	for _, p := range paths {
		rel := strings.ToLower(relTo(p, root))
		base := path.Base(rel)
		if IsTestPath(rel) {
			f.testFiles++
		}
		if base == "dockerfile" || strings.HasPrefix(base, "dockerfile.") || strings.HasSuffix(base, ".dockerfile") {
			f.dockerfiles = append(f.dockerfiles, p)
		}
		if matchAny(composeNames, base) {
			f.composeFiles = append(f.composeFiles, p)
			for _, s := range composeServices(raw[p]) {
				services[s] = struct{}{}
			}
		}
		for _, c := range ciProviders {
			if _, seen := f.ci[c.name]; !seen && matchAny(c.globs, rel) {
				f.ci[c.name] = p
			}
		}
		for _, t := range iacTools {
			if _, seen := f.iac[t.name]; !seen && matchAny(t.globs, rel) {
				f.iac[t.name] = p
			}
		}
	}
	f.composeService = len(services)
	return f
}

func relTo(p, root string) string {
	if root == "." || root == "" {
		return p
	}
	return strings.TrimPrefix(p, root+"/")
}

func matchAny(globs []string, name string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, name); ok {
			return true
		}
	}
	return false
}

// composeServices returns the service names declared in a compose file.
// Unparseable files contribute nothing.
func composeServices(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var doc struct {
		Services map[string]yaml.Node `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return sortedKeys(doc.Services)
}

var testDirs = map[string]struct{}{
	"test": {}, "tests": {}, "__tests__": {}, "spec": {}, "specs": {}, "testing": {},
}

// IsTestPath applies path conventions only; content is never inspected.
func IsTestPath(rel string) bool {
	rel = strings.ToLower(rel)
	segs := utils.Segments(rel)
	if len(segs) == 0 {
		return false
	}
	for _, s := range segs[:len(segs)-1] {
		if _, ok := testDirs[s]; ok {
			return true
		}
		// App.Tests, App.UnitTests
		if strings.Contains(s, ".") && (strings.HasSuffix(s, "tests") || strings.HasSuffix(s, ".test")) {
			return true
		}
	}
	base := segs[len(segs)-1]
	stem := strings.TrimSuffix(base, path.Ext(base))
	switch {
	case strings.HasSuffix(base, "_test.go"):
		return true
	case strings.Contains(base, ".test.") || strings.Contains(base, ".spec."):
		return true
	case strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py"):
		return true
	case strings.HasSuffix(base, "_test.py"), strings.HasSuffix(base, "_spec.rb"), strings.HasSuffix(base, "_test.rb"):
		return true
	case strings.HasSuffix(stem, "tests") && (strings.HasSuffix(base, ".cs") || strings.HasSuffix(base, ".fs") || strings.HasSuffix(base, ".vb")):
		return true
	case strings.HasSuffix(stem, "test") && (strings.HasSuffix(base, ".java") || strings.HasSuffix(base, ".kt") || strings.HasSuffix(base, ".php")):
		return true
	}
	return false
}

type depMatcher struct {
	label    string
	exact    []string
	prefixes []string
}

func (m depMatcher) matches(name string) bool {
	return slices.Contains(m.exact, name) || slices.ContainsFunc(m.prefixes, func(p string) bool {
		return strings.HasPrefix(name, p)
	})
}

var testFrameworks = []depMatcher{
	{"xunit", nil, []string{"xunit"}},
	{"nunit", nil, []string{"nunit"}},
	{"mstest", nil, []string{"mstest."}},
	{"jest", []string{"jest", "ts-jest"}, []string{"@jest/"}},
	{"mocha", []string{"mocha"}, nil},
	{"vitest", []string{"vitest"}, nil},
	{"jasmine", nil, []string{"jasmine"}},
	{"pytest", nil, []string{"pytest"}},
	{"unittest2", []string{"unittest2"}, nil},
	{"nose", []string{"nose", "nose2"}, nil},
	{"junit", nil, []string{"junit"}},
	{"testng", []string{"testng"}, nil},
	{"spock", nil, []string{"spock-"}},
	{"testify", []string{"github.com/stretchr/testify"}, nil},
	{"ginkgo", nil, []string{"github.com/onsi/ginkgo"}},
	{"gomega", []string{"github.com/onsi/gomega"}, nil},
	{"rspec", nil, []string{"rspec"}},
	{"minitest", nil, []string{"minitest"}},
	{"phpunit", []string{"phpunit/phpunit"}, nil},
	{"pest", []string{"pestphp/pest"}, nil},
	{"terratest", nil, []string{"github.com/gruntwork-io/terratest"}},
}

var webFrameworks = []depMatcher{
	{"aspnetcore", nil, []string{"microsoft.aspnetcore."}},
	{"express", []string{"express"}, nil},
	{"fastify", []string{"fastify"}, nil},
	{"koa", []string{"koa"}, nil},
	{"nestjs", []string{"@nestjs/core"}, nil},
	{"next", []string{"next"}, nil},
	{"flask", []string{"flask"}, nil},
	{"django", []string{"django"}, nil},
	{"fastapi", []string{"fastapi"}, nil},
	{"spring-boot", []string{"spring-boot-starter-web", "spring-boot-starter-webflux"}, nil},
	{"gin", []string{"github.com/gin-gonic/gin"}, nil},
	{"echo", nil, []string{"github.com/labstack/echo"}},
	{"chi", nil, []string{"github.com/go-chi/chi"}},
	{"fiber", nil, []string{"github.com/gofiber/fiber"}},
	{"rails", []string{"rails"}, nil},
	{"sinatra", []string{"sinatra"}, nil},
	{"laravel", []string{"laravel/framework"}, nil},
	{"symfony", []string{"symfony/framework-bundle", "symfony/http-kernel"}, nil},
	{"actix-web", []string{"actix-web"}, nil},
	{"axum", []string{"axum"}, nil},
	{"rocket", []string{"rocket"}, nil},
}

func matchFrameworks(table []depMatcher, deps []types.ProjectDependency) []string {
	found := map[string]struct{}{}
	for _, d := range deps {
		name := strings.ToLower(d.Name)
		for _, m := range table {
			if m.matches(name) {
				found[m.label] = struct{}{}
			}
		}
	}
	return sortedKeys(found)
}

// conventionalEntrypoints are well-known entry files per project type, as
// globs relative to the project root.
var conventionalEntrypoints = map[types.ProjectType][]string{
	types.ProjectTypeDotNet: {"program.cs", "*/program.cs", "program.fs", "startup.cs"},
	types.ProjectTypeGo:     {"main.go", "cmd/*/main.go"},
	types.ProjectTypePython: {"__main__.py", "*/__main__.py", "manage.py", "main.py", "app.py", "wsgi.py", "asgi.py"},
	types.ProjectTypeNode:   {"server.{js,ts}", "src/server.{js,ts}", "src/main.{js,ts}"},
	types.ProjectTypeRust:   {"src/main.rs", "src/bin/*.rs"},
	types.ProjectTypeJava:   {"src/main/java/**/*application.java", "src/main/java/**/main.java"},
	types.ProjectTypeRuby:   {"config.ru", "bin/rails"},
	types.ProjectTypePHP:    {"artisan", "public/index.php", "index.php"},
}

func entrypointsFor(pt types.ProjectType, root string, paths []string) []string {
	globs := conventionalEntrypoints[pt]
	if len(globs) == 0 {
		return nil
	}
	var out []string
	for _, p := range paths {
		if matchAny(globs, strings.ToLower(relTo(p, root))) {
			out = append(out, p)
		}
	}
	return out
}

func architecture(f facts, deps []types.ProjectDependency, isApp *bool, isWeb bool, entrypoints []string) types.ArchitectureSignals {
	web := matchFrameworks(webFrameworks, deps)
	if isWeb && !slices.Contains(web, "aspnetcore") {
		web = append(web, "aspnetcore")
		slices.Sort(web)
	}
	api := len(web) > 0
	library := !api && (isApp == nil || !*isApp) && len(entrypoints) == 0
	return types.ArchitectureSignals{
		HasTests:                f.testFiles > 0,
		TestFileCount:           f.testFiles,
		TestFrameworks:          matchFrameworks(testFrameworks, deps),
		WebFrameworks:           web,
		HasDockerfile:           len(f.dockerfiles) > 0,
		HasDockerCompose:        len(f.composeFiles) > 0,
		ComposeServiceCount:     f.composeService,
		HasCIConfig:             len(f.ci) > 0,
		CIProviders:             sortedKeys(f.ci),
		HasInfrastructureAsCode: len(f.iac) > 0,
		IsLikelyAPI:             api,
		IsLikelyLibrary:         library,
		Entrypoints:             entrypoints,
	}
}

func repositoryArchitecture(projects []types.RepositoryProjectNode, f facts) types.RepositoryArchitectureSignals {
	base := architecture(f, nil, nil, false, nil)
	testSet := map[string]struct{}{}
	webSet := map[string]struct{}{}
	typeSet := map[types.ProjectType]struct{}{}
	var entrypoints []string
	allLibraries := len(projects) > 0
	for _, p := range projects {
		a := p.ArchitectureSignals
		for _, t := range a.TestFrameworks {
			testSet[t] = struct{}{}
		}
		for _, w := range a.WebFrameworks {
			webSet[w] = struct{}{}
		}
		typeSet[p.ProjectType] = struct{}{}
		entrypoints = append(entrypoints, a.Entrypoints...)
		base.IsLikelyAPI = base.IsLikelyAPI || a.IsLikelyAPI
		allLibraries = allLibraries && a.IsLikelyLibrary
	}
	base.TestFrameworks = sortedKeys(testSet)
	base.WebFrameworks = sortedKeys(webSet)
	base.IsLikelyLibrary = allLibraries
	base.Entrypoints = uniqueSorted(entrypoints)

	projectTypes := make([]types.ProjectType, 0, len(typeSet))
	for t := range typeSet {
		projectTypes = append(projectTypes, t)
	}
	slices.Sort(projectTypes)
	return types.RepositoryArchitectureSignals{
		ArchitectureSignals:    base,
		DistinctTestFrameworks: slices.Clone(base.TestFrameworks),
		DistinctProjectTypes:   projectTypes,
		IsPolyglotRepository:   len(projectTypes) >= 2,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	scan.SortPaths(out)
	return out
}
