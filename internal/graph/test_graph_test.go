package graph

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoassess/internal/scan"
	"repoassess/internal/types"
)

var fixedClock = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

func newTestBuilder() *Builder {
	return NewBuilder(WithLogger(log.New(io.Discard, "", 0)), WithClock(fixedClock), WithWorkers(4))
}

func textFile(rel, content string) types.ScannedFile {
	return types.ScannedFile{RelativePath: rel, Content: &content, IsText: true, SizeBytes: int64(len(content)), Raw: []byte(content)}
}

func binFile(rel string, data []byte) types.ScannedFile {
	return types.ScannedFile{RelativePath: rel, IsText: false, SizeBytes: int64(len(data)), Raw: data}
}

func build(t *testing.T, files ...types.ScannedFile) (*types.RepositoryGraph, []types.Warning) {
	t.Helper()
	g, ws, err := newTestBuilder().Build(context.Background(), "/tmp/repo", files)
	require.NoError(t, err)
	return g, ws
}

func projectByPath(t *testing.T, g *types.RepositoryGraph, rel string) types.RepositoryProjectNode {
	t.Helper()
	for _, p := range g.Projects {
		if p.RelativePath == rel {
			return p
		}
	}
	t.Fatalf("no project at %q", rel)
	return types.RepositoryProjectNode{}
}

const sdkCsproj = `<Project Sdk="Microsoft.NET.Sdk.Web">
  <PropertyGroup><TargetFramework>net8.0</TargetFramework></PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Serilog" Version="3.1.1" />
    <PackageReference Include="xunit" Version="2.6.2" />
  </ItemGroup>
</Project>`

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, CountLines(nil))
	assert.Equal(t, 1, CountLines([]byte("a")))
	assert.Equal(t, 1, CountLines([]byte("a\n")))
	assert.Equal(t, 2, CountLines([]byte("a\nb")))
	assert.Equal(t, 3, CountLines([]byte("\n\n\n")))
}

func TestBuild_FileNodes(t *testing.T) {
	g, _ := build(t,
		textFile("src/main.go", "package main\n\nfunc main() {}\n"),
		binFile("logo.png", []byte{0x89, 'P', 'N', 'G', 0}),
		textFile("README", "hi"),
	)
	require.Len(t, g.Files, 3)
	assert.Equal(t, []string{"logo.png", "README", "src/main.go"}, []string{g.Files[0].RelativePath, g.Files[1].RelativePath, g.Files[2].RelativePath})

	png := g.Files[0]
	assert.True(t, png.IsBinary)
	assert.Nil(t, png.LineCount)
	assert.Equal(t, ".png", png.Extension)
	assert.Len(t, png.SHA256, 64)

	readme := g.Files[1]
	assert.Nil(t, readme.Language)
	require.NotNil(t, readme.LineCount)
	assert.Equal(t, 1, *readme.LineCount)

	main := g.Files[2]
	require.NotNil(t, main.Language)
	assert.Equal(t, "Go", *main.Language)
	assert.Equal(t, 3, *main.LineCount)
	assert.Nil(t, main.ProjectID)

	assert.Equal(t, 3, g.Metrics.FileCount)
	assert.Equal(t, 1, g.Metrics.BinaryFileCount)
	assert.Equal(t, 4, g.Metrics.TotalLines)
	assert.Equal(t, 3, g.Metadata.FileCount)
	assert.Equal(t, "repo", g.Metadata.Name)
	assert.Equal(t, fixedClock(), g.Metadata.GeneratedAt)
	assert.Empty(t, g.Projects)
}

func TestBuild_NestedManifestOnlyOuterProject(t *testing.T) {
	g, _ := build(t,
		textFile("package.json", `{"name":"outer","dependencies":{"express":"^4.18.0"}}`),
		textFile("index.js", "require('express')\n"),
		textFile("packages/inner/package.json", `{"name":"inner","dependencies":{"lodash":"4.17.21"}}`),
		textFile("packages/inner/lib.js", "module.exports = 1\n"),
	)
	require.Len(t, g.Projects, 1)
	p := g.Projects[0]
	assert.Equal(t, ".", p.RelativePath)
	assert.Equal(t, "outer", p.Name)
	assert.Equal(t, types.ProjectTypeNode, p.ProjectType)
	assert.Len(t, p.FilePaths, 4)
	for _, f := range g.Files {
		require.NotNil(t, f.ProjectID, f.RelativePath)
		assert.Equal(t, p.ID, *f.ProjectID)
	}
	assert.Equal(t, []string{"express"}, depNames(p.Dependencies))
	assert.True(t, p.ArchitectureSignals.IsLikelyAPI)
}

func TestBuild_SiblingProjects(t *testing.T) {
	g, _ := build(t,
		textFile("src/Api/Api.csproj", sdkCsproj),
		textFile("src/Api/Program.cs", "var app = WebApplication.Create();\napp.Run();\n"),
		textFile("web/package.json", `{"name":"web","devDependencies":{"jest":"29.0.0"}}`),
		textFile("web/src/app.test.js", "test('x', () => {})\n"),
		textFile("README.md", "# repo\n"),
	)
	require.Len(t, g.Projects, 2)
	ids := map[string]bool{}
	for _, p := range g.Projects {
		ids[p.ID] = true
	}
	assert.Len(t, ids, 2)

	api := projectByPath(t, g, "src/Api")
	assert.Equal(t, types.ProjectTypeDotNet, api.ProjectType)
	require.NotNil(t, api.Framework)
	assert.Equal(t, "net8.0", *api.Framework)
	assert.Equal(t, types.SupportSupported, api.ModernizationSignals.SupportStatus)
	assert.Equal(t, types.GenerationModern, api.ModernizationSignals.RuntimeGeneration)
	assert.Equal(t, api.ID, api.ModernizationSignals.ProjectID)
	assert.Equal(t, []string{"aspnetcore"}, api.ArchitectureSignals.WebFrameworks)
	assert.Equal(t, []string{"xunit"}, api.ArchitectureSignals.TestFrameworks)
	assert.Equal(t, []string{"src/Api/Program.cs"}, api.ArchitectureSignals.Entrypoints)
	assert.True(t, api.ArchitectureSignals.IsLikelyAPI)
	assert.False(t, api.ArchitectureSignals.IsLikelyLibrary)

	web := projectByPath(t, g, "web")
	assert.True(t, web.ArchitectureSignals.HasTests)
	assert.Equal(t, 1, web.ArchitectureSignals.TestFileCount)
	assert.True(t, web.ArchitectureSignals.IsLikelyLibrary)
	assert.Equal(t, types.SupportUnknown, web.ModernizationSignals.SupportStatus)

	var readme types.RepositoryFileNode
	for _, f := range g.Files {
		if f.RelativePath == "README.md" {
			readme = f
		}
	}
	assert.Nil(t, readme.ProjectID)

	repo := g.ArchitectureSignals
	assert.True(t, repo.IsPolyglotRepository)
	assert.Equal(t, []types.ProjectType{types.ProjectTypeDotNet, types.ProjectTypeNode}, repo.DistinctProjectTypes)
	assert.Equal(t, []string{"jest", "xunit"}, repo.DistinctTestFrameworks)
	assert.True(t, g.StructuralSignals.IsMonorepo)
	assert.Equal(t, 2, g.StructuralSignals.ProjectCount)
	assert.Len(t, g.Modernization, 2)
}

func TestBuild_SolutionAbsorbsProjects(t *testing.T) {
	g, _ := build(t,
		textFile("App.sln", "Microsoft Visual Studio Solution File\n"),
		textFile("src/Api/Api.csproj", sdkCsproj),
		textFile("src/Lib/Lib.csproj", `<Project Sdk="Microsoft.NET.Sdk"><PropertyGroup><TargetFramework>net6.0</TargetFramework></PropertyGroup><ItemGroup><PackageReference Include="Dapper" Version="2.1.0" /></ItemGroup></Project>`),
	)
	require.Len(t, g.Projects, 1)
	p := g.Projects[0]
	assert.Equal(t, "App.sln", p.ManifestPath)
	assert.Equal(t, "App", p.Name)
	assert.Equal(t, []string{"Dapper", "Serilog", "xunit"}, depNames(p.Dependencies))
	require.NotNil(t, p.Framework)
	assert.Equal(t, "net8.0", *p.Framework)
}

func TestBuild_LegacyFrameworkSignals(t *testing.T) {
	g, _ := build(t,
		textFile("Legacy/Legacy.csproj", `<Project xmlns="http://schemas.microsoft.com/developer/msbuild/2003"><PropertyGroup><TargetFrameworkVersion>v4.7.2</TargetFrameworkVersion></PropertyGroup></Project>`),
		textFile("Legacy/Class1.cs", "class C {}\n"),
	)
	p := g.Projects[0]
	assert.Equal(t, "net472", *p.Framework)
	assert.Equal(t, types.SupportEol, p.ModernizationSignals.SupportStatus)
	assert.True(t, p.StructuralSignals.IsLegacyRuntime)
	assert.True(t, p.StructuralSignals.HasNoDependencies)
	assert.True(t, p.StructuralSignals.IsSmallProject)
	assert.False(t, p.StructuralSignals.IsLargeProject)
	assert.Equal(t, 1, g.StructuralSignals.LegacyRuntimeProjectCount)
	assert.True(t, g.StructuralSignals.IsLegacyRuntime)
}

func TestBuild_ManifestParseFailureIsRecorded(t *testing.T) {
	g, ws := build(t,
		textFile("package.json", `{"name": `),
		textFile("index.js", "x\n"),
	)
	require.Len(t, g.Projects, 1)
	p := g.Projects[0]
	assert.True(t, p.StructuralSignals.ManifestParseFailed)
	require.NotNil(t, p.StructuralSignals.ManifestParseError)
	assert.Equal(t, "repo", p.Name)
	assert.Equal(t, 1, g.StructuralSignals.FailedManifestCount)
	require.Len(t, ws, 1)
	assert.Equal(t, types.WarningManifestParse, ws[0].Kind)
	assert.Equal(t, "package.json", ws[0].Path)
}

func TestBuild_ReadErrorBecomesWarning(t *testing.T) {
	_, ws := build(t,
		types.ScannedFile{RelativePath: "locked.bin", ReadError: "permission denied", Raw: []byte{}},
	)
	require.Len(t, ws, 1)
	assert.Equal(t, types.WarningFileRead, ws[0].Kind)
}

func TestBuild_DependencySummaryAndDensity(t *testing.T) {
	var deps []string
	for i := 0; i < 12; i++ {
		deps = append(deps, `"dep`+string(rune('a'+i))+`": "^1.0.0"`)
	}
	pkg := `{"name":"dense","dependencies":{` + strings.Join(deps, ",") + `},"devDependencies":{"eslint":"8.0.0"}}`
	g, _ := build(t,
		textFile("package.json", pkg),
		textFile("index.js", strings.Repeat("x\n", 100)),
	)
	s := g.Projects[0].DependencySummary
	assert.Equal(t, 13, s.Total)
	assert.Equal(t, 1, s.ExactVersions)
	assert.Equal(t, 12, s.RangeVersions)
	assert.Equal(t, []types.CountByKey{{Key: "dev", Count: 1}, {Key: "runtime", Count: 12}}, s.ByScope)
	assert.Equal(t, []types.CountByKey{{Key: "npm", Count: 13}}, s.Ecosystems)
	// 101 lines: 13 / 0.101 = 128.71
	assert.Equal(t, 128.71, s.DependenciesPerKLoc)
	sig := g.Projects[0].StructuralSignals
	assert.True(t, sig.IsHighDependencyDensity)
	assert.True(t, sig.UsesVersionRanges)
	assert.False(t, sig.HasNoDependencies)
	assert.Equal(t, 13, g.DependencySummary.Total)
}

func TestBuild_RepositoryFacts(t *testing.T) {
	compose := "services:\n  web:\n    image: nginx\n  db:\n    image: postgres\n"
	g, _ := build(t,
		textFile("go.mod", "module example.com/svc\n\ngo 1.22\n\nrequire github.com/go-chi/chi/v5 v5.1.0\n"),
		textFile("cmd/svc/main.go", "package main\n"),
		textFile("Dockerfile", "FROM golang:1.22\n"),
		textFile("docker-compose.yml", compose),
		textFile(".github/workflows/ci.yml", "on: push\n"),
		textFile("deploy/main.tf", "terraform {}\n"),
		textFile("internal/x_test.go", "package x\n"),
	)
	a := g.ArchitectureSignals
	assert.True(t, a.HasDockerfile)
	assert.True(t, a.HasDockerCompose)
	assert.Equal(t, 2, a.ComposeServiceCount)
	assert.True(t, a.HasCIConfig)
	assert.Equal(t, []string{"github-actions"}, a.CIProviders)
	assert.True(t, a.HasInfrastructureAsCode)
	assert.Equal(t, 1, a.TestFileCount)
	assert.True(t, a.IsLikelyAPI)
	assert.Equal(t, []string{"cmd/svc/main.go"}, a.Entrypoints)

	// deploy/main.tf is nested under the go.mod root and absorbed.
	require.Len(t, g.Projects, 1)
	assert.Equal(t, types.ProjectTypeGo, g.Projects[0].ProjectType)
	assert.Equal(t, "example.com/svc", g.Projects[0].Name)

	names := map[string]string{}
	for _, tech := range g.Technologies {
		names[tech.Name] = tech.Category
	}
	assert.Equal(t, types.TechRuntime, names["Go"])
	assert.Equal(t, types.TechFramework, names["chi"])
	assert.Equal(t, types.TechInfrastructure, names["Docker"])
	assert.Equal(t, types.TechInfrastructure, names["Docker Compose"])
	assert.Equal(t, types.TechInfrastructure, names["Terraform"])
	assert.Equal(t, types.TechTooling, names["github-actions"])
	for i := 1; i < len(g.Technologies); i++ {
		prev, cur := g.Technologies[i-1], g.Technologies[i]
		assert.True(t, prev.Category < cur.Category || (prev.Category == cur.Category && prev.Name < cur.Name))
	}
}

func TestBuild_IgnoresVendoredManifests(t *testing.T) {
	g, _ := build(t,
		textFile("node_modules/left-pad/package.json", `{"name":"left-pad"}`),
		textFile("app/requirements.txt", "flask==3.0.0\n"),
	)
	require.Len(t, g.Projects, 1)
	assert.Equal(t, "app", g.Projects[0].RelativePath)
	assert.Equal(t, types.ProjectTypePython, g.Projects[0].ProjectType)
}

func TestBuild_HashDependsOnContentOnly(t *testing.T) {
	a, _ := build(t, textFile("a.txt", "one"), textFile("b.txt", "two"))
	b, _ := build(t, textFile("b.txt", "two"), textFile("a.txt", "one"))
	c, _ := build(t, textFile("a.txt", "one"), textFile("b.txt", "TWO"))
	assert.Equal(t, a.Metadata.RepositoryHash, b.Metadata.RepositoryHash)
	assert.NotEqual(t, a.Metadata.RepositoryHash, c.Metadata.RepositoryHash)
}

func TestBuild_DeterministicJSON(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	write("pyproject.toml", "[project]\nname = \"svc\"\ndependencies = [\"fastapi>=0.100\"]\n")
	write("svc/app.py", "print('hi')\n")
	write("tests/test_app.py", "def test_x(): pass\n")
	write(".git/HEAD", "ref: refs/heads/main\n")

	render := func() []byte {
		files, err := scan.New(log.New(io.Discard, "", 0)).Scan(context.Background(), root, scan.Options{})
		require.NoError(t, err)
		g, _, err := newTestBuilder().Build(context.Background(), root, files)
		require.NoError(t, err)
		b, err := json.Marshal(g)
		require.NoError(t, err)
		return b
	}
	first, second := render(), render()
	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, first, second)
	assert.Contains(t, string(first), `"supportStatus":"Unknown"`)
	assert.Contains(t, string(first), `"runtimePlatform":"Python"`)
	assert.NotContains(t, string(first), ".git/HEAD")
}

func TestBuild_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g, ws, err := newTestBuilder().Build(ctx, "/tmp/repo", []types.ScannedFile{textFile("a.txt", "a")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, g)
	assert.Nil(t, ws)
}

func TestBuild_EmptyRoot(t *testing.T) {
	_, _, err := newTestBuilder().Build(context.Background(), " ", nil)
	assert.ErrorIs(t, err, scan.ErrInvalidArgument)
}

func TestIsTestPath(t *testing.T) {
	for _, p := range []string{"tests/test_app.py", "src/test/java/AppTest.java", "pkg/x_test.go", "web/app.spec.ts", "a/__tests__/b.js", "App.Tests/UnitTest1.cs", "spec/models/user_spec.rb"} {
		assert.True(t, IsTestPath(p), p)
	}
	for _, p := range []string{"src/app.py", "latest/index.js", "contest.go", "README.md"} {
		assert.False(t, IsTestPath(p), p)
	}
}

func depNames(deps []types.ProjectDependency) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.Name)
	}
	return out
}
