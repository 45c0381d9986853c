package manifest

import (
	"bytes"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"repoassess/internal/types"
)

const ecosystemNuGet = "nuget"

// solutionParser marks a .sln directory as a dotnet project root. The
// projects it lists are absorbed by the graph builder, not parsed here.
type solutionParser struct{}

func (solutionParser) ProjectType() types.ProjectType { return types.ProjectTypeDotNet }
func (solutionParser) Ecosystem() string              { return ecosystemNuGet }
func (solutionParser) Match(name string) bool {
	return strings.EqualFold(path.Ext(name), ".sln")
}

func (solutionParser) Parse(relPath string, _ []byte) (Result, error) {
	name := strings.TrimSuffix(path.Base(relPath), path.Ext(relPath))
	return Result{Name: optional(name)}, nil
}

// msbuildParser handles SDK-style and legacy csproj/fsproj/vbproj files.
type msbuildParser struct{}

func (msbuildParser) ProjectType() types.ProjectType { return types.ProjectTypeDotNet }
func (msbuildParser) Ecosystem() string              { return ecosystemNuGet }
func (msbuildParser) Match(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".csproj", ".fsproj", ".vbproj":
		return true
	}
	return false
}

type msbuildProject struct {
	Sdk      string `xml:"Sdk,attr"`
	SdkElems []struct {
		Name string `xml:"Name,attr"`
	} `xml:"Sdk"`
	PropertyGroups []struct {
		TargetFramework        string `xml:"TargetFramework"`
		TargetFrameworks       string `xml:"TargetFrameworks"`
		TargetFrameworkVersion string `xml:"TargetFrameworkVersion"`
		OutputType             string `xml:"OutputType"`
		AssemblyName           string `xml:"AssemblyName"`
	} `xml:"PropertyGroup"`
	ItemGroups []struct {
		PackageReferences []struct {
			Include       string `xml:"Include,attr"`
			Update        string `xml:"Update,attr"`
			Version       string `xml:"Version,attr"`
			VersionElem   string `xml:"Version"`
			PrivateAssets string `xml:"PrivateAssets,attr"`
		} `xml:"PackageReference"`
	} `xml:"ItemGroup"`
}

func (p msbuildParser) Parse(relPath string, data []byte) (Result, error) {
	var proj msbuildProject
	if err := decodeXML(data, &proj); err != nil {
		return Result{}, parseError(relPath, err)
	}
	var res Result
	web := strings.EqualFold(strings.TrimSpace(proj.Sdk), "Microsoft.NET.Sdk.Web")
	for _, s := range proj.SdkElems {
		if strings.EqualFold(strings.TrimSpace(s.Name), "Microsoft.NET.Sdk.Web") {
			web = true
		}
	}
	res.IsWeb = web

	var framework, outputType, assembly string
	for _, pg := range proj.PropertyGroups {
		if framework == "" {
			switch {
			case strings.TrimSpace(pg.TargetFramework) != "":
				framework = strings.TrimSpace(pg.TargetFramework)
			case strings.TrimSpace(pg.TargetFrameworks) != "":
				framework = strings.TrimSpace(strings.Split(pg.TargetFrameworks, ";")[0])
			case strings.TrimSpace(pg.TargetFrameworkVersion) != "":
				framework = legacyFrameworkToken(pg.TargetFrameworkVersion)
			}
		}
		if outputType == "" {
			outputType = strings.TrimSpace(pg.OutputType)
		}
		if assembly == "" {
			assembly = strings.TrimSpace(pg.AssemblyName)
		}
	}
	res.Framework = optional(framework)
	res.Name = optional(assembly)
	switch {
	case web:
		res.IsApplication = boolPtr(true)
	case strings.EqualFold(outputType, "Exe"), strings.EqualFold(outputType, "WinExe"):
		res.IsApplication = boolPtr(true)
	case strings.EqualFold(outputType, "Library"):
		res.IsApplication = boolPtr(false)
	}

	for _, ig := range proj.ItemGroups {
		for _, ref := range ig.PackageReferences {
			name := cmpOr(ref.Include, ref.Update)
			version := cmpOr(ref.Version, ref.VersionElem)
			scope := ScopeRuntime
			if strings.EqualFold(strings.TrimSpace(ref.PrivateAssets), "all") {
				scope = ScopeBuild
			}
			res.Dependencies = append(res.Dependencies, dep(p.Ecosystem(), name, version, "", scope, relPath))
		}
	}
	return res, nil
}

// legacyFrameworkToken turns "v4.7.2" into "net472".
func legacyFrameworkToken(v string) string {
	v = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), "v")
	if v == "" {
		return ""
	}
	return "net" + strings.ReplaceAll(v, ".", "")
}

// packagesConfigParser handles the NuGet packages.config format.
type packagesConfigParser struct{}

func (packagesConfigParser) ProjectType() types.ProjectType { return types.ProjectTypeDotNet }
func (packagesConfigParser) Ecosystem() string              { return ecosystemNuGet }
func (packagesConfigParser) Match(name string) bool {
	return strings.EqualFold(name, "packages.config")
}

func (p packagesConfigParser) Parse(relPath string, data []byte) (Result, error) {
	var doc struct {
		Packages []struct {
			ID              string `xml:"id,attr"`
			Version         string `xml:"version,attr"`
			TargetFramework string `xml:"targetFramework,attr"`
			Development     bool   `xml:"developmentDependency,attr"`
		} `xml:"package"`
	}
	if err := decodeXML(data, &doc); err != nil {
		return Result{}, parseError(relPath, err)
	}
	var res Result
	for _, pkg := range doc.Packages {
		if res.Framework == nil {
			res.Framework = optional(pkg.TargetFramework)
		}
		scope := ScopeRuntime
		if pkg.Development {
			scope = ScopeDev
		}
		// packages.config always pins; wrap so ClassifyVersion sees [x].
		version := strings.TrimSpace(pkg.Version)
		if version != "" {
			version = "[" + version + "]"
		}
		res.Dependencies = append(res.Dependencies, dep(p.Ecosystem(), pkg.ID, version, "", scope, relPath))
	}
	return res, nil
}

func decodeXML(data []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})))
	dec.Strict = false
	// Manifests declaring utf-16 or windows-1252 are read as-is.
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	return dec.Decode(v)
}

func cmpOr(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
