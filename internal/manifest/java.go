package manifest

import (
	"encoding/xml"
	"regexp"
	"strings"

	"repoassess/internal/types"
)

const ecosystemMaven = "maven"

type pomParser struct{}

func (pomParser) ProjectType() types.ProjectType { return types.ProjectTypeJava }
func (pomParser) Ecosystem() string              { return ecosystemMaven }
func (pomParser) Match(name string) bool         { return name == "pom.xml" }

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
	Optional   string `xml:"optional"`
}

type pomProject struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Name       string `xml:"name"`
	Version    string `xml:"version"`
	Packaging  string `xml:"packaging"`
	Parent     struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
		Version    string `xml:"version"`
	} `xml:"parent"`
	Properties   pomProperties   `xml:"properties"`
	Dependencies []pomDependency `xml:"dependencies>dependency"`
	Managed      []pomDependency `xml:"dependencyManagement>dependencies>dependency"`
	Plugins      []struct {
		ArtifactID    string `xml:"artifactId"`
		Configuration struct {
			Release string `xml:"release"`
			Source  string `xml:"source"`
		} `xml:"configuration"`
	} `xml:"build>plugins>plugin"`
}

// pomProperties collects arbitrary <properties> children.
type pomProperties map[string]string

func (p *pomProperties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	props := pomProperties{}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var v string
			if err := d.DecodeElement(&v, &t); err != nil {
				return err
			}
			props[t.Name.Local] = strings.TrimSpace(v)
		case xml.EndElement:
			*p = props
			return nil
		}
	}
}

var mavenProp = regexp.MustCompile(`\$\{([^}]+)\}`)

func (p pomParser) Parse(relPath string, data []byte) (Result, error) {
	var pom pomProject
	if err := decodeXML(data, &pom); err != nil {
		return Result{}, parseError(relPath, err)
	}
	props := map[string]string{}
	for k, v := range pom.Properties {
		props[k] = v
	}
	props["project.version"] = cmpOr(pom.Version, pom.Parent.Version)
	props["project.groupId"] = cmpOr(pom.GroupID, pom.Parent.GroupID)
	props["project.artifactId"] = pom.ArtifactID
	resolve := func(s string) string {
		// Two passes cover properties defined in terms of other properties.
		for range 2 {
			s = mavenProp.ReplaceAllStringFunc(s, func(m string) string {
				if v, ok := props[m[2:len(m)-1]]; ok && v != "" {
					return v
				}
				return m
			})
		}
		return strings.TrimSpace(s)
	}

	res := Result{Name: optional(cmpOr(pom.Name, pom.ArtifactID))}
	if res.Name != nil {
		res.Name = optional(resolve(*res.Name))
	}
	framework := cmpOr(props["maven.compiler.release"], props["maven.compiler.source"], props["java.version"])
	if framework == "" {
		for _, pl := range pom.Plugins {
			if pl.ArtifactID == "maven-compiler-plugin" {
				framework = cmpOr(pl.Configuration.Release, pl.Configuration.Source)
			}
		}
	}
	res.Framework = optional(resolve(framework))
	switch strings.ToLower(strings.TrimSpace(pom.Packaging)) {
	case "war", "ear":
		res.IsApplication = boolPtr(true)
	}

	managed := map[string]string{}
	for _, m := range pom.Managed {
		managed[m.GroupID+":"+m.ArtifactID] = m.Version
	}
	for _, d := range pom.Dependencies {
		group, artifact := resolve(d.GroupID), resolve(d.ArtifactID)
		version := d.Version
		if strings.TrimSpace(version) == "" {
			version = managed[d.GroupID+":"+d.ArtifactID]
		}
		scope := strings.ToLower(strings.TrimSpace(d.Scope))
		switch scope {
		case "", "compile":
			scope = ScopeCompile
		case "test":
			scope = ScopeTest
		case "provided", "system":
			scope = ScopeProvided
		}
		if strings.EqualFold(strings.TrimSpace(d.Optional), "true") {
			scope = ScopeOptional
		}
		res.Dependencies = append(res.Dependencies, dep(ecosystemMaven, artifact, resolve(version), group, scope, relPath))
	}
	return res, nil
}

type gradleParser struct{}

func (gradleParser) ProjectType() types.ProjectType { return types.ProjectTypeJava }
func (gradleParser) Ecosystem() string              { return ecosystemMaven }
func (gradleParser) Match(name string) bool {
	return name == "build.gradle" || name == "build.gradle.kts"
}

var (
	// implementation 'g:a:v', implementation("g:a:v"), testImplementation "g:a"
	gradleCoord = regexp.MustCompile(`(?m)^\s*(implementation|api|compile|compileOnly|runtimeOnly|runtime|testImplementation|testCompile|testRuntimeOnly|testCompileOnly|annotationProcessor|kapt|developmentOnly)\s*\(?\s*(?:platform\s*\(\s*)?['"]([^'":]+):([^'":]+)(?::([^'"]+))?['"]`)
	// implementation group: 'g', name: 'a', version: 'v'
	gradleMap = regexp.MustCompile(`(?m)^\s*(implementation|api|compile|compileOnly|runtimeOnly|testImplementation|testCompile)\s*\(?\s*group\s*[:=]\s*['"]([^'"]+)['"]\s*,\s*name\s*[:=]\s*['"]([^'"]+)['"](?:\s*,\s*version\s*[:=]\s*['"]([^'"]+)['"])?`)
	gradleJava = regexp.MustCompile(`(?m)(?:sourceCompatibility|targetCompatibility)\s*=\s*['"]?(?:JavaVersion\.VERSION_)?([0-9_.]+)['"]?|languageVersion(?:\.set)?\s*[=(]\s*JavaLanguageVersion\.of\(\s*(\d+)\s*\)`)
	gradleApp  = regexp.MustCompile(`(?m)^\s*(?:id\s*\(?\s*['"](?:application|org\.springframework\.boot)['"]|apply\s+plugin:\s*['"](?:application|org\.springframework\.boot)['"]|application\s*\{)`)
)

func gradleScope(conf string) string {
	switch conf {
	case "testImplementation", "testCompile", "testRuntimeOnly", "testCompileOnly":
		return ScopeTest
	case "runtimeOnly", "runtime":
		return ScopeRuntime
	case "compileOnly", "annotationProcessor", "kapt", "developmentOnly":
		return ScopeProvided
	}
	return ScopeCompile
}

func (p gradleParser) Parse(relPath string, data []byte) (Result, error) {
	var res Result
	for _, m := range gradleCoord.FindAllSubmatch(data, -1) {
		res.Dependencies = append(res.Dependencies,
			dep(ecosystemMaven, string(m[3]), string(m[4]), string(m[2]), gradleScope(string(m[1])), relPath))
	}
	for _, m := range gradleMap.FindAllSubmatch(data, -1) {
		res.Dependencies = append(res.Dependencies,
			dep(ecosystemMaven, string(m[3]), string(m[4]), string(m[2]), gradleScope(string(m[1])), relPath))
	}
	if m := gradleJava.FindSubmatch(data); m != nil {
		v := cmpOr(string(m[1]), string(m[2]))
		res.Framework = optional(strings.ReplaceAll(v, "_", "."))
	}
	if gradleApp.Match(data) {
		res.IsApplication = boolPtr(true)
	}
	return res, nil
}
