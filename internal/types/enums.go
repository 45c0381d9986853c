package types

import (
	"fmt"
	"strings"
)

// ProjectType tags the ecosystem a project manifest belongs to.
type ProjectType string

const (
	ProjectTypeDotNet    ProjectType = "dotnet"
	ProjectTypeNode      ProjectType = "node"
	ProjectTypePython    ProjectType = "python"
	ProjectTypeJava      ProjectType = "java"
	ProjectTypeGo        ProjectType = "go"
	ProjectTypeRust      ProjectType = "rust"
	ProjectTypeRuby      ProjectType = "ruby"
	ProjectTypePHP       ProjectType = "php"
	ProjectTypeTerraform ProjectType = "terraform"
	ProjectTypeUnknown   ProjectType = "unknown"
)

// RuntimePlatform is the runtime family a project executes on.
type RuntimePlatform int

const (
	PlatformUnknown RuntimePlatform = iota
	PlatformDotNet
	PlatformNode
	PlatformPython
	PlatformJava
	PlatformGo
	PlatformRust
	PlatformRuby
	PlatformPHP
	PlatformTerraform
)

var platformNames = []string{"Unknown", "DotNet", "Node", "Python", "Java", "Go", "Rust", "Ruby", "Php", "Terraform"}

func (p RuntimePlatform) String() string { return enumName(platformNames, int(p)) }

func (p RuntimePlatform) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *RuntimePlatform) UnmarshalText(b []byte) error {
	i, err := enumIndex(platformNames, string(b), "runtime platform")
	*p = RuntimePlatform(i)
	return err
}

// RuntimeGeneration places a runtime on its platform's timeline.
type RuntimeGeneration int

const (
	GenerationUnknown RuntimeGeneration = iota
	GenerationLegacyFramework
	GenerationCoreEra
	GenerationModern
	GenerationCurrent
)

var generationNames = []string{"Unknown", "LegacyFramework", "CoreEra", "Modern", "Current"}

func (g RuntimeGeneration) String() string { return enumName(generationNames, int(g)) }

func (g RuntimeGeneration) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g *RuntimeGeneration) UnmarshalText(b []byte) error {
	i, err := enumIndex(generationNames, string(b), "runtime generation")
	*g = RuntimeGeneration(i)
	return err
}

// SupportStatus reports the vendor support window of a runtime.
// Unknown means no authoritative data is available.
type SupportStatus int

const (
	SupportUnknown SupportStatus = iota
	SupportEol
	SupportNearEol
	SupportSupported
)

var supportNames = []string{"Unknown", "Eol", "NearEol", "Supported"}

func (s SupportStatus) String() string { return enumName(supportNames, int(s)) }

func (s SupportStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SupportStatus) UnmarshalText(b []byte) error {
	i, err := enumIndex(supportNames, string(b), "support status")
	*s = SupportStatus(i)
	return err
}

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return names[0]
	}
	return names[i]
}

func enumIndex(names []string, s, what string) (int, error) {
	s = strings.TrimSpace(s)
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("types: unknown %s %q", what, s)
}
