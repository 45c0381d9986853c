// Package language maps repository paths to a language name by extension.
package language

import (
	"path"
	"strings"
)

var byExtension = map[string]string{
	".cs":         "C#",
	".csx":        "C#",
	".fs":         "F#",
	".fsx":        "F#",
	".vb":         "Visual Basic",
	".cshtml":     "Razor",
	".razor":      "Razor",
	".xaml":       "XAML",
	".csproj":     "MSBuild",
	".fsproj":     "MSBuild",
	".vbproj":     "MSBuild",
	".props":      "MSBuild",
	".targets":    "MSBuild",
	".sln":        "Solution",
	".js":         "JavaScript",
	".mjs":        "JavaScript",
	".cjs":        "JavaScript",
	".jsx":        "JavaScript",
	".ts":         "TypeScript",
	".tsx":        "TypeScript",
	".mts":        "TypeScript",
	".cts":        "TypeScript",
	".vue":        "Vue",
	".svelte":     "Svelte",
	".py":         "Python",
	".pyi":        "Python",
	".pyw":        "Python",
	".ipynb":      "Jupyter Notebook",
	".java":       "Java",
	".kt":         "Kotlin",
	".kts":        "Kotlin",
	".groovy":     "Groovy",
	".gradle":     "Groovy",
	".scala":      "Scala",
	".clj":        "Clojure",
	".go":         "Go",
	".rs":         "Rust",
	".rb":         "Ruby",
	".erb":        "Ruby",
	".rake":       "Ruby",
	".gemspec":    "Ruby",
	".php":        "PHP",
	".phtml":      "PHP",
	".c":          "C",
	".h":          "C",
	".cc":         "C++",
	".cpp":        "C++",
	".cxx":        "C++",
	".hpp":        "C++",
	".hh":         "C++",
	".m":          "Objective-C",
	".mm":         "Objective-C",
	".swift":      "Swift",
	".dart":       "Dart",
	".lua":        "Lua",
	".pl":         "Perl",
	".pm":         "Perl",
	".r":          "R",
	".ex":         "Elixir",
	".exs":        "Elixir",
	".erl":        "Erlang",
	".hs":         "Haskell",
	".ml":         "OCaml",
	".sh":         "Shell",
	".bash":       "Shell",
	".zsh":        "Shell",
	".ps1":        "PowerShell",
	".psm1":       "PowerShell",
	".bat":        "Batch",
	".cmd":        "Batch",
	".sql":        "SQL",
	".html":       "HTML",
	".htm":        "HTML",
	".css":        "CSS",
	".scss":       "SCSS",
	".sass":       "Sass",
	".less":       "Less",
	".json":       "JSON",
	".jsonc":      "JSON",
	".yaml":       "YAML",
	".yml":        "YAML",
	".toml":       "TOML",
	".xml":        "XML",
	".ini":        "INI",
	".md":         "Markdown",
	".mdx":        "Markdown",
	".rst":        "reStructuredText",
	".tf":         "HCL",
	".tfvars":     "HCL",
	".hcl":        "HCL",
	".bicep":      "Bicep",
	".proto":      "Protocol Buffers",
	".graphql":    "GraphQL",
	".gql":        "GraphQL",
	".dockerfile": "Dockerfile",
}

var byName = map[string]string{
	"dockerfile":  "Dockerfile",
	"makefile":    "Makefile",
	"gnumakefile": "Makefile",
	"jenkinsfile": "Groovy",
	"gemfile":     "Ruby",
	"rakefile":    "Ruby",
	"vagrantfile": "Ruby",
	"pipfile":     "TOML",
}

// Extension returns the lowercase extension of relPath including the dot,
// or "" when the base name has none. Dotfiles such as ".gitignore" have no
// extension.
func Extension(relPath string) string {
	base := path.Base(strings.ReplaceAll(relPath, "\\", "/"))
	i := strings.LastIndexByte(base, '.')
	if i <= 0 {
		return ""
	}
	return strings.ToLower(base[i:])
}

// ForPath returns the language for relPath. The second result is false when
// neither the extension nor the file name is known.
func ForPath(relPath string) (string, bool) {
	if lang, ok := byExtension[Extension(relPath)]; ok {
		return lang, true
	}
	base := strings.ToLower(path.Base(strings.ReplaceAll(relPath, "\\", "/")))
	if lang, ok := byName[base]; ok {
		return lang, true
	}
	// Dockerfile.prod, Dockerfile.dev
	if strings.HasPrefix(base, "dockerfile.") {
		return "Dockerfile", true
	}
	return "", false
}
