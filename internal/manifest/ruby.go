package manifest

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"repoassess/internal/types"
)

type gemfileParser struct{}

func (gemfileParser) ProjectType() types.ProjectType { return types.ProjectTypeRuby }
func (gemfileParser) Ecosystem() string              { return "rubygems" }
func (gemfileParser) Match(name string) bool         { return name == "Gemfile" }

var (
	gemLine     = regexp.MustCompile(`^gem\s*\(?\s*['"]([^'"]+)['"]((?:\s*,\s*['"][^'"]*['"])*)`)
	gemVersions = regexp.MustCompile(`['"]([^'"]*)['"]`)
	gemGroupOpt = regexp.MustCompile(`\bgroups?:\s*\[?\s*:(\w+)`)
	groupBlock  = regexp.MustCompile(`^group\s+\(?\s*:(\w+)`)
	rubyLine    = regexp.MustCompile(`^ruby\s+['"]([^'"]+)['"]`)
	blockOpen   = regexp.MustCompile(`\bdo\s*(\|[^|]*\|)?\s*$`)
)

func rubyScope(group string) string {
	switch group {
	case "test":
		return ScopeTest
	case "development":
		return ScopeDev
	case "", "default", "production":
		return ScopeRuntime
	}
	return group
}

func (p gemfileParser) Parse(relPath string, data []byte) (Result, error) {
	var res Result
	// Each open block pushes its group; non-group blocks push "" to keep
	// "end" lines balanced.
	var stack []string
	current := func() string {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i] != "" {
				return stack[i]
			}
		}
		return ""
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case line == "end" || strings.HasPrefix(line, "end "):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		case blockOpen.MatchString(line):
			g := ""
			if m := groupBlock.FindStringSubmatch(line); m != nil {
				g = m[1]
			}
			stack = append(stack, g)
			continue
		}
		if m := rubyLine.FindStringSubmatch(line); m != nil && res.Framework == nil {
			res.Framework = optional(m[1])
			continue
		}
		m := gemLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		var constraints []string
		for _, v := range gemVersions.FindAllStringSubmatch(m[2], -1) {
			if s := strings.TrimSpace(v[1]); s != "" {
				constraints = append(constraints, s)
			}
		}
		group := current()
		if g := gemGroupOpt.FindStringSubmatch(line); g != nil {
			group = g[1]
		}
		res.Dependencies = append(res.Dependencies,
			dep(p.Ecosystem(), m[1], strings.Join(constraints, ", "), "", rubyScope(group), relPath))
	}
	if err := sc.Err(); err != nil {
		return Result{}, parseError(relPath, err)
	}
	return res, nil
}
