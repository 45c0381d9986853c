package utils

import (
	"path"
	"strings"
)

// Dir returns the forward-slash parent directory of rel, "." for top-level
// entries.
func Dir(rel string) string {
	d := path.Dir(strings.ReplaceAll(rel, "\\", "/"))
	if d == "" || d == "/" {
		return "."
	}
	return d
}

// Depth counts the segments of a directory path; "." has depth 0.
func Depth(dir string) int {
	if dir == "." || dir == "" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}

// IsWithin reports whether rel equals dir or lies below it. Every path is
// within ".".
func IsWithin(rel, dir string) bool {
	if dir == "." || dir == "" {
		return true
	}
	return rel == dir || strings.HasPrefix(rel, dir+"/")
}

// Ancestors lists dir and each of its parents up to and including ".",
// nearest first.
func Ancestors(dir string) []string {
	out := []string{}
	for {
		out = append(out, dir)
		if dir == "." || dir == "" {
			return out
		}
		dir = Dir(dir)
	}
}

// Segments splits a relative path into its lowercase segments.
func Segments(rel string) []string {
	if rel == "" || rel == "." {
		return nil
	}
	return strings.Split(strings.ToLower(rel), "/")
}
