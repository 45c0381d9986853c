package manifest

import (
	"regexp"
	"strings"
)

var (
	bareVersion = regexp.MustCompile(`^v?\d+(\.\d+)*([-+][0-9A-Za-z][0-9A-Za-z.\-+]*)?$`)
	wildcardSeg = regexp.MustCompile(`(^|\.)[xX*](\.|$)`)
)

// ClassifyVersion splits a declared version into an exact pin or a range
// spec. Empty, "*" and "latest" yield (nil, nil). A bare version such as
// 1.2.3, v1.2.3, ==1.2.3 or [1.2.3] is exact. Anything carrying range
// operators, wildcards or dynamic markers is returned verbatim as a spec, as
// are non-version references (git URLs, file: paths, unresolved ${props}).
func ClassifyVersion(raw string) (exact, spec *string) {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "", "*", "latest", "x", "+":
		return nil, nil
	}
	if strings.ContainsAny(v, "^~<>!,| *") || wildcardSeg.MatchString(v) || strings.HasSuffix(v, "+") {
		return nil, &v
	}
	candidate := v
	for _, p := range []string{"===", "==", "="} {
		if strings.HasPrefix(candidate, p) {
			candidate = strings.TrimSpace(candidate[len(p):])
			break
		}
	}
	if strings.HasPrefix(candidate, "[") && strings.HasSuffix(candidate, "]") {
		candidate = strings.TrimSpace(candidate[1 : len(candidate)-1])
	}
	if bareVersion.MatchString(candidate) {
		return &candidate, nil
	}
	return nil, &v
}
