package utils

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// UIDGenerator creates deterministic UIDs from source keys and resolves
// collisions. A generated UID shape is "<slug>-<hash>" (or "<slug>-<hash>-N"
// on collision). Feeding the same keys in the same order always yields the
// same UIDs.
type UIDGenerator struct {
	prefix  string
	used    map[string]struct{}
	counter map[string]int
	byKey   map[string]string
}

// NewUIDGenerator creates a generator whose slugs fall back to prefix when a
// key has no letters or digits (the repository root "." for instance).
// Existing UIDs are reserved up front.
func NewUIDGenerator(prefix string, existing ...string) *UIDGenerator {
	prefix = slugifyASCII(prefix)
	if prefix == "" {
		prefix = "node"
	}
	g := &UIDGenerator{
		prefix:  prefix,
		used:    make(map[string]struct{}, len(existing)+8),
		counter: make(map[string]int, len(existing)+8),
		byKey:   make(map[string]string, len(existing)+8),
	}
	for _, uid := range existing {
		uid = strings.TrimSpace(uid)
		if uid == "" {
			continue
		}
		g.used[uid] = struct{}{}
	}
	return g
}

// Generate returns a unique UID for key. Repeated calls with the same key
// return the UID produced the first time.
func (g *UIDGenerator) Generate(key string) string {
	if uid, ok := g.byKey[key]; ok {
		return uid
	}
	base := g.baseUID(key)
	uid := base
	if _, taken := g.used[base]; taken {
		n := g.counter[base]
		if n < 1 {
			n = 1
		}
		for {
			n++
			candidate := fmt.Sprintf("%s-%d", base, n)
			if _, exists := g.used[candidate]; !exists {
				uid = candidate
				g.counter[base] = n
				break
			}
		}
	} else {
		g.counter[base] = 1
	}
	g.used[uid] = struct{}{}
	g.byKey[key] = uid
	return uid
}

func (g *UIDGenerator) baseUID(key string) string {
	key = strings.TrimSpace(key)
	slug := slugifyASCII(key)
	if slug == "" {
		slug = g.prefix
	}
	return fmt.Sprintf("%s-%s", slug, shortHashHex(key))
}

func shortHashHex(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	sum := h.Sum64()
	return fmt.Sprintf("%08x", uint32(sum&0xffffffff))
}

func slugifyASCII(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
