package clone

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// scpLike matches git@host:owner/repo(.git).
var scpLike = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:[^/].*$`)

var dirName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Normalize trims and validates a remote URL and derives a directory name
// from its last path segment. Accepted forms are http(s)://, ssh://, git://,
// file:// and scp-like user@host:path.
func Normalize(raw string) (remote, name string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("%w: url is required", ErrInvalidURL)
	}
	if strings.HasPrefix(raw, "-") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	var repoPath string
	if scpLike.MatchString(raw) && !strings.Contains(raw, "://") {
		repoPath = raw[strings.Index(raw, ":")+1:]
	} else {
		u, perr := url.Parse(raw)
		if perr != nil {
			return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, perr)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https", "ssh", "git":
			if u.Host == "" {
				return "", "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
			}
		case "file":
		default:
			return "", "", fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidURL, raw)
		}
		repoPath = u.Path
	}

	repoPath = strings.Trim(repoPath, "/")
	if repoPath == "" {
		return "", "", fmt.Errorf("%w: %q has no repository path", ErrInvalidURL, raw)
	}
	name = strings.TrimSuffix(path.Base(repoPath), ".git")
	name = strings.Trim(dirName.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		name = "repo"
	}
	return raw, name, nil
}
