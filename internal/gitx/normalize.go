package gitx

import (
	"net/url"
	"sort"
	"strings"
)

// NormalizeRemoteURL converts a git remote URL into the canonical HTTPS
// form used to correlate identical remotes cloned via different protocols.
//
// Rules:
//   - Convert SSH shorthand (git@host:owner/repo) to https://host/owner/repo
//   - Rewrite any other scheme (ssh://, git://, http://) to https://
//   - Drop credentials and ports
//   - Strip a trailing slash, then a trailing ".git"
//   - Lowercase the result
//
// Examples:
//
//	git@github.com:Org/Repo.git     → https://github.com/org/repo
//	https://github.com/Org/Repo.git → https://github.com/org/repo
func NormalizeRemoteURL(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}

	var host, path string

	// Handle SSH shorthand: git@host:path
	if i := strings.Index(raw, "@"); i >= 0 && !strings.Contains(raw[:i], "://") {
		rest := raw[i+1:]
		if colonIdx := strings.Index(rest, ":"); colonIdx >= 0 {
			host = rest[:colonIdx]
			path = rest[colonIdx+1:]
		}
	} else {
		parsed, err := url.Parse(raw)
		if err == nil && parsed.Host != "" {
			host = parsed.Hostname()
			path = strings.TrimPrefix(parsed.Path, "/")
		} else {
			// Not a URL (for example a local filesystem remote).
			path = raw
		}
	}

	path = strings.TrimRight(path, "/")
	path = strings.TrimSuffix(path, ".git")
	path = strings.TrimRight(path, "/")

	if host == "" {
		return strings.ToLower(path)
	}
	return strings.ToLower("https://" + host + "/" + path)
}

// PrimaryRemote selects the preferred remote from a list.
// Prefers "origin", falls back to first alphabetically.
func PrimaryRemote(remoteNames []string) string {
	if len(remoteNames) == 0 {
		return ""
	}
	for _, name := range remoteNames {
		if name == "origin" {
			return "origin"
		}
	}
	sorted := make([]string, len(remoteNames))
	copy(sorted, remoteNames)
	sort.Strings(sorted)
	return sorted[0]
}
