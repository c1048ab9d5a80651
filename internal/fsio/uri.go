package fsio

import (
	"net/url"
	"path/filepath"
	"strings"
)

// IsRemote reports whether the path carries a non-file URI scheme.
func IsRemote(path string) bool {
	u, err := url.Parse(path)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Scheme != "file" && len(u.Scheme) > 1
}

// Join appends path parts to base. Remote bases join with forward slashes;
// local bases use native path joining.
func Join(base string, parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.Trim(part, "/"); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if IsRemote(base) {
		prefix := strings.TrimRight(base, "/")
		if len(cleaned) == 0 {
			return prefix
		}
		return prefix + "/" + strings.Join(cleaned, "/")
	}
	return filepath.Join(append([]string{base}, cleaned...)...)
}

// Parent returns the containing directory of a URI, or "" when there is
// none to speak of.
func Parent(uri string) string {
	if IsRemote(uri) {
		if idx := strings.LastIndex(uri, "/"); idx > 0 {
			return uri[:idx]
		}
		return ""
	}
	dir := filepath.Dir(uri)
	if dir == "." {
		return ""
	}
	return dir
}

// LastSegment returns the final path segment of a local path or URI.
func LastSegment(uri string) string {
	trimmed := strings.TrimRight(uri, "/")
	if trimmed == "" {
		return ""
	}
	if IsRemote(trimmed) {
		if u, err := url.Parse(trimmed); err == nil {
			segments := strings.Split(strings.Trim(u.Path, "/"), "/")
			if last := segments[len(segments)-1]; last != "" {
				return last
			}
			return u.Host
		}
	}
	return filepath.Base(trimmed)
}

// Scheme returns the URI scheme, or "" for local paths.
func Scheme(uri string) string {
	if !IsRemote(uri) {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return u.Scheme
}
