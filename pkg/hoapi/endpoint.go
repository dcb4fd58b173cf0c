package hoapi

import "strings"

// normalizePath gives path exactly one leading slash and keeps its query
// string verbatim. An empty path (or one made only of slashes) addresses the
// content root and yields "".
func normalizePath(path string) string {
	p, query, hasQuery := strings.Cut(path, "?")
	p = strings.TrimLeft(p, "/")
	if p != "" {
		p = "/" + p
	}
	if hasQuery {
		return p + "?" + query
	}
	return p
}

// normalizeContent gives the content prefix one leading slash and no trailing
// slash. A prefix made only of slashes collapses to "".
func normalizeContent(content string) string {
	c := strings.Trim(content, "/")
	if c == "" {
		return ""
	}
	return "/" + c
}

// joinURL concatenates base, content and an already normalized uri.
func joinURL(base, content, uri string) string {
	return strings.TrimRight(base, "/") + normalizeContent(content) + uri
}
