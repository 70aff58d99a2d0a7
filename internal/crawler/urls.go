package crawler

import (
	"net/url"
	"strings"
)

// NormalizeURL reduces rawURL to scheme://host[:port]/path without trailing
// slashes, dropping query and fragment. Input that does not parse as an
// absolute url is returned unchanged.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host + strings.TrimRight(u.EscapedPath(), "/")
}

// PagePath returns the path of u relative to root, "/" for the root itself.
// The boolean is false when u is not under root.
func PagePath(root, u string) (string, bool) {
	root = strings.TrimRight(root, "/")
	if !strings.HasPrefix(u, root) {
		return "", false
	}
	rest := u[len(root):]
	if rest != "" && !strings.HasPrefix(rest, "/") {
		return "", false
	}
	rest = strings.TrimRight(rest, "/")
	if rest == "" {
		return "/", true
	}
	return rest, true
}

// SameHost reports whether both urls point at the same host and port
func SameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host != "" && strings.EqualFold(ua.Host, ub.Host)
}
