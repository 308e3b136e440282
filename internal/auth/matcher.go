package auth

import (
	"strings"

	"github.com/casbin/casbin/v2/util"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Allowed reports whether the session may call method on path. path must already
// have the global prefix removed.
func Allowed(session *domain.Session, path, method string) bool {
	if session == nil {
		return false
	}
	if session.Role.IsConfigurator {
		return true
	}
	path = cleanPath(path)
	for _, perm := range session.Role.Permissions {
		if !hasMethod(perm.Methods, method) {
			continue
		}
		if MatchEndpoint(perm.Endpoint, path) {
			return true
		}
	}
	return false
}

// MatchEndpoint matches a concrete path against a permission endpoint such as
// "/branch" or "/branch/:id". The endpoint also grants everything beneath its
// literal part, compared segment by segment.
func MatchEndpoint(endpoint, path string) bool {
	endpoint = cleanPath(endpoint)
	path = cleanPath(path)
	if util.KeyMatch2(path, endpoint) {
		return true
	}
	literal := literalPrefix(endpoint)
	if literal == "" {
		return false
	}
	return path == literal || util.KeyMatch2(path, literal+"/*")
}

// literalPrefix returns the segments of endpoint before its first ":param" or "*".
func literalPrefix(endpoint string) string {
	segments := strings.Split(strings.Trim(endpoint, "/"), "/")
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" || strings.HasPrefix(seg, ":") || strings.Contains(seg, "*") {
			break
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return ""
	}
	return "/" + strings.Join(kept, "/")
}

// StripPrefix removes the global route prefix from path.
func StripPrefix(path, prefix string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return path
	}
	if path == prefix {
		return "/"
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix):]
	}
	return path
}

func cleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func hasMethod(methods []string, method string) bool {
	for _, m := range methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
