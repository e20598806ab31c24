package client

import (
	"net/http"
	"strings"
)

// Access says how a request to an endpoint is authenticated.
type Access int

const (
	// Bearer endpoints carry the stored access token and recover from a 401 by
	// refreshing it once.
	Bearer Access = iota
	// Anonymous endpoints are sent without a token and never trigger a refresh.
	Anonymous
)

func (a Access) String() string {
	if a == Anonymous {
		return "anonymous"
	}
	return "bearer"
}

// Rule matches a method and a path pattern. Pattern segments written as
// {name} match any single path segment.
type Rule struct {
	Method  string
	Pattern string
	Access  Access
}

// Policy is the per-endpoint authentication table. Endpoints without a rule
// use Bearer.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules ...Rule) *Policy {
	copied := make([]Rule, len(rules))
	copy(copied, rules)
	return &Policy{rules: copied}
}

// DefaultPolicy exempts the anonymous resume upload and the credential
// exchange endpoints; everything else is Bearer.
func DefaultPolicy() *Policy {
	return NewPolicy(
		Rule{Method: http.MethodPost, Pattern: "/auth/login/", Access: Anonymous},
		Rule{Method: http.MethodPost, Pattern: "/auth/register/", Access: Anonymous},
		Rule{Method: http.MethodPost, Pattern: "/auth/token/refresh/", Access: Anonymous},
		Rule{Method: http.MethodPost, Pattern: "/resumes/", Access: Anonymous},
	)
}

func (p *Policy) AccessFor(method string, path string) Access {
	if p == nil {
		return Bearer
	}

	for _, rule := range p.rules {
		if !strings.EqualFold(rule.Method, method) {
			continue
		}
		if matchPattern(rule.Pattern, path) {
			return rule.Access
		}
	}

	return Bearer
}

func matchPattern(pattern string, path string) bool {
	patternParts := splitPath(pattern)
	pathParts := splitPath(path)
	if len(patternParts) != len(pathParts) {
		return false
	}

	for i, part := range patternParts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			if pathParts[i] == "" {
				return false
			}
			continue
		}
		if part != pathParts[i] {
			return false
		}
	}

	return true
}

func splitPath(path string) []string {
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, "/")
}
