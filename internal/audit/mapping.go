package audit

import (
	"net/http"
	"strings"
)

// ActionResource holds action and resource derived from an HTTP method and route pattern.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseRoute returns action and resource for a request, given its method and the
// matched route pattern (e.g. "PATCH", "/admin/users/{id}/deactivate").
// Resource is the last static path segment naming a collection, singularized
// (questions -> question). A trailing static verb segment after a parameter
// (activate, deactivate, attempt) becomes the action; otherwise the action is
// derived from the HTTP method.
func ParseRoute(method, pattern string) ActionResource {
	var segs []string
	for _, s := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}

	action := ""
	last := segs[len(segs)-1]
	if len(segs) >= 2 && !isParam(last) && isParam(segs[len(segs)-2]) {
		action = strings.ReplaceAll(last, "-", "_")
		segs = segs[:len(segs)-2]
	}

	resource := "unknown"
	for k := len(segs) - 1; k >= 0; k-- {
		if !isParam(segs[k]) {
			resource = singular(segs[k])
			break
		}
	}
	if action == "" {
		action = methodToAction(method, isParam(last))
	}
	return ActionResource{Action: action, Resource: resource}
}

func isParam(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

func singular(s string) string {
	s = strings.ReplaceAll(s, "-", "_")
	if strings.HasSuffix(s, "s") && len(s) > 1 && !strings.HasSuffix(s, "ss") {
		return s[:len(s)-1]
	}
	return s
}

func methodToAction(method string, item bool) string {
	switch method {
	case http.MethodGet:
		if item {
			return "get"
		}
		return "list"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
