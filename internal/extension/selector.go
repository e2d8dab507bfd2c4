package extension

import (
	"fmt"
	"strings"
)

// ParseLabelSelector compiles an equality-based label selector string into
// a condition tree over Label* predicates. Supported requirements, joined
// by commas:
//
//	key=value    key has exactly value
//	key==value   same as key=value
//	key!=value   key present with a different value
//	key          key present
//	!key         key absent
//
// Set-based requirements (`key in (a,b)`) are not supported here; callers
// needing them build a Condition directly.
func ParseLabelSelector(selector string) (*Condition, error) {
	parts := strings.Split(selector, ",")
	var root *Condition
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		req, err := parseRequirement(part)
		if err != nil {
			return nil, err
		}
		if root == nil {
			root = req
		} else {
			root = And(root, req)
		}
	}
	if root == nil {
		return Empty(), nil
	}
	return root, nil
}

func parseRequirement(req string) (*Condition, error) {
	if k, v, ok := strings.Cut(req, "!="); ok {
		key, value := strings.TrimSpace(k), strings.TrimSpace(v)
		if key == "" {
			return nil, fmt.Errorf("invalid selector requirement %q: empty key", req)
		}
		return LabelNotEquals(key, value), nil
	}
	if k, v, ok := strings.Cut(req, "=="); ok {
		return equalsRequirement(req, k, v)
	}
	if k, v, ok := strings.Cut(req, "="); ok {
		return equalsRequirement(req, k, v)
	}
	if rest, ok := strings.CutPrefix(req, "!"); ok {
		key := strings.TrimSpace(rest)
		if key == "" {
			return nil, fmt.Errorf("invalid selector requirement %q: empty key", req)
		}
		return LabelNotExists(key), nil
	}
	return LabelExists(req), nil
}

func equalsRequirement(req, k, v string) (*Condition, error) {
	key, value := strings.TrimSpace(k), strings.TrimSpace(v)
	if key == "" {
		return nil, fmt.Errorf("invalid selector requirement %q: empty key", req)
	}
	return LabelEquals(key, value), nil
}
