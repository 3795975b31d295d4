package query

import (
	"fmt"
	"strings"
)

// Record is one raw openFDA result. Field layout is endpoint-specific,
// so records expose generic path-based accessors instead of typed fields.
type Record struct {
	Raw map[string]any `json:"raw"`
}

// Value resolves a dot-separated field path ("openfda.brand_name") against
// the raw record. Returns nil when any path segment is missing. If a
// segment resolves to a list, the first element is used; openFDA wraps
// most scalar fields in single-element arrays.
func (r Record) Value(path string) any {
	var current any = r.Raw

	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
		if list, ok := current.([]any); ok {
			if len(list) == 0 {
				return nil
			}
			current = list[0]
		}
	}

	return current
}

// String returns the field at path rendered as a string, or "" when the
// field is missing.
func (r Record) String(path string) string {
	v := r.Value(path)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Strings returns a list-valued field as a string slice. A scalar field
// is returned as a single-element slice.
func (r Record) Strings(path string) []string {
	var current any = r.Raw

	segments := strings.Split(path, ".")
	for i, segment := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
		// Only descend into lists mid-path; keep the final list intact.
		if list, ok := current.([]any); ok && i < len(segments)-1 {
			if len(list) == 0 {
				return nil
			}
			current = list[0]
		}
	}

	switch v := current.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return []string{fmt.Sprint(v)}
	}
}

// Result is the merged outcome of one search across all fetched pages.
type Result struct {
	// Records in server order, which equals sort order when the query
	// carried a sort parameter.
	Records []Record

	// TotalResults is the server-reported total from the first page
	// response. It is a snapshot, not a live count: the server may report
	// different totals as pagination progresses, so later pages never
	// update it.
	TotalResults int
}

// Returned is the number of records actually fetched.
func (r *Result) Returned() int {
	return len(r.Records)
}
