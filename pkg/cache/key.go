package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies one cached page response. Callers must strip
// credentials (api_key) from Params before building a key, so the same
// page is shared between keyed and anonymous sessions and the key never
// lands in Redis.
type Key struct {
	// Endpoint is the dataset path, e.g. "/drug/ndc.json".
	Endpoint string

	// Params are the request query parameters.
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: fda:drug/ndc.json:limit=10:search=brand_name:"tylenol"
func (k Key) String() string {
	parts := []string{"fda"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Sorted for determinism.
	if len(k.Params) > 0 {
		keys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Params.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
