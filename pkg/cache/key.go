package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached ISS response.
type Key struct {
	// Endpoint is the ISS endpoint path (e.g., "/iss/engines.json").
	Endpoint string

	// Params are the query parameters of the request.
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: iss:endpoint:param1=val1:param2=val2
//
// Example:
//
//	iss:iss/securities.json:q=SBER:start=0
func (k Key) String() string {
	parts := []string{"iss"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params.Get(name)))
		}
	}

	return strings.Join(parts, ":")
}
