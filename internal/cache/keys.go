package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
)

// DocumentKey derives the cache key of a rendered document from the request
// path, its sorted query parameters, and the negotiated media type.
func DocumentKey(r *http.Request) string {
	parts := []string{r.Method, r.URL.Path}

	if r.URL.RawQuery != "" {
		query := r.URL.Query()
		var pairs []string
		for key, values := range query {
			sort.Strings(values)
			for _, value := range values {
				pairs = append(pairs, key+"="+value)
			}
		}
		sort.Strings(pairs)
		parts = append(parts, strings.Join(pairs, "&"))
	}

	parts = append(parts, r.Header.Get("Accept"))

	hash := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return "doc:" + hex.EncodeToString(hash[:16])
}
