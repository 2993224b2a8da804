// Package urlnorm canonicalizes source URLs so that common variations of the
// same address deduplicate to one item.
package urlnorm

import (
	"net/url"
	"sort"
	"strings"
)

// query parameters that never change the addressed content.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"mc_cid":  true,
	"mc_eid":  true,
	"ref":     true,
	"ref_src": true,
}

// Normalize returns the canonical form of a URL: lowercase scheme and host,
// no www prefix, no default port, no fragment, no tracking parameters, sorted
// remaining query, no trailing slash. Unparseable input is returned as-is so
// a malformed URL still deduplicates against itself.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	port := u.Port()
	if port != "" && !isDefaultPort(u.Scheme, port) {
		host += ":" + port
	}
	u.Host = host

	u.Fragment = ""
	u.RawQuery = cleanQuery(u.Query())
	u.Path = strings.TrimRight(u.Path, "/")

	return u.String()
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

func cleanQuery(q url.Values) string {
	keys := make([]string, 0, len(q))
	for key := range q {
		if trackingParams[key] || strings.HasPrefix(key, "utm_") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		values := q[key]
		sort.Strings(values)
		for _, v := range values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
