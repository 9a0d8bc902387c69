package domain

import "net/url"

// DefaultSource is recorded when the page was opened without a tracking parameter.
const DefaultSource = "direct"

// SourceParams are the query parameters read at startup, by priority.
var SourceParams = []string{"source", "utm_source"}

// SourceFromQuery returns the first non-empty tracking parameter of q.
// It falls back to fallback, or DefaultSource when fallback is empty.
func SourceFromQuery(q url.Values, fallback string) string {
	for _, key := range SourceParams {
		if v := q.Get(key); v != "" {
			return v
		}
	}
	if fallback == "" {
		return DefaultSource
	}
	return fallback
}

// SourceFromRawQuery parses a raw query string ("?utm_source=insta" or
// "utm_source=insta") and applies SourceFromQuery.
// Malformed queries yield the fallback.
func SourceFromRawQuery(raw string, fallback string) string {
	if len(raw) > 0 && raw[0] == '?' {
		raw = raw[1:]
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return SourceFromQuery(nil, fallback)
	}
	return SourceFromQuery(q, fallback)
}
