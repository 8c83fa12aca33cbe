// Package urlquery rewrites query parameters of URL strings.
//
// Both operations are pure: parse the URL, rewrite the parameter set,
// re-serialise. Scheme, host, path and fragment pass through unchanged.
// The query string is parsed strictly — a malformed query is an error,
// never silently dropped. Re-serialisation is canonical (percent-encoded,
// keys sorted), so unrelated parameters may come back with different byte
// encoding but always with the same values.
package urlquery

import (
	"fmt"
	"net/url"
	"strings"
)

// QueryFormatError reports a query string that failed strict parsing.
type QueryFormatError struct {
	// Query is the raw query string that was rejected.
	Query string
	// Field is the offending key=value segment.
	Field string
	// Err is the underlying cause, if any (e.g. a bad percent escape).
	Err error
}

func (e *QueryFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("urlquery: malformed query %q: field %q: %v", e.Query, e.Field, e.Err)
	}
	return fmt.Sprintf("urlquery: malformed query %q: field %q", e.Query, e.Field)
}

func (e *QueryFormatError) Unwrap() error { return e.Err }

// SetParameter returns rawURL with the query parameter name set to exactly
// [value], replacing any existing values for that key. Calling it twice with
// the same arguments yields the same output.
func SetParameter(rawURL, name, value string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("urlquery: parse %q: %w", rawURL, err)
	}
	values, err := parseStrict(u.RawQuery)
	if err != nil {
		return "", err
	}
	values[name] = []string{value}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// RemoveParameter returns rawURL with every value for the query parameter
// name removed. A key that is not present is not an error.
func RemoveParameter(rawURL, name string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("urlquery: parse %q: %w", rawURL, err)
	}
	values, err := parseStrict(u.RawQuery)
	if err != nil {
		return "", err
	}
	delete(values, name)
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// parseStrict parses a raw query string into url.Values. Unlike
// url.ParseQuery it rejects empty fields ("a=1&&b=2") and fields without
// an equals sign, in addition to invalid percent escapes. An empty query
// is valid and yields an empty set.
func parseStrict(rawQuery string) (url.Values, error) {
	values := url.Values{}
	if rawQuery == "" {
		return values, nil
	}
	for _, field := range strings.Split(rawQuery, "&") {
		if field == "" {
			return nil, &QueryFormatError{Query: rawQuery, Field: field}
		}
		key, val, found := strings.Cut(field, "=")
		if !found || key == "" {
			return nil, &QueryFormatError{Query: rawQuery, Field: field}
		}
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			return nil, &QueryFormatError{Query: rawQuery, Field: field, Err: err}
		}
		decodedVal, err := url.QueryUnescape(val)
		if err != nil {
			return nil, &QueryFormatError{Query: rawQuery, Field: field, Err: err}
		}
		values[decodedKey] = append(values[decodedKey], decodedVal)
	}
	return values, nil
}
