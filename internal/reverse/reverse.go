// Package reverse extracts the text parameter from a query string and reverses it.
package reverse

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// TextParam is the query parameter whose value is reversed.
const TextParam = "text"

var (
	// ErrMissingText is returned when the query has no text parameter.
	ErrMissingText = errors.New("missing text parameter")
	// ErrMalformedQuery is returned when the query string cannot be decoded.
	ErrMalformedQuery = errors.New("malformed query string")
)

// Bytes returns s with its bytes in reverse order. Multi-byte UTF-8
// sequences are not kept together.
func Bytes(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// TextFromQuery returns the decoded value of the text parameter in rawQuery.
// Pairs are separated by '&' only, so ';' is ordinary data. Each key and
// value is unescaped as in net/url ('+' is a space). When the key repeats
// the last occurrence wins.
func TextFromQuery(rawQuery string) (string, error) {
	var (
		text  string
		found bool
	)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return "", errors.Wrapf(ErrMalformedQuery, "key %q: %v", rawKey, err)
		}
		if key != TextParam {
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return "", errors.Wrapf(ErrMalformedQuery, "value %q: %v", rawValue, err)
		}
		text, found = value, true
	}

	if !found {
		return "", ErrMissingText
	}
	return text, nil
}
