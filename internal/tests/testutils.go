// Package tests holds small helpers shared by this module's tests.
package tests

import (
	"net/url"
	"strings"
)

func MustURL(s string) *url.URL {
	u, err := url.Parse(s)
	if err != nil {
		panic(err)
	}

	return u
}

// OID returns a 40-hex object id made of the single digit c, e.g.
// OID('a') == "aaaa…a".
func OID(c byte) string {
	return strings.Repeat(string(c), 40)
}
