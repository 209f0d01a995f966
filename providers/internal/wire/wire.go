// Package wire holds decoding helpers shared by provider adapters.
package wire

import (
	"encoding/json"
	"sort"
	"strings"
)

// FlexString accepts a JSON string or number. Vendors disagree on whether
// task ids and timestamps are quoted.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	if string(b) == "null" {
		*s = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string { return string(s) }

// JoinCookies renders cookies in name order, joining name and value with kv
// and pairs with sep.
func JoinCookies(cookies map[string]string, kv, sep string) string {
	names := make([]string, 0, len(cookies))
	for n := range cookies {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+kv+cookies[n])
	}
	return strings.Join(parts, sep)
}
