// Package fieldx packs and unpacks ordered field tuples used inside
// capability token channels. The sentinel is fixed and shared with the
// token format handed out to clients, so it must never change once
// tokens are in circulation.
package fieldx

import "strings"

// Sentinel separates fields inside a packed channel. Chosen to be
// unlikely to appear in usernames or numeric ids.
const Sentinel = ":-:"

// Pack joins fields with the sentinel.
//
// No escaping is performed: a field containing the sentinel corrupts
// the tuple on the way back out. Callers must reject such values before
// packing (see ContainsSentinel).
func Pack(fields ...string) string {
	return strings.Join(fields, Sentinel)
}

// Unpack splits a packed channel back into its fields. Unpack(Pack(f...))
// returns f for any fields free of the sentinel.
func Unpack(s string) []string {
	return strings.Split(s, Sentinel)
}

// ContainsSentinel reports whether a value would corrupt a packed tuple.
func ContainsSentinel(s string) bool {
	return strings.Contains(s, Sentinel)
}
