// Package cache provides content-addressed caching of tool results.
//
// Keys are derived from the tool name and a canonical serialization of the
// input, so semantically equal inputs hit the same entry regardless of map
// insertion order. Expiry is lazy and driven by an injected clock; a TTL of
// Forever never expires. Only successful results should be stored here.
package cache
