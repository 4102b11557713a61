// Package cachekey builds deterministic cache keys, grounded on
// pkg/utils/hash.go's use of a stdlib hash function and the same
// "serialize, hash, truncate" shape applied here to sha256 instead of
// fnv, since key collisions here must be cryptographically unlikely
// rather than merely well-distributed.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// hashPrefixLen is the number of hex characters (40 bits) taken from the
// SHA-256 digest of a call's arguments. A readability/collision trade-off:
// sufficient given the small cardinality per (address, name, fn, network).
const hashPrefixLen = 10

// ContractCall builds the cache key for a read-only contract call:
// prefix_address_name_fn_network_h, where h is the first hashPrefixLen
// hex characters of SHA-256 over a stable JSON serialization of args.
func ContractCall(prefix, address, name, fn, network string, args any) (string, error) {
	digest, err := argsDigest(args)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{prefix, address, name, fn, network, digest}, "_"), nil
}

// argsDigest serializes args with encoding/json (so BigInt and Buffer
// values use their own MarshalJSON: decimal strings and
// {type:"Buffer",data:[...]}; plain Go numbers stay JSON numbers, and map
// keys are emitted sorted) so that two logically-equal argument lists
// always hash identically regardless of map key ordering in the caller.
func argsDigest(args any) (string, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashPrefixLen], nil
}

// Path builds the cache key for a simple path-based route cache:
// routePrefix with every "/" in path replaced by "_".
func Path(routePrefix, path string) string {
	return routePrefix + strings.ReplaceAll(path, "/", "_")
}

// Buffer serializes as {"type":"Buffer","data":[...]}, matching the wire
// shape contract-call arguments use for raw byte arguments so that a
// buffer argument hashes identically regardless of which language
// produced the call.
type Buffer []byte

// MarshalJSON implements the {type,data} shape. Data is encoded as an
// array of byte values, not base64, matching Buffer.toJSON()'s output in
// the upstream format this mirrors.
func (b Buffer) MarshalJSON() ([]byte, error) {
	data := make([]int, len(b))
	for i, v := range b {
		data[i] = int(v)
	}
	type wire struct {
		Type string `json:"type"`
		Data []int  `json:"data"`
	}
	return json.Marshal(wire{Type: "Buffer", Data: data})
}
