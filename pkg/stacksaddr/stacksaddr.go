// Package stacksaddr validates the syntactic shape of Stacks principal
// addresses. Deep (checksum) validation is out of scope, matching the
// specification's "deep type validation is out of scope; the upstream
// executor rejects mismatches" stance applied here to addresses: this
// package only checks the prefix, length and character set, the way a router
// would reject obviously malformed input before spending a request on
// it.
package stacksaddr

import "strings"

// c32Alphabet is the Crockford-style base32 alphabet Stacks addresses
// are encoded with (digits and uppercase letters, excluding I, L, O, U).
const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	minLength = 28
	maxLength = 41
)

// Network is the chain a principal address belongs to, derived from its
// two-letter prefix.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

var prefixNetwork = map[string]Network{
	"SP": Mainnet,
	"SM": Mainnet,
	"ST": Testnet,
	"SN": Testnet,
}

// Validate reports whether addr has the syntactic shape of a Stacks
// principal address (correct two-letter network prefix, c32 alphabet,
// plausible length) and, if so, which network it belongs to.
func Validate(addr string) (Network, bool) {
	if len(addr) < minLength || len(addr) > maxLength {
		return "", false
	}
	network, ok := prefixNetwork[addr[:2]]
	if !ok {
		return "", false
	}
	for _, r := range addr[2:] {
		if !strings.ContainsRune(c32Alphabet, r) {
			return "", false
		}
	}
	return network, true
}

// ValidNetwork reports whether name is one of the two recognized
// network identifiers used by the read-only call endpoint.
func ValidNetwork(name string) bool {
	return name == string(Mainnet) || name == string(Testnet)
}
