package clarity

import "strings"

// Abi is a contract's interface: the catalogue of callable functions
// with their argument lists and access level. Contract code is
// immutable after deployment, so an Abi is cached indefinitely once
// fetched (see ContractAbiStore in the contractcalls package).
type Abi struct {
	Functions []AbiFunction `json:"functions"`
}

// AbiFunction describes one function in a contract's interface.
type AbiFunction struct {
	Name   string   `json:"name"`
	Access string   `json:"access"` // public | read_only | private
	Args   []AbiArg `json:"args"`
}

// AbiArg describes one argument of an AbiFunction. Type is kept as a
// raw string/structure from the upstream interface response; this
// codebase only needs argument *count*, not deep type validation (the
// upstream executor rejects type mismatches itself).
type AbiArg struct {
	Name string `json:"name"`
	Type any    `json:"type"`
}

// FindFunction looks up a function by name.
func (a Abi) FindFunction(name string) (AbiFunction, bool) {
	for _, fn := range a.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return AbiFunction{}, false
}

// Callable reports whether this function can be invoked through the
// read-only call endpoint: public and read-only functions qualify,
// private ones do not.
func (f AbiFunction) Callable() bool {
	access := strings.ToLower(f.Access)
	return access == "public" || access == "read_only"
}
