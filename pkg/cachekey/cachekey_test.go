package cachekey

import (
	"strings"
	"testing"
)

func TestContractCall_Deterministic(t *testing.T) {
	args := []map[string]any{{"type": "uint", "value": "1"}}
	k1, err := ContractCall("contract_call", "SP000...ABC", "my-token", "get-balance", "mainnet", args)
	if err != nil {
		t.Fatalf("ContractCall: %v", err)
	}
	k2, err := ContractCall("contract_call", "SP000...ABC", "my-token", "get-balance", "mainnet", args)
	if err != nil {
		t.Fatalf("ContractCall: %v", err)
	}
	if k1 != k2 {
		t.Fatalf("same arguments produced different keys: %q vs %q", k1, k2)
	}
}

func TestContractCall_DifferentArgsDifferentKey(t *testing.T) {
	k1, _ := ContractCall("contract_call", "SP1", "n", "f", "mainnet", []any{1})
	k2, _ := ContractCall("contract_call", "SP1", "n", "f", "mainnet", []any{2})
	if k1 == k2 {
		t.Fatal("different arguments produced the same key")
	}
}

func TestContractCall_Shape(t *testing.T) {
	k, err := ContractCall("calls", "SP1", "my-token", "get-balance", "mainnet", []any{})
	if err != nil {
		t.Fatalf("ContractCall: %v", err)
	}
	parts := strings.Split(k, "_")
	if len(parts) != 6 {
		t.Fatalf("ContractCall key has %d parts, want 6: %q", len(parts), k)
	}
	if hash := parts[len(parts)-1]; len(hash) != hashPrefixLen {
		t.Fatalf("hash suffix length = %d, want %d", len(hash), hashPrefixLen)
	}
}

func TestPath_ReplacesSlashes(t *testing.T) {
	got := Path("route_", "/v1/addresses/SP1")
	want := "route__v1_addresses_SP1"
	if got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}
}

func TestBuffer_MarshalsAsTypedArray(t *testing.T) {
	b := Buffer{1, 2, 255}
	data, err := b.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	want := `{"type":"Buffer","data":[1,2,255]}`
	if string(data) != want {
		t.Fatalf("MarshalJSON() = %s, want %s", data, want)
	}
}
