package clarity

import "testing"

func TestToSimplified_RoundTripsThroughFromSimplified(t *testing.T) {
	original := map[string]any{
		"type": "tuple",
		"value": map[string]any{
			"amount": map[string]any{"type": "uint", "value": "9007199254740993"},
			"memo":   map[string]any{"type": "string-ascii", "value": "hi"},
		},
	}

	v, err := FromSimplified(original)
	if err != nil {
		t.Fatalf("FromSimplified: %v", err)
	}

	back := ToSimplified(v)
	v2, err := FromSimplified(back)
	if err != nil {
		t.Fatalf("FromSimplified(ToSimplified(v)): %v", err)
	}

	if ToJSON(v, true, false).(map[string]any)["amount"] != ToJSON(v2, true, false).(map[string]any)["amount"] {
		t.Fatalf("round trip changed amount field")
	}
}

func TestToSimplified_Buffer(t *testing.T) {
	v := Value{Kind: KindBuffer, Buf: []byte{0xde, 0xad, 0xbe, 0xef}}
	got := ToSimplified(v)
	if got["type"] != "buffer" || got["value"] != "0xdeadbeef" {
		t.Fatalf("ToSimplified(buffer) = %v", got)
	}
}

func TestAbi_FindFunctionAndCallable(t *testing.T) {
	abi := Abi{Functions: []AbiFunction{
		{Name: "get-balance", Access: "read_only", Args: []AbiArg{{Name: "who"}}},
		{Name: "set-owner", Access: "private"},
	}}

	fn, ok := abi.FindFunction("get-balance")
	if !ok || !fn.Callable() {
		t.Fatalf("get-balance should be found and callable")
	}

	fn2, ok := abi.FindFunction("set-owner")
	if !ok || fn2.Callable() {
		t.Fatalf("set-owner should be found but not callable (private)")
	}

	if _, ok := abi.FindFunction("missing"); ok {
		t.Fatalf("missing function should not be found")
	}
}
