// Package clarity models Clarity values (the tagged-variant tree Stacks
// smart-contract calls accept as arguments and return as results) as an
// explicit Go sum type, per the redesign guidance to replace a recursive
// tagged-variant decoder with "a sum type with explicit variants;
// decoding is pattern-match plus recursion". preserveContainers becomes
// a bool parameter; strictJsonCompat drives whether integers serialize
// as decimal strings or native JSON numbers.
package clarity

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"encore.app/pkg/apierr"
	"encore.app/pkg/cachestore"
)

// Kind discriminates the Value sum type's variants.
type Kind string

const (
	KindUInt         Kind = "uint"
	KindInt          Kind = "int"
	KindBool         Kind = "bool"
	KindPrincipal    Kind = "principal"
	KindBuffer       Kind = "buffer"
	KindStringAscii  Kind = "string-ascii"
	KindStringUtf8   Kind = "string-utf8"
	KindList         Kind = "list"
	KindTuple        Kind = "tuple"
	KindOptionalSome Kind = "optional-some"
	KindOptionalNone Kind = "optional-none"
	KindResponseOk   Kind = "response-ok"
	KindResponseErr  Kind = "response-err"
)

// Value is a Clarity value: exactly one of the fields below is
// meaningful, selected by Kind. Go has no native sum type, so this
// struct plays that role the way a tagged union would in a language
// that has one.
type Value struct {
	Kind Kind

	Int       cachestore.BigInt // KindUInt, KindInt
	Bool      bool              // KindBool
	Str       string            // KindPrincipal, KindStringAscii, KindStringUtf8
	Buf       []byte            // KindBuffer
	List      []Value           // KindList
	Tuple     map[string]Value  // KindTuple
	TupleKeys []string          // Tuple keys, in the (unspecified) order FromSimplified met them
	Inner     *Value            // KindOptionalSome, KindResponseOk, KindResponseErr
}

// FromSimplified recursively converts the simplified {type, value}
// argument form accepted by the read-only call endpoint into a Value
// tree. Type names are matched case-insensitively and accept the
// aliases listed in the route contract (stringascii, responseok, ...).
func FromSimplified(raw any) (Value, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Value{}, apierr.New(apierr.CodeValidation, "argument must be an object with type and value fields")
	}
	rawType, _ := obj["type"].(string)
	// Normalize case and separators so "string-ascii", "StringAscii",
	// and "stringascii" all name the same variant; ToSimplified emits
	// the hyphenated form and both must round-trip.
	typeName := strings.ToLower(strings.TrimSpace(rawType))
	typeName = strings.NewReplacer("-", "", "_", "").Replace(typeName)
	value := obj["value"]

	switch typeName {
	case "uint":
		n, err := bigIntFromAny(value)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindUInt, Int: n}, nil

	case "int":
		n, err := bigIntFromAny(value)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindInt, Int: n}, nil

	case "bool":
		b, ok := value.(bool)
		if !ok {
			return Value{}, apierr.New(apierr.CodeValidation, "bool argument requires a boolean value")
		}
		return Value{Kind: KindBool, Bool: b}, nil

	case "principal":
		s, ok := value.(string)
		if !ok {
			return Value{}, apierr.New(apierr.CodeValidation, "principal argument requires a string value")
		}
		return Value{Kind: KindPrincipal, Str: s}, nil

	case "buffer":
		buf, err := bufferFromAny(value)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBuffer, Buf: buf}, nil

	case "string", "stringascii":
		s, ok := value.(string)
		if !ok {
			return Value{}, apierr.New(apierr.CodeValidation, "string-ascii argument requires a string value")
		}
		return Value{Kind: KindStringAscii, Str: s}, nil

	case "stringutf8":
		s, ok := value.(string)
		if !ok {
			return Value{}, apierr.New(apierr.CodeValidation, "string-utf8 argument requires a string value")
		}
		return Value{Kind: KindStringUtf8, Str: s}, nil

	case "list":
		items, ok := value.([]any)
		if !ok {
			return Value{}, apierr.New(apierr.CodeValidation, "list argument requires an array value")
		}
		list := make([]Value, 0, len(items))
		for i, item := range items {
			v, err := FromSimplified(item)
			if err != nil {
				return Value{}, apierr.Wrap(apierr.CodeValidation, err, "list item %d", i)
			}
			list = append(list, v)
		}
		return Value{Kind: KindList, List: list}, nil

	case "tuple":
		fields, ok := value.(map[string]any)
		if !ok {
			return Value{}, apierr.New(apierr.CodeValidation, "tuple argument requires an object value")
		}
		tuple := make(map[string]Value, len(fields))
		keys := make([]string, 0, len(fields))
		for k, item := range fields {
			v, err := FromSimplified(item)
			if err != nil {
				return Value{}, apierr.Wrap(apierr.CodeValidation, err, "tuple field %q", k)
			}
			tuple[k] = v
			keys = append(keys, k)
		}
		return Value{Kind: KindTuple, Tuple: tuple, TupleKeys: keys}, nil

	case "none":
		return Value{Kind: KindOptionalNone}, nil

	case "optional", "some":
		inner, err := FromSimplified(value)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindOptionalSome, Inner: &inner}, nil

	case "ok", "responseok":
		inner, err := FromSimplified(value)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindResponseOk, Inner: &inner}, nil

	case "err", "responseerr":
		inner, err := FromSimplified(value)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindResponseErr, Inner: &inner}, nil

	default:
		return Value{}, apierr.New(apierr.CodeValidation, "unrecognized clarity argument type %q", rawType)
	}
}

func bigIntFromAny(value any) (cachestore.BigInt, error) {
	switch v := value.(type) {
	case string:
		n, err := cachestore.ParseBigInt(v)
		if err != nil {
			return cachestore.BigInt{}, apierr.Wrap(apierr.CodeValidation, err, "invalid integer literal")
		}
		return n, nil
	case float64:
		return cachestore.NewBigInt(int64(v)), nil
	default:
		return cachestore.BigInt{}, apierr.New(apierr.CodeValidation, "integer argument requires a numeric or string value")
	}
}

func bufferFromAny(value any) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, apierr.New(apierr.CodeValidation, "buffer argument requires a hex string value")
	}
	s = strings.TrimPrefix(s, "0x")
	buf, err := hex.DecodeString(s)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeValidation, err, "invalid buffer hex literal")
	}
	return buf, nil
}

// ToJSON converts v into a JSON-ready tree. strictJsonCompat renders
// integers as decimal strings instead of native JSON numbers, so large
// balances round-trip without precision loss. preserveContainers keeps
// OptionalSome/ResponseOk/ResponseErr as {type, value} and OptionalNone
// as {type: "none"} instead of transparently unwrapping them (None then
// renders as null); Tuple/List always render as object/array regardless
// of the flag.
func ToJSON(v Value, strictJsonCompat, preserveContainers bool) any {
	switch v.Kind {
	case KindUInt, KindInt:
		if strictJsonCompat {
			return v.Int.String()
		}
		f, _ := strconv.ParseFloat(v.Int.String(), 64)
		return f

	case KindBool:
		return v.Bool

	case KindPrincipal, KindStringAscii, KindStringUtf8:
		return v.Str

	case KindBuffer:
		return map[string]any{"type": "Buffer", "data": bufferToIntSlice(v.Buf)}

	case KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = ToJSON(item, strictJsonCompat, preserveContainers)
		}
		return out

	case KindTuple:
		out := make(map[string]any, len(v.Tuple))
		for k, item := range v.Tuple {
			out[k] = ToJSON(item, strictJsonCompat, preserveContainers)
		}
		return out

	case KindOptionalNone:
		if preserveContainers {
			return map[string]any{"type": "none"}
		}
		return nil

	case KindOptionalSome:
		inner := ToJSON(*v.Inner, strictJsonCompat, preserveContainers)
		if preserveContainers {
			return map[string]any{"type": "some", "value": inner}
		}
		return inner

	case KindResponseOk:
		inner := ToJSON(*v.Inner, strictJsonCompat, preserveContainers)
		if preserveContainers {
			return map[string]any{"type": "ok", "value": inner}
		}
		return inner

	case KindResponseErr:
		inner := ToJSON(*v.Inner, strictJsonCompat, preserveContainers)
		if preserveContainers {
			return map[string]any{"type": "err", "value": inner}
		}
		return inner

	default:
		return fmt.Sprintf("<unknown clarity kind %q>", v.Kind)
	}
}

func bufferToIntSlice(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}
