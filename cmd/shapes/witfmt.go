package main

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"
)

// witTypeStr renders t back as a WIT type expression. Named definitions
// render as their name.
func witTypeStr(t wit.Type) string {
	switch v := t.(type) {
	case nil:
		return "_"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		return typeDefStr(v.Kind)
	default:
		return fmt.Sprintf("%T", t)
	}
}

func typeDefStr(kind wit.TypeDefKind) string {
	switch k := kind.(type) {
	case *wit.List:
		return "list<" + witTypeStr(k.Type) + ">"
	case *wit.Option:
		return "option<" + witTypeStr(k.Type) + ">"
	case *wit.Result:
		switch {
		case k.OK == nil && k.Err == nil:
			return "result"
		case k.Err == nil:
			return "result<" + witTypeStr(k.OK) + ">"
		}
		return "result<" + witTypeStr(k.OK) + ", " + witTypeStr(k.Err) + ">"
	case *wit.Tuple:
		parts := make([]string, len(k.Types))
		for i, t := range k.Types {
			parts[i] = witTypeStr(t)
		}
		return "tuple<" + strings.Join(parts, ", ") + ">"
	case *wit.Record:
		parts := make([]string, len(k.Fields))
		for i, f := range k.Fields {
			parts[i] = f.Name + ": " + witTypeStr(f.Type)
		}
		return "record { " + strings.Join(parts, ", ") + " }"
	case *wit.Enum:
		parts := make([]string, len(k.Cases))
		for i, c := range k.Cases {
			parts[i] = c.Name
		}
		return "enum { " + strings.Join(parts, ", ") + " }"
	case *wit.Flags:
		parts := make([]string, len(k.Flags))
		for i, f := range k.Flags {
			parts[i] = f.Name
		}
		return "flags { " + strings.Join(parts, ", ") + " }"
	case *wit.Variant:
		parts := make([]string, len(k.Cases))
		for i, c := range k.Cases {
			parts[i] = c.Name
			if c.Type != nil {
				parts[i] += "(" + witTypeStr(c.Type) + ")"
			}
		}
		return "variant { " + strings.Join(parts, ", ") + " }"
	case *wit.Own:
		return "own"
	case *wit.Borrow:
		return "borrow"
	case wit.Type:
		return witTypeStr(k)
	}
	return "typedef"
}
