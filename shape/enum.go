package shape

import (
	"reflect"

	"fortio.org/safecast"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/ptr"
)

type enumDecl struct {
	variants []reflect.Type
}

type intEnumDecl struct {
	cases []enumCase
}

type enumCase struct {
	name  string
	value int64
}

// Integer is the set of types an integer-backed enum can be declared on.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// EnumCase names one value of an integer-backed enum.
type EnumCase[T Integer] struct {
	Name  string
	Value T
}

// RegisterEnum declares the interface I as an enum whose variants are the
// dynamic types of the given values, in order. Pointer variants are stored
// by reference. Registration must happen before the shape of I is used.
func RegisterEnum[I any](variants ...any) error {
	types := make([]reflect.Type, 0, len(variants))
	for _, v := range variants {
		types = append(types, reflect.TypeOf(v))
	}
	return defaultRegistry.RegisterEnum(reflect.TypeFor[I](), types...)
}

// RegisterIntEnum declares T as a fieldless enum with the given cases.
func RegisterIntEnum[T Integer](cases ...EnumCase[T]) error {
	t := reflect.TypeFor[T]()
	out := make([]enumCase, 0, len(cases))
	for _, c := range cases {
		v, err := discriminant(reflect.ValueOf(c.Value))
		if err != nil {
			return errors.New(errors.PhaseShape, errors.KindOverflow).
				Shape(typeName(t)).
				Operation("register_enum").
				Value(c.Value).
				Cause(err).
				Build()
		}
		out = append(out, enumCase{name: c.Name, value: v})
	}
	return defaultRegistry.registerIntEnum(t, out)
}

// RegisterEnum declares iface as an enum over the given variant types.
func (r *Registry) RegisterEnum(iface reflect.Type, variants ...reflect.Type) error {
	if iface == nil || iface.Kind() != reflect.Interface {
		return errors.New(errors.PhaseShape, errors.KindTypeMismatch).
			Operation("register_enum").
			Detail("enum type must be an interface, got %v", iface).
			Build()
	}
	if len(variants) == 0 {
		return errors.OperationFailed(errors.PhaseShape, typeName(iface), "register_enum", "no variants")
	}
	if len(variants) > maxVariants {
		return errors.OperationFailed(errors.PhaseShape, typeName(iface), "register_enum", "too many variants")
	}
	seen := make(map[reflect.Type]bool, len(variants))
	for _, v := range variants {
		if v == nil || !v.Implements(iface) {
			return errors.New(errors.PhaseShape, errors.KindTypeMismatch).
				Shape(typeName(iface)).
				Operation("register_enum").
				Detail("variant %v does not implement %v", v, iface).
				Build()
		}
		if v.Kind() == reflect.Interface || (v.Kind() == reflect.Pointer && v.Elem().Kind() == reflect.Pointer) {
			return errors.OperationFailed(errors.PhaseShape, typeName(iface), "register_enum",
				"variant "+v.String()+" must be a concrete type or a pointer to one")
		}
		if seen[v] {
			return errors.OperationFailed(errors.PhaseShape, typeName(iface), "register_enum",
				"duplicate variant "+v.String())
		}
		seen[v] = true
	}
	if err := r.checkUnderived(iface); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.enums[iface] = &enumDecl{variants: variants}
	return nil
}

func (r *Registry) registerIntEnum(t reflect.Type, cases []enumCase) error {
	if len(cases) == 0 {
		return errors.OperationFailed(errors.PhaseShape, typeName(t), "register_enum", "no cases")
	}
	names := make(map[string]bool, len(cases))
	values := make(map[int64]bool, len(cases))
	for _, c := range cases {
		if c.name == "" || names[c.name] {
			return errors.OperationFailed(errors.PhaseShape, typeName(t), "register_enum",
				"case names must be unique and non-empty")
		}
		if values[c.value] {
			return errors.OperationFailed(errors.PhaseShape, typeName(t), "register_enum",
				"duplicate discriminant for case "+c.name)
		}
		names[c.name], values[c.value] = true, true
	}
	if err := r.checkUnderived(t); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.intEnums[t] = &intEnumDecl{cases: cases}
	return nil
}

func (r *Registry) checkUnderived(t reflect.Type) error {
	if r.derived(t) {
		return errors.OperationFailed(errors.PhaseShape, typeName(t), "register_enum",
			"shape already derived; register enums before first use")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.enums[t] != nil || r.intEnums[t] != nil {
		return errors.OperationFailed(errors.PhaseShape, typeName(t), "register_enum", "already registered")
	}
	return nil
}

// maxVariants bounds enum variants so a variant index always fits the
// builder's selection bookkeeping.
const maxVariants = 1 << 16

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

// discriminant reads an integer reflect.Value as int64.
func discriminant(v reflect.Value) (int64, error) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	default:
		return safecast.Conv[int64](v.Uint())
	}
}

func (r *Registry) interfaceEnumDef(t reflect.Type, decl *enumDecl) *EnumDef {
	def := &EnumDef{Repr: EnumReprInterface}
	bases := make([]reflect.Type, len(decl.variants))

	for i, vt := range decl.variants {
		base, indirect := vt, false
		if vt.Kind() == reflect.Pointer {
			base, indirect = vt.Elem(), true
		}
		bases[i] = base

		v := Variant{
			GoType:       vt,
			Name:         typeName(base),
			Index:        i,
			Discriminant: int64(i),
			Indirect:     indirect,
			payload:      r.lazy(base),
		}
		if base.Kind() == reflect.Struct {
			sd := r.deriveStruct(base)
			if sd.Struct != nil {
				v.Data = *sd.Struct
			} else {
				// a union used as a variant is carried as one opaque field
				v.Data = StructDef{Kind: StructKindTuple, Fields: []Field{NewField("0", 0, 0, 0, r.lazy(base))}}
			}
		} else {
			v.Data = StructDef{Kind: StructKindTuple, Fields: []Field{NewField("0", 0, 0, 0, r.lazy(base))}}
		}
		def.Variants = append(def.Variants, v)
	}

	index := make(map[reflect.Type]int, len(decl.variants))
	for i, vt := range decl.variants {
		index[vt] = i
	}

	def.VTable = EnumVTable{
		Active: func(p ptr.Const) (int, bool) {
			iv := p.Value(t)
			if iv.IsNil() {
				return -1, false
			}
			i, ok := index[iv.Elem().Type()]
			return i, ok
		},
		Payload: func(p ptr.Const) ptr.Const {
			iv := p.Value(t)
			if iv.IsNil() {
				return ptr.Const{}
			}
			dyn := iv.Elem()
			if i, ok := index[dyn.Type()]; ok && def.Variants[i].Indirect {
				return ptr.NewConst(dyn.UnsafePointer())
			}
			// values stored directly in an interface are not addressable; read a copy
			cp := reflect.New(dyn.Type())
			cp.Elem().Set(dyn)
			return ptr.NewConst(cp.UnsafePointer())
		},
		AllocPayload: func(i int) ptr.Uninit {
			return ptr.Alloc(bases[i])
		},
		Commit: func(dst ptr.Uninit, i int, payload ptr.Mut) ptr.Mut {
			var v reflect.Value
			if def.Variants[i].Indirect {
				v = reflect.NewAt(bases[i], payload.Raw())
			} else {
				v = payload.Value(bases[i])
			}
			out := dst.AssumeInit()
			out.Value(t).Set(v)
			return out
		},
	}
	return def
}

func intEnumDef(t reflect.Type, decl *intEnumDecl) *EnumDef {
	def := &EnumDef{Repr: EnumReprInteger}
	index := make(map[int64]int, len(decl.cases))
	for i, c := range decl.cases {
		def.Variants = append(def.Variants, Variant{
			Name:         c.name,
			Index:        i,
			Discriminant: c.value,
			Data:         StructDef{Kind: StructKindUnit},
		})
		index[c.value] = i
	}
	signed := t.Kind() >= reflect.Int && t.Kind() <= reflect.Int64

	read := func(p ptr.Const) int64 {
		v := p.Value(t)
		if signed {
			return v.Int()
		}
		// registration rejected cases above MaxInt64, so larger values match nothing
		d, err := safecast.Conv[int64](v.Uint())
		if err != nil {
			return -1
		}
		return d
	}

	def.VTable = EnumVTable{
		Active: func(p ptr.Const) (int, bool) {
			i, ok := index[read(p)]
			return i, ok
		},
		Payload: func(p ptr.Const) ptr.Const { return p },
		AllocPayload: func(int) ptr.Uninit {
			return ptr.Uninit{}
		},
		Commit: func(dst ptr.Uninit, i int, _ ptr.Mut) ptr.Mut {
			out := dst.AssumeInit()
			v := out.Value(t)
			d := def.Variants[i].Discriminant
			if signed {
				v.SetInt(d)
			} else {
				u, _ := safecast.Conv[uint64](d)
				v.SetUint(u)
			}
			return out
		},
	}
	return def
}
