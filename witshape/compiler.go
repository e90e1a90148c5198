package witshape

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/shape"
)

// Origin is the shape origin of every compiled shape.
const Origin = "wit"

// Compiler checks Go types against WIT types and compiles shapes whose
// names follow the WIT declaration. Results are cached per type pair.
type Compiler struct {
	cache sync.Map // cacheKey -> *shape.Shape
}

type cacheKey struct {
	goType reflect.Type
	witPtr uintptr
}

func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile returns the shape of goType as described by witType.
func (c *Compiler) Compile(witType wit.Type, goType reflect.Type) (*shape.Shape, error) {
	if goType == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindNilPointer).
			Detail("Go type cannot be nil").
			Build()
	}
	if witType == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindNilPointer).
			Detail("WIT type cannot be nil").
			Build()
	}

	// options are pointers themselves
	if goType.Kind() == reflect.Pointer && !isOptionType(witType) {
		goType = goType.Elem()
	}

	key := cacheKey{witPtr: witTypePtr(witType), goType: goType}
	if cached, ok := c.cache.Load(key); ok {
		return cached.(*shape.Shape), nil
	}

	s, err := c.compile(witType, goType, nil)
	if err != nil {
		return nil, err
	}

	c.cache.Store(key, s)
	return s, nil
}

// CompileType synthesizes a Go type for witType with GoTypeFor and compiles
// its shape.
func (c *Compiler) CompileType(witType wit.Type) (*shape.Shape, error) {
	t, err := GoTypeFor(witType)
	if err != nil {
		return nil, err
	}
	return c.Compile(witType, t)
}

func isOptionType(t wit.Type) bool {
	if td, ok := t.(*wit.TypeDef); ok {
		_, isOption := td.Kind.(*wit.Option)
		return isOption
	}
	return false
}

func witTypePtr(t wit.Type) uintptr {
	switch v := t.(type) {
	case *wit.TypeDef:
		return reflect.ValueOf(v).Pointer()
	default:
		// primitives are zero-size values; their dynamic type identifies them
		return reflect.ValueOf(reflect.TypeOf(t)).Pointer()
	}
}

func (c *Compiler) compile(witType wit.Type, goType reflect.Type, path []string) (*shape.Shape, error) {
	if kinds, want, ok := primitiveKinds(witType); ok {
		for _, k := range kinds {
			if goType.Kind() == k {
				return shape.OfType(goType), nil
			}
		}
		return nil, errors.TypeMismatch(errors.PhaseCompile, path, goType.String(), want)
	}

	switch t := witType.(type) {
	case *wit.TypeDef:
		return c.compileTypeDef(t, goType, path)
	default:
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported WIT type: %T", witType).
			Build()
	}
}

// primitiveKinds lists the Go kinds that can hold a WIT primitive.
func primitiveKinds(t wit.Type) ([]reflect.Kind, string, bool) {
	switch t.(type) {
	case wit.Bool:
		return []reflect.Kind{reflect.Bool}, "bool", true
	case wit.U8:
		return []reflect.Kind{reflect.Uint8}, "uint8", true
	case wit.S8:
		return []reflect.Kind{reflect.Int8}, "int8", true
	case wit.U16:
		return []reflect.Kind{reflect.Uint16}, "uint16", true
	case wit.S16:
		return []reflect.Kind{reflect.Int16}, "int16", true
	case wit.U32:
		return []reflect.Kind{reflect.Uint32}, "uint32", true
	case wit.S32:
		return []reflect.Kind{reflect.Int32}, "int32", true
	case wit.U64:
		return []reflect.Kind{reflect.Uint64}, "uint64", true
	case wit.S64:
		return []reflect.Kind{reflect.Int64}, "int64", true
	case wit.F32:
		return []reflect.Kind{reflect.Float32}, "float32", true
	case wit.F64:
		return []reflect.Kind{reflect.Float64}, "float64", true
	case wit.Char:
		return []reflect.Kind{reflect.Int32, reflect.Uint32}, "int32 (rune)", true
	case wit.String:
		return []reflect.Kind{reflect.String}, "string", true
	}
	return nil, "", false
}

func (c *Compiler) compileTypeDef(t *wit.TypeDef, goType reflect.Type, path []string) (*shape.Shape, error) {
	name := defName(t)
	switch kind := t.Kind.(type) {
	case *wit.Record:
		return c.compileRecord(kind, name, goType, path)
	case *wit.List:
		return c.compileList(kind, goType, path)
	case *wit.Tuple:
		return c.compileTuple(kind, name, goType, path)
	case *wit.Enum:
		return c.compileEnum(kind, name, goType, path)
	case *wit.Flags:
		return c.compileFlags(kind, goType, path)
	case *wit.Option:
		return c.compileOption(kind, goType, path)
	case *wit.Result:
		return c.compileResult(kind, name, goType, path)
	case *wit.Variant:
		return c.compileVariant(kind, name, goType, path)
	case *wit.Own, *wit.Borrow:
		return c.compileHandle(goType, path)
	case wit.Type:
		return c.compile(kind, goType, path)
	default:
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported TypeDef kind: %T", kind).
			Build()
	}
}

func defName(t *wit.TypeDef) string {
	if t.Name != nil {
		return *t.Name
	}
	return ""
}

func childPath(path []string, seg string) []string {
	return append(append([]string{}, path...), seg)
}

func (c *Compiler) compileRecord(r *wit.Record, name string, goType reflect.Type, path []string) (*shape.Shape, error) {
	if goType.Kind() != reflect.Struct {
		return nil, errors.TypeMismatch(errors.PhaseCompile, path, goType.String(), "struct")
	}

	fields := make([]shape.Field, 0, len(r.Fields))
	for i, witField := range r.Fields {
		goField, found := findGoField(goType, witField.Name)
		if !found {
			return nil, errors.FieldMissing(errors.PhaseCompile, path, witField.Name)
		}

		fs, err := c.compile(witField.Type, goField.Type, childPath(path, witField.Name))
		if err != nil {
			return nil, err
		}
		fields = append(fields, shape.FieldOf(witField.Name, i, goField.Offset, 0, fs))
	}

	kind := shape.StructKindStruct
	if len(fields) == 0 {
		kind = shape.StructKindUnit
	}
	return shape.NewStruct(goType, name, Origin, kind, fields)
}

// findGoField matches by: 1) wit:"name" tag, 2) case-insensitive, 3) kebab-to-camel.
func findGoField(goType reflect.Type, witName string) (reflect.StructField, bool) {
	for i := 0; i < goType.NumField(); i++ {
		field := goType.Field(i)
		if !field.IsExported() {
			continue
		}

		if tag := field.Tag.Get("wit"); tag != "" {
			if tag == "-" {
				continue
			}
			if tag == witName {
				return field, true
			}
		}

		if strings.EqualFold(field.Name, witName) {
			return field, true
		}

		if toKebabCase(field.Name) == witName {
			return field, true
		}
	}
	return reflect.StructField{}, false
}

func toKebabCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				result.WriteByte('-')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

func (c *Compiler) compileList(l *wit.List, goType reflect.Type, path []string) (*shape.Shape, error) {
	if goType.Kind() != reflect.Slice {
		return nil, errors.TypeMismatch(errors.PhaseCompile, path, goType.String(), "slice")
	}

	elem, err := c.compile(l.Type, goType.Elem(), childPath(path, "[elem]"))
	if err != nil {
		return nil, err
	}
	return shape.NewList(goType, Origin, elem)
}

func (c *Compiler) compileTuple(t *wit.Tuple, name string, goType reflect.Type, path []string) (*shape.Shape, error) {
	switch goType.Kind() {
	case reflect.Array:
		return c.compileTupleArray(t, goType, path)
	case reflect.Struct:
	default:
		return nil, errors.TypeMismatch(errors.PhaseCompile, path, goType.String(), "struct or array")
	}

	goFields := exportedFields(goType)
	if len(t.Types) > len(goFields) {
		return nil, errors.New(errors.PhaseCompile, errors.KindTypeMismatch).
			Path(path...).
			Detail("tuple has %d elements but struct has %d fields", len(t.Types), len(goFields)).
			Build()
	}

	fields := make([]shape.Field, 0, len(t.Types))
	for i, elemWitType := range t.Types {
		pos := strconv.Itoa(i)
		f := goFields[i]
		fs, err := c.compile(elemWitType, f.Type, childPath(path, "["+pos+"]"))
		if err != nil {
			return nil, err
		}
		fields = append(fields, shape.FieldOf(pos, i, f.Offset, 0, fs))
	}
	return shape.NewStruct(goType, name, Origin, shape.StructKindTuple, fields)
}

func (c *Compiler) compileTupleArray(t *wit.Tuple, goType reflect.Type, path []string) (*shape.Shape, error) {
	if goType.Len() != len(t.Types) {
		return nil, errors.New(errors.PhaseCompile, errors.KindTypeMismatch).
			Path(path...).
			Detail("tuple has %d elements but array has %d", len(t.Types), goType.Len()).
			Build()
	}
	elem := shape.OfType(goType.Elem())
	for i, elemWitType := range t.Types {
		fs, err := c.compile(elemWitType, goType.Elem(), childPath(path, "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, err
		}
		if i == 0 {
			elem = fs
		}
	}
	return shape.NewArray(goType, Origin, elem)
}

// exportedFields lists the fields a positional tuple is laid over.
func exportedFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Anonymous && f.Type == reflect.TypeFor[shape.TupleMarker]() {
			continue
		}
		out = append(out, f)
	}
	return out
}

func (c *Compiler) compileEnum(e *wit.Enum, name string, goType reflect.Type, path []string) (*shape.Shape, error) {
	switch goType.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Int8, reflect.Int16, reflect.Int32:
	default:
		return nil, errors.TypeMismatch(errors.PhaseCompile, path, goType.String(), "integer")
	}
	if n := len(e.Cases); n > 0 && overflows(goType, n-1) {
		return nil, errors.Overflow(errors.PhaseCompile, path, n, goType.String())
	}

	names := make([]string, len(e.Cases))
	for i, ec := range e.Cases {
		names[i] = ec.Name
	}
	return shape.NewEnum(goType, name, Origin, names)
}

// overflows reports whether the discriminant n does not fit in t.
func overflows(t reflect.Type, n int) bool {
	v := reflect.New(t).Elem()
	if v.CanInt() {
		return v.OverflowInt(int64(n))
	}
	return v.OverflowUint(uint64(n))
}

func (c *Compiler) compileFlags(f *wit.Flags, goType reflect.Type, path []string) (*shape.Shape, error) {
	if len(f.Flags) > 64 {
		return nil, errors.New(errors.PhaseCompile, errors.KindInvalidData).
			Path(path...).
			Detail("flags type exceeds maximum 64 flags, got %d", len(f.Flags)).
			Build()
	}

	switch goType.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return nil, errors.TypeMismatch(errors.PhaseCompile, path, goType.String(), "unsigned integer")
	}
	if len(f.Flags) > goType.Bits() {
		return nil, errors.Overflow(errors.PhaseCompile, path, len(f.Flags), goType.String())
	}
	return shape.OfType(goType), nil
}

func (c *Compiler) compileOption(o *wit.Option, goType reflect.Type, path []string) (*shape.Shape, error) {
	if goType.Kind() != reflect.Pointer {
		return nil, errors.TypeMismatch(errors.PhaseCompile, path, goType.String(), "pointer")
	}

	inner, err := c.compile(o.Type, goType.Elem(), childPath(path, "[some]"))
	if err != nil {
		return nil, err
	}
	return shape.NewOption(goType, Origin, inner)
}

// unionCase is one member of a result or variant: the WIT case name, the
// Go field names that may hold it and its payload type.
type unionCase struct {
	name    string
	aliases []string
	payload wit.Type
}

func (c *Compiler) compileResult(r *wit.Result, name string, goType reflect.Type, path []string) (*shape.Shape, error) {
	return c.compileUnion([]unionCase{
		{name: "ok", aliases: []string{"value"}, payload: r.OK},
		{name: "err", aliases: []string{"error"}, payload: r.Err},
	}, name, goType, path)
}

func (c *Compiler) compileVariant(v *wit.Variant, name string, goType reflect.Type, path []string) (*shape.Shape, error) {
	cases := make([]unionCase, len(v.Cases))
	for i, vc := range v.Cases {
		cases[i] = unionCase{name: vc.Name, payload: vc.Type}
	}
	return c.compileUnion(cases, name, goType, path)
}

// compileUnion lays the cases over a struct with one pointer field per case.
// Cases without payload are present when their pointer is non-nil.
func (c *Compiler) compileUnion(cases []unionCase, name string, goType reflect.Type, path []string) (*shape.Shape, error) {
	if goType.Kind() != reflect.Struct {
		return nil, errors.TypeMismatch(errors.PhaseCompile, path, goType.String(), "struct of case pointers")
	}

	fields := make([]shape.Field, 0, len(cases))
	for i, uc := range cases {
		f, found := findGoField(goType, uc.name)
		for _, alias := range uc.aliases {
			if found {
				break
			}
			f, found = findGoField(goType, alias)
		}
		if !found {
			return nil, errors.FieldMissing(errors.PhaseCompile, path, uc.name)
		}
		casePath := childPath(path, uc.name)
		if f.Type.Kind() != reflect.Pointer {
			return nil, errors.TypeMismatch(errors.PhaseCompile, casePath, f.Type.String(), "pointer")
		}

		fs := shape.OfType(f.Type.Elem())
		if uc.payload != nil {
			var err error
			if fs, err = c.compile(uc.payload, f.Type.Elem(), casePath); err != nil {
				return nil, err
			}
		}
		fields = append(fields, shape.FieldOf(uc.name, i, f.Offset, 0, fs))
	}
	return shape.NewUnion(goType, name, Origin, fields)
}

func (c *Compiler) compileHandle(goType reflect.Type, path []string) (*shape.Shape, error) {
	// resource handles are u32 indices, optionally wrapped in a struct
	if goType.Kind() != reflect.Uint32 && goType.Kind() != reflect.Struct {
		return nil, errors.TypeMismatch(errors.PhaseCompile, path, goType.String(), "uint32 or handle struct")
	}
	return shape.OfType(goType), nil
}
