package witshape

import (
	stderrors "errors"
	"reflect"
	"strconv"
	"testing"
	"unsafe"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/ptr"
	"github.com/wippyai/shape-runtime/shape"
)

func kindOf(err error) errors.Kind {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func named(name string, kind wit.TypeDefKind) *wit.TypeDef {
	return &wit.TypeDef{Name: &name, Kind: kind}
}

func TestCompiler_Primitives(t *testing.T) {
	c := NewCompiler()

	tests := []struct {
		wit    wit.Type
		goType reflect.Type
	}{
		{wit.Bool{}, reflect.TypeOf(false)},
		{wit.U8{}, reflect.TypeOf(uint8(0))},
		{wit.S16{}, reflect.TypeOf(int16(0))},
		{wit.U32{}, reflect.TypeOf(uint32(0))},
		{wit.S64{}, reflect.TypeOf(int64(0))},
		{wit.F32{}, reflect.TypeOf(float32(0))},
		{wit.Char{}, reflect.TypeOf(rune(0))},
		{wit.Char{}, reflect.TypeOf(uint32(0))},
		{wit.String{}, reflect.TypeOf("")},
	}

	for _, tt := range tests {
		t.Run(tt.goType.String(), func(t *testing.T) {
			s, err := c.Compile(tt.wit, tt.goType)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if s.Kind() != shape.KindScalar {
				t.Errorf("Kind = %v, want scalar", s.Kind())
			}
			if s.GoType != tt.goType {
				t.Errorf("GoType = %v, want %v", s.GoType, tt.goType)
			}
		})
	}
}

func TestCompiler_PrimitiveMismatch(t *testing.T) {
	c := NewCompiler()

	_, err := c.Compile(wit.U32{}, reflect.TypeOf(int32(0)))
	if kindOf(err) != errors.KindTypeMismatch {
		t.Fatalf("err = %v, want type mismatch", err)
	}
}

type point struct {
	X     int32
	Y     int32
	Label string `wit:"display-name"`
}

func TestCompiler_Record(t *testing.T) {
	c := NewCompiler()

	recordType := named("point", &wit.Record{
		Fields: []wit.Field{
			{Name: "display-name", Type: wit.String{}},
			{Name: "x", Type: wit.S32{}},
			{Name: "y", Type: wit.S32{}},
		},
	})

	s, err := c.Compile(recordType, reflect.TypeOf(point{}))
	if err != nil {
		t.Fatalf("Compile record failed: %v", err)
	}
	if s.Kind() != shape.KindStruct {
		t.Fatalf("Kind = %v, want struct", s.Kind())
	}
	if s.Name != "point" || s.ID.Origin() != Origin {
		t.Errorf("shape = %s (%s), want point from %s", s.Name, s.ID.Origin(), Origin)
	}

	var p point
	want := []struct {
		name   string
		offset uintptr
	}{
		{"display-name", unsafe.Offsetof(p.Label)},
		{"x", unsafe.Offsetof(p.X)},
		{"y", unsafe.Offsetof(p.Y)},
	}
	fields := s.Fields()
	if len(fields) != len(want) {
		t.Fatalf("Fields len = %d, want %d", len(fields), len(want))
	}
	for i, w := range want {
		if fields[i].Name != w.name || fields[i].Offset != w.offset {
			t.Errorf("field %d = %s@%d, want %s@%d", i, fields[i].Name, fields[i].Offset, w.name, w.offset)
		}
	}

	p = point{X: 1, Y: 2, Label: "a"}
	got := shape.DebugString(s, ptr.ConstOf(&p))
	if got != `point { display-name: "a", x: 1, y: 2 }` {
		t.Errorf("Debug = %s", got)
	}
}

func TestCompiler_RecordMissingField(t *testing.T) {
	c := NewCompiler()

	recordType := &wit.TypeDef{Kind: &wit.Record{
		Fields: []wit.Field{{Name: "z", Type: wit.S32{}}},
	}}

	_, err := c.Compile(recordType, reflect.TypeOf(point{}))
	if kindOf(err) != errors.KindFieldMissing {
		t.Fatalf("err = %v, want field missing", err)
	}
}

func TestCompiler_RecordFieldMismatchPath(t *testing.T) {
	c := NewCompiler()

	recordType := &wit.TypeDef{Kind: &wit.Record{
		Fields: []wit.Field{{Name: "x", Type: wit.String{}}},
	}}

	_, err := c.Compile(recordType, reflect.TypeOf(point{}))
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("err = %v, want *errors.Error", err)
	}
	if !reflect.DeepEqual(e.Path, []string{"x"}) {
		t.Errorf("Path = %v, want [x]", e.Path)
	}
}

func TestCompiler_Tuple(t *testing.T) {
	c := NewCompiler()

	tupleType := &wit.TypeDef{
		Kind: &wit.Tuple{
			Types: []wit.Type{wit.U32{}, wit.U64{}},
		},
	}

	type TupleStruct struct {
		A uint32
		B uint64
	}

	s, err := c.Compile(tupleType, reflect.TypeOf(TupleStruct{}))
	if err != nil {
		t.Fatalf("Compile tuple failed: %v", err)
	}
	if s.Kind() != shape.KindTuple {
		t.Errorf("Kind = %v, want tuple", s.Kind())
	}
	if len(s.Fields()) != 2 || s.Fields()[1].Name != "1" {
		t.Errorf("Fields = %v, want positional names", s.Fields())
	}
}

func TestCompiler_TupleArray(t *testing.T) {
	c := NewCompiler()

	tupleType := &wit.TypeDef{
		Kind: &wit.Tuple{
			Types: []wit.Type{wit.U32{}, wit.U32{}, wit.U32{}},
		},
	}

	s, err := c.Compile(tupleType, reflect.TypeOf([3]uint32{}))
	if err != nil {
		t.Fatalf("Compile tuple array failed: %v", err)
	}
	if s.Kind() != shape.KindArray {
		t.Errorf("Kind = %v, want array", s.Kind())
	}

	_, err = c.Compile(tupleType, reflect.TypeOf([2]uint32{}))
	if kindOf(err) != errors.KindTypeMismatch {
		t.Errorf("err = %v, want type mismatch for short array", err)
	}
}

func TestCompiler_TupleFieldCount(t *testing.T) {
	c := NewCompiler()

	tupleType := &wit.TypeDef{
		Kind: &wit.Tuple{
			Types: []wit.Type{wit.U32{}, wit.U64{}, wit.U32{}},
		},
	}

	type TwoFields struct {
		A uint32
		B uint64
	}

	_, err := c.Compile(tupleType, reflect.TypeOf(TwoFields{}))
	if err == nil {
		t.Error("expected error for tuple field count mismatch")
	}
}

func TestCompiler_Enum(t *testing.T) {
	c := NewCompiler()

	enumType := named("color", &wit.Enum{
		Cases: []wit.EnumCase{
			{Name: "red"},
			{Name: "green"},
			{Name: "blue"},
		},
	})

	tests := []struct {
		goType reflect.Type
		name   string
	}{
		{reflect.TypeOf(uint8(0)), "uint8"},
		{reflect.TypeOf(uint16(0)), "uint16"},
		{reflect.TypeOf(uint32(0)), "uint32"},
		{reflect.TypeOf(int8(0)), "int8"},
		{reflect.TypeOf(int16(0)), "int16"},
		{reflect.TypeOf(int32(0)), "int32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := c.Compile(enumType, tt.goType)
			if err != nil {
				t.Fatalf("Compile enum failed: %v", err)
			}
			if s.Kind() != shape.KindEnum {
				t.Fatalf("Kind = %v, want enum", s.Kind())
			}
			if i, ok := s.Def.Enum.VariantIndex("blue"); !ok || i != 2 {
				t.Errorf("VariantIndex(blue) = %d, %v", i, ok)
			}
		})
	}
}

func TestCompiler_EnumInvalidType(t *testing.T) {
	c := NewCompiler()

	enumType := &wit.TypeDef{
		Kind: &wit.Enum{
			Cases: []wit.EnumCase{{Name: "a"}},
		},
	}

	_, err := c.Compile(enumType, reflect.TypeOf(""))
	if err == nil {
		t.Error("expected error for enum type mismatch")
	}
}

func TestCompiler_EnumTooManyCases(t *testing.T) {
	c := NewCompiler()

	cases := make([]wit.EnumCase, 200)
	for i := range cases {
		cases[i] = wit.EnumCase{Name: "c" + strconv.Itoa(i)}
	}
	enumType := &wit.TypeDef{Kind: &wit.Enum{Cases: cases}}

	_, err := c.Compile(enumType, reflect.TypeOf(int8(0)))
	if kindOf(err) != errors.KindOverflow {
		t.Errorf("err = %v, want overflow", err)
	}
	if _, err := c.Compile(enumType, reflect.TypeOf(uint8(0))); err != nil {
		t.Errorf("Compile into uint8 failed: %v", err)
	}
}

func TestCompiler_Flags(t *testing.T) {
	c := NewCompiler()

	flagsType := &wit.TypeDef{
		Kind: &wit.Flags{
			Flags: []wit.Flag{
				{Name: "read"},
				{Name: "write"},
				{Name: "execute"},
			},
		},
	}

	tests := []struct {
		goType reflect.Type
		name   string
	}{
		{reflect.TypeOf(uint8(0)), "uint8"},
		{reflect.TypeOf(uint16(0)), "uint16"},
		{reflect.TypeOf(uint32(0)), "uint32"},
		{reflect.TypeOf(uint64(0)), "uint64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := c.Compile(flagsType, tt.goType)
			if err != nil {
				t.Fatalf("Compile flags failed: %v", err)
			}
			if s.Kind() != shape.KindScalar {
				t.Errorf("Kind = %v, want scalar", s.Kind())
			}
		})
	}
}

func TestCompiler_FlagsInvalidType(t *testing.T) {
	c := NewCompiler()

	flagsType := &wit.TypeDef{
		Kind: &wit.Flags{
			Flags: []wit.Flag{{Name: "a"}},
		},
	}

	_, err := c.Compile(flagsType, reflect.TypeOf(int32(0)))
	if err == nil {
		t.Error("expected error for flags type mismatch")
	}
}

func TestCompiler_Option(t *testing.T) {
	c := NewCompiler()

	optionType := &wit.TypeDef{
		Kind: &wit.Option{Type: wit.U32{}},
	}

	s, err := c.Compile(optionType, reflect.TypeOf((*uint32)(nil)))
	if err != nil {
		t.Fatalf("Compile option failed: %v", err)
	}
	if s.Kind() != shape.KindOption {
		t.Errorf("Kind = %v, want option", s.Kind())
	}
}

func TestCompiler_OptionInvalidType(t *testing.T) {
	c := NewCompiler()

	optionType := &wit.TypeDef{
		Kind: &wit.Option{Type: wit.U32{}},
	}

	_, err := c.Compile(optionType, reflect.TypeOf(uint32(0)))
	if err == nil {
		t.Error("expected error for option type mismatch")
	}
}

func TestCompiler_List(t *testing.T) {
	c := NewCompiler()

	listType := &wit.TypeDef{Kind: &wit.List{Type: wit.String{}}}

	s, err := c.Compile(listType, reflect.TypeOf([]string(nil)))
	if err != nil {
		t.Fatalf("Compile list failed: %v", err)
	}
	if s.Kind() != shape.KindList {
		t.Errorf("Kind = %v, want list", s.Kind())
	}

	if _, err := c.Compile(listType, reflect.TypeOf([]int(nil))); err == nil {
		t.Error("expected error for list element mismatch")
	}
}

type parseResult struct {
	Ok  *int32
	Err *string
}

func TestCompiler_Result(t *testing.T) {
	c := NewCompiler()

	resultType := &wit.TypeDef{Kind: &wit.Result{OK: wit.S32{}, Err: wit.String{}}}

	s, err := c.Compile(resultType, reflect.TypeOf(parseResult{}))
	if err != nil {
		t.Fatalf("Compile result failed: %v", err)
	}
	if s.Kind() != shape.KindUnion {
		t.Fatalf("Kind = %v, want union", s.Kind())
	}

	msg := "bad"
	r := parseResult{Err: &msg}
	if i := s.Def.Union.VTable.Active(ptr.ConstOf(&r)); i != 1 {
		t.Errorf("Active = %d, want 1", i)
	}
	if name := s.Def.Union.Fields[1].Name; name != "err" {
		t.Errorf("case name = %s, want err", name)
	}
}

type command struct {
	Move *point
	Stop *struct{}
}

func TestCompiler_Variant(t *testing.T) {
	c := NewCompiler()

	variantType := named("command", &wit.Variant{
		Cases: []wit.Case{
			{Name: "move", Type: named("point", &wit.Record{
				Fields: []wit.Field{{Name: "x", Type: wit.S32{}}, {Name: "y", Type: wit.S32{}}},
			})},
			{Name: "stop"},
		},
	})

	s, err := c.Compile(variantType, reflect.TypeOf(command{}))
	if err != nil {
		t.Fatalf("Compile variant failed: %v", err)
	}
	if s.Kind() != shape.KindUnion {
		t.Fatalf("Kind = %v, want union", s.Kind())
	}
	move := s.Def.Union.Fields[0].Shape()
	if move.Kind() != shape.KindStruct || len(move.Fields()) != 2 {
		t.Errorf("move payload = %s", move.Name)
	}

	type badCommand struct {
		Move point
		Stop *struct{}
	}
	_, err = c.Compile(variantType, reflect.TypeOf(badCommand{}))
	if kindOf(err) != errors.KindTypeMismatch {
		t.Errorf("err = %v, want type mismatch for non-pointer case", err)
	}
}

func TestCompiler_Handles(t *testing.T) {
	c := NewCompiler()

	for _, kind := range []wit.TypeDefKind{&wit.Own{}, &wit.Borrow{}} {
		s, err := c.Compile(&wit.TypeDef{Kind: kind}, reflect.TypeOf(uint32(0)))
		if err != nil {
			t.Fatalf("Compile %T failed: %v", kind, err)
		}
		if s.GoType.Kind() != reflect.Uint32 {
			t.Errorf("GoType = %v, want uint32", s.GoType)
		}
		if _, err := c.Compile(&wit.TypeDef{Kind: kind}, reflect.TypeOf("")); err == nil {
			t.Errorf("expected error for %T as string", kind)
		}
	}
}

func TestCompiler_NilGoType(t *testing.T) {
	c := NewCompiler()

	_, err := c.Compile(wit.U32{}, nil)
	if err == nil {
		t.Error("expected error for nil Go type")
	}
}

func TestCompiler_PointerDeref(t *testing.T) {
	c := NewCompiler()

	s, err := c.Compile(wit.U32{}, reflect.TypeOf((*uint32)(nil)))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if s.GoType != reflect.TypeOf(uint32(0)) {
		t.Errorf("GoType = %v, want uint32", s.GoType)
	}
}

func TestCompiler_Cache(t *testing.T) {
	c := NewCompiler()

	recordType := &wit.TypeDef{Kind: &wit.Record{
		Fields: []wit.Field{{Name: "x", Type: wit.S32{}}},
	}}
	goType := reflect.TypeOf(point{})

	s1, err := c.Compile(recordType, goType)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	s2, err := c.Compile(recordType, goType)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if s1 != s2 {
		t.Error("expected cached shape")
	}
}
