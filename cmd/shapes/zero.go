package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/shape-runtime/partial"
	"github.com/wippyai/shape-runtime/shape"
)

func newZeroCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "zero <wit-type>",
		Short: "Build the zero value of a WIT type and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadFor(cmd, gf)
			if err != nil {
				return err
			}
			s, _, err := compileArg(args[0])
			if err != nil {
				return err
			}
			out, err := zeroDebug(s)
			if err != nil {
				return err
			}
			st := newRenderer(cfg, cmd.OutOrStdout())
			_, err = fmt.Fprintln(cmd.OutOrStdout(), st.value.Render(out))
			return err
		},
	}
}

// zeroDebug builds the zero value of s and returns its debug form.
func zeroDebug(s *shape.Shape) (string, error) {
	p, err := partial.AllocShape(s, partial.DefaultOptions())
	if err != nil {
		return "", err
	}
	if err := fillZero(p, s); err != nil {
		p.Discard()
		return "", err
	}
	hv, err := p.Build()
	if err != nil {
		p.Discard()
		return "", err
	}
	defer hv.Drop()

	v, err := hv.Peek()
	if err != nil {
		return "", err
	}
	return v.Debug(), nil
}

// fillZero fills the current frame of p, whose shape is s, with the
// smallest value of s: zero scalars, empty collections, None, the first
// variant and the first union member.
func fillZero(p *partial.Partial, s *shape.Shape) error {
	switch s.Kind() {
	case shape.KindStruct, shape.KindTuple:
		return fillFields(p, s.Def.Struct.Fields)
	case shape.KindEnum:
		if err := p.SelectNthVariant(0); err != nil {
			return err
		}
		return fillFields(p, s.Def.Enum.Variants[0].Data.Fields)
	case shape.KindUnion:
		if len(s.Def.Union.Fields) == 0 {
			return fmt.Errorf("union %s has no members", s.Name)
		}
		return nested(p, p.BeginNthField(0), s.Def.Union.Fields[0].Shape())
	case shape.KindList:
		return p.BeginList()
	case shape.KindMap:
		return p.BeginMap()
	case shape.KindSet:
		return nil
	case shape.KindArray:
		elem := s.Def.Array.Elem()
		for i := range s.Def.Array.Len {
			if err := nested(p, p.BeginNthElement(i), elem); err != nil {
				return err
			}
		}
		return nil
	case shape.KindOption:
		return p.SetNone()
	case shape.KindPointer:
		return nested(p, p.BeginSmartPointer(), s.Def.Pointer.Pointee())
	}
	return p.SetDefault()
}

func fillFields(p *partial.Partial, fields []shape.Field) error {
	for i := range fields {
		if err := nested(p, p.BeginNthField(i), fields[i].Shape()); err != nil {
			return err
		}
	}
	return nil
}

// nested fills the frame pushed by begin and ends it.
func nested(p *partial.Partial, begin error, s *shape.Shape) error {
	if begin != nil {
		return begin
	}
	if err := fillZero(p, s); err != nil {
		return err
	}
	return p.End()
}
