package witshape

import (
	"strings"
	"unicode"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/shape-runtime/errors"
)

// ParseType parses an anonymous WIT type expression. Besides primitives and
// the generic forms (list<T>, option<T>, result<T, E>, tuple<...>) it
// accepts inline definitions, optionally named:
//
//	record point { x: s32, y: s32 }
//	enum { red, green }
//	flags perms { read, write }
//	variant shape { circle(f64), none }
func ParseType(s string) (wit.Type, error) {
	p := &parser{src: s}
	p.next()
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.tok != "" {
		return nil, p.errorf("unexpected %q after type", p.tok)
	}
	return t, nil
}

type parser struct {
	src string
	pos int
	tok string
	at  int
}

// next scans the following token into p.tok; "" marks the end of input.
func (p *parser) next() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
	p.at = p.pos
	if p.pos >= len(p.src) {
		p.tok = ""
		return
	}
	if strings.IndexByte("<>{}(),:", p.src[p.pos]) >= 0 {
		p.tok = p.src[p.pos : p.pos+1]
		p.pos++
		return
	}
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		// unknown byte; keep it as a token so the caller reports it
		p.pos++
	}
	p.tok = p.src[start:p.pos]
}

func isIdentByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '-' || b == '_' || b == '%'
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.New(errors.PhaseCompile, errors.KindInvalidData).
		Detail("offset %d: "+format, append([]any{p.at}, args...)...).
		Build()
}

func (p *parser) expect(tok string) error {
	if p.tok != tok {
		if p.tok == "" {
			return p.errorf("expected %q, got end of input", tok)
		}
		return p.errorf("expected %q, got %q", tok, p.tok)
	}
	p.next()
	return nil
}

func (p *parser) ident() (string, error) {
	if p.tok == "" || !isIdentByte(p.tok[0]) {
		return "", p.errorf("expected a name, got %q", p.tok)
	}
	name := p.tok
	p.next()
	return name, nil
}

func (p *parser) parseType() (wit.Type, error) {
	word, err := p.ident()
	if err != nil {
		return nil, err
	}
	switch word {
	case "list":
		return p.parseWrapped(func(t wit.Type) wit.TypeDefKind { return &wit.List{Type: t} })
	case "option":
		return p.parseWrapped(func(t wit.Type) wit.TypeDefKind { return &wit.Option{Type: t} })
	case "result":
		return p.parseResult()
	case "tuple":
		return p.parseTuple()
	case "record":
		return p.parseDef(p.parseRecord)
	case "enum":
		return p.parseDef(p.parseEnum)
	case "flags":
		return p.parseDef(p.parseFlags)
	case "variant":
		return p.parseDef(p.parseVariant)
	}
	t, err := wit.ParseType(word)
	if err != nil {
		return nil, p.errorf("unknown type %q", word)
	}
	return t, nil
}

func (p *parser) parseWrapped(wrap func(wit.Type) wit.TypeDefKind) (wit.Type, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	inner, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect(">"); err != nil {
		return nil, err
	}
	return &wit.TypeDef{Kind: wrap(inner)}, nil
}

// parseResult handles result, result<T>, result<T, E> and result<_, E>.
func (p *parser) parseResult() (wit.Type, error) {
	r := &wit.Result{}
	if p.tok != "<" {
		return &wit.TypeDef{Kind: r}, nil
	}
	p.next()
	if p.tok == "_" {
		p.next()
	} else {
		ok, err := p.parseType()
		if err != nil {
			return nil, err
		}
		r.OK = ok
	}
	if p.tok == "," {
		p.next()
		e, err := p.parseType()
		if err != nil {
			return nil, err
		}
		r.Err = e
	}
	if err := p.expect(">"); err != nil {
		return nil, err
	}
	return &wit.TypeDef{Kind: r}, nil
}

func (p *parser) parseTuple() (wit.Type, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	tup := &wit.Tuple{}
	err := p.list(">", func() error {
		t, err := p.parseType()
		if err != nil {
			return err
		}
		tup.Types = append(tup.Types, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &wit.TypeDef{Kind: tup}, nil
}

// parseDef reads an optional name and the braced body of an inline
// definition.
func (p *parser) parseDef(body func() (wit.TypeDefKind, error)) (wit.Type, error) {
	td := &wit.TypeDef{}
	if p.tok != "{" {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		td.Name = &name
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	kind, err := body()
	if err != nil {
		return nil, err
	}
	td.Kind = kind
	return td, nil
}

// list parses comma separated items up to and including end. A trailing
// comma is allowed.
func (p *parser) list(end string, item func() error) error {
	for p.tok != end {
		if err := item(); err != nil {
			return err
		}
		if p.tok != "," {
			break
		}
		p.next()
	}
	return p.expect(end)
}

func (p *parser) parseRecord() (wit.TypeDefKind, error) {
	r := &wit.Record{}
	err := p.list("}", func() error {
		name, err := p.ident()
		if err != nil {
			return err
		}
		if err := p.expect(":"); err != nil {
			return err
		}
		t, err := p.parseType()
		if err != nil {
			return err
		}
		r.Fields = append(r.Fields, wit.Field{Name: name, Type: t})
		return nil
	})
	return r, err
}

func (p *parser) parseEnum() (wit.TypeDefKind, error) {
	e := &wit.Enum{}
	err := p.list("}", func() error {
		name, err := p.ident()
		if err != nil {
			return err
		}
		e.Cases = append(e.Cases, wit.EnumCase{Name: name})
		return nil
	})
	return e, err
}

func (p *parser) parseFlags() (wit.TypeDefKind, error) {
	f := &wit.Flags{}
	err := p.list("}", func() error {
		name, err := p.ident()
		if err != nil {
			return err
		}
		f.Flags = append(f.Flags, wit.Flag{Name: name})
		return nil
	})
	return f, err
}

func (p *parser) parseVariant() (wit.TypeDefKind, error) {
	v := &wit.Variant{}
	err := p.list("}", func() error {
		name, err := p.ident()
		if err != nil {
			return err
		}
		c := wit.Case{Name: name}
		if p.tok == "(" {
			p.next()
			if c.Type, err = p.parseType(); err != nil {
				return err
			}
			if err := p.expect(")"); err != nil {
				return err
			}
		}
		v.Cases = append(v.Cases, c)
		return nil
	})
	return v, err
}
