package partial

import (
	stderrors "errors"
	"fmt"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/shape"
)

type inner struct {
	X int32 `shape:"x"`
	B int32 `shape:"b"`
}

type outer struct {
	Name  string `shape:"name"`
	Inner inner  `shape:"inner"`
}

type settings struct {
	Host  string
	Port  int  `shape:"port,default=8080"`
	Debug bool `shape:",skip"`
	Nick  *string
}

type span struct {
	Lo, Hi int
}

func (s span) Validate() error {
	if s.Lo > s.Hi {
		return fmt.Errorf("lo %d is above hi %d", s.Lo, s.Hi)
	}
	return nil
}

type window struct {
	Title string
	Range span
}

type figure interface{ isFigure() }

type circle struct{ R float64 }

type rect struct{ W, H float64 }

type blank struct{}

func (circle) isFigure() {}
func (*rect) isFigure()  {}
func (blank) isFigure()  {}

type mode uint8

type number struct {
	shape.UnionMarker
	Int  *int64
	Text *string
}

type dropLog []int

// tracker appends its ID to log when dropped.
type tracker struct {
	ID  int
	log *dropLog
}

func (p *tracker) Drop() {
	if p.log != nil {
		*p.log = append(*p.log, p.ID)
	}
}

type trackerBag struct {
	A     tracker
	Items []tracker
	B     *tracker
}

type trackerRow struct {
	Head tracker
	Tail []tracker
}

type trackerLedger struct {
	Owner tracker
	Rows  map[tracker]trackerRow
	Slots []tracker
}

func init() {
	if err := shape.RegisterEnum[figure](circle{}, &rect{}, blank{}); err != nil {
		panic(err)
	}
	if err := shape.RegisterIntEnum(
		shape.EnumCase[mode]{Name: "Off", Value: 0},
		shape.EnumCase[mode]{Name: "On", Value: 1},
	); err != nil {
		panic(err)
	}
}

func kindOf(err error) errors.Kind {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
