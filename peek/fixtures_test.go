package peek

import (
	stderrors "errors"

	"github.com/wippyai/shape-runtime/errors"
	"github.com/wippyai/shape-runtime/shape"
)

type address struct {
	City string
	Zip  string `shape:"zip,omitempty"`
}

type animal interface{ isAnimal() }

type dog struct{ Name string }

type cat struct{ Lives int }

func (dog) isAnimal()  {}
func (*cat) isAnimal() {}

type person struct {
	Name     string
	Age      int
	Secret   string   `shape:"secret,skip_serializing"`
	Internal int      `shape:",skip"`
	Address  address  `shape:",flatten"`
	Extra    *address `shape:",flatten"`
	Tags     []string `shape:"tags,omitempty"`
	Pet      animal   `shape:",flatten"`
}

type point struct {
	shape.TupleMarker
	X, Y int
}

type choice struct {
	shape.UnionMarker
	Num  *int
	Text *string
}

type mood uint8

type meters struct {
	V float64 `shape:",transparent"`
}

func init() {
	if err := shape.RegisterEnum[animal](dog{}, &cat{}); err != nil {
		panic(err)
	}
	if err := shape.RegisterIntEnum(
		shape.EnumCase[mood]{Name: "calm", Value: 0},
		shape.EnumCase[mood]{Name: "angry", Value: 3},
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
