package shape

import (
	"fmt"
	"unsafe"

	"github.com/wippyai/shape-runtime/ptr"
)

func uninit[T any](v *T) ptr.Uninit { return ptr.NewUninit(unsafe.Pointer(v)) }

type inner struct {
	X int32
	B int32
}

type outer struct {
	Name  string
	Inner inner
}

type account struct {
	User     string
	Password string `shape:"password,sensitive"`
	Note     string `shape:",omitempty"`
	Internal int    `shape:"-"`
	Port     int    `shape:"port,default=8080"`
	Nick     *string
	hidden   int
}

type pair struct {
	TupleMarker
	A int
	B string
}

type unit struct{}

type shapeOrPoint struct {
	UnionMarker
	Circle *float64
	Label  *string
}

type Meta struct {
	ID int
}

type derivedRecord struct {
	Meta
	Title string
}

type node struct {
	V    int
	Next *node
}

type userID struct {
	V string `shape:",transparent"`
}

func (u userID) Validate() error {
	if u.V == "" {
		return fmt.Errorf("user id must not be empty")
	}
	return nil
}

type withDefaults struct {
	Retries int
	Mode    string
}

func (w *withDefaults) SetDefaults() {
	w.Retries = 3
	w.Mode = "fast"
}

type dropLog []int

// tracker records its ID into log when dropped.
type tracker struct {
	ID  int
	log *dropLog
}

func (p *tracker) Drop() {
	if p.log != nil {
		*p.log = append(*p.log, p.ID)
	}
}

type trackerHolder struct {
	tracker
	A tracker
	B tracker
}

type expr interface{ isExpr() }

type lit struct{ V int64 }

type add struct{ L, R int64 }

type neg int64

func (lit) isExpr()  {}
func (*add) isExpr() {}
func (neg) isExpr()  {}

type color uint8

type level int

func (l level) String() string { return fmt.Sprintf("L%d", int(l)) }

type version struct {
	Major, Minor int
}

func (v version) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%d.%d", v.Major, v.Minor)), nil
}

func (v *version) UnmarshalText(b []byte) error {
	_, err := fmt.Sscanf(string(b), "%d.%d", &v.Major, &v.Minor)
	return err
}

func (v version) Compare(o version) int {
	if v.Major != o.Major {
		return v.Major - o.Major
	}
	return v.Minor - o.Minor
}

type withFunc struct {
	Name string
	Fn   func()
}

func init() {
	if err := RegisterEnum[expr](lit{}, &add{}, neg(0)); err != nil {
		panic(err)
	}
	if err := RegisterIntEnum(
		EnumCase[color]{Name: "Red", Value: 0},
		EnumCase[color]{Name: "Green", Value: 1},
		EnumCase[color]{Name: "Blue", Value: 5},
	); err != nil {
		panic(err)
	}
}
