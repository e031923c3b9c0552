package game

import (
	"encoding/json"
	"slices"
)

// GridSize is the number of cells on a bill (5 columns by 3 rows).
const GridSize = 15

// Element is one placeable security feature. The empty string is an empty cell.
type Element string

const (
	ElementNone      Element = ""
	ElementPortrait  Element = "portrait"
	ElementLogo      Element = "logo"
	ElementWatermark Element = "watermark"
	ElementSerial    Element = "serial"
	ElementPattern   Element = "pattern"
	ElementStamp     Element = "stamp"
)

// Elements lists every placeable element in display order.
var Elements = []Element{
	ElementPortrait,
	ElementLogo,
	ElementWatermark,
	ElementSerial,
	ElementPattern,
	ElementStamp,
}

func (e Element) Valid() bool {
	return e == ElementNone || slices.Contains(Elements, e)
}

// Denomination is the printed value of a bill.
type Denomination string

const (
	DenominationNone  Denomination = ""
	Denomination1000  Denomination = "1000"
	Denomination5000  Denomination = "5000"
	Denomination10000 Denomination = "10000"
	Denomination50000 Denomination = "50000"

	DefaultDenomination = Denomination10000
)

var Denominations = []Denomination{
	Denomination1000,
	Denomination5000,
	Denomination10000,
	Denomination50000,
}

// Valid reports whether d may appear on a submitted bill. DenominationNone is
// reserved for BlankBill and is not valid on the wire.
func (d Denomination) Valid() bool {
	return slices.Contains(Denominations, d)
}

// Bill is a value type; copies are independent.
type Bill struct {
	Grid         [GridSize]Element
	Denomination Denomination
}

// NewBill returns the bill a participant starts editing from.
func NewBill() Bill {
	return Bill{Denomination: DefaultDenomination}
}

// BlankBill stands in for a guesser who never submitted before the timer ran
// out. It has no elements and no denomination, so it scores nothing.
func BlankBill() Bill {
	return Bill{}
}

// Placed counts non-empty cells.
func (b Bill) Placed() int {
	n := 0
	for _, e := range b.Grid {
		if e != ElementNone {
			n++
		}
	}
	return n
}

// Usage summarises which elements a bill uses, for guesser-side hints.
type Usage struct {
	Kinds []Element
	Count int
}

func (b Bill) Usage() Usage {
	u := Usage{Kinds: []Element{}}
	for _, kind := range Elements {
		if slices.Contains(b.Grid[:], kind) {
			u.Kinds = append(u.Kinds, kind)
		}
	}
	u.Count = b.Placed()
	return u
}

// Validate checks every cell and the denomination.
func (b Bill) Validate() error {
	for i, e := range b.Grid {
		if !e.Valid() {
			return errorf(KindInvalid, "unknown element %q at cell %d", e, i)
		}
	}
	if !b.Denomination.Valid() {
		return errorf(KindInvalid, "unknown denomination %q", b.Denomination)
	}
	return nil
}

type billWire struct {
	Grid         []*Element   `json:"grid"`
	Denomination Denomination `json:"denomination"`
}

// MarshalJSON writes empty cells as null.
func (b Bill) MarshalJSON() ([]byte, error) {
	w := billWire{
		Grid:         make([]*Element, GridSize),
		Denomination: b.Denomination,
	}
	for i, e := range b.Grid {
		if e != ElementNone {
			w.Grid[i] = &e
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts null or "" for empty cells and rejects grids that are
// not exactly GridSize long.
func (b *Bill) UnmarshalJSON(data []byte) error {
	var w billWire
	if err := json.Unmarshal(data, &w); err != nil {
		return errorf(KindInvalid, "malformed bill: %v", err)
	}
	if len(w.Grid) != GridSize {
		return errorf(KindInvalid, "bill grid must have %d cells, got %d", GridSize, len(w.Grid))
	}

	var out Bill
	for i, e := range w.Grid {
		if e != nil {
			out.Grid[i] = *e
		}
	}
	out.Denomination = w.Denomination

	if err := out.Validate(); err != nil {
		return err
	}

	*b = out
	return nil
}
