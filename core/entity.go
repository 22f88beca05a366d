package core

import (
	"context"
	"strings"
)

// MinItemSize is the smallest width or height an item may have on the freeform surface.
const MinItemSize = 50.0

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindText  Kind = "text"
)

var (
	DefaultPosition = Point{X: 10, Y: 10}
	DefaultSize     = Size{Width: 250, Height: 250}
)

type (
	Kind string

	Point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	Size struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}

	// Geometry is only meaningful on the freeform surface; the grid ignores it.
	Geometry struct {
		Position Point `json:"position"`
		Size     Size  `json:"size"`
	}

	BoardItem struct {
		ID       string    `json:"id"`
		Kind     Kind      `json:"kind"`
		Content  string    `json:"content"`
		Label    string    `json:"label,omitempty"`
		Geometry *Geometry `json:"geometry,omitempty"`
	}

	// ItemPatch is a partial update addressed by item id. Nil fields are left untouched.
	ItemPatch struct {
		Position *Point  `json:"position,omitempty"`
		Size     *Size   `json:"size,omitempty"`
		Content  *string `json:"content,omitempty"`
		Label    *string `json:"label,omitempty"`
	}

	BoardStore interface {
		Append(ctx context.Context, item BoardItem) (BoardItem, error)
		Get(ctx context.Context, id string) (BoardItem, error)
		List(ctx context.Context) ([]BoardItem, error)
		// Update applies patch to the item. removed reports that the patch emptied a
		// text item and the item was dropped from the board instead.
		Update(ctx context.Context, id string, patch ItemPatch) (item BoardItem, removed bool, err error)
		Remove(ctx context.Context, id string) error
	}

	Media struct {
		ID       string
		MimeType string
		Data     []byte
	}

	MediaStore interface {
		Put(ctx context.Context, data []byte, mimeType string) (string, error)
		Open(ctx context.Context, id string) (*Media, error)
	}
)

func (k Kind) Valid() bool {
	switch k {
	case KindImage, KindVideo, KindText:
		return true
	}
	return false
}

// GeometryOrDefault returns the item's geometry, filling in the defaults used by the
// freeform surface for items that were created without one.
func (i BoardItem) GeometryOrDefault() Geometry {
	if i.Geometry == nil {
		return Geometry{Position: DefaultPosition, Size: DefaultSize}
	}
	return *i.Geometry
}

// BlankText reports whether s would leave a text item empty.
func BlankText(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ClampSize raises each axis to at least MinItemSize.
func ClampSize(s Size) Size {
	return Size{Width: max(MinItemSize, s.Width), Height: max(MinItemSize, s.Height)}
}

func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}
