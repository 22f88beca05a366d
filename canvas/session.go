package canvas

import (
	"fmt"
	"moodboard-server/core"
)

const (
	Idle Mode = iota
	Dragging
	Resizing
)

const (
	// RegionBody is the item itself; a press there drags.
	RegionBody Region = "body"
	// RegionHandle is the resize handle; a press there resizes and never drags.
	RegionHandle Region = "handle"
)

type (
	Mode int

	Region string

	// Session is one drag or resize interaction, anchored at pointer-down.
	Session struct {
		ItemID        string
		Mode          Mode
		AnchorPointer core.Point
		AnchorItem    core.Geometry
	}
)

func (m Mode) String() string {
	switch m {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// NewSession starts a session for the item with geometry g pressed at p.
func NewSession(itemID string, region Region, p core.Point, g core.Geometry) (*Session, error) {
	s := &Session{ItemID: itemID, AnchorPointer: p, AnchorItem: g}
	switch region {
	case RegionBody:
		s.Mode = Dragging
	case RegionHandle:
		s.Mode = Resizing
	default:
		return nil, core.Validation(fmt.Sprintf("unknown pointer region %q", region))
	}
	return s, nil
}

// PatchFor returns the geometry patch for the pointer at p. The result depends only on
// the anchor and p, never on earlier moves.
func (s *Session) PatchFor(p core.Point) core.ItemPatch {
	delta := p.Sub(s.AnchorPointer)
	switch s.Mode {
	case Dragging:
		pos := s.AnchorItem.Position.Add(delta)
		return core.ItemPatch{Position: &pos}
	case Resizing:
		size := core.ClampSize(core.Size{
			Width:  s.AnchorItem.Size.Width + delta.X,
			Height: s.AnchorItem.Size.Height + delta.Y,
		})
		return core.ItemPatch{Size: &size}
	}
	return core.ItemPatch{}
}
