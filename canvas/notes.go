package canvas

import (
	"context"
	"moodboard-server/core"
)

var (
	noteOffset = core.Point{X: 20, Y: 20}
	noteSize   = core.Size{Width: 200, Height: 100}
)

// NewNote builds the placeholder text item added by "add note". On the freeform
// surface it is placed just inside the visible area given by scroll.
func NewNote(freeform bool, scroll core.Point) core.BoardItem {
	g := &core.Geometry{Position: core.DefaultPosition, Size: noteSize}
	if freeform {
		g.Position = scroll.Add(noteOffset)
	}
	return core.BoardItem{
		Kind:     core.KindText,
		Content:  "New Note",
		Label:    "Text Note",
		Geometry: g,
	}
}

// CommitText applies the text editor's blur: blank text removes the note, anything
// else replaces its content and keeps id, kind and geometry.
func CommitText(ctx context.Context, items ItemStore, id, text string) (core.BoardItem, bool, error) {
	item, err := items.Get(ctx, id)
	if err != nil {
		return core.BoardItem{}, false, err
	}
	if item.Kind != core.KindText {
		return core.BoardItem{}, false, core.Validation("only text items can be edited inline")
	}
	return items.Update(ctx, id, core.ItemPatch{Content: &text})
}
