package canvas

import (
	"fmt"
	"math"
	"moodboard-server/core"
)

const (
	DefaultCellSize = 250.0
	MinCellSize     = 150.0
	MaxCellSize     = 500.0
	DefaultGap      = 16.0
	MaxGap          = 48.0
)

// Grid lays items out in uniform cells, ignoring their freeform geometry. Columns fill
// the available width; each column stretches so the row spans the whole width.
type Grid struct {
	CellSize float64 `json:"cellSize"`
	Gap      float64 `json:"gap"`
}

type Placement struct {
	ItemID   string        `json:"itemId"`
	Column   int           `json:"column"`
	Row      int           `json:"row"`
	Geometry core.Geometry `json:"geometry"`
}

func NewGrid(cellSize, gap float64) (Grid, error) {
	if !finite(cellSize) || cellSize < MinCellSize || cellSize > MaxCellSize {
		return Grid{}, core.Validation(fmt.Sprintf("cell size must be between %.0f and %.0f", MinCellSize, MaxCellSize))
	}
	if !finite(gap) || gap < 0 || gap > MaxGap {
		return Grid{}, core.Validation(fmt.Sprintf("gap must be between 0 and %.0f", MaxGap))
	}
	return Grid{CellSize: cellSize, Gap: gap}, nil
}

// ValidWidth reports whether width can be laid out: finite and positive.
func ValidWidth(width float64) bool {
	return finite(width) && width > 0
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func DefaultGrid() Grid {
	return Grid{CellSize: DefaultCellSize, Gap: DefaultGap}
}

// Columns is the number of cells that fit in width, at least one.
func (g Grid) Columns(width float64) int {
	cols := int((width + g.Gap) / (g.CellSize + g.Gap))
	return max(1, cols)
}

// Place returns one placement per item, row-major in collection order.
func (g Grid) Place(items []core.BoardItem, width float64) []Placement {
	cols := g.Columns(width)
	cellWidth := (width - g.Gap*float64(cols-1)) / float64(cols)
	cellWidth = max(cellWidth, g.CellSize)

	placements := make([]Placement, 0, len(items))
	for i, item := range items {
		col, row := i%cols, i/cols
		placements = append(placements, Placement{
			ItemID: item.ID,
			Column: col,
			Row:    row,
			Geometry: core.Geometry{
				Position: core.Point{
					X: float64(col) * (cellWidth + g.Gap),
					Y: float64(row) * (g.CellSize + g.Gap),
				},
				Size: core.Size{Width: cellWidth, Height: g.CellSize},
			},
		})
	}
	return placements
}
