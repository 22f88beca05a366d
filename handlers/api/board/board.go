package board

import (
	"encoding/json"
	"moodboard-server/canvas"
	"moodboard-server/core"
	"moodboard-server/handlers/api"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	AddItemRequest struct {
		Kind     core.Kind      `json:"kind"`
		Content  string         `json:"content"`
		Label    string         `json:"label"`
		Geometry *core.Geometry `json:"geometry"`
	}

	AddNoteRequest struct {
		Freeform bool       `json:"freeform"`
		Scroll   core.Point `json:"scroll"`
	}

	CommitTextRequest struct {
		Text string `json:"text"`
	}

	PatchResponse struct {
		Item    *core.BoardItem `json:"item,omitempty"`
		Removed bool            `json:"removed"`
	}

	GridResponse struct {
		Grid       canvas.Grid        `json:"grid"`
		Columns    int                `json:"columns"`
		Placements []canvas.Placement `json:"placements"`
	}
)

// Broadcaster is told about item changes made over HTTP so connected surfaces can
// follow them. It may be nil.
type Broadcaster interface {
	ItemUpdated(item core.BoardItem)
	ItemRemoved(id string)
}

// HandleList returns every item in insertion order.
func HandleList(store core.BoardStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := store.List(r.Context())
		if err != nil {
			api.WriteError(w, r, err, "Failed to list board items")
			return
		}
		if items == nil {
			items = []core.BoardItem{}
		}
		render.JSON(w, r, items)
	}
}

// HandleAdd appends an item to the end of the collection.
func HandleAdd(store core.BoardStore, b Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteError(w, r, core.Validation("Invalid request body"), "Invalid request body")
			return
		}

		item, err := store.Append(r.Context(), core.BoardItem{
			Kind:     req.Kind,
			Content:  req.Content,
			Label:    req.Label,
			Geometry: req.Geometry,
		})
		if err != nil {
			api.WriteError(w, r, err, "Failed to add board item")
			return
		}
		if b != nil {
			b.ItemUpdated(item)
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, item)
	}
}

// HandleAddNote appends a placeholder text note.
func HandleAddNote(store core.BoardStore, b Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddNoteRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				api.WriteError(w, r, core.Validation("Invalid request body"), "Invalid request body")
				return
			}
		}

		item, err := store.Append(r.Context(), canvas.NewNote(req.Freeform, req.Scroll))
		if err != nil {
			api.WriteError(w, r, err, "Failed to add note")
			return
		}
		if b != nil {
			b.ItemUpdated(item)
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, item)
	}
}

// HandlePatch applies a partial update to one item.
func HandlePatch(store core.BoardStore, b Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var patch core.ItemPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			api.WriteError(w, r, core.Validation("Invalid request body"), "Invalid request body")
			return
		}

		item, removed, err := store.Update(r.Context(), id, patch)
		if err != nil {
			api.WriteError(w, r, err, "Failed to update board item")
			return
		}
		render.JSON(w, r, patchResponse(b, id, item, removed))
	}
}

// HandleCommitText replaces a note's text; blank text deletes the note.
func HandleCommitText(store core.BoardStore, b Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req CommitTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteError(w, r, core.Validation("Invalid request body"), "Invalid request body")
			return
		}

		item, removed, err := canvas.CommitText(r.Context(), store, id, req.Text)
		if err != nil {
			api.WriteError(w, r, err, "Failed to update note")
			return
		}
		render.JSON(w, r, patchResponse(b, id, item, removed))
	}
}

func HandleDelete(store core.BoardStore, b Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := store.Remove(r.Context(), id); err != nil {
			api.WriteError(w, r, err, "Failed to delete board item")
			return
		}
		if b != nil {
			b.ItemRemoved(id)
		}

		logrus.WithField("item_id", id).Info("Board item deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleGrid lays the collection out on the grid surface. cellSize, gap and width
// come from the query string; the first two default to the grid defaults.
func HandleGrid(store core.BoardStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cellSize := parseFloatQuery(r, "cellSize", canvas.DefaultCellSize)
		gap := parseFloatQuery(r, "gap", canvas.DefaultGap)
		width := parseFloatQuery(r, "width", 0)

		grid, err := canvas.NewGrid(cellSize, gap)
		if err != nil {
			api.WriteError(w, r, err, "Invalid grid parameters")
			return
		}
		if !canvas.ValidWidth(width) {
			api.WriteError(w, r, core.Validation("width must be a positive number"), "Invalid grid parameters")
			return
		}

		items, err := store.List(r.Context())
		if err != nil {
			api.WriteError(w, r, err, "Failed to list board items")
			return
		}

		render.JSON(w, r, GridResponse{
			Grid:       grid,
			Columns:    grid.Columns(width),
			Placements: grid.Place(items, width),
		})
	}
}

func patchResponse(b Broadcaster, id string, item core.BoardItem, removed bool) PatchResponse {
	if removed {
		if b != nil {
			b.ItemRemoved(id)
		}
		return PatchResponse{Removed: true}
	}
	if b != nil {
		b.ItemUpdated(item)
	}
	return PatchResponse{Item: &item}
}

// parseFloatQuery parses a float query parameter, falling back to defaultValue when it
// is missing or malformed.
func parseFloatQuery(r *http.Request, param string, defaultValue float64) float64 {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
