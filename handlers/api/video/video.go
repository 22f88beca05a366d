package video

import (
	"encoding/json"
	"errors"
	"moodboard-server/core"
	"moodboard-server/handlers/api"
	"moodboard-server/jobs"
	"moodboard-server/stores/memory"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	// StartRequest describes a video job. The source image is either inlined or
	// referenced by the locator of stored media.
	StartRequest struct {
		Prompt       string            `json:"prompt"`
		Image        *core.InlineImage `json:"image"`
		ImageLocator string            `json:"imageLocator"`
		AspectRatio  string            `json:"aspectRatio"`
	}

	SurfaceResponse struct {
		ID  string   `json:"id"`
		Job core.Job `json:"job"`
	}

	CredentialRequest struct {
		Key string `json:"key"`
	}

	CredentialResponse struct {
		Selected bool `json:"selected"`
	}
)

// HandleCreateSurface opens a video surface.
func HandleCreateSurface(surfaces *jobs.Surfaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, p := surfaces.Create()
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, SurfaceResponse{ID: id, Job: p.Snapshot()})
	}
}

// HandleGetSurface reports the surface's current job.
func HandleGetSurface(surfaces *jobs.Surfaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		p, err := surfaces.Get(id)
		if err != nil {
			api.WriteError(w, r, err, "Failed to get video surface")
			return
		}
		render.JSON(w, r, SurfaceResponse{ID: id, Job: p.Snapshot()})
	}
}

// HandleStart submits a video job on the surface, replacing any job already running
// there. It answers once the submission was accepted or rejected.
func HandleStart(surfaces *jobs.Surfaces, media core.MediaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		p, err := surfaces.Get(id)
		if err != nil {
			api.WriteError(w, r, err, "Failed to get video surface")
			return
		}

		var req StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteError(w, r, core.Validation("Invalid request body"), "Invalid request body")
			return
		}

		videoReq := core.VideoRequest{Prompt: req.Prompt, Image: req.Image, AspectRatio: req.AspectRatio}
		if req.ImageLocator != "" {
			img, err := resolveImage(r, media, req.ImageLocator)
			if err != nil {
				api.WriteError(w, r, err, "Failed to load source image")
				return
			}
			videoReq.Image = img
		}

		if err := p.Start(r.Context(), videoReq); err != nil {
			if errors.Is(err, jobs.ErrSuperseded) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, api.ErrorResponse{Error: err.Error()})
				return
			}
			api.WriteError(w, r, err, "Failed to start video generation")
			return
		}

		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, SurfaceResponse{ID: id, Job: p.Snapshot()})
	}
}

// HandleCollect adds the surface's finished video to the board.
func HandleCollect(surfaces *jobs.Surfaces, board core.BoardStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		p, err := surfaces.Get(id)
		if err != nil {
			api.WriteError(w, r, err, "Failed to get video surface")
			return
		}

		item, err := p.Collect(r.Context(), board)
		if err != nil {
			api.WriteError(w, r, err, "Failed to add video to board")
			return
		}

		logrus.WithFields(logrus.Fields{
			"surface_id": id,
			"item_id":    item.ID,
		}).Info("Generated video added to board")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, item)
	}
}

// HandleDeleteSurface tears the surface down, stopping any polling.
func HandleDeleteSurface(surfaces *jobs.Surfaces) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := surfaces.Teardown(chi.URLParam(r, "id")); err != nil {
			api.WriteError(w, r, err, "Failed to delete video surface")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleGetCredential(gate core.CredentialGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, CredentialResponse{Selected: gate.HasSelected(r.Context())})
	}
}

// HandleSelectCredential selects the key video generation runs with. An empty key
// reselects the configured one.
func HandleSelectCredential(gate core.CredentialGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				api.WriteError(w, r, core.Validation("Invalid request body"), "Invalid request body")
				return
			}
		}

		if err := gate.Select(r.Context(), req.Key); err != nil {
			api.WriteError(w, r, err, "Failed to select API key")
			return
		}
		render.JSON(w, r, CredentialResponse{Selected: gate.HasSelected(r.Context())})
	}
}

func resolveImage(r *http.Request, media core.MediaStore, locator string) (*core.InlineImage, error) {
	if !strings.HasPrefix(locator, memory.MediaPathPrefix) {
		return nil, core.Validation("image locator must point at stored media")
	}
	m, err := media.Open(r.Context(), strings.TrimPrefix(locator, memory.MediaPathPrefix))
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(m.MimeType, "image/") {
		return nil, core.Validation("source media is not an image")
	}
	return &core.InlineImage{Data: m.Data, MimeType: m.MimeType}, nil
}
