package media

import (
	"io"
	"moodboard-server/core"
	"moodboard-server/handlers/api"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// MaxUploadSize bounds uploaded media.
const MaxUploadSize = 32 << 20

type UploadResponse struct {
	Locator string `json:"locator"`
}

// HandleGet serves stored media by id with its original content type.
func HandleGet(store core.MediaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		m, err := store.Open(r.Context(), id)
		if err != nil {
			api.WriteError(w, r, err, "Failed to load media")
			return
		}

		w.Header().Set("Content-Type", m.MimeType)
		w.Header().Set("Content-Length", strconv.Itoa(len(m.Data)))
		w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
		w.Write(m.Data)
	}
}

// HandleUpload stores the raw request body and returns its locator. Only images and
// videos are accepted.
func HandleUpload(store core.MediaStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mimeType := r.Header.Get("Content-Type")
		if !strings.HasPrefix(mimeType, "image/") && !strings.HasPrefix(mimeType, "video/") {
			api.WriteError(w, r, core.Validation("only image and video uploads are supported"), "Unsupported media type")
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadSize))
		if err != nil {
			api.WriteError(w, r, core.Validation("upload is too large or unreadable"), "Failed to read upload")
			return
		}
		defer r.Body.Close()

		if len(data) == 0 {
			api.WriteError(w, r, core.Validation("upload is empty"), "Empty upload")
			return
		}

		locator, err := store.Put(r.Context(), data, mimeType)
		if err != nil {
			api.WriteError(w, r, err, "Failed to store media")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, UploadResponse{Locator: locator})
	}
}
