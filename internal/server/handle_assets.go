package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/scoreboard/internal/assets"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

func (h *handlers) handleListAssets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		list, err := h.assets.List(r.Context(), assets.Filter{
			Type:  scoreboard.AssetType(q.Get("type")),
			Tag:   q.Get("tag"),
			Limit: limit,
		})
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// handleUploadAsset accepts a multipart form with a "file" part and optional
// "id", "type" and comma-separated "tags" fields.
func (h *handlers) handleUploadAsset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := h.assets.MaxBytes()
		r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, assets.UploadResult{Error: "invalid multipart form: " + err.Error()})
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, assets.UploadResult{Error: "missing file part"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, limit+1))
		if err != nil {
			h.writeErr(w, r, err)
			return
		}

		var tags []string
		if raw := r.FormValue("tags"); raw != "" {
			tags = strings.Split(raw, ",")
		}
		res := h.assets.Upload(r.Context(), assets.UploadRequest{
			ID:       r.FormValue("id"),
			Filename: header.Filename,
			MIME:     header.Header.Get("Content-Type"),
			Type:     scoreboard.AssetType(r.FormValue("type")),
			Tags:     tags,
			Data:     data,
		})
		switch {
		case res.Success:
			writeJSON(w, http.StatusCreated, res)
		case res.Rejected():
			writeJSON(w, http.StatusUnprocessableEntity, res)
		default:
			writeJSON(w, http.StatusInternalServerError, res)
		}
	}
}

func (h *handlers) handleGetAsset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := h.assets.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// handleAssetBlob serves the image bytes. URLs carry a version query, so
// responses may be cached.
func (h *handlers) handleAssetBlob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, data, err := h.assets.Blob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		w.Header().Set("Content-Type", a.MIME)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		if r.URL.Query().Get("v") != "" {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}
		if a.MIME == assets.MIMESVG {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
		}
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

type TagsRequest struct {
	Tags []string `json:"tags"`
}

func (h *handlers) handleSetAssetTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TagsRequest
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		a, err := h.assets.SetTags(r.Context(), chi.URLParam(r, "id"), req.Tags)
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func (h *handlers) handleDeleteAsset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.assets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			h.writeErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
