package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/scoreboard/internal/roster"
)

func rosterID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "roster id must be a number")
		return 0, false
	}
	return id, true
}

func (h *handlers) handleSearchRoster() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		list, err := h.roster.Search(r.Context(), roster.SearchQuery{
			Text:  q.Get("q"),
			Sport: q.Get("sport"),
			Sort:  roster.Sort(q.Get("sort")),
			Limit: limit,
		})
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (h *handlers) handleAddRoster() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roster.Entry
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		e, err := h.roster.Add(r.Context(), req)
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func (h *handlers) handleGetRoster() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := rosterID(w, r)
		if !ok {
			return
		}
		e, err := h.roster.Get(r.Context(), id)
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func (h *handlers) handleUpdateRoster() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := rosterID(w, r)
		if !ok {
			return
		}
		var req roster.Entry
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		e, err := h.roster.Update(r.Context(), id, req)
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func (h *handlers) handleDeleteRoster() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := rosterID(w, r)
		if !ok {
			return
		}
		if err := h.roster.Delete(r.Context(), id); err != nil {
			h.writeErr(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleImportRoster takes CSV either as the raw body or as a multipart
// "file" part.
func (h *handlers) handleImportRoster() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 5<<20)
		var src io.Reader = r.Body
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			file, _, err := r.FormFile("file")
			if err != nil {
				writeError(w, http.StatusBadRequest, "missing file part")
				return
			}
			defer file.Close()
			src = file
		}
		res, err := h.roster.ImportCSV(r.Context(), src)
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type LoadRequest struct {
	Player int `json:"player"`
}

func (h *handlers) handleLoadRoster() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := rosterID(w, r)
		if !ok {
			return
		}
		var req LoadRequest
		if err := readJSON(w, r, &req); err != nil {
			h.writeErr(w, r, err)
			return
		}
		st, err := h.roster.LoadIntoMatch(r.Context(), id, req.Player)
		h.respondState(w, r, st, err)
	}
}
