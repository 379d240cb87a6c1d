package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danharker/lexsem"
	"github.com/danharker/lexsem/obligation"
)

type handler struct {
	engine lexsem.Engine
}

func newHandler(e lexsem.Engine) *handler {
	return &handler{engine: e}
}

// POST /analyze
// Accepts JSON with an inline body or a server-local file path.
func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req struct {
		DocID     string `json:"doc_id"`
		Body      string `json:"body,omitempty"`
		Path      string `json:"path,omitempty"`
		Title     string `json:"title,omitempty"`
		FamilyKey string `json:"family_key,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.DocID == "" {
		writeError(w, http.StatusBadRequest, "doc_id is required")
		return
	}
	if req.Body == "" && req.Path == "" {
		writeError(w, http.StatusBadRequest, "either body or path is required")
		return
	}

	var opts []lexsem.AnalyzeOption
	if req.Title != "" {
		opts = append(opts, lexsem.WithTitle(req.Title))
	}
	if req.FamilyKey != "" {
		opts = append(opts, lexsem.WithFamilyKey(req.FamilyKey))
	}

	var (
		analysis *lexsem.Analysis
		err      error
	)
	if req.Body != "" {
		analysis, err = h.engine.AnalyzeText(ctx, req.DocID, req.Body, opts...)
	} else {
		absPath, perr := filepath.Abs(req.Path)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid path")
			return
		}
		info, serr := os.Stat(absPath)
		if serr != nil || info.IsDir() {
			writeError(w, http.StatusBadRequest, "path must be an existing file")
			return
		}
		analysis, err = h.engine.Analyze(ctx, req.DocID, absPath, opts...)
	}
	if err != nil {
		switch {
		case errors.Is(err, lexsem.ErrEmptyDocument),
			errors.Is(err, lexsem.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "analysis failed")
			slog.Error("analyze error", "doc_id", req.DocID, "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// POST /diff
func (h *handler) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocID   string `json:"doc_id"`
		FromRev string `json:"from_rev"`
		ToRev   string `json:"to_rev"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.DocID == "" || req.FromRev == "" || req.ToRev == "" {
		writeError(w, http.StatusBadRequest, "doc_id, from_rev and to_rev are required")
		return
	}

	diff, err := h.engine.DiffRevisions(r.Context(), req.DocID, req.FromRev, req.ToRev)
	if err != nil {
		switch {
		case errors.Is(err, lexsem.ErrRevisionNotFound),
			errors.Is(err, lexsem.ErrRunNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "diff failed")
			slog.Error("diff error", "doc_id", req.DocID, "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, diff)
}

// POST /activate
func (h *handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocID string            `json:"doc_id"`
		RevID string            `json:"rev_id"`
		Facts []obligation.Fact `json:"facts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.DocID == "" || req.RevID == "" {
		writeError(w, http.StatusBadRequest, "doc_id and rev_id are required")
		return
	}

	res, err := h.engine.Activation(r.Context(), req.DocID, req.RevID, req.Facts)
	if err != nil {
		switch {
		case errors.Is(err, lexsem.ErrRevisionNotFound),
			errors.Is(err, lexsem.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "activation failed")
			slog.Error("activation error", "doc_id", req.DocID, "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GET /documents/{id}/graph?rev=<rev_id>
func (h *handler) handleGraph(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	revID := r.URL.Query().Get("rev")
	if revID == "" {
		writeError(w, http.StatusBadRequest, "rev query parameter is required")
		return
	}

	payload, err := h.engine.Graph(r.Context(), docID, revID)
	if err != nil {
		if errors.Is(err, lexsem.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "graph lookup failed")
		slog.Error("graph error", "doc_id", docID, "rev_id", revID, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

// DELETE /documents/{id}
func (h *handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")

	if err := h.engine.Delete(r.Context(), docID); err != nil {
		if errors.Is(err, lexsem.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "delete failed")
		slog.Error("delete error", "doc_id", docID, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /documents
func (h *handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.engine.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		slog.Error("list documents error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
