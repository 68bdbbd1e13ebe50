// Package status exposes file-run tracking over HTTP, so upstream teams can
// check what happened to an upload without database access.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/gridport/internal/store"
)

// Runs is the slice of the status store the handler needs.
type Runs interface {
	LatestRun(ctx context.Context, fileName string) (*store.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*store.Run, error)
}

type Handler struct {
	runs Runs
}

func NewHandler(runs Runs) *Handler {
	return &Handler{runs: runs}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{file}", h.latest)
}

type runResponse struct {
	ID         string     `json:"id"`
	FileName   string     `json:"file_name"`
	ObjectKey  string     `json:"object_key,omitempty"`
	SizeBytes  int64      `json:"size_bytes"`
	Status     string     `json:"status"`
	Detail     string     `json:"detail,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func toResponse(run *store.Run) runResponse {
	return runResponse{
		ID:         run.ID.String(),
		FileName:   run.FileName,
		ObjectKey:  run.ObjectKey,
		SizeBytes:  run.SizeBytes,
		Status:     string(run.Status),
		Detail:     run.Detail,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		slog.Error("listing runs", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toResponse(run))
	}

	writeJSON(w, out)
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "file")

	run, err := h.runs.LatestRun(r.Context(), fileName)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			http.Error(w, "no runs for file", http.StatusNotFound)
			return
		}

		slog.Error("getting run", "file", fileName, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	writeJSON(w, toResponse(run))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
