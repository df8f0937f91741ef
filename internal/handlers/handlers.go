package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"podgraph/internal/db"
	"podgraph/pkg/tasks"
)

type Handlers struct {
	store       *db.Store
	asynqClient tasks.TaskEnqueuer
}

func New(store *db.Store, asynqClient tasks.TaskEnqueuer) *Handlers {
	return &Handlers{store: store, asynqClient: asynqClient}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handlers: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// GetHostConnections returns the host co-appearance graph: pairs of
// people who shared episodes, with the podcasts that connect them.
func (h *Handlers) GetHostConnections(w http.ResponseWriter, r *http.Request) {
	connections, err := h.store.HostConnections(r.Context())
	if err != nil {
		log.Printf("handlers: failed to load host connections: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load host connections")
		return
	}
	if connections == nil {
		connections = []db.HostConnection{}
	}
	writeJSON(w, http.StatusOK, connections)
}

// GetTrackingSummary returns the per-status crawl rollup.
func (h *Handlers) GetTrackingSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.GetTrackingSummary(r.Context())
	if err != nil {
		log.Printf("handlers: failed to load tracking summary: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load tracking summary")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"total":          summary.Total,
		"pending":        summary.Pending,
		"in_progress":    summary.InProgress,
		"success":        summary.Success,
		"failed":         summary.Failed,
		"total_episodes": summary.TotalEpisodes,
	})
}

// GetTrackingRecord returns the crawl state of one tracked podcast.
func (h *Handlers) GetTrackingRecord(w http.ResponseWriter, r *http.Request) {
	catalogID := mux.Vars(r)["catalogID"]
	rec, err := h.store.GetTrackingRecord(r.Context(), catalogID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "podcast is not tracked")
		return
	}
	if err != nil {
		log.Printf("handlers: failed to load tracking record %s: %v", catalogID, err)
		writeError(w, http.StatusInternalServerError, "failed to load tracking record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type registerRequest struct {
	CatalogIDs []string `json:"catalog_ids"`
}

// RegisterPodcasts adds catalog ids to the crawl schedule and enqueues an
// immediate crawl for each.
func (h *Handlers) RegisterPodcasts(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.CatalogIDs) == 0 {
		writeError(w, http.StatusBadRequest, "catalog_ids is required")
		return
	}

	if err := h.store.RegisterPodcasts(r.Context(), req.CatalogIDs); err != nil {
		log.Printf("handlers: failed to register podcasts: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to register podcasts")
		return
	}

	enqueued := 0
	for _, id := range req.CatalogIDs {
		task, err := tasks.NewCrawlPodcastTask(id)
		if err != nil {
			log.Printf("handlers: failed to create crawl task for %s: %v", id, err)
			continue
		}
		if _, err := h.asynqClient.Enqueue(task); err != nil {
			log.Printf("handlers: failed to enqueue crawl task for %s: %v", id, err)
			continue
		}
		enqueued++
	}

	writeJSON(w, http.StatusAccepted, map[string]int{
		"registered": len(req.CatalogIDs),
		"enqueued":   enqueued,
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
