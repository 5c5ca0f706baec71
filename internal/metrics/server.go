package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/navexpect/internal/store"
)

// RunReader is the read side of the run store. *store.Store satisfies it.
type RunReader interface {
	ReadRun(ctx context.Context, id string) (store.Run, error)
	ListRuns(ctx context.Context, scenario string) ([]store.Run, error)
	ReadEvents(ctx context.Context, runID string) ([]store.Event, error)
}

var _ RunReader = (*store.Store)(nil)

// NewRouter serves /metrics from g, /healthz, and, when runs is non-nil,
// the recorded runs under /api/v1/runs.
func NewRouter(g prometheus.Gatherer, runs RunReader) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	if runs != nil {
		h := &runHandler{runs: runs}
		api := r.PathPrefix("/api/v1").Subrouter()
		api.HandleFunc("/runs", h.list).Methods(http.MethodGet)
		api.HandleFunc("/runs/{id}", h.get).Methods(http.MethodGet)
		api.HandleFunc("/runs/{id}/events", h.events).Methods(http.MethodGet)
	}
	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type runHandler struct {
	runs RunReader
}

// GET /api/v1/runs?scenario=name
func (h *runHandler) list(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.ListRuns(r.Context(), r.URL.Query().Get("scenario"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GET /api/v1/runs/{id}
func (h *runHandler) get(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.ReadRun(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GET /api/v1/runs/{id}/events
func (h *runHandler) events(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.runs.ReadRun(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	events, err := h.runs.ReadEvents(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []store.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve runs handler on addr until ctx ends, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
