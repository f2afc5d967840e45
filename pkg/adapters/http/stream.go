package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

// StreamManager wakes event streams when a run they follow has changed.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan struct{}]struct{} // run ID -> set of channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel signalled after every change to runID and a
// function releasing it.
func (sm *StreamManager) Subscribe(runID string) (<-chan struct{}, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan struct{}, 1)
	if _, ok := sm.subscribers[runID]; !ok {
		sm.subscribers[runID] = make(map[chan struct{}]struct{})
	}
	sm.subscribers[runID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[runID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(sm.subscribers, runID)
			}
		}
	}
}

// Broadcast signals every subscriber of runID. Signals coalesce: a stream
// that is busy picks up all changes on its next read.
func (sm *StreamManager) Broadcast(runID string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers[runID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SubscribeEvents handles GET /runs/{id}/events (SSE).
//
// Every ledger entry from ?since= onwards is sent as a "step" event. When the
// run has finished a final "status" event carries its summary and the
// stream closes. Runs driven elsewhere are picked up by polling.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	wake, cancel := s.Streams.Subscribe(id)
	defer cancel()

	run, err := s.Engine.Inspect(ctx, id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	next := queryInt(r, "since")
	for {
		if run.Ledger != nil {
			for _, entry := range run.Ledger.Since(next) {
				writeEvent(w, "step", entry)
				next = entry.Index + 1
			}
		}
		if run.Status.Finished() {
			writeEvent(w, "status", domain.SummaryOf(run))
			flusher.Flush()
			return
		}
		flusher.Flush()

		select {
		case <-ctx.Done():
			slog.Debug("SSE client disconnected", "run_id", id)
			return
		case <-wake:
		case <-ticker.C:
		}

		run, err = s.Engine.Inspect(ctx, id)
		if err != nil {
			writeEvent(w, "error", errorBody{Error: err.Error()})
			flusher.Flush()
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("SSE encode failed", "event", event, "err", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

